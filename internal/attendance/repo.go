package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"attendtrack/internal/apperr"
)

// Repository persists attendance sessions in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const sessionCols = `id, user_id, check_in_time, check_out_time,
	front_image, rear_image, checkout_front_image, checkout_rear_image,
	checkin_latitude, checkin_longitude, checkin_city, checkin_address,
	checkout_latitude, checkout_longitude, checkout_city, checkout_address,
	status`

func scanSession(row interface{ Scan(dest ...any) error }) (Session, error) {
	var s Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.CheckInTime, &s.CheckOutTime,
		&s.FrontImage, &s.RearImage, &s.CheckoutFrontImage, &s.CheckoutRearImage,
		&s.CheckInLocation.Latitude, &s.CheckInLocation.Longitude, &s.CheckInLocation.City, &s.CheckInLocation.Address,
		&s.CheckOutLocation.Latitude, &s.CheckOutLocation.Longitude, &s.CheckOutLocation.City, &s.CheckOutLocation.Address,
		&s.Status,
	)
	return s, err
}

// Insert writes a new checked_in session. The partial unique index on
// (user_id) WHERE status = 'checked_in' makes this the atomic
// check-and-insert: the losing side of a double submission gets a conflict.
func (r *Repository) Insert(ctx context.Context, s Session) (Session, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CheckInTime.IsZero() {
		s.CheckInTime = time.Now().UTC()
	}
	s.Status = StatusCheckedIn

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (id, user_id, check_in_time,
			front_image, rear_image,
			checkin_latitude, checkin_longitude, checkin_city, checkin_address,
			status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, s.ID, s.UserID, s.CheckInTime,
		s.FrontImage, s.RearImage,
		s.CheckInLocation.Latitude, s.CheckInLocation.Longitude, s.CheckInLocation.City, s.CheckInLocation.Address,
		s.Status)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Session{}, apperr.Conflict("already checked in")
		}
		return Session{}, err
	}
	return s, nil
}

// CheckoutUpdate carries the fields written by a checkout.
type CheckoutUpdate struct {
	Time       time.Time
	FrontImage *string
	RearImage  *string
	Location   Location
}

// CompleteActive closes the single active session for a user in one UPDATE.
// Zero matched rows means the user is not checked in.
func (r *Repository) CompleteActive(ctx context.Context, userID string, upd CheckoutUpdate) (Session, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE attendance
		SET check_out_time = $2,
			status = $3,
			checkout_front_image = $4,
			checkout_rear_image = $5,
			checkout_latitude = $6,
			checkout_longitude = $7,
			checkout_city = $8,
			checkout_address = $9
		WHERE user_id = $1 AND status = $10
		RETURNING `+sessionCols+`
	`, userID, upd.Time, StatusCheckedOut,
		upd.FrontImage, upd.RearImage,
		upd.Location.Latitude, upd.Location.Longitude, upd.Location.City, upd.Location.Address,
		StatusCheckedIn)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, apperr.NotFound("not checked in")
	}
	if err != nil {
		return Session{}, err
	}
	return s, nil
}

// Active returns the open session for a user, or nil.
func (r *Repository) Active(ctx context.Context, userID string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionCols+` FROM attendance
		WHERE user_id = $1 AND status = $2
	`, userID, StatusCheckedIn)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByUser returns a user's sessions, newest check-in first.
func (r *Repository) ListByUser(ctx context.Context, userID string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionCols+` FROM attendance
		WHERE user_id = $1
		ORDER BY check_in_time DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// ListJoined returns every session joined with its username, newest
// check-in first. This is the reporting projection.
func (r *Repository) ListJoined(ctx context.Context) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.user_id, a.check_in_time, a.check_out_time,
			a.front_image, a.rear_image, a.checkout_front_image, a.checkout_rear_image,
			a.checkin_latitude, a.checkin_longitude, a.checkin_city, a.checkin_address,
			a.checkout_latitude, a.checkout_longitude, a.checkout_city, a.checkout_address,
			a.status, u.username
		FROM attendance a
		JOIN users u ON u.id = a.user_id
		ORDER BY a.check_in_time DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.CheckInTime, &s.CheckOutTime,
			&s.FrontImage, &s.RearImage, &s.CheckoutFrontImage, &s.CheckoutRearImage,
			&s.CheckInLocation.Latitude, &s.CheckInLocation.Longitude, &s.CheckInLocation.City, &s.CheckInLocation.Address,
			&s.CheckOutLocation.Latitude, &s.CheckOutLocation.Longitude, &s.CheckOutLocation.City, &s.CheckOutLocation.Address,
			&s.Status, &s.Username,
		); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// DeleteAll purges every session row and reports the count.
func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func collect(rows *sql.Rows) ([]Session, error) {
	var res []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
