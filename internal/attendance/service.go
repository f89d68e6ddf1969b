package attendance

import (
	"context"
	"log"
	"time"

	"attendtrack/internal/media"
)

// Ledger is the session persistence the service orchestrates.
type Ledger interface {
	Insert(ctx context.Context, s Session) (Session, error)
	CompleteActive(ctx context.Context, userID string, upd CheckoutUpdate) (Session, error)
	Active(ctx context.Context, userID string) (*Session, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Session, error)
	ListJoined(ctx context.Context) ([]Session, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// Photos is the media archive surface the service needs.
type Photos interface {
	Save(direction, camera, userID, dataURL string) (string, error)
	PurgeAll() media.PurgeResult
}

// Directory answers per-user flags from the credential store.
type Directory interface {
	LocationEnabled(ctx context.Context, userID string) (bool, error)
}

// Service owns the session state machine: it validates state, stores photos
// and writes the ledger.
type Service struct {
	ledger Ledger
	photos Photos
	users  Directory
	now    func() time.Time
}

// NewService creates a session service.
func NewService(ledger Ledger, photos Photos, users Directory) *Service {
	return &Service{ledger: ledger, photos: photos, users: users, now: time.Now}
}

// CheckInInput is the client payload for a check-in.
type CheckInInput struct {
	FrontImage string   `json:"front_image"`
	RearImage  string   `json:"rear_image"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	City       *string  `json:"city"`
	Address    *string  `json:"full_address"`
}

// CheckOutInput is the client payload for a checkout.
type CheckOutInput struct {
	FrontImage string   `json:"front_image"`
	RearImage  string   `json:"rear_image"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	City       *string  `json:"city"`
	Address    *string  `json:"full_address"`
}

// CheckIn opens a session. Image saves are best-effort: a bad image is
// logged and omitted while the row still inserts. The one-active-session
// rule is enforced by the ledger's atomic insert, not a prior lookup.
func (s *Service) CheckIn(ctx context.Context, userID string, in CheckInInput) (Session, error) {
	locEnabled, err := s.users.LocationEnabled(ctx, userID)
	if err != nil {
		return Session{}, err
	}

	sess := Session{
		UserID:      userID,
		CheckInTime: s.now().UTC(),
	}
	sess.FrontImage = s.saveImage(media.DirectionCheckIn, media.CameraFront, userID, in.FrontImage)
	sess.RearImage = s.saveImage(media.DirectionCheckIn, media.CameraRear, userID, in.RearImage)

	// The flag is authoritative server-side; client-supplied coordinates
	// are dropped when tracking is off.
	if locEnabled {
		sess.CheckInLocation = Location{
			Latitude:  in.Latitude,
			Longitude: in.Longitude,
			City:      in.City,
			Address:   in.Address,
		}
	}

	created, err := s.ledger.Insert(ctx, sess)
	if err != nil {
		return Session{}, err
	}
	checkinsTotal.Inc()
	return created, nil
}

// CheckOut closes the user's active session.
func (s *Service) CheckOut(ctx context.Context, userID string, in CheckOutInput) (Session, error) {
	locEnabled, err := s.users.LocationEnabled(ctx, userID)
	if err != nil {
		return Session{}, err
	}

	upd := CheckoutUpdate{
		Time:       s.now().UTC(),
		FrontImage: s.saveImage(media.DirectionCheckOut, media.CameraFront, userID, in.FrontImage),
		RearImage:  s.saveImage(media.DirectionCheckOut, media.CameraRear, userID, in.RearImage),
	}
	if locEnabled {
		upd.Location = Location{
			Latitude:  in.Latitude,
			Longitude: in.Longitude,
			City:      in.City,
			Address:   in.Address,
		}
	}

	closed, err := s.ledger.CompleteActive(ctx, userID, upd)
	if err != nil {
		return Session{}, err
	}
	checkoutsTotal.Inc()
	return closed, nil
}

func (s *Service) saveImage(direction, camera, userID, dataURL string) *string {
	if dataURL == "" {
		return nil
	}
	name, err := s.photos.Save(direction, camera, userID, dataURL)
	if err != nil {
		imageFailuresTotal.Inc()
		log.Printf("%s %s image for user %s skipped: %v", direction, camera, userID, err)
		return nil
	}
	return &name
}

// History returns the user's recent sessions.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]Session, error) {
	return s.ledger.ListByUser(ctx, userID, limit)
}

// ActiveSession returns the open session, or nil when checked out.
func (s *Service) ActiveSession(ctx context.Context, userID string) (*Session, error) {
	return s.ledger.Active(ctx, userID)
}

// ListAll returns every session joined with usernames, newest first.
func (s *Service) ListAll(ctx context.Context) ([]Session, error) {
	return s.ledger.ListJoined(ctx)
}

// PurgeResult aggregates an administrative wipe.
type PurgeResult struct {
	RowsDeleted  int64    `json:"rows_deleted"`
	FilesRemoved int      `json:"files_removed"`
	FilesSkipped []string `json:"files_skipped,omitempty"`
}

// Purge deletes all ledger rows and all archived media. File removal is
// best-effort and never blocks the row purge.
func (s *Service) Purge(ctx context.Context) (PurgeResult, error) {
	rows, err := s.ledger.DeleteAll(ctx)
	if err != nil {
		return PurgeResult{}, err
	}
	purgedRowsTotal.Add(float64(rows))

	files := s.photos.PurgeAll()
	return PurgeResult{
		RowsDeleted:  rows,
		FilesRemoved: files.Removed,
		FilesSkipped: files.Skipped,
	}, nil
}
