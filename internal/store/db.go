package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps sql.DB for Postgres using pgx.
type DB struct {
	Client *sql.DB
}

// NewDB creates a Postgres connection with sane defaults.
func NewDB(connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return &DB{Client: db}, db.PingContext(context.Background())
}

// Migrate applies the schema. The partial unique index is what makes
// concurrent double check-ins lose cleanly: at most one checked_in row
// can exist per user, enforced by the database rather than a prior SELECT.
func (d *DB) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id               TEXT PRIMARY KEY,
		username         TEXT UNIQUE NOT NULL,
		email            TEXT UNIQUE NOT NULL,
		password_hash    TEXT NOT NULL,
		role             TEXT NOT NULL DEFAULT 'user',
		location_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS attendance (
		id                    TEXT PRIMARY KEY,
		user_id               TEXT NOT NULL REFERENCES users(id),
		check_in_time         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		check_out_time        TIMESTAMPTZ,
		front_image           TEXT,
		rear_image            TEXT,
		checkout_front_image  TEXT,
		checkout_rear_image   TEXT,
		checkin_latitude      DOUBLE PRECISION,
		checkin_longitude     DOUBLE PRECISION,
		checkin_city          TEXT,
		checkin_address       TEXT,
		checkout_latitude     DOUBLE PRECISION,
		checkout_longitude    DOUBLE PRECISION,
		checkout_city         TEXT,
		checkout_address      TEXT,
		status                TEXT NOT NULL DEFAULT 'checked_in'
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_user ON attendance(user_id);
	CREATE INDEX IF NOT EXISTS idx_attendance_checkin ON attendance(check_in_time);
	CREATE UNIQUE INDEX IF NOT EXISTS uq_attendance_active_per_user
		ON attendance(user_id) WHERE status = 'checked_in';
	`
	_, err := d.Client.ExecContext(ctx, schema)
	return err
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
