package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"mis-dashboard/backend/internal/session/domain"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS client_tokens (
	client_id  TEXT PRIMARY KEY,
	token      TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	expires_at INTEGER
)`

// SQLiteRepository stores tokens in a local SQLite file. Times are unix seconds.
type SQLiteRepository struct {
	db   *sql.DB
	ttl  time.Duration
	nowF func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and ensures the schema.
func OpenSQLite(path string, ttl time.Duration) (*SQLiteRepository, error) {
	if path == "" {
		path = "sessions.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create client_tokens table: %w", err)
	}
	return &SQLiteRepository{db: db, ttl: ttl, nowF: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the underlying database.
func (r *SQLiteRepository) Close() error { return r.db.Close() }

// Ping verifies the database file is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

// Load returns the token for clientID, or nil if not found or expired.
func (r *SQLiteRepository) Load(ctx context.Context, clientID string) (*domain.StoredToken, error) {
	var (
		t         domain.StoredToken
		updatedAt int64
		expiresAt sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT client_id, token, updated_at, expires_at FROM client_tokens WHERE client_id = ?`,
		clientID,
	).Scan(&t.ClientID, &t.Token, &updatedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	if expiresAt.Valid {
		t.ExpiresAt = time.Unix(expiresAt.Int64, 0).UTC()
	}
	if t.Expired(r.nowF()) {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM client_tokens WHERE client_id = ?`, clientID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &t, nil
}

// Save upserts the token for clientID.
func (r *SQLiteRepository) Save(ctx context.Context, clientID, token string) error {
	now := r.nowF()
	var exp sql.NullInt64
	if e := expiry(now, r.ttl); !e.IsZero() {
		exp = sql.NullInt64{Int64: e.Unix(), Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO client_tokens (client_id, token, updated_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(client_id) DO UPDATE
		 SET token = excluded.token, updated_at = excluded.updated_at, expires_at = excluded.expires_at`,
		clientID, token, now.Unix(), exp,
	)
	return err
}

// Remove deletes the token for clientID.
func (r *SQLiteRepository) Remove(ctx context.Context, clientID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM client_tokens WHERE client_id = ?`, clientID)
	return err
}
