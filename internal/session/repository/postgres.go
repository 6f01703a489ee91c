package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mis-dashboard/backend/internal/session/domain"
)

// PostgresRepository stores tokens in the client_tokens table created by the embedded migrations.
type PostgresRepository struct {
	db   *sql.DB
	ttl  time.Duration
	nowF func() time.Time
}

// NewPostgresRepository returns a token store over db (opened with db.Open).
func NewPostgresRepository(db *sql.DB, ttl time.Duration) *PostgresRepository {
	return &PostgresRepository{db: db, ttl: ttl, nowF: func() time.Time { return time.Now().UTC() }}
}

// Load returns the token for clientID, or nil if not found or expired.
func (r *PostgresRepository) Load(ctx context.Context, clientID string) (*domain.StoredToken, error) {
	var (
		t         domain.StoredToken
		expiresAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT client_id, token, updated_at, expires_at FROM client_tokens WHERE client_id = $1`,
		clientID,
	).Scan(&t.ClientID, &t.Token, &t.UpdatedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if expiresAt.Valid {
		t.ExpiresAt = expiresAt.Time
	}
	if t.Expired(r.nowF()) {
		return nil, nil
	}
	return &t, nil
}

// Save upserts the token for clientID.
func (r *PostgresRepository) Save(ctx context.Context, clientID, token string) error {
	now := r.nowF()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO client_tokens (client_id, token, updated_at, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (client_id) DO UPDATE
		 SET token = EXCLUDED.token, updated_at = EXCLUDED.updated_at, expires_at = EXCLUDED.expires_at`,
		clientID, token, now, timeToNullTime(expiry(now, r.ttl)),
	)
	return err
}

// Remove deletes the token for clientID.
func (r *PostgresRepository) Remove(ctx context.Context, clientID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM client_tokens WHERE client_id = $1`, clientID)
	return err
}

// DeleteExpired removes every expired row and returns how many were deleted.
func (r *PostgresRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM client_tokens WHERE expires_at IS NOT NULL AND expires_at <= $1`, r.nowF())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func timeToNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
