package repository

import (
	"database/sql"
	"testing"
	"time"

	"mis-dashboard/backend/internal/db"
	"mis-dashboard/backend/internal/db/migrate"
)

func openPostgresForTest(dsn string) (*sql.DB, error) {
	if err := migrate.Run(dsn, "up"); err != nil {
		return nil, err
	}
	return db.Open(dsn)
}

func TestTimeToNullTime(t *testing.T) {
	if v := timeToNullTime(time.Time{}); v.Valid {
		t.Error("zero time should be NULL")
	}
	now := time.Now()
	if v := timeToNullTime(now); !v.Valid || !v.Time.Equal(now) {
		t.Errorf("timeToNullTime(now) = %+v", v)
	}
}
