package db

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AcquireUserLock takes a transaction-scoped Postgres advisory lock keyed by
// the user id. It serializes balance-sensitive writes (withdrawal creation,
// conversion, claim, upgrade) for one user without blocking anyone else, and
// releases automatically at commit or rollback.
func AcquireUserLock(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	return tx.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?))", userID.String()).
		Error
}
