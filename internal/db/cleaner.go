package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

const deleteStaleSessions = `
    DELETE FROM sessions
     WHERE expires_at < $1
        OR (revoked_at IS NOT NULL AND revoked_at < $1)
`

// CleanSessions removes sessions that expired or were revoked before cutoff
// and returns how many rows were deleted.
func CleanSessions(ctx context.Context, db *sql.DB, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, deleteStaleSessions, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// StartSessionCleaner deletes stale sessions every interval until ctx is done.
// Sessions are kept for retention after they expire or are revoked.
func StartSessionCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rows, err := CleanSessions(ctx, db, time.Now().Add(-retention))
				if err != nil {
					log.Error("failed to clean stale sessions", zap.Error(err))
					continue
				}
				if rows > 0 {
					log.Info("cleaned stale sessions", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
