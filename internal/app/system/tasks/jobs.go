package tasks

import (
	"context"
	"time"

	"github.com/dalemusser/stratafiles/internal/app/store/tokens"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// TokenCleanupJob sweeps expired session tokens every hour. The TTL index
// on the tokens collection does the same work; the sweep covers deployments
// where the TTL monitor is disabled or lagging.
func TokenCleanupJob(db *mongo.Database, logger *zap.Logger) Job {
	store := tokens.New(db, 0)
	return Job{
		Name:     "token_cleanup",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			deleted, err := store.DeleteExpired(ctx)
			if err != nil {
				return err
			}
			if deleted > 0 {
				logger.Info("removed expired session tokens",
					zap.Int64("count", deleted))
			}
			return nil
		},
	}
}
