package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// KeyCleaner removes expired idempotency keys.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdempotencyCleanup prunes idempotency keys past their retention window so
// the table does not grow without bound.
type IdempotencyCleanup struct {
	store  KeyCleaner
	logger *slog.Logger
}

// NewIdempotencyCleanup constructs the cleanup job.
func NewIdempotencyCleanup(store KeyCleaner, logger *slog.Logger) *IdempotencyCleanup {
	return &IdempotencyCleanup{store: store, logger: logger}
}

// HandleTask removes keys older than the payload's retention.
func (c *IdempotencyCleanup) HandleTask(ctx context.Context, t *asynq.Task) error {
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := payload.Retention
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	if err := c.store.Cleanup(ctx, retention); err != nil {
		return err
	}
	c.logger.Info("idempotency keys pruned", "retention", retention.String())
	return nil
}
