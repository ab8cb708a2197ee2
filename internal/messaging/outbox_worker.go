package messaging

import (
	"context"
	"log/slog"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/sync/errgroup"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/metrics"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/repository"
)

const (
	DefaultInterval  = 1 * time.Second
	DefaultBatchSize = 50

	cleanupInterval    = 1 * time.Hour
	publishedRetention = 24 * time.Hour

	maxPublishAttempts = 3
	initialDelay       = 1 * time.Second
	maxDelay           = 30 * time.Second
)

// Publisher delivers one outbox message to the broker.
type Publisher interface {
	Publish(ctx context.Context, messageID, routingKey string, body []byte) error
}

// Units runs fn inside a unit of work and saves it when fn succeeds.
type Units interface {
	Within(ctx context.Context, fn func(*repository.UnitOfWork) error) (bool, error)
}

// OutboxWorker publishes staged outbox rows to the broker.
type OutboxWorker struct {
	store     Units
	publisher Publisher
	metrics   *metrics.Metrics
	log       *slog.Logger

	interval   time.Duration
	batchSize  int
	retryDelay time.Duration
}

func NewOutboxWorker(store Units, publisher Publisher, m *metrics.Metrics, interval time.Duration, batchSize int, logger *slog.Logger) *OutboxWorker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &OutboxWorker{
		store:      store,
		publisher:  publisher,
		metrics:    m,
		log:        logger.With(slog.String("component", "outbox")),
		interval:   interval,
		batchSize:  batchSize,
		retryDelay: initialDelay,
	}
}

// Run polls and cleans the outbox until ctx is cancelled.
func (w *OutboxWorker) Run(ctx context.Context) error {
	w.log.InfoContext(ctx, "started", slog.Duration("interval", w.interval), slog.Int("batch_size", w.batchSize))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w.tick(ctx, w.interval, w.processPending)
		return nil
	})
	g.Go(func() error {
		w.tick(ctx, cleanupInterval, w.cleanup)
		return nil
	})
	err := g.Wait()

	w.log.Info("stopped")
	return err
}

func (w *OutboxWorker) tick(ctx context.Context, every time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// processPending claims one batch and publishes it. The claimed rows stay
// locked until the batch's outcome is saved, so concurrent workers never
// publish the same row twice in one pass.
func (w *OutboxWorker) processPending(ctx context.Context) {
	var published, failed int
	_, err := w.store.Within(ctx, func(uow *repository.UnitOfWork) error {
		messages, err := uow.Outbox.GetPending(ctx, w.batchSize)
		if err != nil {
			return err
		}

		for _, msg := range messages {
			if err := w.publish(ctx, msg); err != nil {
				w.log.WarnContext(ctx, "publish failed", slog.String("message_id", msg.ID.String()),
					slog.String("routing_key", msg.RoutingKey), slog.Any("error", err))
				if err := uow.Outbox.MarkFailed(ctx, msg.ID, err.Error()); err != nil {
					return err
				}
				failed++
				continue
			}
			if err := uow.Outbox.MarkPublished(ctx, msg.ID); err != nil {
				return err
			}
			published++
		}
		return nil
	})
	if err != nil {
		w.log.ErrorContext(ctx, "process pending", slog.Any("error", err))
		return
	}

	w.metrics.OutboxPublished.Add(float64(published))
	w.metrics.OutboxFailed.Add(float64(failed))
	if published+failed > 0 {
		w.log.DebugContext(ctx, "batch done", slog.Int("published", published), slog.Int("failed", failed))
	}
}

func (w *OutboxWorker) publish(ctx context.Context, msg repository.OutboxMessage) error {
	return retry.Do(
		func() error {
			return w.publisher.Publish(ctx, msg.ID.String(), msg.RoutingKey, msg.Payload)
		},
		retry.Context(ctx),
		retry.Attempts(maxPublishAttempts),
		retry.Delay(w.retryDelay),
		retry.MaxDelay(maxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			w.log.DebugContext(ctx, "publish retry", slog.String("message_id", msg.ID.String()),
				slog.Uint64("attempt", uint64(n+1)), slog.Any("error", err))
		}),
	)
}

func (w *OutboxWorker) cleanup(ctx context.Context) {
	var deleted int64
	_, err := w.store.Within(ctx, func(uow *repository.UnitOfWork) error {
		n, err := uow.Outbox.DeletePublished(ctx, publishedRetention)
		deleted = n
		return err
	})
	if err != nil {
		w.log.ErrorContext(ctx, "cleanup", slog.Any("error", err))
		return
	}
	if deleted > 0 {
		w.log.InfoContext(ctx, "cleaned published messages", slog.Int64("deleted", deleted))
	}
}

// Stats counts outbox rows per status.
func (w *OutboxWorker) Stats(ctx context.Context) (map[string]int, error) {
	var stats map[string]int
	_, err := w.store.Within(ctx, func(uow *repository.UnitOfWork) error {
		var err error
		stats, err = uow.Outbox.Stats(ctx)
		return err
	})
	return stats, err
}
