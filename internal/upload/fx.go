package upload

import (
	"context"

	"github.com/saldotech/saldo/internal/config"
	"github.com/saldotech/saldo/internal/upload/domain"
	"github.com/saldotech/saldo/internal/upload/queue"
	"github.com/saldotech/saldo/internal/upload/repository"
	"github.com/saldotech/saldo/internal/upload/runner"
	"github.com/saldotech/saldo/internal/upload/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("upload.service",
	fx.Provide(repository.Provide),
	fx.Provide(runner.New),
	fx.Provide(func(r *runner.Runner) queue.Runner { return r }),
	fx.Provide(NewQueue),
	fx.Provide(func(q *queue.Queue) domain.Enqueuer { return q }),
	fx.Provide(service.New),
	fx.Invoke(RecoverPending),
)

// NewQueue ties the worker pool to the application lifecycle: workers
// start with the app and drain queued jobs on shutdown.
func NewQueue(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r queue.Runner) *queue.Queue {
	q := queue.New(log, r, cfg.UploadWorkers, cfg.UploadQueueCap)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			q.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return q.Stop(ctx)
		},
	})
	return q
}

// RecoverPending re-enqueues jobs that were still marked processing when
// the previous run stopped, so an accepted upload is never lost.
func RecoverPending(lc fx.Lifecycle, db *gorm.DB, log *zap.Logger, repo domain.Repository, q *queue.Queue) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ids, err := repo.PendingIDs(ctx, db)
			if err != nil {
				log.Warn("pending upload sweep failed", zap.Error(err))
				return nil
			}
			for _, id := range ids {
				if err := q.Enqueue(id); err != nil {
					log.Warn("pending upload re-enqueue failed", zap.Int64("upload_id", id), zap.Error(err))
				}
			}
			if len(ids) > 0 {
				log.Info("re-enqueued pending uploads", zap.Int("count", len(ids)))
			}
			return nil
		},
	})
}
