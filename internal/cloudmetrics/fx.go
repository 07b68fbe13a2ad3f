package cloudmetrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/saldotech/saldo/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const pushInterval = 15 * time.Second

var Module = fx.Module("cloud.metrics",
	fx.Provide(NewPusher),
	fx.Invoke(Register),
)

// Register wires the ingestion recorder onto the shared registry and,
// when a pusher is configured, ships the registry on a ticker.
// Push failures are logged and never block ingestion.
func Register(lc fx.Lifecycle, cfg config.Config, registry *prometheus.Registry, pusher Pusher, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	setRecorder(&recorder{metrics: newMetrics(registry)})

	if pusher == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("starting cloud metrics pusher",
				zap.String("exporter", cfg.Cloud.Metrics.Exporter),
			)
			go func() {
				ticker := time.NewTicker(pushInterval)
				defer ticker.Stop()

				for {
					select {
					case <-ticker.C:
						pushCtx, pushCancel := context.WithTimeout(ctx, defaultPushTimeout)
						if err := pusher.Push(pushCtx, registry); err != nil {
							logger.Warn("cloud metrics push failed", zap.Error(err))
						}
						pushCancel()
					case <-ctx.Done():
						logger.Info("stopping cloud metrics pusher")
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
