package observability

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module serves the prometheus scrape endpoint for the batch processes.
var Module = fx.Module("observability",
	fx.Invoke(startMetricsServer),
)

func startMetricsServer(lc fx.Lifecycle, log *zap.Logger) {
	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		addr = ":9464"
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Warn("metrics server stopped", zap.Error(err))
				}
			}()
			log.Info("metrics server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}
