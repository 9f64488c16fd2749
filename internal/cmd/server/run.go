package serverrun

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kyled7/queue-vision/internal/bull"
	cfgpkg "github.com/kyled7/queue-vision/internal/config"
	httpserver "github.com/kyled7/queue-vision/internal/server/http"
	eventsvc "github.com/kyled7/queue-vision/internal/services/events"
	queuesvc "github.com/kyled7/queue-vision/internal/services/queues"
	"github.com/kyled7/queue-vision/internal/telemetry"
	logpkg "github.com/kyled7/queue-vision/pkg/log"
)

// Run connects the adapter, starts the HTTP server, and blocks until ctx is
// cancelled. Disconnect is the single release point for both broker
// connections; it runs after the HTTP server has drained.
func Run(ctx context.Context, cfg cfgpkg.Config) error {
	// Be robust to callers that don't pass a signal-aware context.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate(); err != nil {
		return err
	}

	procLogger, err := logpkg.ApplyConfig(&logpkg.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		procLogger = logpkg.NewLogger()
	}
	logpkg.RedirectStdLog(procLogger)

	procLogger.Info("starting queue-vision server",
		logpkg.Str("endpoint", cfg.Endpoint),
		logpkg.Str("http", cfg.HTTPAddr),
		logpkg.Str("prefix", cfg.Prefix),
		logpkg.Int("sample_horizon", cfg.SampleHorizon),
		logpkg.Str("level", cfg.LogLevel),
		logpkg.Str("format", cfg.LogFormat),
	)

	adapter := bull.New(bull.Options{
		Prefix:         cfg.Prefix,
		SampleHorizon:  cfg.SampleHorizon,
		ConnectTimeout: time.Duration(cfg.ConnectTimeoutMs) * time.Millisecond,
		Logger:         procLogger,
	})
	if err := adapter.Connect(sctx, cfg.Endpoint); err != nil {
		return err
	}
	defer func() {
		if err := adapter.Disconnect(context.Background()); err != nil {
			procLogger.Warn("disconnect", logpkg.Err(err))
		}
	}()

	metrics := telemetry.New()
	queuesSvc := queuesvc.New(adapter, procLogger, metrics)
	eventsSvc := eventsvc.New(adapter, procLogger, metrics)
	hsrv := httpserver.New(queuesSvc, eventsSvc, metrics, procLogger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, cfg.HTTPAddr); err != nil && sctx.Err() == nil {
			procLogger.Error("http server", logpkg.Err(err))
			stop()
		}
	}()

	<-sctx.Done()
	hsrv.Close()
	wg.Wait()
	return nil
}
