package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/board-coverage/internal/builder"
	"github.com/park285/board-coverage/internal/config"
	"github.com/park285/board-coverage/internal/obslog"
	"go.uber.org/zap"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := builder.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init_error", zap.Error(err))
	}
	defer deps.Close()

	if deps.HTTP != nil {
		go func() {
			logger.Info("http_listen", zap.String("addr", deps.HTTP.Addr))
			if err := deps.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http_server_error", zap.Error(err))
				stop()
			}
		}()
	}

	if banner, err := deps.Formatter.Waiting(cfg.TrackUser, cfg.StartAt.Format(time.RFC3339)); err == nil {
		fmt.Println(banner)
	}
	logger.Info("coverage_tracker_start",
		zap.String("user", cfg.TrackUser),
		zap.Time("since", cfg.StartAt),
		zap.String("run_id", deps.Service.RunID()),
	)

	runErr := deps.Service.Run(ctx)
	deps.Shutdown(context.Background())
	if runErr != nil {
		logger.Error("coverage_tracker_failed", zap.Error(runErr))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("coverage_tracker_stopped")
}
