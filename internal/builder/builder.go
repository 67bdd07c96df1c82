// Package builder wires the tracker and its optional outputs from config.
package builder

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/park285/board-coverage/internal/config"
	"github.com/park285/board-coverage/internal/gamestream"
	"github.com/park285/board-coverage/internal/httpapi"
	"github.com/park285/board-coverage/internal/lichess"
	"github.com/park285/board-coverage/internal/livefeed"
	"github.com/park285/board-coverage/internal/metrics"
	"github.com/park285/board-coverage/internal/msgcat"
	"github.com/park285/board-coverage/internal/presenter"
	"github.com/park285/board-coverage/internal/render"
	"github.com/park285/board-coverage/internal/sink/pgsink"
	"github.com/park285/board-coverage/internal/sink/redissink"
	"github.com/park285/board-coverage/internal/tracker"
	"go.uber.org/zap"
)

const httpShutdownTimeout = 10 * time.Second

type Deps struct {
	Source    lichess.Source
	Stream    *gamestream.Stream
	Service   *tracker.Service
	Metrics   *metrics.Metrics
	Hub       *livefeed.Hub
	Presenter *presenter.Presenter
	Formatter *presenter.Formatter
	Redis     *redissink.Sink
	Ledger    *pgsink.Ledger
	// HTTP is nil unless HTTP_ADDR is set.
	HTTP *http.Server

	logger *zap.Logger
}

// New builds everything the config asks for. Redis and Postgres are only
// dialled when their URLs are set.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{logger: logger, Metrics: metrics.New()}

	d.Source = newSource(cfg, logger)
	d.Stream = gamestream.New(d.Source, cfg.TrackUser, cfg.StartAt,
		gamestream.WithLogger(logger.Named("stream")),
		gamestream.WithObserver(d.Metrics),
	)

	cat, err := msgcat.New(cfg.MsgcatDir)
	if err != nil {
		return nil, fmt.Errorf("init messages: %w", err)
	}
	d.Formatter = presenter.NewFormatter(cat)
	d.Presenter = presenter.NewPresenter(os.Stdout, d.Formatter, cfg.TrackUser)
	d.Hub = livefeed.NewHub(cfg.TrackUser,
		livefeed.WithLogger(logger.Named("livefeed")),
		livefeed.WithOriginPatterns(originPatterns(cfg.CORSOrigins)...),
	)

	sinks := []tracker.Sink{d.Metrics, d.Presenter, d.Hub}
	if strings.TrimSpace(cfg.RedisURL) != "" {
		d.Redis, err = redissink.New(ctx, cfg.RedisURL, cfg.TrackUser, cfg.RedisChannel)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("init redis sink: %w", err)
		}
		sinks = append(sinks, d.Redis)
	}
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		d.Ledger, err = pgsink.New(ctx, cfg.DatabaseURL, cfg.TrackUser)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("init postgres ledger: %w", err)
		}
		sinks = append(sinks, d.Ledger)
	}

	d.Service, err = tracker.New(d.Stream, tracker.Config{UserID: cfg.TrackUser},
		tracker.WithSinks(sinks...),
		tracker.WithSkipObserver(d.Metrics),
		tracker.WithLogger(logger.Named("tracker")),
	)
	if err != nil {
		d.Close()
		return nil, err
	}

	if addr := strings.TrimSpace(cfg.HTTPAddr); addr != "" {
		d.HTTP = &http.Server{
			Addr: addr,
			Handler: httpapi.NewRouter(httpapi.Deps{
				Source:   d.Service,
				User:     cfg.TrackUser,
				Renderer: render.New(render.Options{}),
				Live:     d.Hub,
				Metrics:  d.Metrics.Handler(),
				Origins:  cfg.CORSOrigins,
				Logger:   logger.Named("http"),
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return d, nil
}

func newSource(cfg *config.AppConfig, logger *zap.Logger) lichess.Source {
	if path := strings.TrimSpace(cfg.SourceFile); path != "" {
		logger.Info("source_file", zap.String("path", path))
		return lichess.NewFileSource(path, cfg.SourcePageSize, logger.Named("filesource"))
	}
	opts := []lichess.Option{lichess.WithLogger(logger.Named("lichess"))}
	if cfg.LichessToken != "" {
		opts = append(opts, lichess.WithToken(cfg.LichessToken))
	}
	return lichess.NewClient(cfg.LichessBaseURL, opts...)
}

// originPatterns strips schemes; the websocket library matches host patterns.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(strings.TrimPrefix(o, "https://"), "http://")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Shutdown stops the HTTP server, if any, and disconnects live clients.
func (d *Deps) Shutdown(ctx context.Context) {
	if d.Hub != nil {
		d.Hub.Close()
	}
	if d.HTTP == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, httpShutdownTimeout)
	defer cancel()
	if err := d.HTTP.Shutdown(sctx); err != nil {
		d.logger.Warn("http_shutdown_failed", zap.Error(err))
	}
}

// Close releases the sink connections.
func (d *Deps) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.logger.Warn("redis_close_failed", zap.Error(err))
		}
	}
	if d.Ledger != nil {
		if err := d.Ledger.Close(); err != nil {
			d.logger.Warn("postgres_close_failed", zap.Error(err))
		}
	}
}
