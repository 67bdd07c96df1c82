// Package httpapi serves the read-only dashboard API.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/park285/board-coverage/internal/presenter"
	"github.com/park285/board-coverage/internal/render"
	"github.com/park285/board-coverage/internal/san"
	"github.com/park285/board-coverage/internal/tracker"
	"go.uber.org/zap"
)

const requestTimeout = 15 * time.Second

// SnapshotSource is satisfied by *tracker.Service.
type SnapshotSource interface {
	Latest() (tracker.Update, bool)
	RunID() string
}

type Deps struct {
	Source   SnapshotSource
	User     string
	Renderer *render.Renderer
	// Live serves /ws; nil disables the route.
	Live http.Handler
	// Metrics serves /metrics; nil disables the route.
	Metrics http.Handler
	Origins []string
	Logger  *zap.Logger
}

type api struct {
	src      SnapshotSource
	user     string
	renderer *render.Renderer
	logger   *zap.Logger
}

// NewRouter builds the chi router.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	renderer := d.Renderer
	if renderer == nil {
		renderer = render.New(render.Options{})
	}
	a := &api{src: d.Source, user: d.User, renderer: renderer, logger: logger}

	origins := d.Origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Get("/healthz", a.health)
		r.Get("/snapshot", a.snapshot)
		r.Get("/coverage/{piece:[A-Za-z]+}.png", a.coveragePNG)
		if d.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", d.Metrics)
		}
	})
	// long-lived, outside the timeout group
	if d.Live != nil {
		r.Method(http.MethodGet, "/ws", d.Live)
	}
	return r
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	u, ok := a.src.Latest()
	games := 0
	if ok {
		games = u.Stats.GamesPlayed
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"runId":  a.src.RunID(),
		"games":  games,
	})
}

// snapshot returns an empty board before the first game.
func (a *api) snapshot(w http.ResponseWriter, r *http.Request) {
	u, ok := a.src.Latest()
	if !ok {
		u = tracker.Update{RunID: a.src.RunID()}
	}
	writeJSON(w, http.StatusOK, presenter.ToDTO(u, a.user))
}

func (a *api) coveragePNG(w http.ResponseWriter, r *http.Request) {
	piece, ok := san.ParsePieceKind(chi.URLParam(r, "piece"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown piece"})
		return
	}
	u, _ := a.src.Latest()
	renderer := a.renderer
	if counts, _ := strconv.ParseBool(r.URL.Query().Get("counts")); counts {
		renderer = a.renderer.WithCounts()
	}
	img, err := renderer.PiecePNG(r.Context(), piece, u.Coverage.Grid(piece))
	if err != nil {
		a.logger.Warn("render_failed", zap.String("piece", piece.Name()), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "render failed"})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
