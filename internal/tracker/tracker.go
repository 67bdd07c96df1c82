// Package tracker runs the consumer loop: it pulls games from the stream,
// folds them into coverage and stats, and hands every result to the sinks.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/board-coverage/internal/coverage"
	"github.com/park285/board-coverage/internal/lichess"
	"github.com/park285/board-coverage/internal/san"
	"github.com/park285/board-coverage/internal/stats"
	"go.uber.org/zap"
)

var ErrUserRequired = errors.New("tracked user is required")

// Skip reasons reported to SkipObserver.
const (
	SkipNotParticipant = "not_participant"
	SkipBadMove        = "bad_move"
)

// GameStream is the part of gamestream.Stream the loop needs.
type GameStream interface {
	Next(ctx context.Context) (lichess.Game, error)
}

// GameSummary describes the game that produced an Update.
type GameSummary struct {
	ID        string
	Speed     string
	Perf      string
	Rated     bool
	CreatedAt time.Time
	Opponent  string
	Status    string
	Winner    string
	Plies     int
}

// Update is an immutable view of the state after one processed game.
type Update struct {
	RunID    string
	Seq      int
	Game     GameSummary
	Side     san.Side
	Pushed   int
	Coverage coverage.Map
	Stats    stats.Snapshot
	At       time.Time
}

// Sink consumes updates. Errors are logged by the loop and never stop it.
type Sink interface {
	Publish(ctx context.Context, u Update) error
}

type SinkFunc func(ctx context.Context, u Update) error

func (f SinkFunc) Publish(ctx context.Context, u Update) error { return f(ctx, u) }

// SkipObserver is told about every game the loop refused.
type SkipObserver interface {
	GameSkipped(reason string)
}

type Config struct {
	UserID string
	RunID  string
}

type Service struct {
	stream GameStream
	userID string
	runID  string

	cov   *coverage.Tracker
	stats *stats.Tracker
	sinks []Sink
	skips SkipObserver

	logger *zap.Logger
	now    func() time.Time

	mu     sync.RWMutex
	latest Update
	has    bool
	seq    int
}

type Option func(*Service)

func WithSinks(sinks ...Sink) Option {
	return func(s *Service) {
		for _, sk := range sinks {
			if sk != nil {
				s.sinks = append(s.sinks, sk)
			}
		}
	}
}

func WithSkipObserver(o SkipObserver) Option {
	return func(s *Service) { s.skips = o }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(stream GameStream, cfg Config, opts ...Option) (*Service, error) {
	uid := strings.ToLower(strings.TrimSpace(cfg.UserID))
	if uid == "" {
		return nil, ErrUserRequired
	}
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	s := &Service{
		stream: stream,
		userID: uid,
		runID:  runID,
		cov:    coverage.NewTracker(),
		stats:  stats.NewTracker(),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) RunID() string { return s.runID }

// Latest returns the most recent update; false before the first game.
func (s *Service) Latest() (Update, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.has
}

// Run processes games until ctx is cancelled (nil) or the stream fails.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("tracker_start", zap.String("run_id", s.runID), zap.String("user", s.userID))
	for {
		game, err := s.stream.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info("tracker_stop", zap.String("run_id", s.runID))
				return nil
			}
			s.logger.Error("tracker_stream_failed", zap.String("run_id", s.runID), zap.Error(err))
			return err
		}
		u, ok := s.process(game)
		if !ok {
			continue
		}
		s.publish(ctx, u)
	}
}

// process applies one game. It returns false when the game was skipped.
func (s *Service) process(game lichess.Game) (Update, bool) {
	side, ok := game.SideOf(s.userID)
	if !ok {
		s.skip(game, SkipNotParticipant, nil)
		return Update{}, false
	}

	moves := game.MoveList()
	pushed, err := s.cov.UpdateFromGame(moves, side)
	if err != nil {
		// destinations pushed before the bad move are kept
		s.skip(game, SkipBadMove, err, zap.Int("pushed", pushed))
		return Update{}, false
	}

	cov := s.cov.Snapshot()
	st := s.stats.Update(game, cov, side)

	s.mu.Lock()
	s.seq++
	u := Update{
		RunID:    s.runID,
		Seq:      s.seq,
		Game:     summarize(&game, side, len(moves)),
		Side:     side,
		Pushed:   pushed,
		Coverage: cov,
		Stats:    st,
		At:       s.now().UTC(),
	}
	s.latest, s.has = u, true
	s.mu.Unlock()

	s.logger.Info("game_processed",
		zap.String("game_id", game.ID),
		zap.String("side", side.String()),
		zap.Int("pushed", pushed),
		zap.Int("games", st.GamesPlayed),
		zap.Float64("progress", st.Progress),
		zap.Int("elapsed_s", st.ElapsedSeconds),
	)
	return u, true
}

func (s *Service) publish(ctx context.Context, u Update) {
	for i, sk := range s.sinks {
		if err := sk.Publish(ctx, u); err != nil {
			s.logger.Warn("sink_publish_failed", zap.Int("sink", i), zap.String("game_id", u.Game.ID), zap.Error(err))
		}
	}
}

func (s *Service) skip(game lichess.Game, reason string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("game_id", game.ID), zap.String("reason", reason))
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	s.logger.Warn("game_skipped", fields...)
	if s.skips != nil {
		s.skips.GameSkipped(reason)
	}
}

func summarize(g *lichess.Game, side san.Side, plies int) GameSummary {
	opp := g.Players.Black
	if side == san.Black {
		opp = g.Players.White
	}
	name := "Anonymous"
	switch {
	case opp.User != nil:
		name = opp.User.Name
		if name == "" {
			name = opp.User.ID
		}
	case opp.AILevel > 0:
		name = fmt.Sprintf("Stockfish level %d", opp.AILevel)
	}
	return GameSummary{
		ID:        g.ID,
		Speed:     g.Speed,
		Perf:      g.Perf,
		Rated:     g.Rated,
		CreatedAt: g.CreatedTime(),
		Opponent:  name,
		Status:    g.Status,
		Winner:    g.Winner,
		Plies:     plies,
	}
}
