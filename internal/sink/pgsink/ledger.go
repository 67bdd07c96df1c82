// Package pgsink appends processed games to a Postgres ledger.
package pgsink

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/board-coverage/internal/san"
	"github.com/park285/board-coverage/internal/tracker"
)

var ErrDatabaseURLRequired = errors.New("DATABASE_URL is required")

const schema = `CREATE TABLE IF NOT EXISTS coverage_games (
    run_id          TEXT        NOT NULL,
    seq             INTEGER     NOT NULL,
    game_id         TEXT        NOT NULL,
    tracked_user    TEXT        NOT NULL,
    side            TEXT        NOT NULL,
    speed           TEXT        NOT NULL,
    opponent        TEXT        NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL,
    pushed          INTEGER     NOT NULL,
    games_played    INTEGER     NOT NULL,
    progress        DOUBLE PRECISION NOT NULL,
    elapsed_seconds INTEGER     NOT NULL,
    visited         JSONB       NOT NULL,
    processed_at    TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (run_id, game_id)
)`

const insertGame = `INSERT INTO coverage_games (
    run_id, seq, game_id, tracked_user, side, speed, opponent, created_at,
    pushed, games_played, progress, elapsed_seconds, visited, processed_at
  ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
  ON CONFLICT (run_id, game_id) DO NOTHING`

type Ledger struct {
	db   *sql.DB
	user string
}

// New opens the pool, pings it and creates the table when missing.
func New(ctx context.Context, databaseURL, user string) (*Ledger, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, ErrDatabaseURLRequired
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create coverage_games: %w", err)
	}
	return &Ledger{db: db, user: strings.ToLower(strings.TrimSpace(user))}, nil
}

func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *Ledger) Publish(ctx context.Context, u tracker.Update) error {
	if l == nil || l.db == nil {
		return nil
	}
	args, err := row(u, l.user)
	if err != nil {
		return err
	}
	if _, err := l.db.ExecContext(ctx, insertGame, args...); err != nil {
		return fmt.Errorf("insert game %s: %w", u.Game.ID, err)
	}
	return nil
}

// row builds the insert arguments in column order.
func row(u tracker.Update, user string) ([]any, error) {
	visited := make(map[string]int, san.NumPieceKinds)
	for _, p := range san.AllPieceKinds {
		visited[p.Letter()] = u.Coverage.VisitedFor(p)
	}
	raw, err := json.Marshal(visited)
	if err != nil {
		return nil, fmt.Errorf("encode visited: %w", err)
	}
	processed := u.At
	if processed.IsZero() {
		processed = time.Now().UTC()
	}
	return []any{
		u.RunID,
		u.Seq,
		u.Game.ID,
		user,
		u.Side.String(),
		u.Game.Speed,
		u.Game.Opponent,
		u.Game.CreatedAt,
		u.Pushed,
		u.Stats.GamesPlayed,
		u.Stats.Progress,
		u.Stats.ElapsedSeconds,
		string(raw),
		processed,
	}, nil
}
