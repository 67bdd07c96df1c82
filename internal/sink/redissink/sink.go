// Package redissink mirrors tracker updates into Redis for external readers.
// Nothing here is read back by the tracker.
package redissink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/park285/board-coverage/internal/presenter"
	"github.com/park285/board-coverage/internal/tracker"
	"github.com/park285/board-coverage/pkg/coveragedto"
	"github.com/redis/go-redis/v9"
)

const (
	ttlSnapshot   = 7 * 24 * time.Hour
	recentGames   = 50
	keyPrefix     = "coverage:"
	defaultChannel = "coverage:updates"
)

type Sink struct {
	rdb     *redis.Client
	user    string
	channel string
}

// New parses a redis:// URL. The connection is checked with PING.
func New(ctx context.Context, url, user, channel string) (*Sink, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewWithClient(rdb, user, channel), nil
}

func NewWithClient(rdb *redis.Client, user, channel string) *Sink {
	if strings.TrimSpace(channel) == "" {
		channel = defaultChannel
	}
	return &Sink{rdb: rdb, user: strings.ToLower(strings.TrimSpace(user)), channel: channel}
}

func (s *Sink) keyLatest() string { return keyPrefix + s.user + ":latest" }
func (s *Sink) keyGames() string  { return keyPrefix + s.user + ":games" }
func (s *Sink) keyRun() string    { return keyPrefix + s.user + ":run" }

// Publish stores the snapshot, prepends the game to the recent list and
// announces the snapshot on the channel.
func (s *Sink) Publish(ctx context.Context, u tracker.Update) error {
	snap := presenter.ToDTO(u, s.user)
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.keyLatest(), raw, ttlSnapshot)
	pipe.Set(ctx, s.keyRun(), u.RunID, ttlSnapshot)
	if snap.Game != nil {
		game, err := json.Marshal(snap.Game)
		if err != nil {
			return fmt.Errorf("encode game: %w", err)
		}
		pipe.LPush(ctx, s.keyGames(), game)
		pipe.LTrim(ctx, s.keyGames(), 0, recentGames-1)
		pipe.Expire(ctx, s.keyGames(), ttlSnapshot)
	}
	pipe.Publish(ctx, s.channel, raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (s *Sink) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

// Decode is the inverse of the stored payload, for subscribers.
func Decode(payload []byte) (coveragedto.Snapshot, error) {
	var snap coveragedto.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return coveragedto.Snapshot{}, err
	}
	return snap, nil
}
