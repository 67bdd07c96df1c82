package lichess

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

const defaultFilePageSize = 100

// FileSource replays a local export (.ndjson, .ndjson.zst or .ndjson.gz) as
// if it were served by the export endpoint. The file is read once, lazily.
type FileSource struct {
	path     string
	pageSize int
	logger   *zap.Logger

	once  sync.Once
	games []Game
	err   error
}

func NewFileSource(path string, pageSize int, logger *zap.Logger) *FileSource {
	if pageSize <= 0 {
		pageSize = defaultFilePageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSource{path: strings.TrimSpace(path), pageSize: pageSize, logger: logger}
}

// FetchPage returns up to pageSize games involving userID created at or after since.
func (s *FileSource) FetchPage(ctx context.Context, userID string, since time.Time) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	s.once.Do(s.load)
	if s.err != nil {
		return Page{}, &SourceError{Err: s.err}
	}

	sinceMs := since.UnixMilli()
	idx := sort.Search(len(s.games), func(i int) bool { return s.games[i].CreatedAt >= sinceMs })
	var out []Game
	for ; idx < len(s.games) && len(out) < s.pageSize; idx++ {
		g := s.games[idx]
		if g.Involves(userID) {
			out = append(out, g)
		}
	}
	return Page{Games: out}, nil
}

func (s *FileSource) load() {
	f, err := os.Open(s.path)
	if err != nil {
		s.err = fmt.Errorf("open export: %w", err)
		return
	}
	defer f.Close()

	r, closeFn, err := decompressor(s.path, f)
	if err != nil {
		s.err = err
		return
	}
	defer closeFn()

	games, skipped, err := decodeStream(r, nil)
	if err != nil {
		s.err = err
		return
	}
	for _, l := range skipped {
		s.logger.Warn("export_line_skipped", zap.String("path", s.path), zap.Int("line", l.Line), zap.Error(l.Err))
	}
	sort.SliceStable(games, func(i, j int) bool { return games[i].CreatedAt < games[j].CreatedAt })
	s.games = games
	s.logger.Info("export_loaded", zap.String("path", s.path), zap.Int("games", len(games)), zap.Int("skipped", len(skipped)))
}

func decompressor(path string, f io.Reader) (io.Reader, func(), error) {
	switch {
	case strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("open zst: %w", err)
		}
		return zr, zr.Close, nil
	case strings.HasSuffix(path, ".gz"):
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("open gz: %w", err)
		}
		return gr, func() { _ = gr.Close() }, nil
	default:
		return f, func() {}, nil
	}
}
