package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/board-coverage/internal/clock"
	"github.com/park285/board-coverage/internal/config"
	"github.com/park285/board-coverage/internal/gamestream"
	"github.com/park285/board-coverage/internal/lichess"
	"github.com/park285/board-coverage/internal/san"
)

// sourcecheck fetches a single export page and prints what the tracker would
// do with each game.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	var src lichess.Source
	if cfg.SourceFile != "" {
		src = lichess.NewFileSource(cfg.SourceFile, cfg.SourcePageSize, nil)
	} else {
		opts := []lichess.Option{lichess.WithTimeout(15 * time.Second)}
		if cfg.LichessToken != "" {
			opts = append(opts, lichess.WithToken(cfg.LichessToken))
		}
		src = lichess.NewClient(cfg.LichessBaseURL, opts...)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	page, err := src.FetchPage(ctx, cfg.TrackUser, cfg.StartAt)
	if err != nil {
		log.Fatalf("fetch error: %v", err)
	}
	if page.RateLimited {
		log.Println("rate limited (429); wait a minute and retry")
		return
	}
	log.Printf("fetched %d games since %s (%d malformed lines)", len(page.Games), cfg.StartAt.Format(time.RFC3339), len(page.Skipped))
	for _, le := range page.Skipped {
		log.Printf("  line %d: %v", le.Line, le.Err)
	}

	for i := range page.Games {
		report(os.Stdout, &page.Games[i], cfg.TrackUser)
	}
}

func report(w io.Writer, g *lichess.Game, user string) {
	status := "track"
	if !gamestream.Qualifies(g) {
		status = "filtered"
	}
	side, ok := g.SideOf(user)
	if !ok {
		status = "not a player"
	}
	fmt.Fprintf(w, "%s  %s  %-14s  %s\n", g.CreatedTime().Format(time.RFC3339), g.ID, g.Speed, status)
	if status != "track" {
		return
	}

	moves, err := san.MovesForSide(g.MoveList(), side)
	if err != nil {
		fmt.Fprintf(w, "    moves: %v\n", err)
		return
	}
	dests := make([]string, 0, len(moves))
	for _, mv := range moves {
		piece, sq, err := san.Resolve(mv, side)
		if err != nil {
			dests = append(dests, "!"+mv)
			continue
		}
		dests = append(dests, piece.Letter()+sq.String())
	}
	el := clock.Compute(g.PGN, g.ClockConfig())
	fmt.Fprintf(w, "    side=%s elapsed=%s (white %s, black %s)\n", side, clock.Format(el.Total()), clock.Format(el.White), clock.Format(el.Black))
	fmt.Fprintf(w, "    %s\n", strings.Join(dests, " "))
}
