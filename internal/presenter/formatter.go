// Package presenter turns tracker updates into DTOs and progress text.
package presenter

import (
	"fmt"
	"strings"

	"github.com/park285/board-coverage/internal/msgcat"
	"github.com/park285/board-coverage/pkg/coveragedto"
)

// missingListLimit caps the squares listed for an incomplete piece.
const missingListLimit = 8

// Formatter renders snapshots through the message catalog.
type Formatter struct {
	cat *msgcat.Catalog
}

func NewFormatter(cat *msgcat.Catalog) *Formatter {
	return &Formatter{cat: cat}
}

// Progress renders the stats block followed by one line per piece.
func (f *Formatter) Progress(s coveragedto.Snapshot) (string, error) {
	var sb strings.Builder
	lines := []struct {
		key  string
		data map[string]any
	}{
		{"stats.games", map[string]any{"Games": s.Stats.GamesPlayed}},
		{"stats.time", map[string]any{"Elapsed": s.Stats.Elapsed}},
		{"stats.own_time", map[string]any{"Own": s.Stats.Own}},
		{"stats.progress", map[string]any{
			"Visited": s.Stats.Visited,
			"Total":   s.Stats.TotalSquares,
			"Percent": formatPercent(s.Stats.Progress),
		}},
	}
	for _, l := range lines {
		text, err := f.cat.Render(l.key, l.data)
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
		sb.WriteByte('\n')
	}
	for _, p := range s.Pieces {
		text, err := f.Piece(p)
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// Piece renders one piece line, listing a few missing squares when close.
func (f *Formatter) Piece(p coveragedto.PieceCoverage) (string, error) {
	data := map[string]any{"Symbol": p.Symbol, "Name": p.Name, "Visited": p.Visited}
	if len(p.Missing) == 0 {
		return f.cat.Render("piece.complete", data)
	}
	line, err := f.cat.Render("piece.line", data)
	if err != nil {
		return "", err
	}
	if len(p.Missing) > missingListLimit {
		return line, nil
	}
	missing, err := f.cat.Render("piece.missing", map[string]any{
		"Name":    p.Name,
		"Squares": strings.Join(p.Missing, " "),
	})
	if err != nil {
		return "", err
	}
	return line + "\n  " + missing, nil
}

// Game renders the one-line summary of the game that produced s.
func (f *Formatter) Game(s coveragedto.Snapshot) (string, error) {
	if s.Game == nil {
		return "", nil
	}
	return f.cat.Render("game.processed", map[string]any{
		"ID":       s.Game.ID,
		"Opponent": s.Game.Opponent,
		"Side":     s.Game.Side,
		"Pushed":   s.Game.Pushed,
	})
}

// Finished renders the completion line once every square is covered.
func (f *Formatter) Finished(s coveragedto.Snapshot) (string, error) {
	return f.cat.Render("run.finished", map[string]any{
		"Games":   s.Stats.GamesPlayed,
		"Elapsed": s.Stats.Elapsed,
	})
}

// Waiting renders the idle banner shown before the first game.
func (f *Formatter) Waiting(user, since string) (string, error) {
	return f.cat.Render("run.waiting", map[string]any{"User": user, "Since": since})
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}
