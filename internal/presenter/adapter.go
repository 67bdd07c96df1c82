package presenter

import (
	"github.com/park285/board-coverage/internal/clock"
	"github.com/park285/board-coverage/internal/coverage"
	"github.com/park285/board-coverage/internal/san"
	"github.com/park285/board-coverage/internal/tracker"
	"github.com/park285/board-coverage/pkg/coveragedto"
)

const gameURLBase = "https://lichess.org/"

// ToDTO converts a tracker update. user may be empty.
func ToDTO(u tracker.Update, user string) coveragedto.Snapshot {
	cov := u.Coverage
	out := coveragedto.Snapshot{
		RunID:     u.RunID,
		Seq:       u.Seq,
		User:      user,
		UpdatedAt: u.At,
		Stats:     toDTOStats(u, &cov),
		Pieces:    ToDTOPieces(cov),
	}
	if u.Game.ID != "" {
		out.Game = toDTOGame(u)
	}
	return out
}

// ToDTOPieces lists the six grids in pawn..king order.
func ToDTOPieces(cov coverage.Map) []coveragedto.PieceCoverage {
	pieces := make([]coveragedto.PieceCoverage, 0, san.NumPieceKinds)
	for _, p := range san.AllPieceKinds {
		missing := cov.Missing(p)
		names := make([]string, 0, len(missing))
		for _, sq := range missing {
			names = append(names, sq.String())
		}
		pieces = append(pieces, coveragedto.PieceCoverage{
			Piece:   p.Letter(),
			Name:    p.Name(),
			Symbol:  p.Symbol(),
			Visited: cov.VisitedFor(p),
			Grid:    cov.Grid(p),
			Missing: names,
		})
	}
	return pieces
}

func toDTOStats(u tracker.Update, cov *coverage.Map) coveragedto.Stats {
	return coveragedto.Stats{
		GamesPlayed:    u.Stats.GamesPlayed,
		Progress:       u.Stats.Progress,
		Visited:        cov.Visited(),
		TotalSquares:   coverage.TotalSquares,
		ElapsedSeconds: u.Stats.ElapsedSeconds,
		Elapsed:        clock.Format(u.Stats.ElapsedSeconds),
		OwnSeconds:     u.Stats.OwnSeconds,
		Own:            clock.Format(u.Stats.OwnSeconds),
	}
}

func toDTOGame(u tracker.Update) *coveragedto.GameSummary {
	g := u.Game
	return &coveragedto.GameSummary{
		ID:        g.ID,
		URL:       gameURLBase + g.ID,
		Speed:     g.Speed,
		Perf:      g.Perf,
		Rated:     g.Rated,
		CreatedAt: g.CreatedAt,
		Side:      u.Side.String(),
		Opponent:  g.Opponent,
		Status:    g.Status,
		Winner:    g.Winner,
		Plies:     g.Plies,
		Pushed:    u.Pushed,
	}
}
