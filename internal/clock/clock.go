// Package clock estimates per-side think time from the [%clk h:mm:ss]
// comments lichess embeds after every ply.
//
// The estimate assumes the increment is credited after every move but each
// side's first. Games that end abruptly (mate, stalemate, flag) may not get the
// final increment on the platform, so the result can overstate think time by
// up to one increment per side.
package clock

import (
	"fmt"
	"regexp"
	"strconv"
)

// Config is the game's time control in whole seconds.
type Config struct {
	InitialSeconds   int
	IncrementSeconds int
}

// Elapsed is the think time spent by each side, in seconds.
type Elapsed struct {
	White int
	Black int
}

func (e Elapsed) Total() int { return e.White + e.Black }

var clkPattern = regexp.MustCompile(`%clk (\d{1,2}):(\d{1,2}):(\d{1,2})`)

// Readings extracts every clock annotation in ply order, as total seconds.
func Readings(text string) []int {
	matches := clkPattern.FindAllStringSubmatch(text, -1)
	out := make([]int, 0, len(matches))
	for _, m := range matches {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		ss, _ := strconv.Atoi(m[3])
		out = append(out, hh*3600+mm*60+ss)
	}
	return out
}

// Compute returns the elapsed think time per side for one game.
// Fewer than two readings yields a zero result.
func Compute(text string, cfg Config) Elapsed {
	return FromReadings(Readings(text), cfg)
}

// FromReadings is Compute over already extracted readings.
func FromReadings(times []int, cfg Config) Elapsed {
	plies := len(times)
	if plies < 2 {
		return Elapsed{}
	}

	startWhite, startBlack := times[0], times[1]

	// the last reading belongs to whoever moved last
	last, prev := times[plies-1], times[plies-2]
	endWhite, endBlack := prev, last
	if plies%2 == 1 {
		endWhite, endBlack = last, prev
	}

	whiteMoves := (plies + 1) / 2
	blackMoves := plies / 2

	bonusWhite := incrementBonus(whiteMoves, cfg.IncrementSeconds, berserked(startWhite, cfg.InitialSeconds))
	bonusBlack := incrementBonus(blackMoves, cfg.IncrementSeconds, berserked(startBlack, cfg.InitialSeconds))

	return Elapsed{
		White: startWhite - endWhite + bonusWhite,
		Black: startBlack - endBlack + bonusBlack,
	}
}

// berserked: the side started with exactly half the initial clock.
func berserked(start, initial int) bool {
	return initial > 0 && 2*start == initial
}

func incrementBonus(moves, increment int, berserk bool) int {
	if berserk || moves < 1 {
		return 0
	}
	return (moves - 1) * increment
}

// Format renders seconds as HH:MM:SS. Hours are not wrapped at 24.
func Format(seconds int) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	hh := seconds / 3600
	mm := (seconds % 3600) / 60
	ss := seconds % 60
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, hh, mm, ss)
}
