package clock

import (
	"fmt"
	"strings"
	"testing"
)

func pgnWithClocks(secs ...int) string {
	var b strings.Builder
	b.WriteString("[Event \"Rated Blitz game\"]\n\n")
	for i, s := range secs {
		if i%2 == 0 {
			b.WriteString(fmt.Sprintf("%d. ", i/2+1))
		}
		b.WriteString(fmt.Sprintf("e4 { [%%clk %d:%02d:%02d] } ", s/3600, (s%3600)/60, s%60))
	}
	b.WriteString("1-0\n")
	return b.String()
}

func TestReadings(t *testing.T) {
	text := "1. e4 { [%clk 0:03:00] } 1... e5 { [%clk 0:02:59] } 2. Nf3 { [%clk 1:2:3] }"
	got := Readings(text)
	want := []int{180, 179, 3723}
	if len(got) != len(want) {
		t.Fatalf("Readings len = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Readings[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestComputeInsufficient(t *testing.T) {
	for _, text := range []string{"", "1. e4", pgnWithClocks(180)} {
		if got := Compute(text, Config{InitialSeconds: 180, IncrementSeconds: 2}); got != (Elapsed{}) {
			t.Fatalf("Compute(%q) = %+v, want zero", text, got)
		}
	}
}

func TestComputeNoIncrement(t *testing.T) {
	// even plies: the last reading is black's, the one before it white's
	got := Compute(pgnWithClocks(180, 180, 170, 165), Config{InitialSeconds: 180})
	if got.White != 10 || got.Black != 15 {
		t.Fatalf("Compute = %+v, want {10 15}", got)
	}
	if got.Total() != 25 {
		t.Fatalf("Total = %d, want 25", got.Total())
	}
}

func TestComputeOddPlies(t *testing.T) {
	// 5 plies: white moved last, so the final reading is white's.
	got := FromReadings([]int{300, 300, 290, 280, 250}, Config{InitialSeconds: 300})
	if got.White != 50 || got.Black != 20 {
		t.Fatalf("FromReadings = %+v, want {50 20}", got)
	}
}

func TestComputeIncrement(t *testing.T) {
	// 6 plies, 3 moves each, 2s increment -> bonus 4s each.
	got := FromReadings([]int{180, 180, 176, 175, 170, 168}, Config{InitialSeconds: 180, IncrementSeconds: 2})
	if got.White != 180-170+4 || got.Black != 180-168+4 {
		t.Fatalf("FromReadings = %+v", got)
	}
}

func TestComputeBerserk(t *testing.T) {
	// white berserked: started with 90 of 180.
	got := FromReadings([]int{90, 180, 80, 175, 70, 160}, Config{InitialSeconds: 180, IncrementSeconds: 2})
	if got.White != 20 {
		t.Fatalf("berserked white elapsed = %d, want 20 (no increment credit)", got.White)
	}
	if got.Black != 180-160+4 {
		t.Fatalf("black elapsed = %d, want %d", got.Black, 180-160+4)
	}
}

func TestComputeBerserkOddInitial(t *testing.T) {
	// half of 15 is not a whole second; nobody can be berserked.
	got := FromReadings([]int{7, 15, 5, 14}, Config{InitialSeconds: 15, IncrementSeconds: 1})
	if got.White != 7-5+1 {
		t.Fatalf("white elapsed = %d, want %d", got.White, 7-5+1)
	}
}

func TestFormat(t *testing.T) {
	tests := map[int]string{
		0:     "00:00:00",
		59:    "00:00:59",
		61:    "00:01:01",
		3723:  "01:02:03",
		90061: "25:01:01",
	}
	for in, want := range tests {
		if got := Format(in); got != want {
			t.Fatalf("Format(%d) = %q, want %q", in, got, want)
		}
	}
}
