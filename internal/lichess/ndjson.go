package lichess

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// LineError describes an NDJSON line that could not be decoded.
type LineError struct {
	Line int
	Err  error
}

func (e LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

const maxLineBytes = 8 << 20

// DecodeNDJSON decodes one game per non-empty line. Malformed lines are
// skipped and reported instead of failing the whole page.
func DecodeNDJSON(body []byte) ([]Game, []LineError) {
	games, skipped, _ := decodeStream(bytes.NewReader(body), nil)
	return games, skipped
}

// decodeStream reads every line from r; keep filters decoded records when non-nil.
func decodeStream(r io.Reader, keep func(*Game) bool) ([]Game, []LineError, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		games   []Game
		skipped []LineError
		lineNo  int
	)
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var g Game
		if err := json.Unmarshal(line, &g); err != nil {
			skipped = append(skipped, LineError{Line: lineNo, Err: err})
			continue
		}
		if keep != nil && !keep(&g) {
			continue
		}
		games = append(games, g)
	}
	if err := sc.Err(); err != nil {
		return games, skipped, fmt.Errorf("read ndjson: %w", err)
	}
	return games, skipped, nil
}
