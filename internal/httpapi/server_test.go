package httpapi

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/park285/board-coverage/internal/coverage"
	"github.com/park285/board-coverage/internal/san"
	"github.com/park285/board-coverage/internal/stats"
	"github.com/park285/board-coverage/internal/tracker"
	"github.com/park285/board-coverage/pkg/coveragedto"
)

type fixedSource struct {
	u  tracker.Update
	ok bool
}

func (f fixedSource) Latest() (tracker.Update, bool) { return f.u, f.ok }
func (f fixedSource) RunID() string                  { return "run-7" }

func loaded() fixedSource {
	var cov coverage.Map
	cov[san.Rook][0][0] = 3
	return fixedSource{ok: true, u: tracker.Update{
		RunID:    "run-7",
		Seq:      2,
		Game:     tracker.GameSummary{ID: "g2"},
		Coverage: cov,
		Stats:    stats.Snapshot{GamesPlayed: 2, ElapsedSeconds: 61},
	}}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	h := NewRouter(Deps{Source: loaded()})
	rec := get(t, h, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["games"].(float64) != 2 || body["runId"] != "run-7" {
		t.Fatalf("body = %v", body)
	}
}

func TestSnapshot(t *testing.T) {
	h := NewRouter(Deps{Source: loaded(), User: "alice"})
	rec := get(t, h, "/snapshot")
	var snap coveragedto.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.User != "alice" || snap.Stats.Elapsed != "00:01:01" || snap.Pieces[san.Rook].Grid[0][0] != 3 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestSnapshotBeforeFirstGame(t *testing.T) {
	h := NewRouter(Deps{Source: fixedSource{}})
	rec := get(t, h, "/snapshot")
	var snap coveragedto.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || snap.Game != nil || len(snap.Pieces) != 6 || snap.RunID != "run-7" {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestCoveragePNG(t *testing.T) {
	h := NewRouter(Deps{Source: loaded()})
	for _, path := range []string{"/coverage/rook.png", "/coverage/R.png?counts=true"} {
		rec := get(t, h, path)
		if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
			t.Fatalf("%s: status = %d type = %s", path, rec.Code, rec.Header().Get("Content-Type"))
		}
		if _, err := png.Decode(bytes.NewReader(rec.Body.Bytes())); err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
	}
	if rec := get(t, h, "/coverage/wizard.png"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown piece status = %d", rec.Code)
	}
}

func TestOptionalRoutes(t *testing.T) {
	h := NewRouter(Deps{Source: loaded()})
	if rec := get(t, h, "/metrics"); rec.Code != http.StatusNotFound {
		t.Fatalf("metrics without handler = %d", rec.Code)
	}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("m 1\n")) })
	h = NewRouter(Deps{Source: loaded(), Metrics: metrics})
	if rec := get(t, h, "/metrics"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "m 1") {
		t.Fatalf("metrics = %d %q", rec.Code, rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	h := NewRouter(Deps{Source: loaded(), Origins: []string{"https://dash.example"}})
	req := httptest.NewRequest(http.MethodOptions, "/snapshot", nil)
	req.Header.Set("Origin", "https://dash.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://dash.example" {
		t.Fatalf("allow origin = %q", got)
	}
}
