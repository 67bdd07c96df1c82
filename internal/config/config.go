package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultLichessBaseURL = "https://lichess.org"
	DefaultPageSize       = 100
	startLayoutShort      = "2006-01-02 15:04"
)

var ErrTrackUserRequired = errors.New("TRACK_USER is required")

type AppConfig struct {
	TrackUser string
	StartAt   time.Time

	LichessBaseURL string
	LichessToken   string

	// SourceFile replays a local NDJSON export (.zst/.gz allowed) instead of polling.
	SourceFile     string
	SourcePageSize int

	RedisURL     string
	RedisChannel string
	DatabaseURL  string

	HTTPAddr    string
	CORSOrigins []string

	MsgcatDir string
}

// now is swapped in tests.
var now = time.Now

// Load reads the environment. CONFIG_FILE may name a YAML file whose keys are
// the same variable names; environment values take precedence.
func Load() (*AppConfig, error) {
	file := map[string]string{}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		m, err := readFile(path)
		if err != nil {
			return nil, err
		}
		file = m
	}
	get := func(k string) string {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
		return strings.TrimSpace(file[k])
	}

	cfg := &AppConfig{
		LichessBaseURL: DefaultLichessBaseURL,
		SourcePageSize: DefaultPageSize,
		RedisChannel:   "coverage:updates",
	}

	cfg.TrackUser = strings.ToLower(get("TRACK_USER"))
	if cfg.TrackUser == "" {
		return nil, ErrTrackUserRequired
	}

	start, err := parseStart(get("START_AT"))
	if err != nil {
		return nil, err
	}
	cfg.StartAt = start

	if v := get("LICHESS_BASE_URL"); v != "" {
		cfg.LichessBaseURL = strings.TrimRight(v, "/")
	}
	cfg.LichessToken = get("LICHESS_TOKEN")

	cfg.SourceFile = get("SOURCE_FILE")
	if v := get("SOURCE_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SourcePageSize = n
		}
	}

	cfg.RedisURL = get("REDIS_URL")
	if v := get("REDIS_CHANNEL"); v != "" {
		cfg.RedisChannel = v
	}
	cfg.DatabaseURL = get("DATABASE_URL")

	cfg.HTTPAddr = get("HTTP_ADDR")
	if v := get("CORS_ORIGINS"); v != "" {
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, s)
			}
		}
	}

	cfg.MsgcatDir = get("MSGCAT_DIR")
	return cfg, nil
}

// parseStart accepts RFC3339 or "YYYY-MM-DD HH:MM" (UTC). Empty means now.
func parseStart(v string) (time.Time, error) {
	if v == "" {
		return now().UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(startLayoutShort, v, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("START_AT %q: want RFC3339 or %q", v, startLayoutShort)
	}
	return t, nil
}

func readFile(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		key := strings.ToUpper(strings.TrimSpace(k))
		switch vv := v.(type) {
		case nil:
		case []any:
			parts := make([]string, 0, len(vv))
			for _, p := range vv {
				parts = append(parts, fmt.Sprint(p))
			}
			out[key] = strings.Join(parts, ",")
		case time.Time:
			out[key] = vv.UTC().Format(time.RFC3339)
		default:
			out[key] = fmt.Sprint(vv)
		}
	}
	return out, nil
}
