package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	PlacesBase string
	PlacesKey  string

	AnthropicKey   string
	AnthropicModel string

	Workers      int // scheduler worker pool size
	AnalyzeConc  int // concurrent reasoning calls per batch
	PollInterval time.Duration
	CacheTTL     time.Duration

	SyncSpec     string
	AnalyzeSpec  string
	OptimizeSpec string

	// BusinessPlaces maps business IDs to provider place IDs, parsed from
	// BUSINESS_PLACES="biz1=place1,biz2=place2".
	BusinessPlaces map[string]string
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		MetricsAddr:    env("METRICS_ADDR", ":9100"),
		MySQLDSN:       env("MYSQL_DSN", "root:root@tcp(localhost:3306)/rico?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:      env("REDIS_ADDR", "localhost:6379"),
		RedisPass:      env("REDIS_PASSWORD", ""),
		RedisDB:        atoi("REDIS_DB", 0),
		PlacesBase:     env("PLACES_BASE_URL", "https://maps.googleapis.com/maps/api/place"),
		PlacesKey:      env("GOOGLE_PLACES_API_KEY", ""),
		AnthropicKey:   env("ANTHROPIC_API_KEY", ""),
		AnthropicModel: env("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		Workers:        atoi("SCHEDULER_WORKERS", 3),
		AnalyzeConc:    atoi("ANALYZE_CONCURRENCY", 4),
		PollInterval:   time.Duration(atoi("SCHEDULER_POLL_SECONDS", 30)) * time.Second,
		CacheTTL:       time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		SyncSpec:       env("REVIEW_SYNC_SPEC", "0 1 * * 0"), // Sundays 01:00
		AnalyzeSpec:    env("REVIEW_ANALYZE_SPEC", "@every 1h"),
		OptimizeSpec:   env("TASK_OPTIMIZE_SPEC", "0 10 * * *"), // daily 10:00
		BusinessPlaces: parsePlaces(os.Getenv("BUSINESS_PLACES")),
	}
	if c.PlacesKey == "" {
		log.Warn().Msg("GOOGLE_PLACES_API_KEY is empty")
	}
	if c.AnthropicKey == "" {
		log.Warn().Msg("ANTHROPIC_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func parsePlaces(raw string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" || v == "" {
			log.Warn().Str("entry", pair).Msg("skipping malformed BUSINESS_PLACES entry")
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
