package globals

import (
	"context"

	"medauth-backend/internal/components/chrono"
	"medauth-backend/internal/components/telemetry"
)

type key struct{}

type Value struct {
	Config Config
	Tel    telemetry.API
	Clock  chrono.TimeAPI
	// Shutdown flushes the otel exporters, nil when telemetry is not configured.
	Shutdown func(context.Context) error
}

// Config is read from config.json5, with config.local.json5 overriding it.
type Config struct {
	BaseUrl           string  `json:"base_url"`
	LoginPath         string  `json:"login_path"`
	HomePath          string  `json:"home_path"`
	Username          string  `json:"username"`
	Password          string  `json:"password"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	CloudflareBypass  bool    `json:"cloudflare_bypass"`
	TimeZone          string  `json:"time_zone"`
	CacheSize         int     `json:"cache_size"`
	CacheTTLSeconds   int     `json:"cache_ttl_seconds"`
	// Db is the sqlite file lookups are saved to, empty disables saving.
	Db      string `json:"db"`
	DumpDir string `json:"dump_dir"`
}

func Set(ctx context.Context, value *Value) context.Context {
	return context.WithValue(ctx, key{}, value)
}

func Get(ctx context.Context) *Value {
	return ctx.Value(key{}).(*Value)
}
