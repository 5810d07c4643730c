package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/alfreddata/pipelinekernel/dtparse"
	"github.com/alfreddata/pipelinekernel/pkerr"
)

// Config is the kernel's recognised environment surface: the date/time
// format registries loose parsing reads from, the snowflake node id, and the
// knobs a collaborator daemon embedding the kernel needs.
type Config struct {
	Env      string
	Addr     string
	LogLevel string

	DateFormats         []string
	DateTimeFormats     []string
	FullDateTimeFormats []string
	TimeFormats         []string

	SnowflakeNodeID int64

	DatabaseURL string
	RedisURL    string
	HasRedisURL bool

	CacheSize       int
	CacheTTLSeconds int
}

var defaultDateFormats = []string{"%Y%m%d", "%d%m%Y", "%m%d%Y"}
var defaultTimeFormats = []string{"%H%M%S", "%H%M"}
var defaultDateTimeFormats = []string{
	"%Y%m%d%H%M%S", "%d%m%Y%H%M%S", "%m%d%Y%H%M%S",
	"%Y%m%d%H%M", "%d%m%Y%H%M", "%m%d%Y%H%M",
}
var defaultFullDateTimeFormats = []string{"%Y%m%d%H%M%S%f", "%d%m%Y%H%M%S%f", "%m%d%Y%H%M%S%f"}

// Load reads ./.env if present, then the process environment, process
// overriding file per the env loader's layering rule.
func Load() (*Config, *pkerr.Error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, pkerr.Newf(pkerr.EnvInit, "config.Load", "could not read .env: %v", err)
	}

	cfg := &Config{
		Env:      getEnv("ENV", "production"),
		Addr:     getEnv("KERNEL_ADDR", ":8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DateFormats:         splitOrDefault("DATE_FORMATS", defaultDateFormats),
		DateTimeFormats:     splitOrDefault("DATETIME_FORMATS", defaultDateTimeFormats),
		FullDateTimeFormats: splitOrDefault("FULL_DATETIME_FORMATS", defaultFullDateTimeFormats),
		TimeFormats:         splitOrDefault("TIME_FORMATS", defaultTimeFormats),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		CacheSize:       getEnvInt("CACHE_SIZE", 512),
		CacheTTLSeconds: getEnvInt("CACHE_TTL_SECONDS", 300),
	}

	nodeID, err := getEnvInt64("SNOWFLAKE_NODE_ID", 0)
	if err != nil {
		return nil, err
	}
	if nodeID < 0 || nodeID > 0xFFF {
		return nil, pkerr.New(pkerr.SnowflakeNodeIdTooBig, "config.Load")
	}
	cfg.SnowflakeNodeID = nodeID

	if v, ok := os.LookupEnv("REDIS_URL"); ok && v != "" {
		cfg.RedisURL = v
		cfg.HasRedisURL = true
	}

	dtparse.Init()

	return cfg, nil
}

// IsDevelopment reports whether Env is the development environment.
func (c *Config) IsDevelopment() bool { return c.Env == "development" }

// AllFormats returns every recognised format across the four registries, the
// set the loose date/time parser warms its cache from at startup.
func (c *Config) AllFormats() []string {
	out := make([]string, 0, len(c.DateFormats)+len(c.DateTimeFormats)+len(c.FullDateTimeFormats)+len(c.TimeFormats))
	out = append(out, c.DateFormats...)
	out = append(out, c.DateTimeFormats...)
	out = append(out, c.FullDateTimeFormats...)
	out = append(out, c.TimeFormats...)
	return out
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func splitOrDefault(key string, def []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func getEnvInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvInt64(key string, def int64) (int64, *pkerr.Error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, pkerr.Newf(pkerr.EnvValueTypeMismatch, "config.getEnvInt64", "%s=%q is not an integer", key, v)
	}
	return n, nil
}

// parseBool coerces the loose boolean vocabulary the env loader accepts:
// true/t/yes/y/on/1 and false/f/no/n/off/0, case-insensitive.
func parseBool(key, v string) (bool, *pkerr.Error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "t", "yes", "y", "on", "1":
		return true, nil
	case "false", "f", "no", "n", "off", "0":
		return false, nil
	default:
		return false, pkerr.Newf(pkerr.EnvValueTypeMismatch, "config.parseBool", "%s=%q is not a recognised boolean", key, v)
	}
}

// GetBool reads an optional boolean-valued key, returning def if unset.
func (c *Config) GetBool(key string, def bool) (bool, *pkerr.Error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	return parseBool(key, v)
}
