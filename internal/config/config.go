package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/nba-stats/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                        string
	ServiceName                   string
	ServiceVersion                string
	HTTPAddr                      string
	ReadTimeout                   time.Duration
	WriteTimeout                  time.Duration
	LogLevel                      logging.Level
	CORSAllowedOrigins            []string
	AdminAPIToken                 string
	DBPath                        string
	DBBusyTimeout                 time.Duration
	DBMaxOpenConns                int
	DBAutoMigrate                 bool
	CacheEnabled                  bool
	CacheTTL                      time.Duration
	StatsFreshFor                 time.Duration
	StatsRefreshAfter             time.Duration
	StatsMaxAge                   time.Duration
	StatsFetchTimeout             time.Duration
	RefreshQueueDelay             time.Duration
	RefreshQueueCapacity          int
	RefreshScheduleEnabled        bool
	RefreshSchedule               string
	RefreshScheduleTZ             string
	RefreshStaleAfter             time.Duration
	RefreshBatchSize              int
	NBAStatsEnabled               bool
	NBAStatsBaseURL               string
	NBAStatsTimeout               time.Duration
	NBAStatsMaxRetries            int
	NBAStatsRateLimit             float64
	NBAStatsCircuitEnabled        bool
	NBAStatsCircuitFailureCount   int
	NBAStatsCircuitOpenTimeout    time.Duration
	NBAStatsCircuitHalfOpenMaxReq int
	MetricsEnabled                bool
	PprofEnabled                  bool
	PprofAddr                     string
	UptraceEnabled                bool
	UptraceDSN                    string
	UptraceLogsEnabled            bool
	PyroscopeEnabled              bool
	PyroscopeServerAddress        string
	PyroscopeAppName              string
	PyroscopeAuthToken            string
	PyroscopeBasicAuthUser        string
	PyroscopeBasicAuthPassword    string
	PyroscopeUploadRate           time.Duration
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:                     appEnv,
		ServiceName:                getEnv("SERVICE_NAME", "nba-stats-api"),
		ServiceVersion:             getEnv("SERVICE_VERSION", "dev"),
		HTTPAddr:                   getEnv("APP_HTTP_ADDR", ":8080"),
		LogLevel:                   logging.ParseLevel(getEnv("APP_LOG_LEVEL", "info")),
		CORSAllowedOrigins:         splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		AdminAPIToken:              strings.TrimSpace(getEnv("ADMIN_API_TOKEN", "")),
		DBPath:                     strings.TrimSpace(getEnv("DB_PATH", "nba_stats.db")),
		RefreshSchedule:            strings.TrimSpace(getEnv("REFRESH_SCHEDULE", "0 4 * * *")),
		RefreshScheduleTZ:          strings.TrimSpace(getEnv("REFRESH_SCHEDULE_TZ", "UTC")),
		NBAStatsBaseURL:            strings.TrimSpace(getEnv("NBA_STATS_BASE_URL", "https://stats.nba.com/stats")),
		PprofAddr:                  strings.TrimSpace(getEnv("PPROF_ADDR", ":6060")),
		PyroscopeServerAddress:     strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", "")),
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))

	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}
	if cfg.DBPath == "" {
		return Config{}, fmt.Errorf("DB_PATH cannot be empty")
	}

	bools := []struct {
		key      string
		fallback string
		dst      *bool
	}{
		{"DB_AUTO_MIGRATE", "true", &cfg.DBAutoMigrate},
		{"CACHE_ENABLED", "true", &cfg.CacheEnabled},
		{"REFRESH_SCHEDULE_ENABLED", "true", &cfg.RefreshScheduleEnabled},
		{"NBA_STATS_ENABLED", "true", &cfg.NBAStatsEnabled},
		{"NBA_STATS_CIRCUIT_ENABLED", "true", &cfg.NBAStatsCircuitEnabled},
		{"METRICS_ENABLED", "true", &cfg.MetricsEnabled},
		{"PPROF_ENABLED", "false", &cfg.PprofEnabled},
		{"UPTRACE_ENABLED", "false", &cfg.UptraceEnabled},
		{"UPTRACE_LOGS_ENABLED", "false", &cfg.UptraceLogsEnabled},
		{"PYROSCOPE_ENABLED", "false", &cfg.PyroscopeEnabled},
	}
	for _, b := range bools {
		v, err := strconv.ParseBool(getEnv(b.key, b.fallback))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", b.key, err)
		}
		*b.dst = v
	}

	// Durations that must be strictly positive.
	durations := []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{"APP_READ_TIMEOUT", "10s", &cfg.ReadTimeout},
		{"APP_WRITE_TIMEOUT", "30s", &cfg.WriteTimeout},
		{"DB_BUSY_TIMEOUT", "5s", &cfg.DBBusyTimeout},
		{"CACHE_TTL", "60s", &cfg.CacheTTL},
		{"STATS_FRESH_FOR", "1h", &cfg.StatsFreshFor},
		{"STATS_REFRESH_AFTER", "6h", &cfg.StatsRefreshAfter},
		{"STATS_FETCH_TIMEOUT", "20s", &cfg.StatsFetchTimeout},
		{"REFRESH_STALE_AFTER", "24h", &cfg.RefreshStaleAfter},
		{"NBA_STATS_TIMEOUT", "15s", &cfg.NBAStatsTimeout},
		{"NBA_STATS_CIRCUIT_OPEN_TIMEOUT", "30s", &cfg.NBAStatsCircuitOpenTimeout},
		{"PYROSCOPE_UPLOAD_RATE", "15s", &cfg.PyroscopeUploadRate},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.fallback))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		if v <= 0 {
			return Config{}, fmt.Errorf("%s must be > 0", d.key)
		}
		*d.dst = v
	}

	statsMaxAge, err := time.ParseDuration(getEnv("STATS_MAX_AGE", "0s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse STATS_MAX_AGE: %w", err)
	}
	if statsMaxAge < 0 {
		return Config{}, fmt.Errorf("STATS_MAX_AGE must be >= 0")
	}
	cfg.StatsMaxAge = statsMaxAge

	queueDelay, err := time.ParseDuration(getEnv("REFRESH_QUEUE_DELAY", "1s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_QUEUE_DELAY: %w", err)
	}
	if queueDelay < 0 {
		return Config{}, fmt.Errorf("REFRESH_QUEUE_DELAY must be >= 0")
	}
	cfg.RefreshQueueDelay = queueDelay

	ints := []struct {
		key      string
		fallback int
		min      int
		dst      *int
	}{
		{"DB_MAX_OPEN_CONNS", 4, 1, &cfg.DBMaxOpenConns},
		{"REFRESH_QUEUE_CAPACITY", 1000, 0, &cfg.RefreshQueueCapacity},
		{"REFRESH_BATCH_SIZE", 50, 1, &cfg.RefreshBatchSize},
		{"NBA_STATS_MAX_RETRIES", 2, 0, &cfg.NBAStatsMaxRetries},
		{"NBA_STATS_CIRCUIT_FAILURE_COUNT", 5, 1, &cfg.NBAStatsCircuitFailureCount},
		{"NBA_STATS_CIRCUIT_HALF_OPEN_MAX_REQ", 1, 1, &cfg.NBAStatsCircuitHalfOpenMaxReq},
	}
	for _, n := range ints {
		v, err := getEnvAsInt(n.key, n.fallback)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", n.key, err)
		}
		if v < n.min {
			return Config{}, fmt.Errorf("%s must be >= %d", n.key, n.min)
		}
		*n.dst = v
	}

	rateLimit, err := strconv.ParseFloat(getEnv("NBA_STATS_RATE_LIMIT", "1"), 64)
	if err != nil {
		return Config{}, fmt.Errorf("parse NBA_STATS_RATE_LIMIT: %w", err)
	}
	if rateLimit <= 0 {
		return Config{}, fmt.Errorf("NBA_STATS_RATE_LIMIT must be > 0")
	}
	cfg.NBAStatsRateLimit = rateLimit

	if cfg.StatsRefreshAfter < cfg.StatsFreshFor {
		return Config{}, fmt.Errorf("STATS_REFRESH_AFTER must be >= STATS_FRESH_FOR")
	}
	if cfg.StatsMaxAge > 0 && cfg.StatsMaxAge <= cfg.StatsRefreshAfter {
		return Config{}, fmt.Errorf("STATS_MAX_AGE must be 0 or > STATS_REFRESH_AFTER")
	}
	if cfg.RefreshScheduleEnabled {
		if cfg.RefreshSchedule == "" {
			return Config{}, fmt.Errorf("REFRESH_SCHEDULE is required when REFRESH_SCHEDULE_ENABLED=true")
		}
		if _, err := time.LoadLocation(cfg.RefreshScheduleTZ); err != nil {
			return Config{}, fmt.Errorf("parse REFRESH_SCHEDULE_TZ: %w", err)
		}
	}
	if cfg.NBAStatsEnabled && cfg.NBAStatsBaseURL == "" {
		return Config{}, fmt.Errorf("NBA_STATS_BASE_URL is required when NBA_STATS_ENABLED=true")
	}
	if cfg.PprofEnabled && cfg.PprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	cfg.UptraceDSN = strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if cfg.UptraceDSN == "" {
		cfg.UptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if cfg.UptraceEnabled && cfg.UptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	if cfg.PyroscopeEnabled {
		if cfg.PyroscopeServerAddress == "" {
			return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
		}
		if cfg.PyroscopeAppName == "" {
			return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
