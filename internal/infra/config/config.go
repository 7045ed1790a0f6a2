package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gocql/gocql"
)

const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverScylla   = "scylla"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env         string
	HTTPAddr    string
	GRPCAddr    string
	StoreDriver string

	MongoURI    string
	MongoDB     string
	PostgresDSN string

	ScyllaHosts       []string
	ScyllaKeyspace    string
	ScyllaConsistency gocql.Consistency
	ScyllaTimeout     time.Duration
	ScyllaUsername    string
	ScyllaPassword    string
	ReplicationFactor int

	RedisURL         string
	CalendarCacheTTL time.Duration

	// CalendarCacheMaxEntries caps the in-process cache used without Redis.
	CalendarCacheMaxEntries int

	KafkaBrokers       []string
	KafkaTopicPrefix   string
	KafkaGroupID       string
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	IdempotencyTTL     time.Duration

	S3Endpoint       string
	S3PublicEndpoint string
	S3AccessKey      string
	S3SecretKey      string
	S3Bucket         string
	S3UseSSL         bool

	// HostAPIKeys maps a host id to the bcrypt hash of its API key.
	HostAPIKeys   map[string]string
	HTTPRateLimit float64
	HTTPRateBurst int

	SeedFile string
	SeedDemo bool
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:         getEnv("GRPC_ADDR", ":9090"),
		StoreDriver:      strings.ToLower(strings.TrimSpace(getEnv("STORE_DRIVER", DriverMemory))),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "staycal"),
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		ScyllaHosts:      splitAndTrim(os.Getenv("SCYLLA_HOSTS")),
		ScyllaKeyspace:   strings.TrimSpace(getEnv("SCYLLA_KEYSPACE", "staycal")),
		ScyllaUsername:   os.Getenv("SCYLLA_USERNAME"),
		ScyllaPassword:   os.Getenv("SCYLLA_PASSWORD"),
		RedisURL:         os.Getenv("REDIS_URL"),
		KafkaBrokers:     splitAndTrim(os.Getenv("KAFKA_BROKERS")),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "staycal-cache"),
		S3Endpoint:       os.Getenv("S3_ENDPOINT"),
		S3PublicEndpoint: getEnv("S3_PUBLIC_ENDPOINT", ""),
		S3AccessKey:      getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:      getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:         getEnv("S3_BUCKET", "staycal-exports"),
		SeedFile:         os.Getenv("SEED_FILE"),
	}

	var err error
	if cfg.ScyllaTimeout, err = parseDurationEnv("SCYLLA_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ScyllaConsistency, err = parseConsistency(getEnv("SCYLLA_CONSISTENCY", "quorum")); err != nil {
		return Config{}, err
	}
	if cfg.ReplicationFactor, err = parseIntEnv("SCYLLA_REPLICATION_FACTOR", 1); err != nil {
		return Config{}, err
	}
	if cfg.CalendarCacheTTL, err = parseDurationEnv("CALENDAR_CACHE_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.CalendarCacheMaxEntries, err = parseIntEnv("CALENDAR_CACHE_MAX_ENTRIES", 10000); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = parseDurationEnv("IDEMP_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.RetryBackoff, err = parseBackoff(getEnv("RETRY_BACKOFF", "1s,5s,30s")); err != nil {
		return Config{}, err
	}
	if cfg.S3UseSSL, err = parseBoolEnv("S3_USE_SSL", false); err != nil {
		return Config{}, err
	}
	if cfg.SeedDemo, err = parseBoolEnv("SEED_DEMO", false); err != nil {
		return Config{}, err
	}
	if cfg.HTTPRateBurst, err = parseIntEnv("HTTP_RATE_BURST", 20); err != nil {
		return Config{}, err
	}
	if cfg.HTTPRateLimit, err = parseFloatEnv("HTTP_RATE_LIMIT", 0); err != nil {
		return Config{}, err
	}
	if cfg.HostAPIKeys, err = parseHostKeys(os.Getenv("HOST_API_KEYS")); err != nil {
		return Config{}, err
	}
	if cfg.S3PublicEndpoint == "" {
		cfg.S3PublicEndpoint = cfg.S3Endpoint
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case DriverMemory:
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for STORE_DRIVER=%s", c.StoreDriver)
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for STORE_DRIVER=%s", c.StoreDriver)
		}
	case DriverScylla:
		if len(c.ScyllaHosts) == 0 {
			return fmt.Errorf("SCYLLA_HOSTS is required for STORE_DRIVER=%s", c.StoreDriver)
		}
		if c.ScyllaKeyspace == "" {
			return fmt.Errorf("SCYLLA_KEYSPACE is required")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER: %q", c.StoreDriver)
	}
	if c.HTTPRateLimit < 0 {
		return fmt.Errorf("HTTP_RATE_LIMIT must not be negative")
	}
	return nil
}

func (c Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

func (c Config) S3Enabled() bool { return c.S3Endpoint != "" }

func (c Config) RedisEnabled() bool { return c.RedisURL != "" }

// CalendarEventsTopic is the topic carrying calendar.* events.
func (c Config) CalendarEventsTopic() string {
	return c.KafkaTopicPrefix + "calendar.events.v1"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}

func parseIntEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return v, nil
}

func parseFloatEnv(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s number: %w", key, err)
	}
	return v, nil
}

func parseBackoff(raw string) ([]time.Duration, error) {
	var out []time.Duration
	for _, part := range strings.Split(raw, ",") {
		val := strings.TrimSpace(part)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", part, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// parseHostKeys reads "host:hash,host:hash". Bcrypt hashes contain neither
// separator.
func parseHostKeys(raw string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range splitAndTrim(raw) {
		host, hash, ok := strings.Cut(pair, ":")
		host, hash = strings.TrimSpace(host), strings.TrimSpace(hash)
		if !ok || host == "" || hash == "" {
			return nil, fmt.Errorf("invalid HOST_API_KEYS entry %q", pair)
		}
		out[host] = hash
	}
	return out, nil
}

func parseConsistency(raw string) (gocql.Consistency, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "quorum":
		return gocql.Quorum, nil
	case "one":
		return gocql.One, nil
	case "local_quorum", "localquorum":
		return gocql.LocalQuorum, nil
	case "all":
		return gocql.All, nil
	default:
		return gocql.Quorum, fmt.Errorf("unsupported SCYLLA_CONSISTENCY: %s", raw)
	}
}
