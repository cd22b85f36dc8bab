package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	strutil "smp/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr      string
	PublicURL string
	LogLevel  string

	// AdminToken enables the admin routes when set.
	AdminToken string

	Storage   StorageConfig
	Directory DirectoryConfig
	Redis     RedisConfig
	Kafka     KafkaConfig

	IdentifierScheme      string
	ObserverFailurePolicy string
	UsersFile             string
	CredentialCacheTTL    time.Duration
	BusinessCardsEnabled  bool
	AuditBufferSize       int
	ShutdownTimeout       time.Duration
	RequestTimeout        time.Duration
}

type StorageConfig struct {
	Driver        string
	SQLitePath    string
	PostgresDSN   string
	MongoURI      string
	MongoDatabase string
}

// DirectoryConfig configures the SML client. Enabled=false selects the no-op gateway.
type DirectoryConfig struct {
	Enabled          bool
	URL              string
	SMPID            string
	ConnectTimeout   time.Duration
	RequestTimeout   time.Duration
	FailureThreshold int
	CoolDown         time.Duration
}

type RedisConfig struct {
	URL          string
	Stream       string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var errs []string
	e := env{errs: &errs}

	cfg := Server{
		Addr:       e.str("ADDR", ":8080"),
		PublicURL:  e.str("SMP_PUBLIC_URL", ""),
		LogLevel:   e.str("LOG_LEVEL", "info"),
		AdminToken: e.str("SMP_ADMIN_TOKEN", ""),
		Storage: StorageConfig{
			Driver:        e.str("SMP_STORAGE_DRIVER", "memory"),
			SQLitePath:    e.str("SMP_SQLITE_PATH", "smp.db"),
			PostgresDSN:   e.str("SMP_POSTGRES_DSN", ""),
			MongoURI:      e.str("SMP_MONGODB_URI", ""),
			MongoDatabase: e.str("SMP_MONGODB_DATABASE", "smp"),
		},
		Directory: DirectoryConfig{
			Enabled:          e.boolean("SMP_SML_ENABLED", false),
			URL:              e.str("SMP_SML_URL", ""),
			SMPID:            e.str("SMP_ID", ""),
			ConnectTimeout:   e.duration("SMP_SML_CONNECT_TIMEOUT", 5*time.Second),
			RequestTimeout:   e.duration("SMP_SML_REQUEST_TIMEOUT", 30*time.Second),
			FailureThreshold: e.integer("SMP_SML_BREAKER_THRESHOLD", 5),
			CoolDown:         e.duration("SMP_SML_BREAKER_COOLDOWN", 30*time.Second),
		},
		Redis: RedisConfig{
			URL:          e.str("SMP_REDIS_URL", ""),
			Stream:       e.str("SMP_REDIS_AUDIT_STREAM", "smp:audit"),
			PoolSize:     e.integer("SMP_REDIS_POOL_SIZE", 10),
			MinIdleConns: e.integer("SMP_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("SMP_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("SMP_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("SMP_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    e.list("SMP_KAFKA_BROKERS"),
			AuditTopic: e.str("SMP_KAFKA_AUDIT_TOPIC", "smp.audit"),
		},
		IdentifierScheme:      e.str("SMP_IDENTIFIER_SCHEME", "peppol"),
		ObserverFailurePolicy: e.str("SMP_OBSERVER_FAILURE_POLICY", "log"),
		UsersFile:             e.str("SMP_USERS_FILE", ""),
		CredentialCacheTTL:    e.duration("SMP_CREDENTIAL_CACHE_TTL", time.Minute),
		BusinessCardsEnabled:  e.boolean("SMP_BUSINESS_CARDS_ENABLED", true),
		AuditBufferSize:       e.integer("SMP_AUDIT_BUFFER", 1024),
		ShutdownTimeout:       e.duration("SMP_SHUTDOWN_TIMEOUT", 10*time.Second),
		RequestTimeout:        e.duration("SMP_REQUEST_TIMEOUT", time.Minute),
	}

	if cfg.Directory.Enabled {
		if cfg.Directory.URL == "" {
			errs = append(errs, "SMP_SML_URL is required when SMP_SML_ENABLED=true")
		}
		if cfg.Directory.SMPID == "" {
			errs = append(errs, "SMP_ID is required when SMP_SML_ENABLED=true")
		}
	}
	if len(errs) > 0 {
		return Server{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// env reads typed values and collects parse failures.
type env struct {
	errs *[]string
}

func (e env) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (e env) boolean(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return b
}

func (e env) integer(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return n
}

func (e env) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return d
}

func (e env) list(key string) []string {
	return strutil.SplitList(os.Getenv(key), ",")
}
