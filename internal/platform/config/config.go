package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Server    Server
	Store     Store
	Registry  Registration
	RateLimit RateLimit
	Redis     Redis
	Kafka     Kafka
	Tracing   Tracing
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"REGISTRAR_ADDR" envDefault:":8080"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type Store struct {
	Backend     string        `env:"STORE_BACKEND" envDefault:"memory"`
	DatabaseURL string        `env:"DATABASE_URL"`
	SQLitePath  string        `env:"SQLITE_PATH" envDefault:"registrar.db"`
	TxTimeout   time.Duration `env:"TX_TIMEOUT" envDefault:"5s"`
}

// Registration holds the enrollment capacity thresholds.
type Registration struct {
	CourseMaxStudents int `env:"COURSE_STUDENTS_THRESHOLD" envDefault:"50"`
	StudentMaxCourses int `env:"STUDENT_COURSES_THRESHOLD" envDefault:"5"`
}

type RateLimit struct {
	Enabled  bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	Requests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"120"`
	Window   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	// Consecutive Redis failures that switch checks to process memory, and
	// consecutive successes that switch them back.
	BreakerFailures   int `env:"RATE_LIMIT_BREAKER_FAILURES" envDefault:"5"`
	BreakerRecoveries int `env:"RATE_LIMIT_BREAKER_RECOVERIES" envDefault:"3"`
}

// Redis is optional; an empty URL keeps rate limiting in process.
type Redis struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// Kafka is optional; with no brokers, events go to the log.
type Kafka struct {
	Brokers           []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic             string   `env:"KAFKA_TOPIC" envDefault:"registrar.events"`
	Partitions        int32    `env:"KAFKA_TOPIC_PARTITIONS" envDefault:"3"`
	ReplicationFactor int16    `env:"KAFKA_TOPIC_REPLICATION" envDefault:"1"`
}

type Tracing struct {
	Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"registrar"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	switch c.Store.Backend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend))
	}
	if c.Registry.CourseMaxStudents <= 0 {
		errs = append(errs, errors.New("COURSE_STUDENTS_THRESHOLD must be positive"))
	}
	if c.Registry.StudentMaxCourses <= 0 {
		errs = append(errs, errors.New("STUDENT_COURSES_THRESHOLD must be positive"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive"))
	}
	if c.RateLimit.BreakerFailures <= 0 || c.RateLimit.BreakerRecoveries <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_BREAKER_FAILURES and RATE_LIMIT_BREAKER_RECOVERIES must be positive"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel maps LOG_LEVEL to a slog level.
func ParseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", raw)
	}
	return level, nil
}
