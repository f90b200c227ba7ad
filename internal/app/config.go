package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/lingua-backend/internal/data/db"
	"github.com/yungbote/lingua-backend/internal/platform/envutil"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendDB     = "db"
	CacheBackendRedis  = "redis"
)

type Config struct {
	Port    string `yaml:"port"`
	LogMode string `yaml:"log_mode"`

	DB            DBConfig            `yaml:"db"`
	Cache         CacheConfig         `yaml:"cache"`
	OpenAI        OpenAIConfig        `yaml:"openai"`
	Worker        WorkerConfig        `yaml:"worker"`
	Generation    GenerationConfig    `yaml:"generation"`
	HTTP          HTTPConfig          `yaml:"http"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type DBConfig struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	// ConnMaxLifetime and SlowThreshold accept YAML durations such as "5m".
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	SlowThreshold   time.Duration `yaml:"slow_threshold"`
}

type CacheConfig struct {
	Backend       string `yaml:"backend"`
	Capacity      int    `yaml:"capacity"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisPrefix   string `yaml:"redis_prefix"`
}

type OpenAIConfig struct {
	APIKey         string   `yaml:"api_key"`
	BaseURL        string   `yaml:"base_url"`
	Model          string   `yaml:"model"`
	Temperature    *float64 `yaml:"temperature"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	MaxRetries     int      `yaml:"max_retries"`
}

type WorkerConfig struct {
	Concurrency         int `yaml:"concurrency"`
	QueueSize           int `yaml:"queue_size"`
	ArtifactConcurrency int `yaml:"artifact_concurrency"`
	// ShutdownSeconds bounds how long Close waits for running builds.
	ShutdownSeconds int `yaml:"shutdown_seconds"`
}

type GenerationConfig struct {
	LessonCount           int `yaml:"lesson_count"`
	FlashcardCount        int `yaml:"flashcard_count"`
	ExerciseCount         int `yaml:"exercise_count"`
	SimulationMinSegments int `yaml:"simulation_min_segments"`
	SimulationMaxSegments int `yaml:"simulation_max_segments"`
}

type HTTPConfig struct {
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

type ObservabilityConfig struct {
	MetricsEnabled  bool    `yaml:"metrics_enabled"`
	OTelEnabled     bool    `yaml:"otel_enabled"`
	OTelServiceName string  `yaml:"otel_service_name"`
	OTelEndpoint    string  `yaml:"otel_endpoint"`
	OTelHeaders     string  `yaml:"otel_headers"`
	OTelInsecure    bool    `yaml:"otel_insecure"`
	OTelSampleRatio float64 `yaml:"otel_sample_ratio"`
	Environment     string  `yaml:"environment"`
}

func DefaultConfig() Config {
	return Config{
		Port:    "8080",
		LogMode: "development",
		DB: DBConfig{
			Driver: db.DriverSQLite,
		},
		Cache: CacheConfig{
			Backend:     CacheBackendDB,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "lingua:",
		},
		OpenAI: OpenAIConfig{
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 180,
			MaxRetries:     3,
		},
		Worker: WorkerConfig{
			Concurrency:         4,
			QueueSize:           64,
			ArtifactConcurrency: 3,
			ShutdownSeconds:     30,
		},
		Generation: GenerationConfig{
			LessonCount:           5,
			FlashcardCount:        8,
			ExerciseCount:         5,
			SimulationMinSegments: 5,
			SimulationMaxSegments: 10,
		},
		Observability: ObservabilityConfig{
			MetricsEnabled:  true,
			OTelServiceName: "lingua-backend",
			OTelSampleRatio: 0.1,
		},
	}
}

// LoadConfig layers defaults, the YAML file at path (or CONFIG_FILE) and the environment.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		path = envutil.String("CONFIG_FILE", "")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := decodeYAML(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = envutil.String("PORT", cfg.Port)
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)

	cfg.DB.Driver = strings.ToLower(envutil.String("DB_DRIVER", cfg.DB.Driver))
	cfg.DB.DSN = envutil.String("DB_DSN", cfg.DB.DSN)
	if cfg.DB.DSN == "" && cfg.DB.Driver == db.DriverPostgres {
		cfg.DB.DSN = db.PostgresDSN(
			envutil.String("POSTGRES_HOST", "localhost"),
			envutil.String("POSTGRES_PORT", "5432"),
			envutil.String("POSTGRES_USER", "lingua"),
			envutil.String("POSTGRES_PASSWORD", ""),
			envutil.String("POSTGRES_NAME", "lingua"),
		)
	}
	cfg.DB.MaxOpenConns = envutil.Int("DB_MAX_OPEN_CONNS", cfg.DB.MaxOpenConns)
	cfg.DB.MaxIdleConns = envutil.Int("DB_MAX_IDLE_CONNS", cfg.DB.MaxIdleConns)
	cfg.DB.ConnMaxLifetime = envutil.Seconds("DB_CONN_MAX_LIFETIME_SECONDS", cfg.DB.ConnMaxLifetime)
	cfg.DB.SlowThreshold = envutil.Seconds("DB_SLOW_QUERY_SECONDS", cfg.DB.SlowThreshold)

	cfg.Cache.Backend = strings.ToLower(envutil.String("CACHE_BACKEND", cfg.Cache.Backend))
	cfg.Cache.Capacity = envutil.Int("CACHE_CAPACITY", cfg.Cache.Capacity)
	cfg.Cache.RedisAddr = envutil.String("REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = envutil.String("REDIS_PASSWORD", cfg.Cache.RedisPassword)
	cfg.Cache.RedisPrefix = envutil.String("REDIS_PREFIX", cfg.Cache.RedisPrefix)

	cfg.OpenAI.APIKey = envutil.String("OPENAI_API_KEY", cfg.OpenAI.APIKey)
	cfg.OpenAI.BaseURL = envutil.String("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.OpenAI.Model = envutil.String("OPENAI_MODEL", cfg.OpenAI.Model)
	if envutil.String("OPENAI_TEMPERATURE", "") != "" {
		t := envutil.Float("OPENAI_TEMPERATURE", 0)
		cfg.OpenAI.Temperature = &t
	}
	cfg.OpenAI.TimeoutSeconds = envutil.Int("OPENAI_TIMEOUT_SECONDS", cfg.OpenAI.TimeoutSeconds)
	cfg.OpenAI.MaxRetries = envutil.Int("OPENAI_MAX_RETRIES", cfg.OpenAI.MaxRetries)

	cfg.Worker.Concurrency = envutil.Int("WORKER_CONCURRENCY", cfg.Worker.Concurrency)
	cfg.Worker.QueueSize = envutil.Int("WORKER_QUEUE_SIZE", cfg.Worker.QueueSize)
	cfg.Worker.ArtifactConcurrency = envutil.Int("ARTIFACT_CONCURRENCY", cfg.Worker.ArtifactConcurrency)
	cfg.Worker.ShutdownSeconds = envutil.Int("WORKER_SHUTDOWN_SECONDS", cfg.Worker.ShutdownSeconds)

	cfg.Generation.LessonCount = envutil.Int("LESSON_COUNT", cfg.Generation.LessonCount)
	cfg.Generation.SimulationMinSegments = envutil.Int("SIMULATION_MIN_SEGMENTS", cfg.Generation.SimulationMinSegments)
	cfg.Generation.SimulationMaxSegments = envutil.Int("SIMULATION_MAX_SEGMENTS", cfg.Generation.SimulationMaxSegments)

	cfg.HTTP.CORSAllowedOrigins = envutil.CSV("CORS_ALLOWED_ORIGINS", cfg.HTTP.CORSAllowedOrigins)

	cfg.Observability.MetricsEnabled = envutil.Bool("METRICS_ENABLED", cfg.Observability.MetricsEnabled)
	cfg.Observability.OTelEnabled = envutil.Bool("OTEL_ENABLED", cfg.Observability.OTelEnabled)
	cfg.Observability.OTelServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.Observability.OTelServiceName)
	cfg.Observability.OTelEndpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Observability.OTelEndpoint)
	cfg.Observability.OTelHeaders = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", cfg.Observability.OTelHeaders)
	cfg.Observability.OTelInsecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.Observability.OTelInsecure)
	cfg.Observability.OTelSampleRatio = envutil.Float("OTEL_SAMPLE_RATIO", cfg.Observability.OTelSampleRatio)
	cfg.Observability.Environment = envutil.String("APP_ENV", cfg.Observability.Environment)
}

// Validate rejects unknown enum values and impossible bounds.
func (c Config) Validate() error {
	var errs []error
	switch c.DB.Driver {
	case db.DriverSQLite, db.DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DB.Driver))
	}
	if c.DB.Driver == db.DriverPostgres && strings.TrimSpace(c.DB.DSN) == "" {
		errs = append(errs, fmt.Errorf("postgres requires DB_DSN or POSTGRES_* settings"))
	}
	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendDB:
	case CacheBackendRedis:
		if strings.TrimSpace(c.Cache.RedisAddr) == "" {
			errs = append(errs, fmt.Errorf("redis cache requires REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("CACHE_BACKEND must be memory, db or redis, got %q", c.Cache.Backend))
	}
	if c.Cache.Capacity < 0 {
		errs = append(errs, fmt.Errorf("CACHE_CAPACITY must not be negative"))
	}
	if c.Worker.Concurrency < 1 || c.Worker.QueueSize < 1 || c.Worker.ArtifactConcurrency < 1 {
		errs = append(errs, fmt.Errorf("worker concurrency, queue size and artifact concurrency must be positive"))
	}
	if c.Generation.SimulationMinSegments < 1 || c.Generation.SimulationMaxSegments < c.Generation.SimulationMinSegments {
		errs = append(errs, fmt.Errorf("invalid simulation segment range %d-%d",
			c.Generation.SimulationMinSegments, c.Generation.SimulationMaxSegments))
	}
	if c.OpenAI.Temperature != nil && (*c.OpenAI.Temperature < 0 || *c.OpenAI.Temperature > 2) {
		errs = append(errs, fmt.Errorf("OPENAI_TEMPERATURE must be within 0-2"))
	}
	return errors.Join(errs...)
}

func (c Config) Addr() string {
	port := strings.TrimPrefix(strings.TrimSpace(c.Port), ":")
	if port == "" {
		port = "8080"
	}
	return ":" + port
}

func (c Config) ShutdownTimeout() time.Duration {
	if c.Worker.ShutdownSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Worker.ShutdownSeconds) * time.Second
}
