package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the root configuration surface for the timetable API: transport,
// persistence, the background annealing queue, and process-level solver
// defaults. A dto.GenerateTimetableRequest can still override any solver
// tunable per request; Solver only sets the baseline.
type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Solver    SolverConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig tunes the background annealing worker pool that
// ScheduleGeneratorService enqueues annealing jobs onto.
type SchedulerConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// SolverConfig holds the process-wide solver defaults. Values mirror the
// engine's own defaults so an empty environment changes nothing.
type SolverConfig struct {
	MaxGroupCapacity      int
	ExcludedLectureSpaces []string
	WeightGap             float64
	WeightBadTime         float64
	WeightBuilding        float64
	WeightImbalance       float64
	AnnealingIterations   int
	AnnealingInitialTemp  float64
	AnnealingCoolingRate  float64
	Seed                  int64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		Workers:    v.GetInt("SCHEDULER_WORKERS"),
		BufferSize: v.GetInt("SCHEDULER_QUEUE_BUFFER"),
		MaxRetries: v.GetInt("SCHEDULER_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("SCHEDULER_RETRY_DELAY"), 5*time.Second),
	}

	cfg.Solver = SolverConfig{
		MaxGroupCapacity:      v.GetInt("MAX_GROUP_CAPACITY"),
		ExcludedLectureSpaces: splitAndTrim(v.GetString("EXCLUDED_LECTURE_SPACES")),
		WeightGap:             v.GetFloat64("WEIGHT_GAP"),
		WeightBadTime:         v.GetFloat64("WEIGHT_BAD_TIME"),
		WeightBuilding:        v.GetFloat64("WEIGHT_BUILDING"),
		WeightImbalance:       v.GetFloat64("WEIGHT_IMBALANCE"),
		AnnealingIterations:   v.GetInt("ANNEALING_ITERATIONS"),
		AnnealingInitialTemp:  v.GetFloat64("ANNEALING_INITIAL_TEMP"),
		AnnealingCoolingRate:  v.GetFloat64("ANNEALING_COOLING_RATE"),
		Seed:                  v.GetInt64("SOLVER_SEED"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "timetable_generator")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULER_WORKERS", 1)
	v.SetDefault("SCHEDULER_QUEUE_BUFFER", 8)
	v.SetDefault("SCHEDULER_MAX_RETRIES", 1)
	v.SetDefault("SCHEDULER_RETRY_DELAY", "5s")

	v.SetDefault("MAX_GROUP_CAPACITY", 75)
	v.SetDefault("EXCLUDED_LECTURE_SPACES", "Drawing Studio,Computer")
	v.SetDefault("WEIGHT_GAP", 1)
	v.SetDefault("WEIGHT_BAD_TIME", 2)
	v.SetDefault("WEIGHT_BUILDING", 5)
	v.SetDefault("WEIGHT_IMBALANCE", 2)
	v.SetDefault("ANNEALING_ITERATIONS", 10000)
	v.SetDefault("ANNEALING_INITIAL_TEMP", 20.0)
	v.SetDefault("ANNEALING_COOLING_RATE", 0.9995)
	v.SetDefault("SOLVER_SEED", 1)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
