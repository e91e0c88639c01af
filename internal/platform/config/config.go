// Pacote config centraliza o carregamento das variáveis de ambiente usadas pelos binários.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config agrega todos os parâmetros necessários para API e worker.
type Config struct {
	HTTPAddress string
	LogLevel    string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	// StatementTimeout limita cada comando no Postgres; é o teto de duração do sorteio.
	StatementTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	FilaKey           string
	ContadorKeyPrefix string

	RateLimitEnabled       bool
	RateLimitMaxSorteios   int
	RateLimitWindowSeconds int
	RateLimitKeyPrefix     string

	JWTSecret        string
	RolesSorteio     []string
	LimpezaTimeout   time.Duration
	EncerradasLimite int
	AutoMigrate      bool

	WorkerMetricsAddress string
}

func Load() (Config, error) {
	// .env é opcional; em Docker/K8s as variáveis já chegam pelo ambiente.
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddress:            getEnv("HTTP_ADDRESS", ":8080"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		PostgresHost:           getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:           getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:           getEnv("POSTGRES_USER", "sorteios"),
		PostgresPassword:       getEnv("POSTGRES_PASSWORD", "sorteios"),
		PostgresDB:             getEnv("POSTGRES_DB", "sorteios"),
		PostgresSSLMode:        getEnv("POSTGRES_SSLMODE", "disable"),
		StatementTimeout:       time.Duration(getEnvAsInt("POSTGRES_STATEMENT_TIMEOUT_MS", 10000)) * time.Millisecond,
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		FilaKey:                getEnv("REDIS_QUEUE_KEY", "fila:sorteios"),
		ContadorKeyPrefix:      getEnv("REDIS_COUNTER_PREFIX", "contador"),
		RateLimitEnabled:       getEnvAsBool("SORTEIO_RATE_LIMIT_ENABLED", true),
		RateLimitMaxSorteios:   getEnvAsInt("SORTEIO_RATE_LIMIT_MAX", 3),
		RateLimitWindowSeconds: getEnvAsInt("SORTEIO_RATE_LIMIT_WINDOW", 300),
		RateLimitKeyPrefix:     getEnv("SORTEIO_RATE_LIMIT_PREFIX", "ratelimit:sorteio"),
		JWTSecret:              os.Getenv("JWT_SECRET"),
		RolesSorteio:           getEnvAsList("SORTEIO_ROLES", []string{"admin"}),
		LimpezaTimeout:         time.Duration(getEnvAsInt("SORTEIO_LIMPEZA_TIMEOUT_MS", 3000)) * time.Millisecond,
		EncerradasLimite:       getEnvAsInt("SORTEIO_ENCERRADAS_LIMITE", 5),
		AutoMigrate:            getEnvAsBool("DB_AUTO_MIGRATE", true),
		WorkerMetricsAddress:   getEnv("WORKER_METRICS_ADDRESS", ":9090"),
	}

	dbStr := getEnv("REDIS_DB", "0")
	dbInt, err := strconv.Atoi(dbStr)
	if err != nil {
		return Config{}, fmt.Errorf("config: REDIS_DB invalido: %w", err)
	}
	cfg.RedisDB = dbInt

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("config: JWT_SECRET obrigatorio"))
	}
	if len(c.RolesSorteio) == 0 {
		errs = append(errs, errors.New("config: SORTEIO_ROLES vazio"))
	}
	if c.RateLimitEnabled && (c.RateLimitMaxSorteios <= 0 || c.RateLimitWindowSeconds <= 0) {
		errs = append(errs, errors.New("config: limite de sorteios precisa de maximo e janela positivos"))
	}
	if c.LimpezaTimeout <= 0 {
		errs = append(errs, errors.New("config: SORTEIO_LIMPEZA_TIMEOUT_MS deve ser positivo"))
	}
	return errors.Join(errs...)
}

func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

// RedisHabilitado indica se fila, contadores e limitador devem ser ligados.
func (c Config) RedisHabilitado() bool {
	return c.RedisAddr != ""
}

func (c Config) PostgresDSN() string {
	// statement_timeout segue como parâmetro de runtime aceito pelo pgx.
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDB,
		c.PostgresSSLMode,
	)
	if c.StatementTimeout > 0 {
		dsn += fmt.Sprintf("&statement_timeout=%d", c.StatementTimeout.Milliseconds())
	}
	return dsn
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getEnvAsBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	switch value {
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return true
	}
}

func getEnvAsList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var itens []string
	for _, parte := range strings.Split(value, ",") {
		if parte = strings.TrimSpace(parte); parte != "" {
			itens = append(itens, parte)
		}
	}
	return itens
}
