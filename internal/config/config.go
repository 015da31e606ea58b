package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Payment  PaymentConfig
	Session  SessionConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Outbox   OutboxConfig
	Operator OperatorConfig
	Log      LogConfig
}

// ServerConfig is the BFF listener. An empty CORSOrigins allows any origin
// without credentials.
type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

// BackendConfig points at the remote parking API. A zero Timeout means
// requests are bounded only by the caller's context.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type PaymentConfig struct {
	KeyID        string
	MerchantName string
	Description  string
}

type SessionConfig struct {
	TTL time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
}

type OutboxConfig struct {
	PollInterval time.Duration
	MaxAttempts  int
	Backoff      time.Duration
	BatchSize    int
}

type OperatorConfig struct {
	JWTSecret       string
	VerifyRateLimit int
}

type LogConfig struct {
	Level  string
	Format string
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverHost := os.Getenv("SERVER_HOST")
	if serverHost == "" {
		serverHost = "localhost"
	}

	serverPort, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	backendURL := strings.TrimRight(os.Getenv("BACKEND_BASE_URL"), "/")
	if backendURL == "" {
		return nil, fmt.Errorf("%s: missing BACKEND_BASE_URL", op)
	}

	backendTimeout, err := durationEnv("BACKEND_TIMEOUT", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	merchant := os.Getenv("PAYMENT_MERCHANT_NAME")
	if merchant == "" {
		merchant = "NammaSpot Parking"
	}

	sessionTTL, err := durationEnv("SESSION_TTL", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresCfg, err := postgresFromEnv()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisDB, err := intEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pollInterval, err := durationEnv("OUTBOX_POLL_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	maxAttempts, err := intEnv("OUTBOX_MAX_ATTEMPTS", 8)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	backoff, err := durationEnv("OUTBOX_BACKOFF", time.Second)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	batchSize, err := intEnv("OUTBOX_BATCH_SIZE", 20)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	verifyLimit, err := intEnv("VERIFY_RATE_LIMIT", 30)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Config{
		Server: ServerConfig{
			Host:        serverHost,
			Port:        serverPort,
			CORSOrigins: listEnv("CORS_ALLOWED_ORIGINS"),
		},
		Backend: BackendConfig{
			BaseURL: backendURL,
			Timeout: backendTimeout,
		},
		Payment: PaymentConfig{
			KeyID:        os.Getenv("PAYMENT_KEY_ID"),
			MerchantName: merchant,
			Description:  "Secure Parking Reservation",
		},
		Session: SessionConfig{
			TTL: sessionTTL,
		},
		Postgres: postgresCfg,
		Redis: RedisConfig{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Outbox: OutboxConfig{
			PollInterval: pollInterval,
			MaxAttempts:  maxAttempts,
			Backoff:      backoff,
			BatchSize:    batchSize,
		},
		Operator: OperatorConfig{
			JWTSecret:       os.Getenv("OPERATOR_JWT_SECRET"),
			VerifyRateLimit: verifyLimit,
		},
		Log: LogConfig{
			Level:  os.Getenv("LOG_LEVEL"),
			Format: os.Getenv("LOG_FORMAT"),
		},
	}, nil
}

// DSN renders the pgx connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}

func postgresFromEnv() (PostgresConfig, error) {
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}

	port, err := intEnv("POSTGRES_PORT", 5432)
	if err != nil {
		return PostgresConfig{}, err
	}

	user := os.Getenv("POSTGRES_USER")
	if user == "" {
		return PostgresConfig{}, fmt.Errorf("missing POSTGRES_USER")
	}

	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		return PostgresConfig{}, fmt.Errorf("missing POSTGRES_PASSWORD")
	}

	name := os.Getenv("POSTGRES_DB")
	if name == "" {
		return PostgresConfig{}, fmt.Errorf("missing POSTGRES_DB")
	}

	sslMode := os.Getenv("POSTGRES_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}

	return PostgresConfig{
		User:     user,
		Password: password,
		Name:     name,
		Host:     host,
		Port:     port,
		SSLMode:  sslMode,
	}, nil
}

func intEnv(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return v, nil
}

func listEnv(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
