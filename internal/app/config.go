package app

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	RunAddress     string
	DatabaseURI    string
	LogLevel       string
	JWTSecretKey   string
	JWTTTL         time.Duration
	MigrationsPath string
	RedisAddr      string
	RequestTimeout time.Duration
}

// NewConfigFromFlags loads an optional .env file, then parses the command
// line and applies environment overrides. It panics on invalid configuration.
func NewConfigFromFlags() *Config {
	_ = godotenv.Load()

	cfg, err := LoadConfig(os.Args[1:], os.Getenv)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

// LoadConfig parses args and then applies the environment looked up through
// getenv. Environment values win over flags.
func LoadConfig(args []string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("paymybuddy", flag.ContinueOnError)
	fs.StringVar(&cfg.RunAddress, "a", "localhost:8080", "Server address (env: RUN_ADDRESS)")
	fs.StringVar(&cfg.DatabaseURI, "d", "", "Database URI (env: DATABASE_URI)")
	fs.StringVar(&cfg.LogLevel, "l", "debug", "Log level (debug|info|warn|error) (env: LOG_LEVEL)")
	fs.StringVar(&cfg.JWTSecretKey, "jwt-secret", "", "JWT secret key (env: JWT_SECRET_KEY)")
	fs.DurationVar(&cfg.JWTTTL, "jwt-ttl", 24*time.Hour, "JWT lifetime (env: JWT_TTL)")
	fs.StringVar(&cfg.MigrationsPath, "migrations", "./migrations", "Path to migrations folder (env: MIGRATIONS_PATH)")
	fs.StringVar(&cfg.RedisAddr, "redis", "", "Redis address for transfer idempotency (env: REDIS_ADDR)")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", 10*time.Second, "Per-request timeout (env: REQUEST_TIMEOUT)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.applyEnvVars(getenv); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnvVars(getenv func(string) string) error {
	if envAddr := getenv("RUN_ADDRESS"); envAddr != "" {
		c.RunAddress = envAddr
	}
	if envDB := getenv("DATABASE_URI"); envDB != "" {
		c.DatabaseURI = envDB
	}
	if envLogLevel := getenv("LOG_LEVEL"); envLogLevel != "" {
		c.LogLevel = envLogLevel
	}
	if envSecret := getenv("JWT_SECRET_KEY"); envSecret != "" {
		c.JWTSecretKey = envSecret
	}
	if envTTL := getenv("JWT_TTL"); envTTL != "" {
		ttl, err := time.ParseDuration(envTTL)
		if err != nil {
			return fmt.Errorf("invalid JWT_TTL: %w", err)
		}
		c.JWTTTL = ttl
	}
	if envMigrations := getenv("MIGRATIONS_PATH"); envMigrations != "" {
		c.MigrationsPath = envMigrations
	}
	if envRedis := getenv("REDIS_ADDR"); envRedis != "" {
		c.RedisAddr = envRedis
	}
	if envTimeout := getenv("REQUEST_TIMEOUT"); envTimeout != "" {
		timeout, err := time.ParseDuration(envTimeout)
		if err != nil {
			return fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
		}
		c.RequestTimeout = timeout
	}
	return nil
}

func (c *Config) validate() error {
	if c.DatabaseURI == "" {
		return errors.New("Database URI is required (use -d flag or DATABASE_URI env)")
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT lifetime must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	return nil
}

func (c *Config) MaskDBPassword() string {
	u, err := url.Parse(c.DatabaseURI)
	if err != nil {
		return c.DatabaseURI
	}

	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
	}
	return u.String()
}
