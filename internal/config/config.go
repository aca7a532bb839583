package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bizintake/onboarding-backend/internal/entity"
	pkgRetry "github.com/bizintake/onboarding-backend/internal/pkg/retry"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr string `env:"SERVER_ADDR,notEmpty"`

	// Database configuration. When DATABASE_URL is empty the service
	// keeps sessions in process memory only.
	DatabaseURL         string        `env:"DATABASE_URL"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// External service configurations
	LLMConnectorCfg      LLMConnectorConfig      `envPrefix:"LLM_"`
	RegistryConnectorCfg RegistryConnectorConfig `envPrefix:"REGISTRY_"`

	// Session configuration
	TurnTimeout     time.Duration `env:"TURN_TIMEOUT" envDefault:"30s"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SessionCleanup  time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"10m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL,notEmpty"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Interview questions (loaded from JSON file, built-in default otherwise)
	Questions []entity.Question

	// Advice filter patterns (loaded from JSON file, built-in default otherwise)
	AdvicePatterns []string

	// Environment (set from flag, not from env var)
	Environment string
}

// Connector env values are only required when the real connectors are in
// use; with ENABLE_MOCKS=true the service starts without them.
type LLMConnectorConfig struct {
	HTTPClientConfig
	GenerateEndpoint string               `env:"GENERATE_ENDPOINT"`
	Retry            pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type RegistryConnectorConfig struct {
	HTTPClientConfig
	CompanyEndpoint string               `env:"COMPANY_ENDPOINT"`
	TaxEndpoint     string               `env:"TAX_ENDPOINT"`
	Retry           pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL"`
}

// questionsFile represents the structure of questions.json
type questionsFile struct {
	Questions []entity.Question `json:"questions"`
}

// advicePatternsFile represents the structure of advice_patterns.json
type advicePatternsFile struct {
	Patterns []string `json:"patterns"`
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	envFile := getEnvFile(*envFlag)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = *envFlag

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if err := loadQuestions(cfg); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	if err := loadAdvicePatterns(cfg); err != nil {
		return nil, fmt.Errorf("load advice patterns: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
		return fmt.Errorf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns)
	}

	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns)
	}

	if cfg.TurnTimeout < time.Second {
		return fmt.Errorf("TURN_TIMEOUT must be at least 1s, got %s", cfg.TurnTimeout)
	}

	if cfg.SessionTTL < time.Minute {
		return fmt.Errorf("SESSION_TTL must be at least 1m, got %s", cfg.SessionTTL)
	}

	if !cfg.EnableMocks {
		if err := validateHTTPClient("LLM", cfg.LLMConnectorCfg.HTTPClientConfig); err != nil {
			return err
		}
		if cfg.LLMConnectorCfg.GenerateEndpoint == "" {
			return fmt.Errorf("LLM_GENERATE_ENDPOINT must be set when mocks are disabled")
		}

		if err := validateHTTPClient("REGISTRY", cfg.RegistryConnectorCfg.HTTPClientConfig); err != nil {
			return err
		}
		if cfg.RegistryConnectorCfg.CompanyEndpoint == "" {
			return fmt.Errorf("REGISTRY_COMPANY_ENDPOINT must be set when mocks are disabled")
		}
		if cfg.RegistryConnectorCfg.TaxEndpoint == "" {
			return fmt.Errorf("REGISTRY_TAX_ENDPOINT must be set when mocks are disabled")
		}
	}

	return nil
}

func validateHTTPClient(prefix string, cfg HTTPClientConfig) error {
	if cfg.Url == "" {
		return fmt.Errorf("%s_SERVICE_URL must be set when mocks are disabled", prefix)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("%s_TIMEOUT must be positive when mocks are disabled", prefix)
	}
	if cfg.ConnTimeout <= 0 {
		return fmt.Errorf("%s_CONN_TIMEOUT must be positive when mocks are disabled", prefix)
	}
	if cfg.KeepAlive <= 0 {
		return fmt.Errorf("%s_KEEP_ALIVE must be positive when mocks are disabled", prefix)
	}
	if cfg.IdleConnTimeout <= 0 {
		return fmt.Errorf("%s_IDLE_CONN_TIMEOUT must be positive when mocks are disabled", prefix)
	}
	if cfg.ResponseHeaderTimeout <= 0 {
		return fmt.Errorf("%s_RESPONSE_HEADER_TIMEOUT must be positive when mocks are disabled", prefix)
	}
	return nil
}

func loadQuestions(cfg *Config) error {
	path := filepath.Join("internal", "config", "questions.json")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("Warning: questions file not found at %s, using built-in interview\n", path)
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read questions file: %w", err)
	}

	var parsed questionsFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse questions JSON: %w", err)
	}

	if len(parsed.Questions) == 0 {
		return fmt.Errorf("questions file contains no questions: %s", path)
	}

	cfg.Questions = parsed.Questions

	fmt.Printf("Loaded %d questions from %s\n", len(cfg.Questions), path)
	return nil
}

func loadAdvicePatterns(cfg *Config) error {
	path := filepath.Join("internal", "config", "advice_patterns.json")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("Warning: advice patterns file not found at %s, using built-in patterns\n", path)
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read advice patterns file: %w", err)
	}

	var parsed advicePatternsFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse advice patterns JSON: %w", err)
	}

	if len(parsed.Patterns) == 0 {
		return fmt.Errorf("advice patterns file contains no patterns: %s", path)
	}

	cfg.AdvicePatterns = parsed.Patterns
	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
