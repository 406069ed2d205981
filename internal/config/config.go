package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Logger    LoggerConfig
	Tenant    TenantConfig
	Mercantil MercantilConfig
	Rates     RatesConfig
	Params    ParamsConfig
	SMTP      SMTPConfig
	Redis     RedisConfig
	Cron      CronConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string  `validate:"required"`
	Port           int     `validate:"min=1,max=65535"`
	MetricsPort    int     `validate:"min=1,max=65535"`
	RateLimitRPS   float64 `validate:"gt=0"`
	RateLimitBurst int     `validate:"gt=0"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `validate:"required"`
	Port     int    `validate:"min=1,max=65535"`
	User     string `validate:"required"`
	Password string `validate:"required"`
	Database string `validate:"required"`
	SSLMode  string `validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns int32  `validate:"gt=0"`
	MinConns int32  `validate:"gte=0"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string `validate:"oneof=debug info warn error"`
	Environment string
}

// TenantConfig identifies the company that storefront and bank webhooks belong to
type TenantConfig struct {
	DefaultCompanyID uuid.UUID
}

// MercantilConfig holds gateway settings that are not per-tenant parameters
type MercantilConfig struct {
	ReturnURL           string
	LedgerBankJournal   string `validate:"required"`
	RequireIngestedRate bool
}

// RatesConfig holds exchange rate ingestion settings
type RatesConfig struct {
	BCVURL             string        `validate:"required,url"`
	Timezone           string        `validate:"required"`
	TenantIDs          []uuid.UUID   `validate:"min=1"`
	Timeout            time.Duration `validate:"gt=0"`
	Interval           time.Duration `validate:"gt=0"`
	InsecureSkipVerify bool
	RunOnStart         bool
	SchedulerEnabled   bool
}

// ParamsConfig selects where business parameters are read from
type ParamsConfig struct {
	Backend          string `validate:"oneof=db local vault aws"`
	SecretPathPrefix string
	CacheTTL         time.Duration
	LocalSecretsDir  string
	VaultAddress     string
	VaultToken       string
	VaultMountPath   string
	AWSRegion        string
}

// SMTPConfig holds outbound mail settings
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	MaxRetries int
}

// Enabled reports whether a relay is configured
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

// RedisConfig holds the optional webhook delivery guard settings
type RedisConfig struct {
	URL       string
	DedupeTTL time.Duration
}

// CronConfig holds cron endpoint authentication
type CronConfig struct {
	Secret string
}

// LoadFromEnv loads configuration from environment variables.
// A .env file in the working directory is read first when present; real
// environment variables take precedence over it.
func LoadFromEnv() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadForTools loads the same settings for operator tools, which need the
// database but not the HTTP surface, so the cron secret is not required.
func LoadForTools() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	return cfg, nil
}

func load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	defaultCompany, err := getEnvAsUUID("DEFAULT_COMPANY_ID", uuid.Nil)
	if err != nil {
		return nil, err
	}
	rateTenants, err := getEnvAsUUIDList("RATE_TENANT_IDS")
	if err != nil {
		return nil, err
	}
	if len(rateTenants) == 0 && defaultCompany != uuid.Nil {
		rateTenants = []uuid.UUID{defaultCompany}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("HTTP_PORT", 8081),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
			RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 10),
			RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "odoo_megalabs"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		},
		Logger: LoggerConfig{
			Level:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Tenant: TenantConfig{
			DefaultCompanyID: defaultCompany,
		},
		Mercantil: MercantilConfig{
			ReturnURL:           getEnv("MERCANTIL_RETURN_URL", ""),
			LedgerBankJournal:   getEnv("LEDGER_BANK_JOURNAL", "BNK1"),
			RequireIngestedRate: getEnvAsBool("MERCANTIL_REQUIRE_INGESTED_RATE", false),
		},
		Rates: RatesConfig{
			BCVURL:             getEnv("BCV_URL", "https://www.bcv.org.ve/"),
			Timezone:           getEnv("RATE_TIMEZONE", "America/Caracas"),
			TenantIDs:          rateTenants,
			Timeout:            getEnvAsDuration("BCV_TIMEOUT", 20*time.Second),
			Interval:           getEnvAsDuration("RATE_JOB_INTERVAL", 24*time.Hour),
			InsecureSkipVerify: getEnvAsBool("BCV_INSECURE_SKIP_VERIFY", false),
			RunOnStart:         getEnvAsBool("RATE_JOB_RUN_ON_START", true),
			SchedulerEnabled:   getEnvAsBool("RATE_JOB_ENABLED", true),
		},
		Params: ParamsConfig{
			Backend:          strings.ToLower(getEnv("PARAMETER_BACKEND", "db")),
			SecretPathPrefix: strings.TrimRight(getEnv("SECRET_PATH_PREFIX", "odoo-megalabs"), "/"),
			CacheTTL:         getEnvAsDuration("SECRET_CACHE_TTL", 5*time.Minute),
			LocalSecretsDir:  getEnv("LOCAL_SECRETS_BASE_PATH", "./secrets"),
			VaultAddress:     getEnv("VAULT_ADDR", ""),
			VaultToken:       getEnv("VAULT_TOKEN", ""),
			VaultMountPath:   getEnv("VAULT_MOUNT_PATH", "secret"),
			AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Username:   getEnv("SMTP_USERNAME", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			From:       getEnv("SMTP_FROM", "ventas@megalabs.com.ve"),
			MaxRetries: getEnvAsInt("SMTP_MAX_RETRIES", 3),
		},
		Redis: RedisConfig{
			URL:       getEnv("REDIS_URL", ""),
			DedupeTTL: getEnvAsDuration("WEBHOOK_DEDUPE_TTL", 48*time.Hour),
		},
		Cron: CronConfig{
			Secret: getEnv("CRON_SECRET", ""),
		},
	}
	return cfg, nil
}

// Validate checks struct constraints and the cross-field rules the tags cannot express
func (c *Config) Validate() error {
	if c.Tenant.DefaultCompanyID == uuid.Nil {
		return fmt.Errorf("DEFAULT_COMPANY_ID is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Cron.Secret == "" {
		return fmt.Errorf("CRON_SECRET is required")
	}
	if _, err := time.LoadLocation(c.Rates.Timezone); err != nil {
		return fmt.Errorf("RATE_TIMEZONE %q is not a valid location: %w", c.Rates.Timezone, err)
	}
	switch c.Params.Backend {
	case "vault":
		if c.Params.VaultAddress == "" {
			return fmt.Errorf("VAULT_ADDR is required when PARAMETER_BACKEND=vault")
		}
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Location returns the time zone used to date ingested rates
func (c *RatesConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// Address returns the HTTP listen address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsUUID(key string, defaultValue uuid.UUID) (uuid.UUID, error) {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue, nil
	}
	id, err := uuid.Parse(valueStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s is not a valid UUID: %w", key, err)
	}
	return id, nil
}

func getEnvAsUUIDList(key string) ([]uuid.UUID, error) {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return nil, nil
	}
	var ids []uuid.UUID
	for _, part := range strings.Split(valueStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, fmt.Errorf("%s contains an invalid UUID %q: %w", key, part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
