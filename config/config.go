package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"

	"rewarder/database"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken string `env:"DISCORD_TOKEN"`

	// Database configuration
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseName string `env:"DATABASE_NAME"`

	// Administrators allowed into the admin menus
	AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`

	// Public address of the verification page
	BaseURL  string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// NATS configuration, empty disables event forwarding
	NATSServers string `env:"NATS_SERVERS"`

	GateCheckTimeout  time.Duration `env:"GATE_CHECK_TIMEOUT" envDefault:"5s"`
	RedemptionTimeout time.Duration `env:"REDEMPTION_TIMEOUT" envDefault:"10s"`
	RedeemsLogLimit   int           `env:"REDEEMS_LOG_LIMIT" envDefault:"10"`

	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // "development", "production" or "test"

	// OpenTelemetry configuration
	OTelEnabled              bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelExporterType         string `env:"OTEL_EXPORTER_TYPE" envDefault:"console"` // console, otlp, none
	OTelOTLPEndpoint         string `env:"OTEL_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTelServiceName          string `env:"OTEL_SERVICE_NAME" envDefault:"rewarder"`
	OTelExportIntervalMillis int    `env:"OTEL_EXPORT_INTERVAL_MILLIS" envDefault:"15000"`
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL combines the base URL and the database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsProduction reports whether logs should be emitted as JSON
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// load loads configuration from environment variables
func load() (*Config, error) {
	return parse(env.Options{})
}

func parse(opts env.Options) (*Config, error) {
	config := &Config{}
	if err := env.ParseWithOptions(config, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.RedeemsLogLimit <= 0 {
		return fmt.Errorf("REDEEMS_LOG_LIMIT must be positive, got %d", c.RedeemsLogLimit)
	}
	if c.GateCheckTimeout <= 0 || c.RedemptionTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}

	if c.Environment == "test" {
		return nil
	}
	if c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}
	return nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:              "test",
		AdminIDs:                 []int64{999999},
		BaseURL:                  "http://localhost:8080",
		HTTPAddr:                 ":0",
		GateCheckTimeout:         5 * time.Second,
		RedemptionTimeout:        10 * time.Second,
		RedeemsLogLimit:          10,
		LogLevel:                 "debug",
		OTelExporterType:         "none",
		OTelServiceName:          "rewarder-test",
		OTelExportIntervalMillis: 15000,
	}
}
