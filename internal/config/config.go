// Package config loads service settings from defaults, an optional YAML file
// and the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Auth modes.
const (
	AuthModeFirebase = "firebase"
	AuthModeJWT      = "jwt"
)

// Config holds every setting the API and the worker read at startup.
type Config struct {
	Port     string `mapstructure:"port"`
	RunLocal bool   `mapstructure:"run_local"`
	LogLevel string `mapstructure:"log_level"`

	AWSRegion           string `mapstructure:"aws_region"`
	AWSEndpointOverride string `mapstructure:"aws_endpoint_override"`

	BooksTable       string        `mapstructure:"books_table"`
	OrdersTable      string        `mapstructure:"orders_table"`
	PaymentsTable    string        `mapstructure:"payments_table"`
	UsersTable       string        `mapstructure:"users_table"`
	LibrariansTable  string        `mapstructure:"librarians_table"`
	IdempotencyTable string        `mapstructure:"idempotency_table"`
	IdempotencyTTL   time.Duration `mapstructure:"idempotency_ttl"`

	EventsQueueURL   string `mapstructure:"events_queue_url"`
	MetricsNamespace string `mapstructure:"metrics_namespace"`

	StripeSecret string `mapstructure:"stripe_secret"`
	SiteDomain   string `mapstructure:"site_domain"`

	AuthMode                string `mapstructure:"auth_mode"`
	FirebaseCredentialsFile string `mapstructure:"firebase_credentials_file"`
	JWTSecret               string `mapstructure:"jwt_secret"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "3000")
	v.SetDefault("run_local", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("aws_region", "us-east-1")
	v.SetDefault("aws_endpoint_override", "")
	v.SetDefault("books_table", "books")
	v.SetDefault("orders_table", "orders")
	v.SetDefault("payments_table", "payments")
	v.SetDefault("users_table", "users")
	v.SetDefault("librarians_table", "librarians")
	v.SetDefault("idempotency_table", "idempotency")
	v.SetDefault("idempotency_ttl", 48*time.Hour)
	v.SetDefault("events_queue_url", "")
	v.SetDefault("metrics_namespace", "BookCourier")
	v.SetDefault("stripe_secret", "")
	v.SetDefault("site_domain", "http://localhost:5173")
	v.SetDefault("auth_mode", AuthModeFirebase)
	v.SetDefault("firebase_credentials_file", "")
	v.SetDefault("jwt_secret", "")
}

// Load reads the configuration. Environment variables win over the file named
// by CONFIG_FILE, which wins over the defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.AuthMode {
	case AuthModeFirebase:
	case AuthModeJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("auth_mode %q requires jwt_secret", c.AuthMode)
		}
	default:
		return fmt.Errorf("unknown auth_mode %q", c.AuthMode)
	}
	return nil
}
