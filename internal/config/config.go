package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Supported db_driver values.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config is the storefront configuration. Every key can be overridden by the upper-cased
// environment variable of the same name, e.g. APP_PORT.
type Config struct {
	AppPort string `mapstructure:"app_port"`

	DBDriver             string        `mapstructure:"db_driver"`
	DatabaseDSN          string        `mapstructure:"database_dsn"`
	MongoURI             string        `mapstructure:"mongo_uri"`
	MongoDatabase        string        `mapstructure:"mongo_database"`
	DocstorePollInterval time.Duration `mapstructure:"docstore_poll_interval"`

	RedisURL string        `mapstructure:"redis_url"`
	CartTTL  time.Duration `mapstructure:"cart_ttl"`

	RabbitMQURL string `mapstructure:"rabbitmq_url"`

	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`

	UploadDir           string `mapstructure:"upload_dir"`
	UploadBaseURL       string `mapstructure:"upload_base_url"`
	UploadMaxImageWidth int    `mapstructure:"upload_max_image_width"`

	CheckoutSettleDelay time.Duration `mapstructure:"checkout_settle_delay"`
	CheckoutTaxRate     float64       `mapstructure:"checkout_tax_rate"`
	OrderIDPrefix       string        `mapstructure:"order_id_prefix"`
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app_port", ":8080")

	v.SetDefault("db_driver", DriverMemory)
	v.SetDefault("database_dsn", "hightech.db")
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_database", "hightech")
	v.SetDefault("docstore_poll_interval", "5s")

	v.SetDefault("redis_url", "")
	v.SetDefault("cart_ttl", "720h")

	v.SetDefault("rabbitmq_url", "")

	v.SetDefault("jwt_secret", "supersecretjwtkey")
	v.SetDefault("token_ttl", "24h")

	v.SetDefault("upload_dir", "uploads")
	v.SetDefault("upload_base_url", "/uploads")
	v.SetDefault("upload_max_image_width", 1600)

	v.SetDefault("checkout_settle_delay", "1200ms")
	v.SetDefault("checkout_tax_rate", 0.16)
	v.SetDefault("order_id_prefix", "HTE-")
}

// Load reads an optional config.yaml from the working directory (or configFile when set),
// applies environment overrides and validates the result.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverMemory, DriverSQLite, DriverPostgres, DriverMongo:
	default:
		return fmt.Errorf("unsupported db_driver %q", c.DBDriver)
	}
	if c.DBDriver == DriverPostgres && c.DatabaseDSN == "" {
		return errors.New("database_dsn is required for the postgres driver")
	}
	if c.JWTSecret == "" {
		return errors.New("jwt_secret must not be empty")
	}
	if c.CheckoutTaxRate < 0 {
		return fmt.Errorf("checkout_tax_rate must not be negative, got %v", c.CheckoutTaxRate)
	}
	if c.CheckoutSettleDelay < 0 {
		return fmt.Errorf("checkout_settle_delay must not be negative, got %v", c.CheckoutSettleDelay)
	}
	if c.UploadMaxImageWidth < 0 {
		return fmt.Errorf("upload_max_image_width must not be negative, got %d", c.UploadMaxImageWidth)
	}
	return nil
}
