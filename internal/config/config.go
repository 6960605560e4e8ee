package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	DB     DBConfig     `mapstructure:"db"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Ledger LedgerConfig `mapstructure:"ledger"`
	Blob   BlobConfig   `mapstructure:"blob"`
	Events EventsConfig `mapstructure:"events"`
	Logger LoggerConfig `mapstructure:"logger"`

	// Source is the config file that was read, empty when running on
	// defaults and environment only.
	Source string `mapstructure:"-"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout"`
	WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout     time.Duration `mapstructure:"idleTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	CORSOrigins     []string      `mapstructure:"corsOrigins"`
}

type DBConfig struct {
	Driver             string        `mapstructure:"driver"`
	DatabaseURL        string        `mapstructure:"databaseURL"`
	MaxOpenConnection  int           `mapstructure:"maxOpenConnection"`
	MaxIdleConnection  int           `mapstructure:"maxIdleConnection"`
	ConnectionLifetime time.Duration `mapstructure:"connectionLifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type AuthConfig struct {
	JWTSecret   string        `mapstructure:"jwtSecret"`
	TokenTTL    time.Duration `mapstructure:"tokenTTL"`
	Issuer      string        `mapstructure:"issuer"`
	AdminEmails []string      `mapstructure:"adminEmails"`
}

type LedgerConfig struct {
	MinDeposit    decimal.Decimal `mapstructure:"minDeposit"`
	MinExchange   decimal.Decimal `mapstructure:"minExchange"`
	ReferralBonus decimal.Decimal `mapstructure:"referralBonus"`
	TxMaxAttempts int             `mapstructure:"txMaxAttempts"`
}

type BlobConfig struct {
	Driver    string `mapstructure:"driver"`
	Dir       string `mapstructure:"dir"`
	BaseURL   string `mapstructure:"baseURL"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"accessKey"`
	SecretKey string `mapstructure:"secretKey"`
	PublicURL string `mapstructure:"publicURL"`
}

type EventsConfig struct {
	Buffer int `mapstructure:"buffer"`
}

type LoggerConfig struct {
	LoggerLevel string `mapstructure:"loggerLevel"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 10*time.Second)
	v.SetDefault("server.writeTimeout", 15*time.Second)
	v.SetDefault("server.idleTimeout", 60*time.Second)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.corsOrigins", []string{"*"})

	v.SetDefault("db.driver", "memory")
	v.SetDefault("db.databaseURL", "")
	v.SetDefault("db.maxOpenConnection", 15)
	v.SetDefault("db.maxIdleConnection", 10)
	v.SetDefault("db.connectionLifetime", time.Hour)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "payeveryone")

	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.tokenTTL", 24*time.Hour)
	v.SetDefault("auth.issuer", "payeveryone")
	v.SetDefault("auth.adminEmails", []string{})

	v.SetDefault("ledger.minDeposit", "10")
	v.SetDefault("ledger.minExchange", "10000")
	v.SetDefault("ledger.referralBonus", "50")
	v.SetDefault("ledger.txMaxAttempts", 10)

	v.SetDefault("blob.driver", "local")
	v.SetDefault("blob.dir", "./uploads")
	v.SetDefault("blob.baseURL", "http://localhost:8080/files")
	v.SetDefault("blob.bucket", "")
	v.SetDefault("blob.region", "us-east-1")
	v.SetDefault("blob.endpoint", "")
	v.SetDefault("blob.accessKey", "")
	v.SetDefault("blob.secretKey", "")
	v.SetDefault("blob.publicURL", "")

	v.SetDefault("events.buffer", 64)

	v.SetDefault("logger.loggerLevel", "info")
	v.SetDefault("logger.development", false)
}

// Load reads .env and config.yaml from the search paths (the working directory
// and ./internal/config by default). Environment variables override file
// values, with dots replaced by underscores: DB_DRIVER, AUTH_JWTSECRET.
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		paths = []string{".", "./internal/config"}
	}

	for _, p := range paths {
		if err := godotenv.Load(filepath.Join(p, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", filepath.Join(p, ".env"), err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		decimalHook,
	))
	if err := v.Unmarshal(&config, hook); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	config.Source = v.ConfigFileUsed()

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

func decimalHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != decimalType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	}
	return data, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case "memory":
	case "postgres":
		if c.DB.DatabaseURL == "" {
			return errors.New("config: db.databaseURL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown db.driver %q", c.DB.Driver)
	}

	switch c.Blob.Driver {
	case "local":
	case "s3":
		if c.Blob.Bucket == "" {
			return errors.New("config: blob.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("config: unknown blob.driver %q", c.Blob.Driver)
	}

	if len(c.Auth.JWTSecret) < 16 {
		return errors.New("config: auth.jwtSecret must be at least 16 characters")
	}
	if c.Ledger.MinDeposit.IsNegative() || c.Ledger.MinExchange.IsNegative() || c.Ledger.ReferralBonus.IsNegative() {
		return errors.New("config: ledger amounts must not be negative")
	}
	return nil
}
