package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Razorpay     RazorpayConfig
	Cart         CartConfig
	Checkout     CheckoutConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ATTAR_APP_ENV" required:"true"`
	Port         string `envconfig:"ATTAR_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ATTAR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ATTAR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ATTAR_DB_DSN"`
	Driver string `envconfig:"ATTAR_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ATTAR_DB_HOST"`
	LegacyPort     int    `envconfig:"ATTAR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ATTAR_DB_USER"`
	LegacyPassword string `envconfig:"ATTAR_DB_PASSWORD"`
	LegacyName     string `envconfig:"ATTAR_DB_NAME"`
	LegacySSLMode  string `envconfig:"ATTAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ATTAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ATTAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ATTAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ATTAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ATTAR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ATTAR_REDIS_ADDR"`
	Password     string        `envconfig:"ATTAR_REDIS_PASSWORD"`
	DB           int           `envconfig:"ATTAR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ATTAR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ATTAR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ATTAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ATTAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ATTAR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"ATTAR_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"ATTAR_JWT_ISSUER" required:"true"`
}

type RazorpayConfig struct {
	KeyID     string `envconfig:"ATTAR_RAZORPAY_KEY_ID"`
	KeySecret string `envconfig:"ATTAR_RAZORPAY_KEY_SECRET"`
	Env       string `envconfig:"ATTAR_RAZORPAY_ENV" default:"test"`
}

// Environment returns the normalized Razorpay environment (test/live).
func (r RazorpayConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(r.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CartConfig struct {
	GuestTTL time.Duration `envconfig:"ATTAR_CART_GUEST_TTL" default:"720h"`
}

type CheckoutConfig struct {
	SessionTTL time.Duration `envconfig:"ATTAR_CHECKOUT_SESSION_TTL" default:"2h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ATTAR_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ATTAR_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	if db.LegacyHost == "" {
		missing = append(missing, "ATTAR_DB_HOST")
	}
	if db.LegacyUser == "" {
		missing = append(missing, "ATTAR_DB_USER")
	}
	if db.LegacyName == "" {
		missing = append(missing, "ATTAR_DB_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("database DSN missing and cannot be assembled, missing: %s", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	dsn := url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}
	query := dsn.Query()
	query.Set("sslmode", db.LegacySSLMode)
	dsn.RawQuery = query.Encode()

	db.DSN = dsn.String()
	return nil
}
