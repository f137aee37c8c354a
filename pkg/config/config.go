package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Square       SquareConfig
	Settlement   SettlementConfig
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
	Env          string `envconfig:"FIELDBILL_APP_ENV" required:"true"`
	Port         string `envconfig:"FIELDBILL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FIELDBILL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FIELDBILL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FIELDBILL_DB_DSN"`
	Driver string `envconfig:"FIELDBILL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FIELDBILL_DB_HOST"`
	LegacyPort     int    `envconfig:"FIELDBILL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FIELDBILL_DB_USER"`
	LegacyPassword string `envconfig:"FIELDBILL_DB_PASSWORD"`
	LegacyName     string `envconfig:"FIELDBILL_DB_NAME"`
	LegacySSLMode  string `envconfig:"FIELDBILL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FIELDBILL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FIELDBILL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FIELDBILL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FIELDBILL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FIELDBILL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FIELDBILL_REDIS_ADDR"`
	Password     string        `envconfig:"FIELDBILL_REDIS_PASSWORD"`
	DB           int           `envconfig:"FIELDBILL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FIELDBILL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FIELDBILL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FIELDBILL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FIELDBILL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FIELDBILL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FIELDBILL_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FIELDBILL_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FIELDBILL_JWT_EXPIRATION_MINUTES" default:"60"`
}

type SquareConfig struct {
	AccessToken   string `envconfig:"FIELDBILL_SQUARE_ACCESS_TOKEN"`
	WebhookSecret string `envconfig:"FIELDBILL_SQUARE_WEBHOOK_SECRET"`
	LocationID    string `envconfig:"FIELDBILL_SQUARE_LOCATION_ID"`
	Env           string `envconfig:"FIELDBILL_SQUARE_ENV" default:"sandbox"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

// Configured reports whether the hosted-link channel can be used at all.
func (s SquareConfig) Configured() bool {
	return strings.TrimSpace(s.AccessToken) != ""
}

type SettlementConfig struct {
	LinkTimeout     time.Duration `envconfig:"FIELDBILL_SETTLEMENT_LINK_TIMEOUT" default:"10s"`
	WebhookEventTTL time.Duration `envconfig:"FIELDBILL_SETTLEMENT_WEBHOOK_EVENT_TTL" default:"720h"`
	FeeCapPoints    int           `envconfig:"FIELDBILL_SETTLEMENT_FEE_CAP_POINTS" default:"100"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FIELDBILL_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FIELDBILL_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
