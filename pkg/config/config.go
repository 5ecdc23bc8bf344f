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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Paystack     PaystackConfig
	WireNet      WireNetConfig
	Sweeper      SweeperConfig
	Webhooks     WebhooksConfig
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
	Env          string `envconfig:"DATABUNDLES_APP_ENV" required:"true"`
	Port         string `envconfig:"DATABUNDLES_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DATABUNDLES_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DATABUNDLES_LOG_WARN_STACK" default:"false"`
	ClientURL    string `envconfig:"DATABUNDLES_CLIENT_URL" default:"http://localhost:5173"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DATABUNDLES_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DATABUNDLES_DB_DSN"`
	Driver string `envconfig:"DATABUNDLES_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DATABUNDLES_DB_HOST"`
	LegacyPort     int    `envconfig:"DATABUNDLES_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DATABUNDLES_DB_USER"`
	LegacyPassword string `envconfig:"DATABUNDLES_DB_PASSWORD"`
	LegacyName     string `envconfig:"DATABUNDLES_DB_NAME"`
	LegacySSLMode  string `envconfig:"DATABUNDLES_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DATABUNDLES_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DATABUNDLES_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DATABUNDLES_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DATABUNDLES_DB_CONN_MAX_IDLE_TIME" default:"10m"`
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

type RedisConfig struct {
	URL          string        `envconfig:"DATABUNDLES_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DATABUNDLES_REDIS_ADDR"`
	Password     string        `envconfig:"DATABUNDLES_REDIS_PASSWORD"`
	DB           int           `envconfig:"DATABUNDLES_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DATABUNDLES_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DATABUNDLES_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DATABUNDLES_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DATABUNDLES_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DATABUNDLES_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"DATABUNDLES_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DATABUNDLES_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"DATABUNDLES_JWT_EXPIRATION_MINUTES" default:"60"`
}

// PaystackConfig carries the card-payment gateway credentials.
type PaystackConfig struct {
	SecretKey   string        `envconfig:"DATABUNDLES_PAYSTACK_SECRET_KEY" required:"true"`
	BaseURL     string        `envconfig:"DATABUNDLES_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	HTTPTimeout time.Duration `envconfig:"DATABUNDLES_PAYSTACK_HTTP_TIMEOUT" default:"15s"`
}

// WireNetConfig carries the wholesale supplier credentials.
type WireNetConfig struct {
	APIKey      string        `envconfig:"DATABUNDLES_WIRENET_API_KEY" required:"true"`
	BaseURL     string        `envconfig:"DATABUNDLES_WIRENET_BASE_URL" default:"https://wirenet.top/api/v1"`
	HTTPTimeout time.Duration `envconfig:"DATABUNDLES_WIRENET_HTTP_TIMEOUT" default:"20s"`
}

// SweeperConfig tunes the stuck-order reconciliation sweep.
// AutoFulfillAfter of zero disables the auto-fulfill policy entirely.
type SweeperConfig struct {
	Interval         time.Duration `envconfig:"DATABUNDLES_SWEEP_INTERVAL" default:"5m"`
	StuckAfter       time.Duration `envconfig:"DATABUNDLES_SWEEP_STUCK_AFTER" default:"30m"`
	AutoFulfillAfter time.Duration `envconfig:"DATABUNDLES_SWEEP_AUTOFULFILL_AFTER" default:"0"`
}

type WebhooksConfig struct {
	IdempotencyTTL time.Duration `envconfig:"DATABUNDLES_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate      bool `envconfig:"DATABUNDLES_AUTO_MIGRATE" default:"false"`
	DispatchWorkers  int  `envconfig:"DATABUNDLES_DISPATCH_WORKERS" default:"4"`
	DispatchQueueLen int  `envconfig:"DATABUNDLES_DISPATCH_QUEUE_LEN" default:"256"`
}
