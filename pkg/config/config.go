package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Cregis       CregisConfig
	MT5          MT5Config
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
	Env          string `envconfig:"APEX_APP_ENV" required:"true"`
	Port         string `envconfig:"APEX_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"APEX_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"APEX_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"APEX_DB_DSN"`

	LegacyHost     string `envconfig:"APEX_DB_HOST"`
	LegacyPort     int    `envconfig:"APEX_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"APEX_DB_USER"`
	LegacyPassword string `envconfig:"APEX_DB_PASSWORD"`
	LegacyName     string `envconfig:"APEX_DB_NAME"`
	LegacySSLMode  string `envconfig:"APEX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"APEX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"APEX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"APEX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"APEX_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// ensureDSN builds a postgres DSN from the discrete legacy variables when a
// full DSN is not supplied.
func (db *DBConfig) ensureDSN() error {
	if strings.TrimSpace(db.DSN) != "" {
		return nil
	}
	if db.LegacyHost == "" || db.LegacyUser == "" || db.LegacyName == "" {
		return fmt.Errorf("either APEX_DB_DSN or APEX_DB_HOST/APEX_DB_USER/APEX_DB_NAME must be set")
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   "/" + db.LegacyName,
	}
	if db.LegacyPassword != "" {
		u.User = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	} else {
		u.User = url.User(db.LegacyUser)
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
	URL          string        `envconfig:"APEX_REDIS_URL" required:"true"`
	Password     string        `envconfig:"APEX_REDIS_PASSWORD"`
	DB           int           `envconfig:"APEX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"APEX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"APEX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"APEX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"APEX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"APEX_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"APEX_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"APEX_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"APEX_JWT_EXPIRATION_MINUTES" default:"15"`
	RefreshTokenTTLMinutes int    `envconfig:"APEX_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKiB    uint32 `envconfig:"APEX_PASSWORD_ARGON_MEMORY_KIB" default:"65536"`
	ArgonTime         uint32 `envconfig:"APEX_PASSWORD_ARGON_TIME" default:"3"`
	ArgonParallelism  uint8  `envconfig:"APEX_PASSWORD_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLength   uint32 `envconfig:"APEX_PASSWORD_ARGON_SALT_LENGTH" default:"16"`
	ArgonKeyLength    uint32 `envconfig:"APEX_PASSWORD_ARGON_KEY_LENGTH" default:"32"`
	MinPasswordLength int    `envconfig:"APEX_PASSWORD_MIN_LENGTH" default:"8"`
}

// CregisConfig carries the payment gateway credentials. The API key doubles as
// the callback signing secret.
type CregisConfig struct {
	ProjectID        int           `envconfig:"APEX_CREGIS_PROJECT_ID" required:"true"`
	APIKey           string        `envconfig:"APEX_CREGIS_API_KEY" required:"true"`
	GatewayURL       string        `envconfig:"APEX_CREGIS_GATEWAY_URL" required:"true"`
	CallbackURL      string        `envconfig:"APEX_CREGIS_CALLBACK_URL" required:"true"`
	SuccessURL       string        `envconfig:"APEX_CREGIS_SUCCESS_URL"`
	CancelURL        string        `envconfig:"APEX_CREGIS_CANCEL_URL"`
	RequestTimeout   time.Duration `envconfig:"APEX_CREGIS_REQUEST_TIMEOUT" default:"30s"`
	ValidTimeMinutes int           `envconfig:"APEX_CREGIS_VALID_TIME_MINUTES" default:"30"`
	CreditRetryAfter time.Duration `envconfig:"APEX_CREGIS_CREDIT_RETRY_AFTER" default:"5m"`
	ReplayGuardTTL   time.Duration `envconfig:"APEX_CREGIS_REPLAY_GUARD_TTL" default:"10m"`
}

type MT5Config struct {
	APIURL         string        `envconfig:"APEX_MT5_API_URL" required:"true"`
	APIToken       string        `envconfig:"APEX_MT5_API_TOKEN"`
	RequestTimeout time.Duration `envconfig:"APEX_MT5_REQUEST_TIMEOUT" default:"30s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"APEX_FEATURE_AUTO_MIGRATE" default:"false"`
}
