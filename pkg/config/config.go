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
	Cart         CartConfig
	Sync         SyncConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ClientConfig holds the settings of binaries that only talk to the cart API.
type ClientConfig struct {
	LogLevel string `envconfig:"QUOTECART_LOG_LEVEL" default:"info"`
	Sync     SyncConfig
}

// LoadClient reads ClientConfig without requiring database settings.
func LoadClient() (*ClientConfig, error) {
	var cfg ClientConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing client config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"QUOTECART_APP_ENV" required:"true"`
	Port         string `envconfig:"QUOTECART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"QUOTECART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"QUOTECART_LOG_WARN_STACK" default:"false"`

	CORSOrigins     []string      `envconfig:"QUOTECART_CORS_ORIGINS"`
	ShutdownTimeout time.Duration `envconfig:"QUOTECART_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"QUOTECART_DB_DSN"`
	Driver string `envconfig:"QUOTECART_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"QUOTECART_DB_HOST"`
	Port     int    `envconfig:"QUOTECART_DB_PORT" default:"5432"`
	User     string `envconfig:"QUOTECART_DB_USER"`
	Password string `envconfig:"QUOTECART_DB_PASSWORD"`
	Name     string `envconfig:"QUOTECART_DB_NAME"`
	SSLMode  string `envconfig:"QUOTECART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"QUOTECART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"QUOTECART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"QUOTECART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"QUOTECART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"QUOTECART_REDIS_URL"`
	Address      string        `envconfig:"QUOTECART_REDIS_ADDR"`
	Password     string        `envconfig:"QUOTECART_REDIS_PASSWORD"`
	DB           int           `envconfig:"QUOTECART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"QUOTECART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"QUOTECART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"QUOTECART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"QUOTECART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"QUOTECART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint is configured at all.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type CartConfig struct {
	CacheTTL          time.Duration `envconfig:"QUOTECART_CART_CACHE_TTL" default:"10m"`
	IdempotencyTTL    time.Duration `envconfig:"QUOTECART_CART_IDEMPOTENCY_TTL" default:"24h"`
	CatalogDir        string        `envconfig:"QUOTECART_CART_CATALOG_DIR" default:"static/data"`
	BlanketGSTPercent string        `envconfig:"QUOTECART_CART_BLANKET_GST_PERCENT" default:"18"`
	MPackGSTPercent   string        `envconfig:"QUOTECART_CART_MPACK_GST_PERCENT" default:"12"`
}

type SyncConfig struct {
	BaseURL string        `envconfig:"QUOTECART_SYNC_BASE_URL" default:"http://localhost:8080"`
	Timeout time.Duration `envconfig:"QUOTECART_SYNC_TIMEOUT" default:"10s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"QUOTECART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"QUOTECART_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.Driver = DriverSQLite
		db.DSN = "file:quotecart.db?cache=shared"
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range componentDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
