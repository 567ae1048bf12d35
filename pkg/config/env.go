package config

const (
	EnvPrefix = "QUOTECART"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EnvAppEnv   = "QUOTECART_APP_ENV"
	EnvPort     = "QUOTECART_APP_PORT"
	EnvLogLevel = "QUOTECART_LOG_LEVEL"

	EnvDBDSN  = "QUOTECART_DB_DSN"
	EnvDBHost = "QUOTECART_DB_HOST"
	EnvDBUser = "QUOTECART_DB_USER"
	EnvDBName = "QUOTECART_DB_NAME"

	EnvRedisURL     = "QUOTECART_REDIS_URL"
	EnvCartCacheTTL = "QUOTECART_CART_CACHE_TTL"
	EnvUseSQLite    = "QUOTECART_USE_SQLITE"
	EnvSyncBaseURL  = "QUOTECART_SYNC_BASE_URL"
)

var componentDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
