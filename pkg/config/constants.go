package config

const (
	EnvPrefix = "DATABUNDLES"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv = "DATABUNDLES_APP_ENV"
	EnvPort   = "DATABUNDLES_APP_PORT"

	EnvDBDSN  = "DATABUNDLES_DB_DSN"
	EnvDBHost = "DATABUNDLES_DB_HOST"
	EnvDBUser = "DATABUNDLES_DB_USER"
	EnvDBName = "DATABUNDLES_DB_NAME"

	EnvRedisURL = "DATABUNDLES_REDIS_URL"

	EnvJWTSecret = "DATABUNDLES_JWT_SECRET"
	EnvJWTIssuer = "DATABUNDLES_JWT_ISSUER"

	EnvPaystackSecret = "DATABUNDLES_PAYSTACK_SECRET_KEY"
	EnvWireNetAPIKey  = "DATABUNDLES_WIRENET_API_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
