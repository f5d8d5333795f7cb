package config

const (
	EnvPrefix = "GIFTBOX"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv      = "GIFTBOX_APP_ENV"
	EnvPort        = "GIFTBOX_APP_PORT"
	EnvDBDSN       = "GIFTBOX_DB_DSN"
	EnvDBHost      = "GIFTBOX_DB_HOST"
	EnvDBUser      = "GIFTBOX_DB_USER"
	EnvDBName      = "GIFTBOX_DB_NAME"
	EnvDBPassword  = "GIFTBOX_DB_PASSWORD"
	EnvRedisURL    = "GIFTBOX_REDIS_URL"
	EnvJWTSecret   = "GIFTBOX_JWT_SECRET"
	EnvJWTIssuer   = "GIFTBOX_JWT_ISSUER"
	EnvUseSQLite   = "GIFTBOX_USE_SQLITE"
	EnvAIBaseURL   = "GIFTBOX_PERSONALIZER_BASE_URL"
	EnvAIAttempts  = "GIFTBOX_PERSONALIZER_MAX_ATTEMPTS"
	EnvRazorpayKey = "GIFTBOX_RAZORPAY_KEY_ID"
	EnvRazorpaySec = "GIFTBOX_RAZORPAY_KEY_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
