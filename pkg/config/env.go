package config

const (
	EnvPrefix = "VAULTMART"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv     = "VAULTMART_APP_ENV"
	EnvPort       = "VAULTMART_APP_PORT"
	EnvDBDSN      = "VAULTMART_DB_DSN"
	EnvDBHost     = "VAULTMART_DB_HOST"
	EnvDBUser     = "VAULTMART_DB_USER"
	EnvDBName     = "VAULTMART_DB_NAME"
	EnvRedisURL   = "VAULTMART_REDIS_URL"
	EnvJWTSecret  = "VAULTMART_JWT_SECRET"
	EnvJWTIssuer  = "VAULTMART_JWT_ISSUER"
	EnvCurrency   = "VAULTMART_CURRENCY"
	EnvFeePercent = "VAULTMART_PLATFORM_DEFAULT_FEE_PERCENT"
	EnvMinPayout  = "VAULTMART_PLATFORM_DEFAULT_MIN_PAYOUT_CENTS"
	EnvMaxPayout  = "VAULTMART_PLATFORM_DEFAULT_MAX_PAYOUT_CENTS"
	EnvHoldDays   = "VAULTMART_PLATFORM_DEFAULT_HOLD_PERIOD_DAYS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
