package config

// EnvPrefix is the envconfig prefix shared by all services.
const EnvPrefix = "roamly"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "ROAMLY_APP_ENV"
	EnvPort      = "ROAMLY_APP_PORT"
	EnvDBDSN     = "ROAMLY_DB_DSN"
	EnvDBHost    = "ROAMLY_DB_HOST"
	EnvDBUser    = "ROAMLY_DB_USER"
	EnvDBName    = "ROAMLY_DB_NAME"
	EnvRedisURL  = "ROAMLY_REDIS_URL"
	EnvGCSBucket = "ROAMLY_GCS_BUCKET_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
