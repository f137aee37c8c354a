package config

const (
	EnvPrefix = "FIELDBILL"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN  = "FIELDBILL_DB_DSN"
	EnvDBHost = "FIELDBILL_DB_HOST"
	EnvDBUser = "FIELDBILL_DB_USER"
	EnvDBName = "FIELDBILL_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
