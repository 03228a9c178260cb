package config

const EnvPrefix = "CARGOPARTS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv      = "CARGOPARTS_APP_ENV"
	EnvPort        = "CARGOPARTS_APP_PORT"
	EnvLogLevel    = "CARGOPARTS_LOG_LEVEL"
	EnvAutoMigrate = "CARGOPARTS_AUTO_MIGRATE"

	EnvDBDSN  = "CARGOPARTS_DB_DSN"
	EnvDBHost = "CARGOPARTS_DB_HOST"
	EnvDBUser = "CARGOPARTS_DB_USER"
	EnvDBName = "CARGOPARTS_DB_NAME"

	EnvRedisURL = "CARGOPARTS_REDIS_URL"

	EnvJWTSecret  = "CARGOPARTS_JWT_SECRET"
	EnvJWTIssuer  = "CARGOPARTS_JWT_ISSUER"
	EnvJWTExpMins = "CARGOPARTS_JWT_EXPIRATION_MINUTES"

	EnvPricingCurrency              = "CARGOPARTS_PRICING_CURRENCY"
	EnvPricingTaxRateBPS            = "CARGOPARTS_PRICING_TAX_RATE_BPS"
	EnvPricingFlatShipping          = "CARGOPARTS_PRICING_FLAT_SHIPPING"
	EnvPricingFreeShippingThreshold = "CARGOPARTS_PRICING_FREE_SHIPPING_THRESHOLD"

	EnvPaymentTimeout = "CARGOPARTS_PAYMENT_TIMEOUT"

	EnvStripeAPIKey        = "CARGOPARTS_STRIPE_API_KEY"
	EnvStripeWebhookSecret = "CARGOPARTS_STRIPE_WEBHOOK_SECRET"
	EnvSquareAccessToken   = "CARGOPARTS_SQUARE_ACCESS_TOKEN"

	EnvGCPProjectID       = "CARGOPARTS_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic  = "CARGOPARTS_PUBSUB_ORDERS_TOPIC"
	EnvPubSubPaymentTopic = "CARGOPARTS_PUBSUB_PAYMENTS_TOPIC"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
