package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/enums"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/money"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Pricing  PricingConfig
	Payments PaymentsConfig
	Stripe   StripeConfig
	Square   SquareConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	Outbox   OutboxConfig
	Cron     CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CARGOPARTS_APP_ENV" required:"true"`
	Port         string `envconfig:"CARGOPARTS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CARGOPARTS_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"CARGOPARTS_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"CARGOPARTS_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"CARGOPARTS_AUTO_MIGRATE" default:"false"`
	// CORSOrigins is a comma-separated allow list for browser clients.
	CORSOrigins []string `envconfig:"CARGOPARTS_CORS_ORIGINS" default:"http://localhost:3000"`
	// MetricsAddr is where the background workers expose /metrics. The API
	// serves metrics on its own port instead.
	MetricsAddr string `envconfig:"CARGOPARTS_METRICS_ADDR" default:":9090"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CARGOPARTS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CARGOPARTS_DB_DSN"`
	Driver string `envconfig:"CARGOPARTS_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"CARGOPARTS_DB_HOST"`
	Port     int    `envconfig:"CARGOPARTS_DB_PORT" default:"5432"`
	User     string `envconfig:"CARGOPARTS_DB_USER"`
	Password string `envconfig:"CARGOPARTS_DB_PASSWORD"`
	Name     string `envconfig:"CARGOPARTS_DB_NAME"`
	SSLMode  string `envconfig:"CARGOPARTS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CARGOPARTS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CARGOPARTS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CARGOPARTS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARGOPARTS_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// SlowQueryThreshold logs statements at or above this duration; zero
	// disables slow query logging.
	SlowQueryThreshold time.Duration `envconfig:"CARGOPARTS_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CARGOPARTS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CARGOPARTS_REDIS_ADDR"`
	Password     string        `envconfig:"CARGOPARTS_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARGOPARTS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARGOPARTS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARGOPARTS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARGOPARTS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARGOPARTS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARGOPARTS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CARGOPARTS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CARGOPARTS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CARGOPARTS_JWT_EXPIRATION_MINUTES" default:"60"`
}

// PricingConfig carries the order pricing policy. Money values are major-unit
// decimal strings (e.g. "25.00") so operators never deal in halalas.
type PricingConfig struct {
	Currency              string `envconfig:"CARGOPARTS_PRICING_CURRENCY" default:"SAR"`
	TaxRateBasisPoints    int64  `envconfig:"CARGOPARTS_PRICING_TAX_RATE_BPS" default:"1500"`
	FlatShipping          string `envconfig:"CARGOPARTS_PRICING_FLAT_SHIPPING" default:"25.00"`
	FreeShippingThreshold string `envconfig:"CARGOPARTS_PRICING_FREE_SHIPPING_THRESHOLD" default:"0"`
}

// FlatShippingMinor returns the flat shipping fee in minor units.
func (p PricingConfig) FlatShippingMinor() int64 {
	return majorToMinor(p.FlatShipping)
}

// FreeShippingThresholdMinor returns the free shipping threshold in minor
// units; zero disables the threshold.
func (p PricingConfig) FreeShippingThresholdMinor() int64 {
	return majorToMinor(p.FreeShippingThreshold)
}

func (p PricingConfig) validate() error {
	if p.TaxRateBasisPoints < 0 || p.TaxRateBasisPoints > 10000 {
		return fmt.Errorf("%s must be between 0 and 10000", EnvPricingTaxRateBPS)
	}
	if _, err := enums.ParseCurrency(p.Currency); err != nil {
		return fmt.Errorf("%s: %w", EnvPricingCurrency, err)
	}
	for env, raw := range map[string]string{
		EnvPricingFlatShipping:          p.FlatShipping,
		EnvPricingFreeShippingThreshold: p.FreeShippingThreshold,
	} {
		minor, err := money.ParseMajor(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
		if minor < 0 {
			return fmt.Errorf("%s must not be negative", env)
		}
	}
	return nil
}

func majorToMinor(raw string) int64 {
	minor, err := money.ParseMajor(raw)
	if err != nil {
		return 0
	}
	return minor
}

type PaymentsConfig struct {
	// Timeout is how long an order may stay PENDING before its reservation is
	// swept and the order cancelled with reason payment_timeout.
	Timeout          time.Duration `envconfig:"CARGOPARTS_PAYMENT_TIMEOUT" default:"30m"`
	DefaultProvider  string        `envconfig:"CARGOPARTS_PAYMENT_DEFAULT_PROVIDER" default:"stripe"`
	WebhookMarkerTTL time.Duration `envconfig:"CARGOPARTS_PAYMENT_WEBHOOK_MARKER_TTL" default:"24h"`
	// WebhookRetention bounds how long dedup rows are kept; providers stop
	// redelivering long before it elapses.
	WebhookRetention time.Duration `envconfig:"CARGOPARTS_PAYMENT_WEBHOOK_RETENTION" default:"2160h"`
}

type StripeConfig struct {
	APIKey string `envconfig:"CARGOPARTS_STRIPE_API_KEY"`
	Secret string `envconfig:"CARGOPARTS_STRIPE_WEBHOOK_SECRET"`
	Env    string `envconfig:"CARGOPARTS_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// Enabled reports whether the Stripe adapter should be registered.
func (s StripeConfig) Enabled() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

type SquareConfig struct {
	AccessToken            string `envconfig:"CARGOPARTS_SQUARE_ACCESS_TOKEN"`
	LocationID             string `envconfig:"CARGOPARTS_SQUARE_LOCATION_ID"`
	Env                    string `envconfig:"CARGOPARTS_SQUARE_ENV" default:"sandbox"`
	WebhookSignatureKey    string `envconfig:"CARGOPARTS_SQUARE_WEBHOOK_SIGNATURE_KEY"`
	WebhookNotificationURL string `envconfig:"CARGOPARTS_SQUARE_WEBHOOK_NOTIFICATION_URL"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

// Enabled reports whether the Square adapter should be registered.
func (s SquareConfig) Enabled() bool {
	return strings.TrimSpace(s.AccessToken) != ""
}

type GCPConfig struct {
	ProjectID string `envconfig:"CARGOPARTS_GCP_PROJECT_ID"`
	// Explicit credentials; both empty means application default credentials.
	CredentialsJSON string `envconfig:"CARGOPARTS_GCP_CREDENTIALS_JSON"`
	CredentialsFile string `envconfig:"CARGOPARTS_GCP_CREDENTIALS_FILE"`
}

type PubSubConfig struct {
	OrdersTopic   string `envconfig:"CARGOPARTS_PUBSUB_ORDERS_TOPIC" default:"cp-order-events"`
	PaymentsTopic string `envconfig:"CARGOPARTS_PUBSUB_PAYMENTS_TOPIC" default:"cp-payment-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CARGOPARTS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CARGOPARTS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CARGOPARTS_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"CARGOPARTS_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval   time.Duration `envconfig:"CARGOPARTS_CRON_INTERVAL" default:"1m"`
	SweepBatch int           `envconfig:"CARGOPARTS_CRON_SWEEP_BATCH" default:"100"`
	// RetentionInterval spaces out the purge job; the timeout sweep runs every cycle.
	RetentionInterval time.Duration `envconfig:"CARGOPARTS_CRON_RETENTION_INTERVAL" default:"1h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	parts := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
		if parts[env] == "" {
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
