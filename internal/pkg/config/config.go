package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection, etc.), security settings
// - default: Values common across all environments (timezone, timeout, etc.), standard settings
// -----------------------------------------------------------------------------

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	CORS      CORSConfig
	Log       LogConfig
	JWT       JWTConfig
	Cookie    CookieConfig
	Payments  PaymentsConfig
	Webhook   WebhookConfig
	Store     StoreConfig
	RateLimit RateLimitConfig
	Pricing   PricingConfig
	Worker    WorkerConfig
	Migrate   MigrateConfig
}

type ServerConfig struct {
	Port     string `envconfig:"PORT" required:"true"`
	GinMode  string `envconfig:"GIN_MODE" default:"release"`
	// service area, used to interpret slot dates
	TimeZone string `envconfig:"SERVICE_TIMEZONE" default:"America/New_York"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	DBName   string `envconfig:"DB_NAME" required:"true"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	TimeZone string `envconfig:"DB_TIMEZONE" default:"UTC"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"20"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization,Idempotency-Key"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level          string `envconfig:"LOG_LEVEL" default:"info"`
	TimeZone       string `envconfig:"LOG_TIMEZONE" default:"UTC"`
	TimeFormat     string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02 15:04:05.000"`
	TimeZoneOffset int    `envconfig:"LOG_TIMEZONE_OFFSET" default:"0"` // seconds east of UTC
}

type JWTConfig struct {
	Secret               string `envconfig:"JWT_SECRET" required:"true"`
	AccessTokenDuration  string `envconfig:"JWT_ACCESS_TOKEN_DURATION" default:"15m"`
	RefreshTokenDuration string `envconfig:"JWT_REFRESH_TOKEN_DURATION" default:"168h"`
}

type CookieConfig struct {
	Domain   string `envconfig:"COOKIE_DOMAIN" default:""`
	Secure   bool   `envconfig:"COOKIE_SECURE" default:"true"`
	SameSite string `envconfig:"COOKIE_SAME_SITE" default:"Lax"`
}

type PaymentsConfig struct {
	// stripe | mercadopago
	Provider          string        `envconfig:"PAYMENTS_PROVIDER" default:"stripe"`
	StripeSecretKey   string        `envconfig:"STRIPE_SECRET_KEY"`
	MercadoPagoToken  string        `envconfig:"MERCADOPAGO_ACCESS_TOKEN"`
	Currency          string        `envconfig:"PAYMENTS_CURRENCY" default:"usd"`
	Timeout           time.Duration `envconfig:"PAYMENTS_TIMEOUT" default:"10s"`
	LaundryMode       string        `envconfig:"PAYMENTS_LAUNDRY_MODE" default:"deferred"`
	CleaningMode      string        `envconfig:"PAYMENTS_CLEANING_MODE" default:"preauth"`
	MaxChargeAttempts int           `envconfig:"PAYMENTS_MAX_CHARGE_ATTEMPTS" default:"5"`
	RetryBaseDelay    time.Duration `envconfig:"PAYMENTS_RETRY_BASE_DELAY" default:"1m"`
	RetryMaxDelay     time.Duration `envconfig:"PAYMENTS_RETRY_MAX_DELAY" default:"6h"`
	InlineRetries     int           `envconfig:"PAYMENTS_INLINE_RETRIES" default:"2"`
}

type WebhookConfig struct {
	StripeSecret      string        `envconfig:"STRIPE_WEBHOOK_SECRET"`
	PartnerSecret     string        `envconfig:"PARTNER_WEBHOOK_SECRET"`
	MercadoPagoSecret string        `envconfig:"MERCADOPAGO_WEBHOOK_SECRET"`
	Tolerance         time.Duration `envconfig:"WEBHOOK_TOLERANCE" default:"5m"`
	PartnerConvTTL    time.Duration `envconfig:"PARTNER_CONVERSATION_TTL" default:"30m"`
	MaxPayloadBytes   int64         `envconfig:"WEBHOOK_MAX_PAYLOAD_BYTES" default:"262144"`
	StaleAfter        time.Duration `envconfig:"WEBHOOK_STALE_AFTER" default:"2m"`
}

type StoreConfig struct {
	// postgres | dynamodb
	Backend         string `envconfig:"STORE_BACKEND" default:"postgres"`
	DynamoTable     string `envconfig:"STORE_DYNAMODB_TABLE" default:"freshfold-counters"`
	AWSRegion       string `envconfig:"AWS_REGION" default:"us-east-1"`
	AWSEndpoint     string `envconfig:"AWS_ENDPOINT_URL" default:""`
	AWSAccessKey    string `envconfig:"AWS_ACCESS_KEY_ID" default:""`
	AWSSecretKey    string `envconfig:"AWS_SECRET_ACCESS_KEY" default:""`
	AWSSessionToken string `envconfig:"AWS_SESSION_TOKEN" default:""`
}

type RateLimitConfig struct {
	Enabled      bool          `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	BookingLimit int64         `envconfig:"RATE_LIMIT_BOOKING" default:"20"`
	WebhookLimit int64         `envconfig:"RATE_LIMIT_WEBHOOK" default:"300"`
	Window       time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

type PricingConfig struct {
	LaundryPerPoundCents   int64 `envconfig:"PRICING_LAUNDRY_PER_POUND_CENTS" default:"175"`
	LaundryMinimumCents    int64 `envconfig:"PRICING_LAUNDRY_MINIMUM_CENTS" default:"3000"`
	DryCleanPerItemCents   int64 `envconfig:"PRICING_DRY_CLEAN_PER_ITEM_CENTS" default:"650"`
	CleaningBaseCents      int64 `envconfig:"PRICING_CLEANING_BASE_CENTS" default:"9000"`
	CleaningPerBedroom     int64 `envconfig:"PRICING_CLEANING_PER_BEDROOM_CENTS" default:"2500"`
	CleaningPerBathroom    int64 `envconfig:"PRICING_CLEANING_PER_BATHROOM_CENTS" default:"2000"`
	CleaningDeepMultiplier int64 `envconfig:"PRICING_CLEANING_DEEP_BPS" default:"15000"`
	DeliveryFeeCents       int64 `envconfig:"PRICING_DELIVERY_FEE_CENTS" default:"500"`
	TaxRateBps             int64 `envconfig:"PRICING_TAX_RATE_BPS" default:"875"`
}

type WorkerConfig struct {
	Enabled      bool          `envconfig:"WORKER_ENABLED" default:"true"`
	PollInterval time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"30s"`
	BatchSize    int           `envconfig:"WORKER_BATCH_SIZE" default:"20"`
}

type MigrateConfig struct {
	DevURL string `envconfig:"ATLAS_DEV_URL" default:"docker://postgres/17/dev"`
	Dir    string `envconfig:"MIGRATIONS_DIR" default:"migrations"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&timezone=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.TimeZone,
	)
}

// LoadConfig reads an optional .env file before processing the environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Payments.Provider {
	case "stripe", "mercadopago":
	default:
		return fmt.Errorf("unsupported PAYMENTS_PROVIDER %q", c.Payments.Provider)
	}
	for name, mode := range map[string]string{
		"PAYMENTS_LAUNDRY_MODE":  c.Payments.LaundryMode,
		"PAYMENTS_CLEANING_MODE": c.Payments.CleaningMode,
	} {
		switch mode {
		case "deferred", "preauth":
		default:
			return fmt.Errorf("unsupported %s %q", name, mode)
		}
		// Mercado Pago payments are created captured.
		if c.Payments.Provider == "mercadopago" && mode == "preauth" {
			return fmt.Errorf("%s=preauth is not available with PAYMENTS_PROVIDER=mercadopago", name)
		}
	}
	switch c.Store.Backend {
	case "postgres", "dynamodb":
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.Store.Backend)
	}
	return nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:     "8889", // Test port
			GinMode:  "test",
			TimeZone: "UTC",
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433", // Test DB port
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
			TimeZone: "UTC",
			MaxConns: 20,
		},
		Log: LogConfig{
			Level:          "error", // Error level only for tests
			TimeZone:       "UTC",
			TimeFormat:     "2006-01-02 15:04:05.000",
			TimeZoneOffset: 0,
		},
		JWT: JWTConfig{
			Secret:               "test-secret-key-for-e2e-tests",
			AccessTokenDuration:  "15m",
			RefreshTokenDuration: "168h",
		},
		Cookie: CookieConfig{
			Secure:   false,
			SameSite: "Lax",
		},
		Payments: PaymentsConfig{
			Provider:          "stripe",
			StripeSecretKey:   "sk_test_dummy",
			Currency:          "usd",
			Timeout:           2 * time.Second,
			LaundryMode:       "deferred",
			CleaningMode:      "preauth",
			MaxChargeAttempts: 3,
			RetryBaseDelay:    time.Minute,
			RetryMaxDelay:     time.Hour,
			InlineRetries:     0,
		},
		Webhook: WebhookConfig{
			StripeSecret:      "whsec_test",
			PartnerSecret:     "partner_test_secret",
			MercadoPagoSecret: "mp_test_secret",
			Tolerance:         5 * time.Minute,
			PartnerConvTTL:    30 * time.Minute,
			MaxPayloadBytes:   262144,
			StaleAfter:        2 * time.Minute,
		},
		Store: StoreConfig{
			Backend: "postgres",
		},
		RateLimit: RateLimitConfig{
			Enabled: false,
			Window:  time.Minute,
		},
		Pricing: PricingConfig{
			LaundryPerPoundCents:   175,
			LaundryMinimumCents:    3000,
			DryCleanPerItemCents:   650,
			CleaningBaseCents:      9000,
			CleaningPerBedroom:     2500,
			CleaningPerBathroom:    2000,
			CleaningDeepMultiplier: 15000,
			DeliveryFeeCents:       500,
			TaxRateBps:             875,
		},
		Worker: WorkerConfig{
			Enabled:      false,
			PollInterval: time.Second,
			BatchSize:    10,
		},
	}
}
