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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Stripe       StripeConfig
	Outbox       OutboxConfig
	Settlement   SettlementConfig
	Platform     PlatformDefaultsConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Platform.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VAULTMART_APP_ENV" required:"true"`
	Port         string `envconfig:"VAULTMART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VAULTMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VAULTMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"VAULTMART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"VAULTMART_DB_DSN"`
	Driver string `envconfig:"VAULTMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VAULTMART_DB_HOST"`
	LegacyPort     int    `envconfig:"VAULTMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VAULTMART_DB_USER"`
	LegacyPassword string `envconfig:"VAULTMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"VAULTMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"VAULTMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VAULTMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VAULTMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VAULTMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VAULTMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VAULTMART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VAULTMART_REDIS_ADDR"`
	Password     string        `envconfig:"VAULTMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"VAULTMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VAULTMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VAULTMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VAULTMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VAULTMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VAULTMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig only carries verification settings; tokens are minted by the identity service.
type JWTConfig struct {
	Secret string `envconfig:"VAULTMART_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"VAULTMART_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"VAULTMART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"VAULTMART_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"VAULTMART_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	HTTPIdempotencyTTL   time.Duration `envconfig:"VAULTMART_HTTP_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"VAULTMART_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"VAULTMART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"VAULTMART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic string `envconfig:"VAULTMART_PUBSUB_DOMAIN_TOPIC" default:"vm-domain-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"VAULTMART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"VAULTMART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"VAULTMART_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"VAULTMART_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"VAULTMART_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"VAULTMART_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SettlementConfig struct {
	Currency             string        `envconfig:"VAULTMART_CURRENCY" default:"usd"`
	WebhookGuardTTL      time.Duration `envconfig:"VAULTMART_SETTLEMENT_IDEMPOTENCY_TTL" default:"72h"`
	ReconcileAfter       time.Duration `envconfig:"VAULTMART_PENDING_INTENT_RECONCILE_AFTER" default:"15m"`
	ReconcileBatchSize   int           `envconfig:"VAULTMART_PENDING_INTENT_RECONCILE_BATCH" default:"100"`
	PlatformConfigMaxAge time.Duration `envconfig:"VAULTMART_PLATFORM_CONFIG_CACHE_TTL" default:"30s"`
}

// PlatformDefaultsConfig seeds the platform configuration record when it is
// created lazily or reset.
type PlatformDefaultsConfig struct {
	FeePercent         string `envconfig:"VAULTMART_PLATFORM_DEFAULT_FEE_PERCENT" default:"10"`
	MinimumPayoutCents int64  `envconfig:"VAULTMART_PLATFORM_DEFAULT_MIN_PAYOUT_CENTS" default:"5000"`
	ProcessingFeeCents int64  `envconfig:"VAULTMART_PLATFORM_DEFAULT_PROCESSING_FEE_CENTS" default:"0"`
	HoldPeriodDays     int    `envconfig:"VAULTMART_PLATFORM_DEFAULT_HOLD_PERIOD_DAYS" default:"14"`
	MaximumPayoutCents int64  `envconfig:"VAULTMART_PLATFORM_DEFAULT_MAX_PAYOUT_CENTS" default:"1000000"`
	AutoPayout         bool   `envconfig:"VAULTMART_PLATFORM_DEFAULT_AUTO_PAYOUT" default:"false"`
	Currency           string `envconfig:"VAULTMART_PLATFORM_DEFAULT_CURRENCY" default:"USD"`
}

func (p PlatformDefaultsConfig) validate() error {
	if p.MinimumPayoutCents < 0 || p.ProcessingFeeCents < 0 || p.MaximumPayoutCents < 0 {
		return fmt.Errorf("platform defaults: amounts must be non-negative")
	}
	if p.MaximumPayoutCents > 0 && p.MaximumPayoutCents < p.MinimumPayoutCents {
		return fmt.Errorf("platform defaults: max payout below minimum payout")
	}
	if p.HoldPeriodDays < 0 {
		return fmt.Errorf("platform defaults: hold period must be non-negative")
	}
	return nil
}

type CronConfig struct {
	Interval                 time.Duration `envconfig:"VAULTMART_CRON_INTERVAL" default:"5m"`
	LockTTL                  time.Duration `envconfig:"VAULTMART_CRON_LOCK_TTL" default:"4m"`
	NotificationRetention    time.Duration `envconfig:"VAULTMART_NOTIFICATION_RETENTION" default:"2160h"`
	NotificationCleanupBatch int           `envconfig:"VAULTMART_NOTIFICATION_CLEANUP_BATCH" default:"500"`
	OutboxRetention          time.Duration `envconfig:"VAULTMART_OUTBOX_RETENTION" default:"720h"`
	OutboxCleanupBatch       int           `envconfig:"VAULTMART_OUTBOX_CLEANUP_BATCH" default:"1000"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
