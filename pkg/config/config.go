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
	Password     PasswordConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Personalizer PersonalizerConfig
	Razorpay     RazorpayConfig
	Proximity    ProximityConfig
	Cart         CartConfig
	GoogleMaps   GoogleMapsConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env            string   `envconfig:"GIFTBOX_APP_ENV" required:"true"`
	Port           string   `envconfig:"GIFTBOX_APP_PORT" required:"true"`
	LogLevel       string   `envconfig:"GIFTBOX_LOG_LEVEL" default:"info"`
	LogFormat      string   `envconfig:"GIFTBOX_LOG_FORMAT" default:"json"`
	LogWarnStack   bool     `envconfig:"GIFTBOX_LOG_WARN_STACK" default:"false"`
	AllowedOrigins []string `envconfig:"GIFTBOX_ALLOWED_ORIGINS" default:"http://localhost:5173"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GIFTBOX_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GIFTBOX_DB_DSN"`
	Driver string `envconfig:"GIFTBOX_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GIFTBOX_DB_HOST"`
	LegacyPort     int    `envconfig:"GIFTBOX_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GIFTBOX_DB_USER"`
	LegacyPassword string `envconfig:"GIFTBOX_DB_PASSWORD"`
	LegacyName     string `envconfig:"GIFTBOX_DB_NAME"`
	LegacySSLMode  string `envconfig:"GIFTBOX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GIFTBOX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GIFTBOX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GIFTBOX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GIFTBOX_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GIFTBOX_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GIFTBOX_REDIS_ADDR"`
	Password     string        `envconfig:"GIFTBOX_REDIS_PASSWORD"`
	DB           int           `envconfig:"GIFTBOX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GIFTBOX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GIFTBOX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GIFTBOX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GIFTBOX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GIFTBOX_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GIFTBOX_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GIFTBOX_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"GIFTBOX_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenDays  int    `envconfig:"GIFTBOX_JWT_REFRESH_TOKEN_DAYS" default:"14"`
}

// RefreshTokenTTL returns how long a refresh session lives.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(j.RefreshTokenDays) * 24 * time.Hour
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GIFTBOX_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GIFTBOX_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GIFTBOX_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GIFTBOX_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GIFTBOX_ARGON_KEY_LEN" default:"32"`
}

type RateLimitConfig struct {
	ProxyRequestsPerMinute int           `envconfig:"GIFTBOX_RATE_LIMIT_PROXY_RPM" default:"120"`
	LoginWindow            time.Duration `envconfig:"GIFTBOX_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit        int           `envconfig:"GIFTBOX_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GIFTBOX_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GIFTBOX_AUTO_MIGRATE" default:"false"`
}

// PersonalizerConfig points at the hosted conversational recommendation service.
type PersonalizerConfig struct {
	BaseURL         string        `envconfig:"GIFTBOX_PERSONALIZER_BASE_URL" required:"true"`
	MaxAttempts     int           `envconfig:"GIFTBOX_PERSONALIZER_MAX_ATTEMPTS" default:"3"`
	BackoffStep     time.Duration `envconfig:"GIFTBOX_PERSONALIZER_BACKOFF_STEP" default:"1s"`
	RequestTimeout  time.Duration `envconfig:"GIFTBOX_PERSONALIZER_REQUEST_TIMEOUT" default:"30s"`
	SuggestionCount int           `envconfig:"GIFTBOX_PERSONALIZER_SUGGESTION_COUNT" default:"5"`
	SessionTTL      time.Duration `envconfig:"GIFTBOX_PERSONALIZER_SESSION_TTL" default:"2h"`
	TransitionLock  time.Duration `envconfig:"GIFTBOX_PERSONALIZER_TRANSITION_LOCK" default:"45s"`
}

// callsPerTransition is the most upstream calls one wizard step makes.
const callsPerTransition = 2

// LockTTL is the wizard transition lock lifetime: the configured value, raised
// to cover a transition whose every call uses all retries and backoff.
func (c PersonalizerConfig) LockTTL() time.Duration {
	attempts := time.Duration(max(c.MaxAttempts, 1))
	perCall := attempts*c.RequestTimeout + c.BackoffStep*attempts*(attempts-1)/2
	budget := callsPerTransition*perCall + 5*time.Second
	return max(c.TransitionLock, budget)
}

type RazorpayConfig struct {
	KeyID     string `envconfig:"GIFTBOX_RAZORPAY_KEY_ID"`
	KeySecret string `envconfig:"GIFTBOX_RAZORPAY_KEY_SECRET"`
	BaseURL   string `envconfig:"GIFTBOX_RAZORPAY_BASE_URL" default:"https://api.razorpay.com/v1"`
	Currency  string `envconfig:"GIFTBOX_RAZORPAY_CURRENCY" default:"INR"`
}

type ProximityConfig struct {
	DefaultRadiusKM float64 `envconfig:"GIFTBOX_PROXIMITY_RADIUS_KM" default:"40"`
}

type CartConfig struct {
	GuestTTL time.Duration `envconfig:"GIFTBOX_CART_GUEST_TTL" default:"720h"`
}

type GoogleMapsConfig struct {
	APIKey         string  `envconfig:"GIFTBOX_GOOGLE_MAPS_API_KEY"`
	RequestsPerSec float64 `envconfig:"GIFTBOX_GOOGLE_MAPS_QPS" default:"5"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"GIFTBOX_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"GIFTBOX_OUTBOX_POLL_MS" default:"1000"`
	MaxAttempts    int           `envconfig:"GIFTBOX_OUTBOX_MAX_ATTEMPTS" default:"10"`
	DedupeTTL      time.Duration `envconfig:"GIFTBOX_OUTBOX_DEDUPE_TTL" default:"168h"`
	MetricsPort    string        `envconfig:"GIFTBOX_RECONCILER_METRICS_PORT" default:"9091"`
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"GIFTBOX_CRON_INTERVAL" default:"1h"`
	JobTimeout          time.Duration `envconfig:"GIFTBOX_CRON_JOB_TIMEOUT" default:"10m"`
	PaymentTTL          time.Duration `envconfig:"GIFTBOX_CRON_PAYMENT_TTL" default:"72h"`
	OutboxRetentionDays int           `envconfig:"GIFTBOX_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	DLQRetentionDays    int           `envconfig:"GIFTBOX_CRON_DLQ_RETENTION_DAYS" default:"90"`
	MetricsPort         string        `envconfig:"GIFTBOX_CRON_METRICS_PORT" default:"9092"`
	// Jobs limits a worker to the named jobs; empty runs all of them.
	Jobs []string `envconfig:"GIFTBOX_CRON_JOBS"`
}

func (db *DBConfig) ensureDSN(sqlite bool) error {
	if db.DSN != "" || sqlite {
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
