package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	awspkg "github.com/24HeuresINSA/OverRun-backend/pkg/aws"
)

// Config holds all runtime configuration.
type Config struct {
	Env        string
	Port       string
	APIVersion string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	RedisURL      string
	StatsCacheTTL time.Duration

	AccessTokenSecret   string
	RefreshTokenSecret  string
	AccessTokenTimeout  time.Duration
	RefreshTokenTimeout time.Duration

	FrontendURL   string
	InvitationTTL time.Duration

	// PaymentProvider selects the checkout gateway: "helloasso" or "stripe".
	PaymentProvider       string
	CheckoutExpiry        time.Duration
	HelloAssoBaseURL      string
	HelloAssoClientID     string
	HelloAssoClientSecret string
	HelloAssoOrgSlug      string
	HelloAssoWebhookToken string
	StripeSecretKey       string
	StripeWebhookSecret   string
	StripeCurrency        string
	PaymentSNSTopicARN    string
	PaginationMaxPerPage  int
	CertificateBucket     string
	CertificateDir        string
	CertificateMaxBytes   int64
	SMTPHost              string
	SMTPPort              int
	EmailAddress          string
	EmailPassword         string
	PartnerSSOEndpoint    string
	PartnerRealm          string
	PartnerClientID       string
	PartnerClientSecret   string
	PartnerEndpoint       string
	AllowedOrigins        []string
	RateLimitPerMinute    int
	CloudWatchEnabled     bool
	CloudWatchNamespace   string
	AWSUseSecrets         bool
	SecretsPrefix         string
	RequestTimeout        time.Duration
	ShutdownTimeout       time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8000")
	v.SetDefault("API_VERSION", "1")
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("POSTGRES_TIMEZONE", "Europe/Paris")
	v.SetDefault("STATS_CACHE_TTL", "10m")
	v.SetDefault("ACCESS_TOKEN_TIMEOUT", "15m")
	v.SetDefault("REFRESH_TOKEN_TIMEOUT", "168h")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("PAYMENT_PROVIDER", "helloasso")
	v.SetDefault("CHECKOUT_EXPIRY", "15m")
	v.SetDefault("HELLOASSO_BASE_URL", "https://api.helloasso.com")
	v.SetDefault("STRIPE_CURRENCY", "eur")
	v.SetDefault("PAGINATION_MAX_ELEMS_PER_PAGE", 1000)
	v.SetDefault("CERTIFICATE_DIR", "certificates")
	v.SetDefault("CERTIFICATE_MAX_BYTES", 5<<20)
	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("EMAIL_TIMEOUT", 172800)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 100)
	v.SetDefault("CLOUDWATCH_NAMESPACE", "OverRun")
	v.SetDefault("SECRETS_PREFIX", "overrun")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "5s")
}

// LoadConfig reads .env (when present) and the environment, applies
// defaults, optionally overrides secrets from AWS Secrets Manager, and
// validates the result.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := fromViper(v)

	if cfg.AWSUseSecrets {
		awsCfg, err := awspkg.LoadAWSConfig(context.Background())
		if err != nil {
			return nil, err
		}
		if err := cfg.ApplySecrets(context.Background(), awspkg.NewSecretsClient(awsCfg)); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Env:                   v.GetString("APP_ENV"),
		Port:                  v.GetString("PORT"),
		APIVersion:            v.GetString("API_VERSION"),
		PostgresUser:          v.GetString("POSTGRES_USER"),
		PostgresPassword:      v.GetString("POSTGRES_PASSWORD"),
		PostgresDB:            v.GetString("POSTGRES_DB"),
		PostgresHost:          v.GetString("POSTGRES_HOST"),
		PostgresPort:          v.GetString("POSTGRES_PORT"),
		PostgresSSLMode:       v.GetString("POSTGRES_SSLMODE"),
		PostgresTimeZone:      v.GetString("POSTGRES_TIMEZONE"),
		RedisURL:              v.GetString("REDIS_URL"),
		StatsCacheTTL:         v.GetDuration("STATS_CACHE_TTL"),
		AccessTokenSecret:     v.GetString("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret:    v.GetString("REFRESH_TOKEN_SECRET"),
		AccessTokenTimeout:    v.GetDuration("ACCESS_TOKEN_TIMEOUT"),
		RefreshTokenTimeout:   v.GetDuration("REFRESH_TOKEN_TIMEOUT"),
		FrontendURL:           strings.TrimSuffix(v.GetString("FRONTEND_URL"), "/"),
		PaymentProvider:       strings.ToLower(v.GetString("PAYMENT_PROVIDER")),
		CheckoutExpiry:        v.GetDuration("CHECKOUT_EXPIRY"),
		HelloAssoBaseURL:      strings.TrimSuffix(v.GetString("HELLOASSO_BASE_URL"), "/"),
		HelloAssoClientID:     v.GetString("HELLOASSO_CLIENT_ID"),
		HelloAssoClientSecret: v.GetString("HELLOASSO_CLIENT_SECRET"),
		HelloAssoOrgSlug:      v.GetString("HELLOASSO_ORGANISATION_SLUG"),
		HelloAssoWebhookToken: v.GetString("HELLOASSO_TOKEN"),
		StripeSecretKey:       v.GetString("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:   v.GetString("STRIPE_WEBHOOK_SECRET"),
		StripeCurrency:        v.GetString("STRIPE_CURRENCY"),
		PaymentSNSTopicARN:    v.GetString("PAYMENT_SNS_TOPIC_ARN"),
		PaginationMaxPerPage:  v.GetInt("PAGINATION_MAX_ELEMS_PER_PAGE"),
		CertificateBucket:     v.GetString("CERTIFICATE_BUCKET"),
		CertificateDir:        v.GetString("CERTIFICATE_DIR"),
		CertificateMaxBytes:   v.GetInt64("CERTIFICATE_MAX_BYTES"),
		SMTPHost:              v.GetString("SMTP_HOST"),
		SMTPPort:              v.GetInt("SMTP_PORT"),
		EmailAddress:          v.GetString("EMAIL_ADDRESS"),
		EmailPassword:         v.GetString("EMAIL_PASSWORD"),
		InvitationTTL:         time.Duration(v.GetInt("EMAIL_TIMEOUT")) * time.Second,
		PartnerSSOEndpoint:    strings.TrimSuffix(v.GetString("EDB_SSO_ENDPOINT"), "/"),
		PartnerRealm:          v.GetString("EDB_REALM"),
		PartnerClientID:       v.GetString("EDB_VA_CLIENT_ID"),
		PartnerClientSecret:   v.GetString("EDB_VA_TOKEN"),
		PartnerEndpoint:       strings.TrimSuffix(v.GetString("EDB_VA_ENDPOINT"), "/"),
		AllowedOrigins:        splitList(v.GetString("ALLOWED_ORIGINS")),
		RateLimitPerMinute:    v.GetInt("RATE_LIMIT_PER_MINUTE"),
		CloudWatchEnabled:     v.GetBool("CLOUDWATCH_ENABLED"),
		CloudWatchNamespace:   v.GetString("CLOUDWATCH_NAMESPACE"),
		AWSUseSecrets:         v.GetBool("AWS_USE_SECRETS"),
		SecretsPrefix:         v.GetString("SECRETS_PREFIX"),
		RequestTimeout:        v.GetDuration("REQUEST_TIMEOUT"),
		ShutdownTimeout:       v.GetDuration("SHUTDOWN_TIMEOUT"),
	}
}

// ApplySecrets overrides credentials with values stored in Secrets Manager.
// Each secret is a JSON object; missing secrets leave the env values in place.
func (c *Config) ApplySecrets(ctx context.Context, sg awspkg.SecretGetter) error {
	overrides := map[string]map[string]*string{
		"DB_CREDENTIALS": {
			"POSTGRES_USER":     &c.PostgresUser,
			"POSTGRES_PASSWORD": &c.PostgresPassword,
			"POSTGRES_DB":       &c.PostgresDB,
			"POSTGRES_HOST":     &c.PostgresHost,
			"POSTGRES_PORT":     &c.PostgresPort,
		},
		"JWT": {
			"ACCESS_TOKEN_SECRET":  &c.AccessTokenSecret,
			"REFRESH_TOKEN_SECRET": &c.RefreshTokenSecret,
		},
		"PAYMENT": {
			"HELLOASSO_CLIENT_ID":     &c.HelloAssoClientID,
			"HELLOASSO_CLIENT_SECRET": &c.HelloAssoClientSecret,
			"HELLOASSO_TOKEN":         &c.HelloAssoWebhookToken,
			"STRIPE_SECRET_KEY":       &c.StripeSecretKey,
			"STRIPE_WEBHOOK_SECRET":   &c.StripeWebhookSecret,
		},
	}

	for name, fields := range overrides {
		m, err := awspkg.GetSecretMap(ctx, sg, c.SecretsPrefix+"/"+name)
		if err != nil {
			continue
		}
		for key, dst := range fields {
			if v, ok := m[key]; ok && v != "" {
				*dst = v
			}
		}
	}
	return nil
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" || c.PostgresHost == "" {
		return fmt.Errorf("database config incomplete")
	}
	if c.AccessTokenSecret == "" || c.RefreshTokenSecret == "" {
		return fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET are required")
	}
	switch c.PaymentProvider {
	case "helloasso":
		if c.HelloAssoClientID == "" || c.HelloAssoClientSecret == "" || c.HelloAssoOrgSlug == "" {
			return fmt.Errorf("helloasso credentials incomplete")
		}
		if c.HelloAssoWebhookToken == "" {
			return fmt.Errorf("HELLOASSO_TOKEN is required")
		}
	case "stripe":
		if c.StripeSecretKey == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY is required")
		}
	default:
		return fmt.Errorf("unknown PAYMENT_PROVIDER %q", c.PaymentProvider)
	}
	return nil
}

// DSN returns the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone)
}

// APIPrefix is the mount point of every versioned route.
func (c *Config) APIPrefix() string {
	return "/api/v" + c.APIVersion
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
