package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	StoreDriver    string // "dynamo" | "memory"
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string

	JWTSecret         string
	JWTPrivateKeyPath string // RS256 is used only when both key paths are set
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	OTPTTL                    time.Duration
	RegistrationTTL           time.Duration
	OTPSweepInterval          time.Duration
	RegistrationSweepInterval time.Duration

	OTPDelivery       string // "http" | "smtp" | "mailersend"
	OTPServiceURL     string
	OTPServiceTimeout time.Duration
	SMTPHost          string
	SMTPPort          string
	SMTPUsername      string
	SMTPPassword      string
	MailerSendAPIKey  string
	MailFromName      string
	MailFromEmail     string

	ModelServerURL string
	ModelTimeout   time.Duration
	MaxUploadBytes int64

	RedisURL      string
	StatsCacheTTL time.Duration

	BcryptCost     int
	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Accounts      string
	OneTimeCodes  string
	Registrations string
	Predictions   string
	Visitors      string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:  getEnv("APP_PORT", "5000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreDriver:    getEnv("STORE_DRIVER", "dynamo"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Accounts:      getEnv("DYNAMO_TABLE_ACCOUNTS", "accounts"),
			OneTimeCodes:  getEnv("DYNAMO_TABLE_OTPS", "one_time_codes"),
			Registrations: getEnv("DYNAMO_TABLE_TEMP_USERS", "temp_registrations"),
			Predictions:   getEnv("DYNAMO_TABLE_PREDICTIONS", "predictions"),
			Visitors:      getEnv("DYNAMO_TABLE_VISITORS", "visitors"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "neuroscan-uploads"),

		JWTSecret:         getEnv("JWT_SECRET", "default_secret_key"),
		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", ""),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", ""),
		JWTExpiry:         getEnvSeconds("JWT_EXPIRATION", 86400),

		OTPTTL:                    getEnvSeconds("OTP_TTL_SECONDS", 300),
		RegistrationTTL:           getEnvSeconds("TEMP_USER_TTL_SECONDS", 900),
		OTPSweepInterval:          getEnvSeconds("OTP_SWEEP_INTERVAL_SECONDS", 60),
		RegistrationSweepInterval: getEnvSeconds("TEMP_USER_SWEEP_INTERVAL_SECONDS", 900),

		OTPDelivery:       getEnv("OTP_DELIVERY", "http"),
		OTPServiceURL:     getEnv("OTP_SERVICE_URL", "http://localhost:3001/api/send-otp"),
		OTPServiceTimeout: getEnvSeconds("OTP_SERVICE_TIMEOUT_SECONDS", 10),
		SMTPHost:          getEnv("SMTP_HOST", "localhost"),
		SMTPPort:          getEnv("SMTP_PORT", "1025"),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		MailerSendAPIKey:  getEnv("MAILERSEND_API_KEY", ""),
		MailFromName:      getEnv("MAIL_FROM_NAME", "Brain Tumor Detection"),
		MailFromEmail:     getEnv("MAIL_FROM_EMAIL", "no-reply@braintumordetection.com"),

		ModelServerURL: getEnv("MODEL_SERVER_URL", ""),
		ModelTimeout:   getEnvSeconds("MODEL_TIMEOUT_SECONDS", 30),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_MB", 10)) << 20,

		RedisURL:      getEnv("REDIS_URL", ""),
		StatsCacheTTL: getEnvSeconds("STATS_CACHE_TTL_SECONDS", 30),

		BcryptCost:     getEnvInt("BCRYPT_COST", 10),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// UseRS256 reports whether asymmetric JWT keys are configured.
func (c *Config) UseRS256() bool {
	return c.JWTPrivateKeyPath != "" && c.JWTPublicKeyPath != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvSeconds reads a positive number of seconds. Zero and negative values
// fall back, since intervals feed tickers and TTLs.
func getEnvSeconds(key string, fallback int) time.Duration {
	n := getEnvInt(key, fallback)
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}
