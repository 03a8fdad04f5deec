package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	OTPLength     int
	OTPTTL        time.Duration
	ResetTokenTTL time.Duration

	SMTPHost       string
	SMTPPort       string
	SMTPFrom       string
	SMTPSenderName string
	SMTPUsername   string
	SMTPPassword   string

	SNSRegion      string
	SMSCountryCode string // prefixed to 10-digit mobile numbers before publishing

	DispatchWorkers   int
	DispatchQueueSize int

	KYCMaxUploadBytes int64
	AllowedOrigins    []string // CORS allowed origins
	TrustProxy        bool     // take the client IP from forwarding headers (only behind a trusted proxy)
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users             string
	UserUniques       string
	Sessions          string
	VerificationCodes string
	PasswordResets    string
	KYCDocuments      string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "ap-south-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:             getEnv("DYNAMO_TABLE_USERS", "users"),
			UserUniques:       getEnv("DYNAMO_TABLE_USER_UNIQUES", "user_uniques"),
			Sessions:          getEnv("DYNAMO_TABLE_SESSIONS", "sessions"),
			VerificationCodes: getEnv("DYNAMO_TABLE_VERIFICATION_CODES", "verification_codes"),
			PasswordResets:    getEnv("DYNAMO_TABLE_PASSWORD_RESETS", "password_resets"),
			KYCDocuments:      getEnv("DYNAMO_TABLE_KYC_DOCUMENTS", "kyc_documents"),
		},
		S3BucketName:      getEnv("S3_BUCKET_NAME", "kyc-documents"),
		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_MINUTES", 60)) * time.Minute,
		OTPLength:         getEnvInt("OTP_LENGTH", 6),
		OTPTTL:            time.Duration(getEnvInt("OTP_TTL_MINUTES", 5)) * time.Minute,
		ResetTokenTTL:     time.Duration(getEnvInt("RESET_TOKEN_TTL_MINUTES", 15)) * time.Minute,
		SMTPHost:          getEnv("SMTP_HOST", "localhost"),
		SMTPPort:          getEnv("SMTP_PORT", "1025"),
		SMTPFrom:          getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPSenderName:    getEnv("SMTP_SENDER_NAME", "Accounts"),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SNSRegion:         getEnv("SNS_REGION", "ap-south-1"),
		SMSCountryCode:    getEnv("SMS_COUNTRY_CODE", "+91"),
		DispatchWorkers:   getEnvInt("DISPATCH_WORKERS", 4),
		DispatchQueueSize: getEnvInt("DISPATCH_QUEUE_SIZE", 256),
		KYCMaxUploadBytes: int64(getEnvInt("KYC_MAX_UPLOAD_BYTES", 2<<20)),
		AllowedOrigins:    strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		TrustProxy:        getEnvBool("TRUST_PROXY", false),
	}
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

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
