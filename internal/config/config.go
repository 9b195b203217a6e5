package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Store      StoreConfig
	Mongo      MongoConfig
	DynamoDB   DynamoDBConfig
	Redis      RedisConfig
	Pending    PendingConfig
	JWT        JWTConfig
	OTP        OTPConfig
	SMS        SMSConfig
	Admin      AdminConfig
	Upload     UploadConfig
	Cloudinary CloudinaryConfig
}

type ServerConfig struct {
	Port           string
	Environment    string
	LogLevel       string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

type StoreConfig struct {
	// Backend selects the identity store: "mongo" or "dynamodb".
	Backend string
}

type MongoConfig struct {
	URI      string
	Database string
}

type DynamoDBConfig struct {
	Endpoint  string
	Region    string
	TableName string
}

type RedisConfig struct {
	URL string
}

type PendingConfig struct {
	// Backend selects the signup pending store: "redis", "dynamodb" or "memory".
	Backend       string
	Retention     time.Duration
	SweepInterval time.Duration
}

type JWTConfig struct {
	SecretKey   string
	UserExpiry  time.Duration
	AdminExpiry time.Duration
}

type OTPConfig struct {
	Expiry          time.Duration
	HashCost        int
	RateLimitPerMin int
}

type SMSConfig struct {
	Provider    string
	AccountSID  string
	AuthToken   string
	FromNumber  string
	CountryCode string
}

type AdminConfig struct {
	Username string
	Password string
}

type UploadConfig struct {
	// Backend selects the course file store: "local" or "cloudinary".
	Backend  string
	Dir      string
	MaxBytes int64
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Load reads an optional .env file and builds the configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Environment:    strings.ToLower(getEnv("APP_ENV", "development")),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", "mongo")),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "academy"),
		},
		DynamoDB: DynamoDBConfig{
			Endpoint:  getEnv("DYNAMODB_ENDPOINT", ""),
			Region:    getEnv("DYNAMODB_REGION", "us-east-1"),
			TableName: getEnv("DYNAMODB_TABLE_NAME", "AcademyTable"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Pending: PendingConfig{
			Backend:       strings.ToLower(getEnv("PENDING_BACKEND", "redis")),
			Retention:     getEnvAsDuration("PENDING_RETENTION", 15*time.Minute),
			SweepInterval: getEnvAsDuration("PENDING_SWEEP_INTERVAL", time.Minute),
		},
		JWT: JWTConfig{
			SecretKey:   getEnv("JWT_SECRET_KEY", ""),
			UserExpiry:  getEnvAsDuration("JWT_USER_EXPIRY", 7*24*time.Hour),
			AdminExpiry: getEnvAsDuration("JWT_ADMIN_EXPIRY", 24*time.Hour),
		},
		OTP: OTPConfig{
			Expiry:          getEnvAsDuration("OTP_EXPIRY", 5*time.Minute),
			HashCost:        getEnvAsInt("OTP_HASH_COST", 10),
			RateLimitPerMin: getEnvAsInt("OTP_RATE_LIMIT_PER_MIN", 5),
		},
		SMS: SMSConfig{
			Provider:    strings.ToLower(getEnv("SMS_PROVIDER", "log")),
			AccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
			FromNumber:  getEnv("TWILIO_FROM_NUMBER", ""),
			CountryCode: getEnv("SMS_COUNTRY_CODE", "+91"),
		},
		Admin: AdminConfig{
			Username: getEnv("ADMIN_USERNAME", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
		Upload: UploadConfig{
			Backend:  strings.ToLower(getEnv("UPLOAD_BACKEND", "local")),
			Dir:      getEnv("UPLOAD_DIR", "uploads"),
			MaxBytes: int64(getEnvAsInt("UPLOAD_MAX_BYTES", 10<<20)),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:    getEnv("CLOUDINARY_API_KEY", ""),
			APISecret: getEnv("CLOUDINARY_API_SECRET", ""),
			Folder:    getEnv("CLOUDINARY_FOLDER", "academy/courses"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required values and backend selectors.
func (c *Config) Validate() error {
	if c.JWT.SecretKey == "" {
		return fmt.Errorf("JWT_SECRET_KEY environment variable is required")
	}

	if len(c.JWT.SecretKey) < 32 {
		return fmt.Errorf("JWT_SECRET_KEY must be at least 32 bytes (256 bits)")
	}

	switch c.Store.Backend {
	case "mongo", "dynamodb":
	default:
		return fmt.Errorf("STORE_BACKEND must be mongo or dynamodb, got %q", c.Store.Backend)
	}

	switch c.Pending.Backend {
	case "redis", "dynamodb", "memory":
	default:
		return fmt.Errorf("PENDING_BACKEND must be redis, dynamodb or memory, got %q", c.Pending.Backend)
	}

	if c.Pending.Retention < c.OTP.Expiry {
		return fmt.Errorf("PENDING_RETENTION (%s) must not be shorter than OTP_EXPIRY (%s)", c.Pending.Retention, c.OTP.Expiry)
	}

	switch c.SMS.Provider {
	case "log":
	case "twilio":
		if c.SMS.AccountSID == "" || c.SMS.AuthToken == "" || c.SMS.FromNumber == "" {
			return fmt.Errorf("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER are required for SMS_PROVIDER=twilio")
		}
	default:
		return fmt.Errorf("SMS_PROVIDER must be twilio or log, got %q", c.SMS.Provider)
	}

	switch c.Upload.Backend {
	case "local":
	case "cloudinary":
		if c.Cloudinary.CloudName == "" || c.Cloudinary.APIKey == "" || c.Cloudinary.APISecret == "" {
			return fmt.Errorf("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required for UPLOAD_BACKEND=cloudinary")
		}
	default:
		return fmt.Errorf("UPLOAD_BACKEND must be local or cloudinary, got %q", c.Upload.Backend)
	}

	return nil
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
