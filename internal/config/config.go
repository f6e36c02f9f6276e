package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds everything main needs to wire the service.
type Config struct {
	Port        string `validate:"required,numeric"`
	GRPCPort    string `validate:"omitempty,numeric"`
	Environment string `validate:"required,oneof=development staging production test"`
	ServiceName string `validate:"required"`

	// Store
	StoreBackend         string `validate:"required,oneof=memory postgres firebase"`
	DatabaseDSN          string `validate:"required_if=StoreBackend postgres"`
	FirebaseCredentials  string
	FirebaseDatabaseURL  string `validate:"required_if=StoreBackend firebase,omitempty,url"`
	FirebaseProjectID    string
	RedisURL             string `validate:"omitempty,url"`
	ReconcileInterval    time.Duration
	ShutdownGraceTimeout time.Duration

	// Identity
	AuthMode       string `validate:"required,oneof=firebase header"`
	FirebaseAPIKey string `validate:"required_if=AuthMode firebase"`
	GoogleClientID string

	// Email
	EmailProvider  string `validate:"required,oneof=log smtp sendgrid"`
	EmailFrom      string `validate:"omitempty,email"`
	EmailFromName  string
	SMTPHost       string `validate:"required_if=EmailProvider smtp"`
	SMTPPort       string
	SMTPUsername   string
	SMTPPassword   string
	SendGridAPIKey string `validate:"required_if=EmailProvider sendgrid"`

	// Push and media
	PushEnabled       bool
	S3Bucket          string
	S3Region          string
	S3Endpoint        string `validate:"omitempty,url"`
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PublicBaseURL   string `validate:"omitempty,url"`

	// Messaging and telemetry
	AMQPURL         string
	AMQPExchange    string
	AuditRoutingKey string
	OTLPEndpoint    string
	DebugRoutes     bool
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8083"),
		GRPCPort:    getEnv("GRPC_PORT", "9083"),
		Environment: getEnv("ENVIRONMENT", "development"),
		ServiceName: getEnv("SERVICE_NAME", "chat-sync-service"),

		StoreBackend:         strings.ToLower(getEnv("STORE_BACKEND", "memory")),
		DatabaseDSN:          getEnv("DB_DSN", ""),
		FirebaseCredentials:  getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		FirebaseDatabaseURL:  getEnv("FIREBASE_DATABASE_URL", ""),
		FirebaseProjectID:    getEnv("FIREBASE_PROJECT_ID", ""),
		RedisURL:             getEnv("REDIS_URL", ""),
		ReconcileInterval:    getEnvDuration("RECONCILE_INTERVAL", 5*time.Minute),
		ShutdownGraceTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		AuthMode:       strings.ToLower(getEnv("AUTH_MODE", "firebase")),
		FirebaseAPIKey: getEnv("FIREBASE_API_KEY", ""),
		GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),

		EmailProvider:  strings.ToLower(getEnv("EMAIL_PROVIDER", "log")),
		EmailFrom:      getEnv("EMAIL_FROM", ""),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", "Chat"),
		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getEnv("SMTP_PORT", "587"),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),

		PushEnabled:       getEnvBool("PUSH_ENABLED", false),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3PublicBaseURL:   getEnv("S3_PUBLIC_BASE_URL", ""),

		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "chat.events"),
		AuditRoutingKey: getEnv("AUDIT_ROUTING_KEY", "audit.chat"),
		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		DebugRoutes:     getEnvBool("DEBUG_ROUTES", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// FirebaseNeeded reports whether any component talks to Firebase.
func (c *Config) FirebaseNeeded() bool {
	return c.StoreBackend == "firebase" || c.AuthMode == "firebase" || c.PushEnabled
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		log.Printf("config: %s=%q is not a bool, using %v", key, val, fallback)
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	if val == "0" {
		return 0
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		log.Printf("config: %s=%q is not a duration, using %s", key, val, fallback)
		return fallback
	}
	return parsed
}
