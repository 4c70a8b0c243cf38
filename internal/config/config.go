package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	// Scheduling policy
	SlotIntervalMinutes int
	BufferMinutes       int
	BookingWindowDays   int
	NewPatientMinutes   int
	ReturningMinutes    int

	// Reminder policy: offsets before the appointment start for the three tiers.
	ReminderFirstOffset  time.Duration
	ReminderSecondOffset time.Duration
	ReminderThirdOffset  time.Duration
	DispatchInterval     time.Duration
	DispatchBatchSize    int

	// Intake form link embedded in reminder messages
	FormBaseURL string

	// Redis (availability cache)
	RedisAddr       string
	RedisPassword   string
	RedisTLS        bool
	AvailabilityTTL time.Duration

	CORSAllowedOrigins string
	AdminJWTSecret     string

	// SendGrid Email Configuration
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// SMS provider (Telnyx-compatible REST API)
	SMSAPIKey     string
	SMSFromNumber string
	SMSBaseURL    string

	// Gemini chat assistant
	GeminiAPIKey  string
	GeminiModelID string

	ClinicName     string
	ClinicPhone    string
	ClinicTimezone string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		SlotIntervalMinutes: getEnvAsInt("SLOT_INTERVAL_MINUTES", 15),
		BufferMinutes:       getEnvAsInt("BUFFER_MINUTES", 15),
		BookingWindowDays:   getEnvAsInt("BOOKING_WINDOW_DAYS", 14),
		NewPatientMinutes:   getEnvAsInt("NEW_PATIENT_MINUTES", 60),
		ReturningMinutes:    getEnvAsInt("RETURNING_PATIENT_MINUTES", 30),

		ReminderFirstOffset:  getEnvAsDuration("REMINDER_FIRST_OFFSET", 72*time.Hour),
		ReminderSecondOffset: getEnvAsDuration("REMINDER_SECOND_OFFSET", 24*time.Hour),
		ReminderThirdOffset:  getEnvAsDuration("REMINDER_THIRD_OFFSET", 2*time.Hour),
		DispatchInterval:     getEnvAsDuration("REMINDER_DISPATCH_INTERVAL", time.Hour),
		DispatchBatchSize:    getEnvAsInt("REMINDER_DISPATCH_BATCH", 100),

		FormBaseURL: getEnv("FORM_BASE_URL", "https://forms.medicare-wellness.example/intake"),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisTLS:        getEnvAsBool("REDIS_TLS", false),
		AvailabilityTTL: getEnvAsDuration("AVAILABILITY_CACHE_TTL", 30*time.Second),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "MediCare Allergy & Wellness"),

		SMSAPIKey:     getEnv("SMS_API_KEY", ""),
		SMSFromNumber: getEnv("SMS_FROM_NUMBER", ""),
		SMSBaseURL:    getEnv("SMS_BASE_URL", "https://api.telnyx.com/v2"),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModelID: getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),

		ClinicName:     getEnv("CLINIC_NAME", "MediCare Allergy & Wellness Center"),
		ClinicPhone:    getEnv("CLINIC_PHONE", "(555) 123-4567"),
		ClinicTimezone: getEnv("CLINIC_TIMEZONE", "America/Chicago"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
