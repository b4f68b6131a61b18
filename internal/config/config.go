package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                 string
	DBUrl                string
	JWTSecret            string
	AppEnv               string
	ClientURL            string
	PaypalClientID       string
	PaypalSecret         string
	PaypalSandbox        bool
	PaymentFeeFraction   float64
	MinLessonCost        float64
	ReminderPollInterval time.Duration
	MeetingBaseURL       string
	MeetingSecret        string
	MailAPIURL           string
	MailAPIKey           string
	MailFromAddress      string
	TelegramBotToken     string
	TelegramChatID       string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	paypalClientID, exists := os.LookupEnv("PAYPAL_CLIENT_ID")
	if !exists || paypalClientID == "" {
		return nil, fmt.Errorf("PAYPAL_CLIENT_ID is required")
	}
	paypalSecret, exists := os.LookupEnv("PAYPAL_SECRET")
	if !exists || paypalSecret == "" {
		return nil, fmt.Errorf("PAYPAL_SECRET is required")
	}

	return &Config{
		Port:                 getEnv("PORT", "8080"),
		DBUrl:                getEnv("DB_URL", ""),
		JWTSecret:            jwtSecret,
		AppEnv:               normalizeEnv(getEnv("APP_ENV", "production")),
		ClientURL:            getEnv("CLIENT_URL", "http://localhost:3000"),
		PaypalClientID:       paypalClientID,
		PaypalSecret:         paypalSecret,
		PaypalSandbox:        getEnvBool("PAYPAL_SANDBOX", true),
		PaymentFeeFraction:   getEnvFloat("PAYMENT_FEE_FRACTION", 0.1),
		MinLessonCost:        getEnvFloat("MIN_LESSON_COST", 1),
		ReminderPollInterval: getEnvDuration("REMINDER_POLL_INTERVAL", time.Minute),
		MeetingBaseURL:       getEnv("MEETING_BASE_URL", ""),
		MeetingSecret:        getEnv("MEETING_SECRET", ""),
		MailAPIURL:           getEnv("MAIL_API_URL", ""),
		MailAPIKey:           getEnv("MAIL_API_KEY", ""),
		MailFromAddress:      getEnv("MAIL_FROM_ADDRESS", "no-reply@tutorhive.co.uk"),
		TelegramBotToken:     getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:       getEnv("TELEGRAM_CHAT_ID", ""),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvFloat(key string, fallback float64) float64 {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}
