package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type Config struct {
	AppEnv                  string
	Port                    string
	AllowedOrigins          []string
	DatabaseURL             string
	RedisAddr               string
	RedisPassword           string
	RedisDB                 int
	SummaryCacheTTLSeconds  int
	RestaurantID            string
	RestaurantTimezone      string
	AuthSecret              string
	AccessTokenTTLMinutes   int
	ManagerPIN              string
	RabbitMQURL             string
	RabbitMQExchange        string
	ObjectStoreEndpoint     string
	ObjectStoreRegion       string
	ObjectStoreAccessKey    string
	ObjectStoreSecretKey    string
	ObjectStoreBucket       string
	ObjectStorePublicURL    string
	ObjectStoreStorageClass string

	// Billing defaults, used until an admin saves restaurant settings.
	RestaurantName               string
	DefaultGSTScheme             string
	DefaultGSTRate               decimal.Decimal
	DefaultServiceChargeRate     decimal.Decimal
	DefaultPackagingCharge       decimal.Decimal
	EnablePackagingCharge        bool
	ApplyServiceChargeToTakeaway bool
	RoundingUnit                 decimal.Decimal
	Currency                     string
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	summaryTTL, err := strconv.Atoi(getEnv("SUMMARY_CACHE_TTL_SECONDS", "60"))
	if err != nil || summaryTTL < 1 {
		summaryTTL = 60
	}
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}

	cfg := Config{
		AppEnv:                  getEnv("APP_ENV", "production"),
		Port:                    getEnv("PORT", "8080"),
		AllowedOrigins:          getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://127.0.0.1:3000"}),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		RedisAddr:               os.Getenv("REDIS_ADDR"),
		RedisPassword:           os.Getenv("REDIS_PASSWORD"),
		RedisDB:                 redisDB,
		SummaryCacheTTLSeconds:  summaryTTL,
		RestaurantID:            getEnv("DEFAULT_RESTAURANT_ID", "main-restaurant"),
		RestaurantTimezone:      getEnv("RESTAURANT_TIMEZONE", "Asia/Kolkata"),
		AuthSecret:              strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes:   tokenTTL,
		ManagerPIN:              strings.TrimSpace(os.Getenv("MANAGER_PIN")),
		RabbitMQURL:             strings.TrimSpace(os.Getenv("RABBITMQ_URL")),
		RabbitMQExchange:        getEnv("RABBITMQ_EXCHANGE", "restopos.bills"),
		ObjectStoreEndpoint:     strings.TrimSpace(os.Getenv("OBJECT_STORE_ENDPOINT")),
		ObjectStoreRegion:       getEnv("OBJECT_STORE_REGION", "auto"),
		ObjectStoreAccessKey:    strings.TrimSpace(os.Getenv("OBJECT_STORE_ACCESS_KEY_ID")),
		ObjectStoreSecretKey:    strings.TrimSpace(os.Getenv("OBJECT_STORE_SECRET_ACCESS_KEY")),
		ObjectStoreBucket:       strings.TrimSpace(os.Getenv("OBJECT_STORE_BUCKET")),
		ObjectStorePublicURL:    strings.TrimSpace(os.Getenv("OBJECT_STORE_PUBLIC_BASE_URL")),
		ObjectStoreStorageClass: strings.TrimSpace(os.Getenv("OBJECT_STORE_STORAGE_CLASS")),

		RestaurantName:               getEnv("RESTAURANT_NAME", "RestoPOS"),
		DefaultGSTScheme:             getEnv("DEFAULT_GST_SCHEME", "regular"),
		DefaultGSTRate:               getEnvDecimal("DEFAULT_GST_RATE", decimal.NewFromInt(5)),
		DefaultServiceChargeRate:     getEnvDecimal("DEFAULT_SERVICE_CHARGE_RATE", decimal.Zero),
		DefaultPackagingCharge:       getEnvDecimal("DEFAULT_PACKAGING_CHARGE", decimal.Zero),
		EnablePackagingCharge:        getEnvBool("ENABLE_PACKAGING_CHARGE", false),
		ApplyServiceChargeToTakeaway: getEnvBool("APPLY_SERVICE_CHARGE_TO_TAKEAWAY", true),
		RoundingUnit:                 getEnvDecimal("ROUNDING_UNIT", decimal.RequireFromString("0.01")),
		Currency:                     getEnv("CURRENCY", "INR"),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// ObjectStoreEnabled reports whether enough is configured to archive exports.
func (c Config) ObjectStoreEnabled() bool {
	return c.ObjectStoreEndpoint != "" && c.ObjectStoreBucket != "" && c.ObjectStorePublicURL != ""
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getEnvBool(key string, fallback bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := decimal.NewFromString(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
