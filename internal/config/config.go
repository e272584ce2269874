package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// GeminiModel is the only model the relay talks to.
const GeminiModel = "gemini-2.5-flash"

const (
	TransportREST = "rest"
	TransportSDK  = "sdk"
)

type Config struct {
	// Server
	Port      int
	Env       string
	LogLevel  string
	StaticDir string

	// Gemini AI
	GeminiAPIKey    string
	GeminiModel     string
	GeminiBaseURL   string
	GeminiTransport string

	// Optional endpoint override for the SDK transport.
	GeminiSDKEndpoint string

	// Tracing
	OTLPEndpoint string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:              getEnvAsIntOrDefault("PORT", 3000),
		Env:               getEnvOrDefault("ENV", "development"),
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
		StaticDir:         getEnvOrDefault("STATIC_DIR", "public"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       GeminiModel,
		GeminiBaseURL:     getEnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiTransport:   getEnvOrDefault("GEMINI_TRANSPORT", TransportREST),
		GeminiSDKEndpoint: os.Getenv("GEMINI_SDK_ENDPOINT"),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	return cfg
}

// HasGeminiKey reports whether a credential for the upstream API is configured.
func (c *Config) HasGeminiKey() bool {
	return c.GeminiAPIKey != ""
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
