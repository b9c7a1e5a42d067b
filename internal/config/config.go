package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Gemini AI
	GeminiAPIKey string
	ModelName    string
	Temperature  float32

	// WebSocket
	AllowedOrigins  []string
	MaxMessageBytes int64

	// Redis (optional session events)
	RedisURL      string
	EventsChannel string
}

const DefaultModelName = "gemini-2.5-pro"

// Load reads the process environment once at startup. A missing Gemini key is
// not fatal: the chat endpoint reports itself unavailable instead.
func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	apiKey := getEnvOrDefault("GEMINI_API_KEY", "")
	if apiKey == "" {
		apiKey = getEnvOrDefault("GOOGLE_API_KEY", "")
	}

	cfg := &Config{
		Port:            getEnvOrDefault("PORT", "8000"),
		Env:             getEnvOrDefault("ENV", "development"),
		GeminiAPIKey:    apiKey,
		ModelName:       getEnvOrDefault("LLM_MODEL_NAME", DefaultModelName),
		Temperature:     float32(getEnvAsFloatOrDefault("LLM_TEMPERATURE", 0.7)),
		AllowedOrigins:  getEnvAsListOrDefault("ALLOWED_ORIGINS", []string{"*"}),
		MaxMessageBytes: int64(getEnvAsIntOrDefault("WS_MAX_MESSAGE_BYTES", 64*1024)),
		RedisURL:        getEnvOrDefault("REDIS_URL", ""),
		EventsChannel:   getEnvOrDefault("REDIS_EVENTS_CHANNEL", "careconnect:sessions"),
	}

	return cfg
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnvOrDefault(key, defaultVal string) string {
	val := strings.TrimSpace(os.Getenv(key))
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
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

func getEnvAsFloatOrDefault(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvAsListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
