package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default Hugging Face inference endpoints, most preferred first.
var DefaultModelEndpoints = []string{
	"https://api-inference.huggingface.co/models/mistralai/Mistral-7B-Instruct-v0.3",
	"https://api-inference.huggingface.co/models/facebook/blenderbot-400M-distill",
	"https://api-inference.huggingface.co/models/microsoft/DialoGPT-medium",
}

type Config struct {
	// Server
	Port        string
	Env         string
	LogLevel    string
	FrontendURL string

	// Chat
	Backend           string // "huggingface" or "gemini"
	Mode              string // "static", "lazy" or "fixed"
	ModelEndpoints    []string
	ProbeInput        string
	ProbeTimeout      time.Duration
	ChatTimeout       time.Duration
	ChatRatePerMinute int

	// Credentials
	HFAPIToken   string
	GeminiAPIKey string
	GeminiModels []string

	// Optional infrastructure
	RedisURL    string
	DatabaseURL string
	JWTSecret   string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	mode := strings.ToLower(getEnvOrDefault("CHAT_MODE", "lazy"))

	// Static probing runs once at startup, so it can afford less patience
	// than a lazy probe that sits in front of a waiting user.
	probeDefault := 45 * time.Second
	if mode == "static" {
		probeDefault = 15 * time.Second
	}

	cfg := &Config{
		Port:              getEnvOrDefault("PORT", "7860"),
		Env:               getEnvOrDefault("ENV", "development"),
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
		FrontendURL:       getEnvOrDefault("FRONTEND_URL", "*"),
		Backend:           strings.ToLower(getEnvOrDefault("CHAT_BACKEND", "huggingface")),
		Mode:              mode,
		ModelEndpoints:    getEnvAsListOrDefault("MODEL_ENDPOINTS", DefaultModelEndpoints),
		ProbeInput:        getEnvOrDefault("PROBE_INPUT", "Hello"),
		ProbeTimeout:      getEnvAsDurationOrDefault("PROBE_TIMEOUT", probeDefault),
		ChatTimeout:       getEnvAsDurationOrDefault("CHAT_TIMEOUT", 0),
		ChatRatePerMinute: getEnvAsIntOrDefault("CHAT_RATE_PER_MINUTE", 30),
		HFAPIToken:        os.Getenv("HF_API_TOKEN"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModels:      getEnvAsListOrDefault("GEMINI_MODELS", []string{"gemini-1.5-flash"}),
		RedisURL:          os.Getenv("REDIS_URL"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
	}

	return cfg
}

// Candidates returns the endpoint list for the configured backend.
func (c *Config) Candidates() []string {
	if c.Backend == "gemini" {
		return c.GeminiModels
	}
	return c.ModelEndpoints
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

// getEnvAsDurationOrDefault accepts Go durations ("30s") or bare seconds ("30").
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return defaultVal
	}
	return time.Duration(n) * time.Second
}

func getEnvAsListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return append([]string(nil), defaultVal...)
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), defaultVal...)
	}
	return out
}
