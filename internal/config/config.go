package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port             int
	MediaAPIKey      string
	MediaAPISecret   string
	MediaURL         string
	OpenRouterAPIKey string
	OpenRouterURL    string
	NatsURL          string
	LogLevel         string
}

func Load() Config {
	return Config{
		Port:             envInt("PORT", 8000),
		MediaAPIKey:      envStr("LIVEKIT_API_KEY", ""),
		MediaAPISecret:   envStr("LIVEKIT_API_SECRET", ""),
		MediaURL:         envStr("LIVEKIT_URL", "ws://localhost:7880"),
		OpenRouterAPIKey: envStr("OPENROUTER_API_KEY", ""),
		OpenRouterURL:    envStr("OPENROUTER_URL", ""),
		NatsURL:          envStr("NATS_URL", ""),
		LogLevel:         envStr("LOG_LEVEL", "info"),
	}
}

// MediaConfigured reports whether token signing key material is present.
// Missing key material is fatal at startup; the service refuses to serve
// rather than fail every credential request.
func (c Config) MediaConfigured() bool {
	return c.MediaAPIKey != "" && c.MediaAPISecret != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
