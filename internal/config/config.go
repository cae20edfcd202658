package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig is the env-driven server configuration.
type AppConfig struct {
	// Bright Data-style content retrieval.
	BrightDataAPIKey string
	SerpZone         string
	UnlockerZone     string

	// Chat agent sidecar. Empty URL means chat replies are mocked.
	ChatAgentURL    string
	ChatAgentAPIKey string

	// Optional reverse-geocoding key for filling in place names.
	GeocoderAPIKey string

	// Optional static bearer token. When unset, auth is bypassed entirely.
	AuthToken string

	CORSOrigin string
	Port       string
	LogLevel   string

	// Persisted state layout.
	DataDir     string
	ProfilePath string

	// Outbound HTTP client timeout for provider calls.
	HTTPTimeout time.Duration

	// Background snapshot refresh cadence. 0 disables the scheduler.
	RefreshInterval time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{
		BrightDataAPIKey: os.Getenv("BRIGHTDATA_API_KEY"),
		SerpZone:         os.Getenv("SERP_ZONE"),
		UnlockerZone:     os.Getenv("UNLOCKER_ZONE"),
		ChatAgentURL:     os.Getenv("CHAT_AGENT_URL"),
		ChatAgentAPIKey:  os.Getenv("CHAT_AGENT_API_KEY"),
		GeocoderAPIKey:   os.Getenv("GEOCODER_API_KEY"),
		AuthToken:        os.Getenv("AUTH_TOKEN"),
		CORSOrigin:       getenvDefault("CORS_ORIGIN", "http://localhost:5173"),
		Port:             getenvDefault("PORT", "3001"),
		LogLevel:         getenvDefault("LOG_LEVEL", "info"),
		DataDir:          getenvDefault("DATA_DIR", "data"),
		ProfilePath:      getenvDefault("PROFILE_PATH", "data/profile.json"),
	}

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "60s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	refreshStr := getenvDefault("REFRESH_INTERVAL", "1h")
	refresh, err := time.ParseDuration(refreshStr)
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	cfg.RefreshInterval = refresh

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
