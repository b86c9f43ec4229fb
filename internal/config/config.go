package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults mirror the Groq deployment the clinic runs against. Everything is
// overridable through the environment.
const (
	DefaultEndpoint    = "https://api.groq.com/openai/v1/chat/completions"
	DefaultModel       = "llama3-70b-8192"
	DefaultSQLitePath  = "patients.db"
	defaultMaxTokens   = 400
	defaultTemperature = 0.2
	defaultTimeoutSecs = 30
	defaultHistoryCap  = 40
)

// Config aggregates all runtime settings. It is loaded once in main and
// passed explicitly to the components that need it.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	AI       AIConfig
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

// DatabaseConfig selects the storage backend. Driver is either "postgres"
// (when DATABASE_URL is set) or "sqlite" (file-backed, the default).
type DatabaseConfig struct {
	Driver string
	DSN    string
}

// AIConfig holds everything the completion client needs. A missing APIKey is
// not an error here; the client degrades to a fixed advisory reply.
type AIConfig struct {
	APIKey       string
	Endpoint     string
	Model        string
	MaxTokens    int
	Temperature  float32
	Timeout      time.Duration
	HistoryLimit int
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Database: loadDatabaseConfig(),
		AI:       ai,
	}, nil
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	// Allow both "8080" and full addresses like ":8080" or "127.0.0.1:8080".
	if strings.Contains(port, ":") {
		return ServerConfig{Addr: port}, nil
	}
	if _, err := strconv.Atoi(port); err != nil {
		return ServerConfig{}, fmt.Errorf("invalid PORT value %q: %w", port, err)
	}
	return ServerConfig{Addr: ":" + port}, nil
}

func loadDatabaseConfig() DatabaseConfig {
	if url := strings.TrimSpace(os.Getenv("DATABASE_URL")); url != "" {
		return DatabaseConfig{Driver: "postgres", DSN: url}
	}
	return DatabaseConfig{Driver: "sqlite", DSN: getEnvOrDefault("CLINIC_DB", DefaultSQLitePath)}
}

func loadAIConfig() (AIConfig, error) {
	// The credential is accepted under either name; GROQ_API_KEY wins.
	apiKey := strings.TrimSpace(os.Getenv("GROQ_API_KEY"))
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}

	maxTokens := defaultMaxTokens
	if v, err := parseOptionalIntEnv("GROQ_MAX_TOKENS"); err != nil {
		return AIConfig{}, err
	} else if v != nil {
		maxTokens = *v
	}

	temperature := float32(defaultTemperature)
	if v, err := parseOptionalFloatEnv("GROQ_TEMPERATURE"); err != nil {
		return AIConfig{}, err
	} else if v != nil {
		temperature = float32(*v)
	}

	timeoutSecs := defaultTimeoutSecs
	if v, err := parseOptionalIntEnv("GROQ_TIMEOUT"); err != nil {
		return AIConfig{}, err
	} else if v != nil && *v > 0 {
		timeoutSecs = *v
	}

	historyLimit := defaultHistoryCap
	if v, err := parseOptionalIntEnv("HISTORY_LIMIT"); err != nil {
		return AIConfig{}, err
	} else if v != nil && *v > 0 {
		historyLimit = *v
	}

	return AIConfig{
		APIKey:       apiKey,
		Endpoint:     getEnvOrDefault("GROQ_ENDPOINT", DefaultEndpoint),
		Model:        getEnvOrDefault("GROQ_MODEL", DefaultModel),
		MaxTokens:    maxTokens,
		Temperature:  temperature,
		Timeout:      time.Duration(timeoutSecs) * time.Second,
		HistoryLimit: historyLimit,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}
	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}
	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
