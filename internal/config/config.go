package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every section of the service configuration.
type Config struct {
	Server   ServerConfig
	AI       AIConfig
	Image    ImageConfig
	Store    StoreConfig
	Realtime RealtimeConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	realtime, err := loadRealtimeConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		AI:       ai,
		Image:    loadImageConfig(),
		Store:    loadStoreConfig(),
		Realtime: realtime,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig carries the text completion model settings.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds a chat model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("completion credentials missing: set ARK_API_KEY + ARK_MODEL or the AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// ImageConfig carries the avatar image service settings.
type ImageConfig struct {
	APIKey  string
	BaseURL string
	Size    string
}

// Enabled reports whether an image service credential is present.
func (c ImageConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadImageConfig() ImageConfig {
	return ImageConfig{
		APIKey:  strings.TrimSpace(os.Getenv("IMAGE_API_KEY")),
		BaseURL: getEnvOrDefault("IMAGE_BASE_URL", "https://api.openai.com/v1"),
		Size:    getEnvOrDefault("IMAGE_SIZE", "512x512"),
	}
}

// StoreConfig locates the client-local durable store.
type StoreConfig struct {
	Path   string
	Record string
}

func loadStoreConfig() StoreConfig {
	return StoreConfig{
		Path:   getEnvOrDefault("STORE_PATH", "personarena.db"),
		Record: getEnvOrDefault("STORE_RECORD", "persona-storage"),
	}
}

// RealtimeConfig describes how clients reach the broadcast relay.
type RealtimeConfig struct {
	URL          string
	DialAttempts int
	DialDelay    time.Duration
}

func loadRealtimeConfig() (RealtimeConfig, error) {
	attempts := 3
	if override, err := parseOptionalIntEnv("REALTIME_DIAL_ATTEMPTS"); err != nil {
		return RealtimeConfig{}, err
	} else if override != nil {
		if *override < 1 {
			attempts = 1
		} else {
			attempts = *override
		}
	}

	delayMs := 500
	if override, err := parseOptionalIntEnv("REALTIME_DIAL_DELAY_MS"); err != nil {
		return RealtimeConfig{}, err
	} else if override != nil && *override >= 0 {
		delayMs = *override
	}

	return RealtimeConfig{
		URL:          getEnvOrDefault("REALTIME_URL", "ws://localhost:8080/api/ws"),
		DialAttempts: attempts,
		DialDelay:    time.Duration(delayMs) * time.Millisecond,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
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
