package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates all service settings.
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Speech SpeechConfig
	Image  ImageConfig
	Game   GameConfig
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

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	game, err := loadGameConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		AI:     ai,
		Speech: speech,
		Image:  loadImageConfig(),
		Game:   game,
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
		// Accept ":8080" or "127.0.0.1:8080" verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the story-generation model.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	MaxTokens   *int
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel constructs the configured chat model instance.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("model credentials missing: provide ARK_API_KEY + MODEL or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
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
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	if temperature == nil {
		val := 0.7
		temperature = &val
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}
	if maxTokens == nil {
		val := 500
		maxTokens = &val
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}, nil
}

// SpeechConfig describes the narration TTS backend.
type SpeechConfig struct {
	Endpoint    string
	AppID       string
	AccessToken string
	Voice       string
	Speed       float32
	Volume      float32
	Enabled     bool
}

func loadSpeechConfig() (SpeechConfig, error) {
	speed, err := parseOptionalFloat32Env("SPEECH_TTS_SPEED")
	if err != nil {
		return SpeechConfig{}, err
	}
	ttsSpeed := float32(1.0)
	if speed != nil {
		ttsSpeed = *speed
	}

	volume, err := parseOptionalFloat32Env("SPEECH_TTS_VOLUME")
	if err != nil {
		return SpeechConfig{}, err
	}
	ttsVolume := float32(1.0)
	if volume != nil {
		ttsVolume = *volume
	}

	appID := strings.TrimSpace(os.Getenv("SPEECH_APP_ID"))
	accessToken := strings.TrimSpace(os.Getenv("SPEECH_ACCESS_TOKEN"))

	return SpeechConfig{
		Endpoint:    strings.TrimSpace(os.Getenv("SPEECH_ENDPOINT")),
		AppID:       appID,
		AccessToken: accessToken,
		Voice:       getEnvOrDefault("SPEECH_TTS_VOICE", "en_female_candice_emo_v2_mars_bigtts"),
		Speed:       ttsSpeed,
		Volume:      ttsVolume,
		Enabled:     appID != "" && accessToken != "",
	}, nil
}

// ImageConfig describes the illustration backend.
type ImageConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Size    string
	Enabled bool
}

func loadImageConfig() ImageConfig {
	apiKey := strings.TrimSpace(os.Getenv("IMAGE_API_KEY"))
	return ImageConfig{
		APIKey:  apiKey,
		BaseURL: getEnvOrDefault("IMAGE_BASE_URL", "https://api.openai.com/v1"),
		Model:   getEnvOrDefault("IMAGE_MODEL", "dall-e-3"),
		Size:    getEnvOrDefault("IMAGE_SIZE", "1024x1024"),
		Enabled: apiKey != "",
	}
}

// GameConfig describes turn orchestration settings.
type GameConfig struct {
	MaxAttempts  int
	AudioDir     string
	SystemPrompt string
}

func loadGameConfig() (GameConfig, error) {
	attempts := 3
	if override, err := parseOptionalIntEnv("GAME_MAX_ATTEMPTS"); err != nil {
		return GameConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return GameConfig{}, fmt.Errorf("GAME_MAX_ATTEMPTS must be at least 1, got %d", *override)
		}
		attempts = *override
	}

	return GameConfig{
		MaxAttempts:  attempts,
		AudioDir:     getEnvOrDefault("GAME_AUDIO_DIR", "generated_assets/audio"),
		SystemPrompt: os.Getenv("GAME_SYSTEM_PROMPT"),
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

func parseOptionalFloat32Env(key string) (*float32, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	result := float32(val)
	return &result, nil
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
