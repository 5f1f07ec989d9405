package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zhouzirui/concierge/backend/internal/analysis/language"
	"github.com/zhouzirui/concierge/backend/internal/model/speech"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server      ServerConfig
	Assistant   AssistantConfig
	Interaction InteractionConfig
	Catalog     CatalogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	assistant, err := loadAssistantConfig()
	if err != nil {
		return nil, err
	}

	interaction, err := loadInteractionConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:      server,
		Assistant:   assistant,
		Interaction: interaction,
		Catalog:     CatalogConfig{Path: getEnvOrDefault("CATALOG_PATH", "")},
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	origins := splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// AssistantConfig 描述助手会话的默认行为。
type AssistantConfig struct {
	DefaultLanguage language.Tag
	NavigationDelay time.Duration
	IdleTimeout     time.Duration
	Voice           speech.VoiceSettings
}

func loadAssistantConfig() (AssistantConfig, error) {
	rawLang := getEnvOrDefault("ASSISTANT_DEFAULT_LANGUAGE", string(language.Default))
	lang := language.Parse(rawLang)
	if !language.SameBase(rawLang, lang.String()) {
		return AssistantConfig{}, fmt.Errorf("unsupported ASSISTANT_DEFAULT_LANGUAGE value %q", rawLang)
	}

	delay := 1500 * time.Millisecond
	if ms, err := parseOptionalIntEnv("ASSISTANT_NAV_DELAY_MS"); err != nil {
		return AssistantConfig{}, err
	} else if ms != nil {
		if *ms < 0 {
			return AssistantConfig{}, fmt.Errorf("invalid ASSISTANT_NAV_DELAY_MS value %d", *ms)
		}
		delay = time.Duration(*ms) * time.Millisecond
	}

	idle := 30 * time.Minute
	if minutes, err := parseOptionalIntEnv("ASSISTANT_IDLE_MINUTES"); err != nil {
		return AssistantConfig{}, err
	} else if minutes != nil && *minutes > 0 {
		idle = time.Duration(*minutes) * time.Minute
	}

	voice := speech.DefaultVoiceSettings()
	voice.Language = lang.String()
	voice.VoiceGender = speech.ParseGender(os.Getenv("ASSISTANT_VOICE_GENDER"))

	rate, err := parseOptionalFloatEnv("ASSISTANT_SPEECH_RATE")
	if err != nil {
		return AssistantConfig{}, err
	}
	if rate != nil {
		voice.SpeechRate = *rate
	}

	pitch, err := parseOptionalFloatEnv("ASSISTANT_PITCH")
	if err != nil {
		return AssistantConfig{}, err
	}
	if pitch != nil {
		voice.Pitch = *pitch
	}

	sound, err := parseBoolEnv("ASSISTANT_SOUND_EFFECTS", true)
	if err != nil {
		return AssistantConfig{}, err
	}
	voice.SoundEffectsEnabled = sound

	return AssistantConfig{
		DefaultLanguage: lang,
		NavigationDelay: delay,
		IdleTimeout:     idle,
		Voice:           voice.Normalized(),
	}, nil
}

// InteractionConfig 描述交互日志的持久化方式。DBPath 为空时只写日志。
type InteractionConfig struct {
	DBPath    string
	QueueSize int
}

func loadInteractionConfig() (InteractionConfig, error) {
	queue := 256
	if size, err := parseOptionalIntEnv("INTERACTION_QUEUE_SIZE"); err != nil {
		return InteractionConfig{}, err
	} else if size != nil {
		if *size < 1 {
			queue = 1
		} else {
			queue = *size
		}
	}

	return InteractionConfig{
		DBPath:    getEnvOrDefault("INTERACTION_DB_PATH", ""),
		QueueSize: queue,
	}, nil
}

// CatalogConfig 指向可选的服务目录覆盖文件，修改后热加载。
type CatalogConfig struct {
	Path string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
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
