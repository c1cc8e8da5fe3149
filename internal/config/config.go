package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string `mapstructure:"mode"`
	Port       int    `mapstructure:"port"`
	StaticPath string `mapstructure:"static_path"`
	Secret     string `mapstructure:"secret"`

	// Client side.
	RelayURL          string        `mapstructure:"relay_url"`
	ReconnectAttempts int           `mapstructure:"reconnect_attempts"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`

	// Room semantics.
	RoomCapacity   int    `mapstructure:"room_capacity"`
	DefaultVideoID string `mapstructure:"default_video_id"`
	// How long the first user waits before broadcasting the default video,
	// so a second participant has time to attach its listeners.
	InitialBroadcastDelay time.Duration `mapstructure:"initial_broadcast_delay"`

	// Sync engine timings.
	SuppressTTL    time.Duration `mapstructure:"suppress_ttl"`
	TypingDebounce time.Duration `mapstructure:"typing_debounce"`
	TypingTTL      time.Duration `mapstructure:"typing_ttl"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("relay_url", "ws://localhost:8080/ws")
	v.SetDefault("reconnect_attempts", 5)
	v.SetDefault("reconnect_delay", "1s")
	v.SetDefault("room_capacity", 2)
	v.SetDefault("default_video_id", "D6tDlm9B5Eg")
	v.SetDefault("initial_broadcast_delay", "1s")
	v.SetDefault("suppress_ttl", "500ms")
	v.SetDefault("typing_debounce", "1s")
	v.SetDefault("typing_ttl", "3s")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
