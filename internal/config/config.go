package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode string `mapstructure:"mode"`
	Port int    `mapstructure:"port"`

	BrokerBaseURL string        `mapstructure:"broker_base_url"`
	BrokerTimeout time.Duration `mapstructure:"broker_timeout"`
	SignalURL     string        `mapstructure:"signal_url"`
	SummaryURL    string        `mapstructure:"summary_url"`

	Secret string `mapstructure:"secret"`

	ChatSendBuffer         int           `mapstructure:"chat_send_buffer"`
	ChatReconnectAttempts  int           `mapstructure:"chat_reconnect_attempts"`
	ChatReconnectBaseDelay time.Duration `mapstructure:"chat_reconnect_base_delay"`

	EventQueueSize int `mapstructure:"event_queue_size"`

	// AudioAffinity is the fallback device heuristic: when no input is
	// flagged default, the first device whose label contains one of
	// these substrings (case-insensitive) wins.
	AudioAffinity []string `mapstructure:"audio_affinity"`
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
	v.SetDefault("broker_base_url", "http://localhost:9090")
	v.SetDefault("broker_timeout", "5s")
	v.SetDefault("signal_url", "wss://localhost:9443/signal")
	v.SetDefault("summary_url", "http://localhost:9091/summaries")
	v.SetDefault("chat_send_buffer", 32)
	v.SetDefault("chat_reconnect_attempts", 3)
	v.SetDefault("chat_reconnect_base_delay", "500ms")
	v.SetDefault("event_queue_size", 256)
	v.SetDefault("audio_affinity", []string{"headset", "usb"})

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
