package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the server configuration, read from a .env file and the
// environment. Environment variables win over the file.
type Config struct {
	ListenAddr string `mapstructure:"LISTEN_ADDR"`

	OpenAIAPIKey string `mapstructure:"OPENAI_API_KEY"`
	ModelName    string `mapstructure:"MODEL_NAME"`

	// DatabaseURL selects the Postgres usage store; empty keeps metering
	// in memory.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	AllowedOrigins []string `mapstructure:"ALLOWED_ORIGINS"`
}

// NewConfig loads configuration from path (a dotenv file) when it exists,
// letting the process environment override it.
func NewConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("MODEL_NAME", "gpt-4o-mini")
	v.SetDefault("ALLOWED_ORIGINS", []string{"*"})

	// AutomaticEnv only resolves keys viper already knows about.
	for _, key := range []string{"OPENAI_API_KEY", "DATABASE_URL"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// The file is optional; only a malformed one is fatal.
		if _, ok := err.(viper.ConfigParseError); ok {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
