package config

import (
	"errors"
	"os"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	LLM      LLMConfig
	Server   ServerConfig
	Database DatabaseConfig
	Admin    AdminConfig
	Risk     RiskConfig
	Log      LogConfig
}

// LLMConfig holds the language model configuration
type LLMConfig struct {
	Provider     string `mapstructure:"provider"`
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	Model        string `mapstructure:"model"`
	SystemPrompt string `mapstructure:"system_prompt"`
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// DatabaseConfig holds the persistence configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// AdminConfig holds the review dashboard credentials. An empty password
// disables the admin API group entirely.
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// RiskCategory is one named risk class and its trigger keywords.
// Declaration order in the config file is the classifier's scan order.
type RiskCategory struct {
	Name     string   `mapstructure:"name"`
	Keywords []string `mapstructure:"keywords"`
}

// RiskConfig holds the keyword table. When empty, the built-in defaults apply.
type RiskConfig struct {
	Categories []RiskCategory `mapstructure:"categories"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads the configuration from config.yaml (or the file named by
// CONFIG_PATH), with environment overrides for secrets.
func Load() (*Config, error) {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("database.path", "assistant.db")
	viper.SetDefault("log.level", "info")

	_ = viper.BindEnv("llm.api_key", "LLM_API_KEY")
	_ = viper.BindEnv("database.path", "DATABASE_PATH")
	_ = viper.BindEnv("admin.password", "ADMIN_PASSWORD")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the settings the engine cannot start without.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return errors.New("config: llm.api_key is required")
	}
	if c.Database.Path == "" {
		return errors.New("config: database.path is required")
	}
	return nil
}
