package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads config.toml from the
// given directory (if non-empty), and binds environment variables with
// the SYNAPTIDE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (SYNAPTIDE_SERVER_LISTEN, SYNAPTIDE_STORAGE_MONGO_URI, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	if configDir != "" {
		v.AddConfigPath(configDir)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: SYNAPTIDE_SERVER_LISTEN, SYNAPTIDE_LLM_API_KEY, etc.
	v.SetEnvPrefix("SYNAPTIDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes a Config from the resolved viper state.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Listen: v.GetString("server.listen"),
		},
		Storage: StorageConfig{
			Backend:  v.GetString("storage.backend"),
			MongoURI: v.GetString("storage.mongo_uri"),
			Database: v.GetString("storage.database"),
			Fallback: v.GetBool("storage.fallback"),
		},
		LLM: LLMConfig{
			BaseURL: v.GetString("llm.base_url"),
			APIKey:  v.GetString("llm.api_key"),
			Model:   v.GetString("llm.model"),
		},
		Events: EventsConfig{
			Backend: v.GetString("events.backend"),
			Brokers: v.GetStringSlice("events.brokers"),
			Topic:   v.GetString("events.topic"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	// Server
	v.SetDefault("server.listen", d.Server.Listen)

	// Storage
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.mongo_uri", d.Storage.MongoURI)
	v.SetDefault("storage.database", d.Storage.Database)
	v.SetDefault("storage.fallback", d.Storage.Fallback)

	// LLM
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.model", d.LLM.Model)

	// Events
	v.SetDefault("events.backend", d.Events.Backend)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)
}
