// Package config resolves runtime configuration from defaults, a config
// file, environment variables, and CLI flags.
package config

// Config represents the full runtime configuration. The TOML layout uses
// sections for logical grouping.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	LLM     LLMConfig     `toml:"llm"`
	Events  EventsConfig  `toml:"events"`
}

// ServerConfig holds HTTP API server settings.
type ServerConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// StorageConfig holds storage backend settings shared by all components.
type StorageConfig struct {
	// Backend selects the storage driver: "memory" or "mongo".
	Backend string `toml:"backend,omitempty"`

	// MongoURI is the connection string for the mongo backend.
	MongoURI string `toml:"mongo_uri,omitempty"`

	// Database is the database name for the mongo backend.
	Database string `toml:"database,omitempty"`

	// Fallback enables falling back to the in-memory backend when the
	// configured backend cannot be reached at startup.
	Fallback bool `toml:"fallback,omitempty"`
}

// LLMConfig holds chat-completions provider settings.
type LLMConfig struct {
	BaseURL string `toml:"base_url,omitempty"`
	APIKey  string `toml:"api_key,omitempty"`
	Model   string `toml:"model,omitempty"`
}

// EventsConfig holds event stream settings.
type EventsConfig struct {
	// Backend selects the publisher: "none" or "kafka".
	Backend string `toml:"backend,omitempty"`

	// Brokers is the list of Kafka bootstrap broker addresses.
	Brokers []string `toml:"brokers,omitempty"`

	// Topic is the Kafka topic exchange events are published to.
	Topic string `toml:"topic,omitempty"`
}
