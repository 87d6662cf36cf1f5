package config

const (
	defaultListen = ":8080"

	defaultStorageBackend  = "memory"
	defaultStorageDatabase = "synaptide"
	defaultStorageFallback = true

	defaultLLMBaseURL = "https://api.openai.com/v1"
	defaultLLMModel   = "gpt-4o"

	defaultEventsBackend = "none"
	defaultEventsTopic   = "synaptide.exchanges"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen: defaultListen,
		},
		Storage: StorageConfig{
			Backend:  defaultStorageBackend,
			Database: defaultStorageDatabase,
			Fallback: defaultStorageFallback,
		},
		LLM: LLMConfig{
			BaseURL: defaultLLMBaseURL,
			Model:   defaultLLMModel,
		},
		Events: EventsConfig{
			Backend: defaultEventsBackend,
			Topic:   defaultEventsTopic,
		},
	}
}
