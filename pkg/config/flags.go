package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands.
type Flag struct {
	// Name is the long flag name (e.g. "listen").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "server.listen").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag and BindRegisteredFlags
// to avoid typos or drift from one command to another.
const (
	FlagListen         = "listen"
	FlagStorageBackend = "storage-backend"
	FlagMongoURI       = "mongo-uri"
	FlagDatabase       = "database"
	FlagLLMBaseURL     = "llm-base-url"
	FlagLLMModel       = "llm-model"
	FlagEventsBackend  = "events-backend"
	FlagKafkaBrokers   = "kafka-brokers"
	FlagKafkaTopic     = "kafka-topic"
)

// ServeFlags is the flag registry for the serve command.
var ServeFlags = FlagSet{
	FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "server.listen",
		Description: "address the API server listens on",
	},
	FlagStorageBackend: {
		Name:        "storage-backend",
		ViperKey:    "storage.backend",
		Description: "storage backend (memory or mongo)",
	},
	FlagMongoURI: {
		Name:        "mongo-uri",
		ViperKey:    "storage.mongo_uri",
		Description: "connection string for the mongo backend",
	},
	FlagDatabase: {
		Name:        "database",
		ViperKey:    "storage.database",
		Description: "database name for the mongo backend",
	},
	FlagLLMBaseURL: {
		Name:        "llm-base-url",
		ViperKey:    "llm.base_url",
		Description: "base URL of the chat-completions API",
	},
	FlagLLMModel: {
		Name:        "llm-model",
		ViperKey:    "llm.model",
		Description: "model used for replies and preference analysis",
	},
	FlagEventsBackend: {
		Name:        "events-backend",
		ViperKey:    "events.backend",
		Description: "event stream backend (none or kafka)",
	},
	FlagKafkaBrokers: {
		Name:        "kafka-brokers",
		ViperKey:    "events.brokers",
		Description: "comma-separated Kafka bootstrap brokers",
	},
	FlagKafkaTopic: {
		Name:        "kafka-topic",
		ViperKey:    "events.topic",
		Description: "Kafka topic for exchange events",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddStringSliceFlag registers a string slice flag on cmd from the given FlagSet.
func AddStringSliceFlag(cmd *cobra.Command, fs FlagSet, key string, target *[]string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultStringSlice(def.ViperKey)
	cmd.Flags().StringSliceVar(target, def.Name, defaultVal, def.Description)
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultStringSlice returns the default slice value for a viper key from NewDefaultConfig.
func defaultStringSlice(viperKey string) []string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetStringSlice(viperKey)
}
