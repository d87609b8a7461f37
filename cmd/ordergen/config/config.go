// Package config builds the runtime configuration of the ordergen CLI
// from viper-backed settings (flags, environment, optional config file).
package config

import (
	"github.com/spf13/viper"

	"astob-order-generator/internal/pipeline"
	"astob-order-generator/internal/schema"
	"astob-order-generator/pkg/logger"
)

// CreateLoggerConfig builds the logger configuration. The verbose flag
// forces debug level; otherwise log-level and log-format settings apply
// on top of the defaults.
func CreateLoggerConfig(verbose bool) *logger.Config {
	config := logger.DefaultConfig()
	if verbose {
		config = logger.DebugConfig()
	}

	if level := viper.GetString("log-level"); level != "" && !verbose {
		config.Level = logger.Level(level)
	}
	if format := viper.GetString("log-format"); format != "" {
		config.Format = logger.Format(format)
	}

	return config
}

// CreateReferenceAliases returns the column aliases for the KEY reference
// table: the built-in synonyms, with any configured aliases taking
// priority.
func CreateReferenceAliases() schema.FieldAliases {
	return mergeAliases(schema.DefaultReferenceAliases(), "aliases.key")
}

// CreateTransactionAliases returns the column aliases for the ASTOB
// transaction log, with any configured aliases taking priority.
func CreateTransactionAliases() schema.FieldAliases {
	return mergeAliases(schema.DefaultTransactionAliases(), "aliases.astob")
}

// CreatePipelineOptions builds the pipeline options from the current
// configuration. The run date stays zero so the pipeline defaults to the
// current Bucharest time unless the caller overrides it.
func CreatePipelineOptions() pipeline.Options {
	return pipeline.Options{
		ReferenceAliases:   CreateReferenceAliases(),
		TransactionAliases: CreateTransactionAliases(),
	}
}

// mergeAliases prepends configured candidates to the defaults, per field.
// Configured names come first so they win over the built-in synonyms.
func mergeAliases(defaults schema.FieldAliases, key string) schema.FieldAliases {
	configured := viper.GetStringMapStringSlice(key)
	if len(configured) == 0 {
		return defaults
	}

	merged := defaults.Clone()
	for field, candidates := range configured {
		merged[field] = append(append([]string(nil), candidates...), merged[field]...)
	}
	return merged
}
