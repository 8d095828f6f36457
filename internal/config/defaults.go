package config

// Default configuration values.
const (
	DefaultRoot           = "."
	DefaultDialect        = "plsql"
	DefaultStateFile      = ".plmap/state.db"
	DefaultOutput         = "text"
	DefaultLogLevel       = "info"
	DefaultMaxBatchTokens = 5000
	DefaultCharsPerToken  = 4
)

// DefaultSources are the source globs used when none are configured.
var DefaultSources = []string{"**/*.sql", "**/*.pks", "**/*.pkb", "**/*.prc", "**/*.fnc", "**/*.trg"}

// Output formats.
var outputFormats = []string{"text", "json", "yaml", "markdown"}

// Log levels.
var logLevels = []string{"debug", "info", "warn", "error"}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"root":                    DefaultRoot,
		"sources":                 append([]string(nil), DefaultSources...),
		"dialect":                 DefaultDialect,
		"workers":                 0,
		"state_path":              DefaultStateFile,
		"output":                  DefaultOutput,
		"verbose":                 false,
		"log_level":               DefaultLogLevel,
		"graph.max_depth":         0,
		"chunks.max_batch_tokens": DefaultMaxBatchTokens,
		"chunks.chars_per_token":  DefaultCharsPerToken,
	}
}

// Default returns the configuration used when nothing is loaded.
func Default() *Config {
	return &Config{
		Root:         DefaultRoot,
		Sources:      append([]string(nil), DefaultSources...),
		Dialect:      DefaultDialect,
		StatePath:    DefaultStateFile,
		OutputFormat: DefaultOutput,
		LogLevel:     DefaultLogLevel,
		Chunks: ChunksConfig{
			MaxBatchTokens: DefaultMaxBatchTokens,
			CharsPerToken:  DefaultCharsPerToken,
		},
	}
}
