// Package config loads plmap configuration from defaults, plmap.yaml,
// PLMAP_* environment variables and command-line flags.
package config

// Config holds all configuration options.
type Config struct {
	ProjectRoot  string       `koanf:"-"`
	Root         string       `koanf:"root"`
	Sources      []string     `koanf:"sources"`
	Dialect      string       `koanf:"dialect"`
	Workers      int          `koanf:"workers"`
	StatePath    string       `koanf:"state_path"`
	OutputFormat string       `koanf:"output"`
	Verbose      bool         `koanf:"verbose"`
	LogLevel     string       `koanf:"log_level"`
	Graph        GraphConfig  `koanf:"graph"`
	Chunks       ChunksConfig `koanf:"chunks"`
}

// GraphConfig holds dependency graph query settings.
type GraphConfig struct {
	// MaxDepth bounds closure queries; zero is unbounded
	MaxDepth int `koanf:"max_depth"`
}

// ChunksConfig holds chunk batching settings.
type ChunksConfig struct {
	MaxBatchTokens int `koanf:"max_batch_tokens"`
	CharsPerToken  int `koanf:"chars_per_token"`
}
