package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/plmap/pkg/dialect"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "plmap.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "plmap.yml"

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "PLMAP_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// findConfigFile finds the config file in the given directory.
// Returns empty string if not found.
func findConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// FindProjectRoot walks up from startDir to find a directory containing
// plmap.yaml or plmap.yml. Returns empty string if not found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if findConfigFile(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return ""
		}
		dir = parent
	}
	return ""
}

// Result is a loaded configuration and the file it came from, if any.
type Result struct {
	Config   *Config
	FileUsed string
}

// Load loads configuration. Precedence (highest to lowest):
// flags > env vars > config file > defaults.
//
// When cfgFile is empty the project root is found by searching upward from
// the working directory; relative paths are resolved against it.
func Load(cfgFile string, flags *pflag.FlagSet) (*Result, error) {
	k := koanf.New(".")

	// 1. Load defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	projectRoot := ""
	if cfgFile != "" {
		abs, err := filepath.Abs(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("invalid config path %s: %w", cfgFile, err)
		}
		cfgFile = abs
		projectRoot = filepath.Dir(abs)
	} else if cwd, err := os.Getwd(); err == nil {
		projectRoot = FindProjectRoot(cwd)
		if projectRoot != "" {
			cfgFile = findConfigFile(projectRoot)
		} else {
			projectRoot = cwd
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. Load environment variables (PLMAP_ prefix)
	// Transform: PLMAP_GRAPH_MAX_DEPTH -> graph.max_depth
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key := flagKey(f.Name)
			if !f.Changed || key == "" {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.ProjectRoot = projectRoot
	cfg.Root = resolvePathRelativeTo(cfg.Root, projectRoot)
	if cfg.StatePath != ":memory:" {
		cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, projectRoot)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Result{Config: &cfg, FileUsed: cfgFile}, nil
}

// envKey maps PLMAP_STATE_PATH to state_path and PLMAP_CHUNKS_MAX_BATCH_TOKENS
// to chunks.max_batch_tokens.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range []string{"graph_", "chunks_"} {
		if strings.HasPrefix(key, section) {
			return strings.TrimSuffix(section, "_") + "." + strings.TrimPrefix(key, section)
		}
	}
	return key
}

// flagKey maps a flag name to its config key, or "" for flags that are not
// configuration.
func flagKey(name string) string {
	switch name {
	case "config", "help", "version":
		return ""
	case "state":
		return "state_path"
	case "max-depth":
		return "graph.max_depth"
	case "max-batch-tokens":
		return "chunks.max_batch_tokens"
	}
	return strings.ReplaceAll(name, "-", "_")
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := dialect.Lookup(c.Dialect); err != nil {
		return fmt.Errorf("invalid dialect: %w", err)
	}
	if !oneOf(c.OutputFormat, outputFormats) {
		return fmt.Errorf("invalid output %q (want %s)", c.OutputFormat, strings.Join(outputFormats, ", "))
	}
	if !oneOf(c.LogLevel, logLevels) {
		return fmt.Errorf("invalid log_level %q (want %s)", c.LogLevel, strings.Join(logLevels, ", "))
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("sources must name at least one pattern")
	}
	if c.Chunks.CharsPerToken <= 0 {
		return fmt.Errorf("chunks.chars_per_token must be positive, got %d", c.Chunks.CharsPerToken)
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}
