// Package config loads specql settings.
//
// Precedence (highest to lowest): changed flags > SPECQL_* environment
// variables > specql.yaml > defaults.
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

	"github.com/roach88/specql/internal/ir"
	"github.com/roach88/specql/internal/querysql"
)

// Defaults.
const (
	DefaultDialect   = "ansi"
	DefaultFormat    = "text"
	DefaultStorePath = ".specql/catalog.db"
	EnvPrefix        = "SPECQL_"
)

// configFileNames are searched in the working directory when no file is given.
var configFileNames = []string{"specql.yaml", "specql.yml"}

// Config holds the resolved settings.
type Config struct {
	Schema    string           `koanf:"schema"`     // Path to the table definitions
	Dialect   string           `koanf:"dialect"`    // Renderer dialect
	Strict    bool             `koanf:"strict"`     // Unknown parent/join ids are errors
	StorePath string           `koanf:"store_path"` // Saved-query catalog
	Format    string           `koanf:"format"`     // text | json
	Verbose   bool             `koanf:"verbose"`
	Functions []FunctionConfig `koanf:"functions"` // Registered at startup

	// ConfigFile is the file that was loaded, if any.
	ConfigFile string `koanf:"-"`
}

// FunctionConfig declares a custom function.
//
//	functions:
//	  - id: cents
//	    name: ROUND
//	    args: [_, 2]
type FunctionConfig struct {
	ID   string `koanf:"id"`
	Name string `koanf:"name"`
	Args []any  `koanf:"args"`
}

// Prefill converts the declared args into prefilled function arguments.
func (f FunctionConfig) Prefill() ([]ir.IRValue, error) {
	out := make([]ir.IRValue, len(f.Args))
	for i, a := range f.Args {
		v, err := ir.FromAny(a)
		if err != nil {
			return nil, fmt.Errorf("function %q args[%d]: %w", f.ID, i, err)
		}
		out[i] = v
	}
	return out, nil
}

// findConfigFile returns the explicit path, else the first config file
// present in the working directory.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range configFileNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load resolves the configuration. cfgFile may be empty; flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"dialect":    DefaultDialect,
		"format":     DefaultFormat,
		"store_path": DefaultStorePath,
		"strict":     false,
		"verbose":    false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment: SPECQL_STORE_PATH -> store_path
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags that were explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			// --store is short for store_path
			if key == "store" {
				return "store_path", posflag.FlagVal(flags, f)
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ConfigFile = used

	// Paths not given on the command line or in the environment are
	// relative to the config file
	if used != "" {
		base := filepath.Dir(used)
		if !changedOrEnv(flags, "schema") {
			cfg.Schema = resolvePathRelativeTo(cfg.Schema, base)
		}
		if !changedOrEnv(flags, "store") {
			cfg.StorePath = resolvePathRelativeTo(cfg.StorePath, base)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// changedOrEnv reports whether the value for flag came from the command
// line or the environment rather than the config file.
func changedOrEnv(flags *pflag.FlagSet, flag string) bool {
	if flags != nil && flags.Changed(flag) {
		return true
	}
	key := flag
	if flag == "store" {
		key = "store_path"
	}
	_, ok := os.LookupEnv(EnvPrefix + strings.ToUpper(key))
	return ok
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if _, err := querysql.DialectByName(c.Dialect); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Format != "text" && c.Format != "json" {
		return fmt.Errorf("invalid config: format must be text or json, got %q", c.Format)
	}
	for i, f := range c.Functions {
		if f.ID == "" {
			return fmt.Errorf("invalid config: functions[%d] needs an id", i)
		}
	}
	return nil
}

// SQLDialect returns the configured dialect.
func (c *Config) SQLDialect() querysql.Dialect {
	d, _ := querysql.DialectByName(c.Dialect)
	return d
}
