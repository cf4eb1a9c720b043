package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/JonMunkholm/paraprep/internal/logging"
)

// EnvPrefix prefixes every environment variable the loader reads, except
// the alternates named by envAlt tags.
const EnvPrefix = "PARAPREP_"

// EnvConfigFile names the configuration file when --config is not given.
const EnvConfigFile = EnvPrefix + "CONFIG"

// defaultFiles are looked up in the working directory when no file is named.
var defaultFiles = []string{"paraprep.yaml", "paraprep.yml"}

// flagKeys maps command line flag names to configuration keys. Flags not
// listed here are never read into the configuration.
var flagKeys = map[string]string{
	"data-dir":   "data_dir",
	"recipe":     "recipe",
	"raw":        "raw_file",
	"reference":  "reference_file",
	"output":     "output_file",
	"inspect":    "inspect",
	"sqlite":     "store.sqlite",
	"postgres":   "store.postgres_url",
	"table":      "store.table",
	"host":       "server.host",
	"port":       "server.port",
	"max-upload": "server.max_upload_bytes",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// field describes one configurable leaf of Config.
type field struct {
	key        string
	env        string
	envAlt     string
	defaultVal string
	list       bool
}

// Load reads configuration from defaults, the YAML file at path (or
// $PARAPREP_CONFIG, or paraprep.yaml in the working directory), environment
// variables and the changed flags of fs. fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	fields := collect(reflect.TypeOf(Config{}), "")

	// 1. Defaults
	defaults := make(map[string]any)
	for _, f := range fields {
		if f.defaultVal != "" {
			defaults[f.key] = f.defaultVal
		}
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("config load defaults: %w", err)
	}

	// 2. File
	used := findConfigFile(path)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config read %s: %w", used, err)
		}
	}

	// 3. Environment. Alternates load first so the primary name wins.
	primary := make(map[string]field, len(fields))
	alternate := make(map[string]field)
	for _, f := range fields {
		if f.env != "" {
			primary[f.env] = f
		}
		if f.envAlt != "" {
			alternate[f.envAlt] = f
		}
	}
	for _, names := range []map[string]field{alternate, primary} {
		if err := k.Load(env.ProviderWithValue("", ".", envCallback(names)), nil); err != nil {
			return nil, fmt.Errorf("config load env: %w", err)
		}
	}

	// 4. Flags
	if fs != nil {
		if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("config load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	cfg.File = used

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

// envCallback keeps only the variables named in names, keyed by their
// configuration key. Empty values are treated as unset. List fields are
// split on commas.
func envCallback(names map[string]field) func(string, string) (string, interface{}) {
	return func(name, value string) (string, interface{}) {
		f, ok := names[name]
		if !ok || value == "" {
			return "", nil
		}
		if f.list {
			return f.key, splitList(value)
		}
		return f.key, value
	}
}

// splitList splits comma-separated values, trimming whitespace and
// dropping empty entries.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// findConfigFile picks the file to load: explicit path, then
// $PARAPREP_CONFIG, then the first default file present.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if v := os.Getenv(EnvConfigFile); v != "" {
		return v
	}
	for _, name := range defaultFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// collect walks t and returns every tagged leaf with its dotted key.
func collect(t reflect.Type, prefix string) []field {
	var out []field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Tag.Get("koanf")
		if name == "" || name == "-" {
			continue
		}
		key := prefix + name

		// Recurse into nested structs
		if sf.Type.Kind() == reflect.Struct && sf.Type != reflect.TypeOf(time.Time{}) {
			out = append(out, collect(sf.Type, key+".")...)
			continue
		}

		out = append(out, field{
			key:        key,
			env:        sf.Tag.Get("env"),
			envAlt:     sf.Tag.Get("envAlt"),
			defaultVal: sf.Tag.Get("default"),
			list:       sf.Type.Kind() == reflect.Slice,
		})
	}
	return out
}

// Validate checks that the configuration is usable.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if c.Recipe == "" {
		errs = append(errs, errors.New("recipe must not be empty"))
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, errors.New("server.read_timeout must be non-negative"))
	}
	if c.Server.WriteTimeout < 0 {
		errs = append(errs, errors.New("server.write_timeout must be non-negative"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("server.request_timeout must be positive"))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("server.max_upload_bytes must be positive"))
	}
	if c.Server.MaxConcurrentRuns < 0 {
		errs = append(errs, errors.New("server.max_concurrent_runs must be non-negative"))
	}
	if c.Server.RunWait < 0 {
		errs = append(errs, errors.New("server.run_wait must be non-negative"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit must be non-negative"))
	}

	// Logging validation
	if !logging.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("log.level (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	if !logging.ValidFormat(c.Logging.Format) {
		errs = append(errs, fmt.Errorf("log.format (%q) must be one of: text, json", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// String returns a representation of the config safe for logging.
// The PostgreSQL URL is masked.
func (c *Config) String() string {
	pg := ""
	if c.Store.PostgresURL != "" {
		pg = "[MASKED]"
	}
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "DataDir: %q, Recipe: %q, Inspect: %v, ", c.DataDir, c.Recipe, c.Inspect)
	fmt.Fprintf(&b, "Store: {SQLite: %q, PostgresURL: %q, Table: %q}, ", c.Store.SQLite, pg, c.Store.Table)
	fmt.Fprintf(&b, "Server: {Addr: %q, MaxUploadBytes: %d, Metrics: %v}, ", c.Server.Addr(), c.Server.MaxUploadBytes, c.Server.Metrics)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
