package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file name looked up in the current directory.
const DefaultConfigFile = ".darklight.yaml"

// EnvPrefix prefixes environment variable overrides,
// e.g. DARKLIGHT_STORAGE_BUCKET_NAME.
const EnvPrefix = "DARKLIGHT"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the parsed YAML config file: section -> key -> value.
//
//	tor:
//	  proxy_address: 127.0.0.1:9050
//	storage:
//	  bucket_name: darklight-screenshots
//	pipeline:
//	  enabled: [domain, email]
type File map[string]map[string]interface{}

// LoadConfigFile parses the YAML file at path.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if f == nil {
		f = make(File)
	}
	return f, nil
}

// Apply copies every value of the file into c.
// Sequences are joined with commas so list keys accept either form.
func (f File) Apply(c *Config) error {
	sections := make([]string, 0, len(f))
	for s := range f {
		sections = append(sections, s)
	}
	sort.Strings(sections)

	for _, section := range sections {
		for key, raw := range f[section] {
			if err := c.Set(section, key, stringify(raw)); err != nil {
				return err
			}
		}
	}
	return nil
}

func stringify(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case []interface{}:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}

// ApplyEnv overrides c with DARKLIGHT_<SECTION>_<KEY> variables.
// lookup is usually os.LookupEnv; tests pass a map-backed function.
func ApplyEnv(c *Config, lookup func(string) (string, bool)) error {
	for _, name := range Keys() {
		section, key, _ := strings.Cut(name, ".")
		env := EnvName(section, key)
		value, ok := lookup(env)
		if !ok {
			continue
		}
		if err := c.Set(section, key, value); err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
	}
	return nil
}

// EnvName returns the environment variable that overrides (section, key).
func EnvName(section, key string) string {
	return EnvPrefix + "_" + strings.ToUpper(section) + "_" + strings.ToUpper(key)
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .darklight.yaml in the current directory
// 3. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	xdgConfig := filepath.Join(XDGConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}

// Load builds a Config from defaults, the config file and the environment.
// An explicit configPath that does not exist is an error; a missing
// default config file is not.
func Load(configPath string) (*Config, error) {
	cfg := NewConfig()
	cfg.ConfigFilePath = configPath

	path := FindConfigFile(configPath)
	switch {
	case path != "":
		f, err := LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		if err := f.Apply(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
		cfg.ConfigFilePath = path
	case configPath != "":
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	}

	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}
