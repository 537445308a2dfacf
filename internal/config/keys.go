package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// field binds one (section, key) pair to a Config field.
type field struct {
	get func(c *Config) string
	set func(c *Config, value string) error
}

// fields is the registry behind Read and Set.
// Section and key names match the YAML config file and the
// DARKLIGHT_<SECTION>_<KEY> environment variables.
var fields = map[string]map[string]field{
	"tor": {
		"enabled":         boolField(func(c *Config) *bool { return &c.TorEnabled }),
		"proxy_address":   stringField(func(c *Config) *string { return &c.TorProxyAddress }),
		"startup_timeout": durationField(func(c *Config) *time.Duration { return &c.TorStartupTimeout }),
		"port_timeout":    durationField(func(c *Config) *time.Duration { return &c.PortTimeout }),
		"port_workers":    intField(func(c *Config) *int { return &c.PortWorkers }),
	},
	"browser": {
		"timeout":            durationField(func(c *Config) *time.Duration { return &c.BrowserTimeout }),
		"path":               stringField(func(c *Config) *string { return &c.BrowserPath }),
		"user_agent":         stringField(func(c *Config) *string { return &c.UserAgent }),
		"screenshot_quality": intField(func(c *Config) *int { return &c.ScreenshotQuality }),
	},
	"storage": {
		"bucket_name":           stringField(func(c *Config) *string { return &c.BucketName }),
		"region_name":           stringField(func(c *Config) *string { return &c.RegionName }),
		"aws_access_key_id":     stringField(func(c *Config) *string { return &c.AccessKeyID }),
		"aws_secret_access_key": stringField(func(c *Config) *string { return &c.SecretAccessKey }),
		"endpoint_url":          stringField(func(c *Config) *string { return &c.EndpointURL }),
		"dir":                   stringField(func(c *Config) *string { return &c.ArtifactDir }),
	},
	"database": {
		"url": stringField(func(c *Config) *string { return &c.DatabaseURL }),
	},
	"index": {
		"dir": stringField(func(c *Config) *string { return &c.IndexDir }),
	},
	"redis": {
		"addr":     stringField(func(c *Config) *string { return &c.RedisAddr }),
		"password": stringField(func(c *Config) *string { return &c.RedisPassword }),
		"db":       intField(func(c *Config) *int { return &c.RedisDB }),
	},
	"pipeline": {
		"enabled": listField(func(c *Config) *[]string { return &c.EnabledStages }),
	},
	"server": {
		"listen_addr": stringField(func(c *Config) *string { return &c.ListenAddr }),
		"batch_size":  intField(func(c *Config) *int { return &c.BatchSize }),
	},
}

// Read returns the string form of the value stored under (section, key).
// Unknown keys read as the empty string; use Lookup to tell them apart.
func (c *Config) Read(section, key string) string {
	v, _ := c.Lookup(section, key) //nolint:errcheck // unknown keys read as ""
	return v
}

// Lookup is like Read but reports unknown keys with ErrUnknownKey.
func (c *Config) Lookup(section, key string) (string, error) {
	f, err := lookupField(section, key)
	if err != nil {
		return "", err
	}
	return f.get(c), nil
}

// Set parses value and stores it under (section, key).
func (c *Config) Set(section, key, value string) error {
	f, err := lookupField(section, key)
	if err != nil {
		return err
	}
	if err := f.set(c, value); err != nil {
		return fmt.Errorf("%s.%s: %w", section, key, err)
	}
	return nil
}

// Keys returns every known "section.key" name, sorted.
func Keys() []string {
	keys := make([]string, 0)
	for section, entries := range fields {
		for key := range entries {
			keys = append(keys, section+"."+key)
		}
	}
	sort.Strings(keys)
	return keys
}

func lookupField(section, key string) (field, error) {
	entries, ok := fields[strings.ToLower(section)]
	if !ok {
		return field{}, fmt.Errorf("%w: %s.%s", ErrUnknownKey, section, key)
	}
	f, ok := entries[strings.ToLower(key)]
	if !ok {
		return field{}, fmt.Errorf("%w: %s.%s", ErrUnknownKey, section, key)
	}
	return f, nil
}

func stringField(ptr func(*Config) *string) field {
	return field{
		get: func(c *Config) string { return *ptr(c) },
		set: func(c *Config, v string) error {
			*ptr(c) = v
			return nil
		},
	}
}

func intField(ptr func(*Config) *int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*ptr(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return err
			}
			*ptr(c) = n
			return nil
		},
	}
}

func boolField(ptr func(*Config) *bool) field {
	return field{
		get: func(c *Config) string { return strconv.FormatBool(*ptr(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return err
			}
			*ptr(c) = b
			return nil
		},
	}
}

func durationField(ptr func(*Config) *time.Duration) field {
	return field{
		get: func(c *Config) string { return ptr(c).String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				return err
			}
			*ptr(c) = d
			return nil
		},
	}
}

// listField stores comma-separated values.
func listField(ptr func(*Config) *[]string) field {
	return field{
		get: func(c *Config) string { return strings.Join(*ptr(c), ",") },
		set: func(c *Config, v string) error {
			items := make([]string, 0)
			for _, item := range strings.Split(v, ",") {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, item)
				}
			}
			*ptr(c) = items
			return nil
		},
	}
}
