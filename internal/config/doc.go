// Package config provides configuration structures and utilities for darklight.
//
// Values come from, in increasing priority: NewConfig defaults, a YAML file
// (.darklight.yaml or $XDG_CONFIG_HOME/darklight/config.yaml), environment
// variables named DARKLIGHT_<SECTION>_<KEY>, and CLI flags. Every value is
// addressable as (section, key) through Config.Read and Config.Set.
package config
