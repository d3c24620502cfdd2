// Package config handles jbridge configuration using Viper.
//
// Values come from, in increasing precedence: built-in defaults, a config
// file (jbridge.toml, .yaml or .json in the working directory or the user
// config directory, or an explicit path), and JBRIDGE_* environment
// variables. Nested keys map to environment names with "." replaced by "_",
// so guard.deny_packages is read from JBRIDGE_GUARD_DENY_PACKAGES.
package config
