// Package config defines the application configuration structure and
// loading logic. Configuration is read once at startup from environment
// variables (GOALFORGE_ prefix) and an optional config file, validated
// eagerly, and passed explicitly into components.
package config
