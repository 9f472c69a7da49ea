// ABOUTME: Application configuration package
// ABOUTME: YAML config file, exclusive-mode store and logger setup
// Package config loads the player's YAML configuration and sets up logging.
package config
