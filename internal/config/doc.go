// Package config defines the updater settings and provides helpers to load,
// validate and save them in YAML format.
//
// A missing settings file is not an error: Default values mirror the
// unattended winget upgrade the tool was written for.
package config
