// Package config manages user-level settings stored at ~/.addonctl/config.yaml:
// the asset library URL, install concurrency, request retries, and logging
// options. Environment variables prefixed ADDONCTL_ override the file.
package config
