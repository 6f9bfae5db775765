// Package cli defines the Cobra command tree for the addonctl CLI. Each file
// in this package registers one top-level command (init, add, install, etc.)
// with the root command. Commands delegate to internal packages for the work
// and only handle flag parsing, output formatting, and exit status.
package cli
