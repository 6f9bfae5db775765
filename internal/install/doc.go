// Package install runs the addon install pipeline. Every pending asset is an
// independent unit that moves through fetching, locating, registering and
// extracting; units run concurrently and report progress through a Reporter.
package install
