// Package archive reads addon zip archives, locates the addon root inside
// them regardless of how many wrapping folders the author added, and
// extracts only that payload into a project's addons directory.
package archive
