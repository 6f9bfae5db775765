// Package project locates the pieces of a Godot project that addonctl
// touches: project.godot for the engine version, the addons/ directory,
// the state file, the archive cache, and addons/.gitignore.
package project
