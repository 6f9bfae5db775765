// Package state owns the per-project TOML file that records the Godot
// version, every registered asset, and the folder each installed asset
// occupies under addons/. The Store is an explicit instance: it is loaded
// once, persisted after every mutation, and never reloaded implicitly.
package state
