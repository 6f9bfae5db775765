// Package library is a client for the Godot Asset Library API. It searches
// assets by name, fetches the metadata needed to register an asset, and
// downloads archives. Network errors, 429 and 5xx responses are retried with
// exponential backoff; other 4xx responses fail immediately.
package library
