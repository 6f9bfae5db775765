package library

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/addonctl/addonctl/internal/errs"
	"github.com/addonctl/addonctl/internal/state"
)

var (
	// ErrInvalidID means an asset id is not a positive integer.
	ErrInvalidID = errors.New("asset id must be a positive integer")
	// ErrNoMatch means a search by name found nothing.
	ErrNoMatch = errors.New("no asset matches")
)

// ID is an asset id. The API sends it as a JSON string, older mirrors as a
// number; both decode.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("asset_id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// SearchResult is one row of a search response.
type SearchResult struct {
	ID    ID     `json:"asset_id"`
	Title string `json:"title"`
}

type searchResponse struct {
	Result []SearchResult `json:"result"`
}

type assetResponse struct {
	ID          ID     `json:"asset_id"`
	Title       string `json:"title"`
	DownloadURL string `json:"download_url"`
}

// AmbiguousError means a name matched more than one asset.
type AmbiguousError struct {
	Name       string
	Candidates []SearchResult
}

func (e *AmbiguousError) Error() string {
	parts := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		parts[i] = fmt.Sprintf("%s (%s)", c.ID, c.Title)
	}
	return fmt.Sprintf("%q matches %d assets: %s", e.Name, len(e.Candidates), strings.Join(parts, ", "))
}

// ValidateID checks that id is a positive integer.
func ValidateID(id string) error {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n == 0 {
		return errs.E(errs.KindNotFound, fmt.Sprintf("asset %q", id), ErrInvalidID)
	}
	return nil
}

// Search lists assets whose title matches name for the given engine
// version. A nil version searches across all versions.
func (c *Client) Search(ctx context.Context, name string, godotVersion *semver.Version) ([]SearchResult, error) {
	q := url.Values{}
	q.Set("filter", name)
	if godotVersion != nil {
		q.Set("godot_version", fmt.Sprintf("%d.%d", godotVersion.Major(), godotVersion.Minor()))
	}

	var resp searchResponse
	if err := c.getJSON(ctx, c.baseURL+"/asset?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("searching for %q: %w", name, err)
	}
	return resp.Result, nil
}

// Asset fetches the metadata needed to register id.
func (c *Client) Asset(ctx context.Context, id string) (state.Asset, error) {
	if err := ValidateID(id); err != nil {
		return state.Asset{}, err
	}

	var resp assetResponse
	if err := c.getJSON(ctx, c.baseURL+"/asset/"+id, &resp); err != nil {
		return state.Asset{}, fmt.Errorf("fetching asset %s: %w", id, err)
	}

	a := state.Asset{ID: string(resp.ID), Title: resp.Title, DownloadURL: resp.DownloadURL}
	if a.ID == "" {
		a.ID = id
	}
	return a, nil
}

// Resolve looks up name and returns the single matching asset. It refuses to
// guess: zero matches yields ErrNoMatch and several an *AmbiguousError.
func (c *Client) Resolve(ctx context.Context, name string, godotVersion *semver.Version) (state.Asset, error) {
	results, err := c.Search(ctx, name, godotVersion)
	if err != nil {
		return state.Asset{}, err
	}

	switch len(results) {
	case 0:
		return state.Asset{}, errs.E(errs.KindNotFound, fmt.Sprintf("resolving %q", name), ErrNoMatch)
	case 1:
		return c.Asset(ctx, string(results[0].ID))
	default:
		return state.Asset{}, errs.E(errs.KindConflict, "resolving", &AmbiguousError{Name: name, Candidates: results})
	}
}
