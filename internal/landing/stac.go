package landing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// The federal geodata portals publish dataset releases as STAC collections.
// Each item carries a datetime and a set of downloadable assets; the item
// datetime becomes the landed file's version.

type stacItem struct {
	ID         string `json:"id"`
	Properties struct {
		Datetime string `json:"datetime"`
	} `json:"properties"`
	Assets map[string]stacAsset `json:"assets"`
}

type stacAsset struct {
	Href string `json:"href"`
	Type string `json:"type"`
}

type stacItemList struct {
	Features []stacItem `json:"features"`
}

// ResolvedAsset is a downloadable asset with its release version.
type ResolvedAsset struct {
	URL     string
	Version string
}

// ResolveAsset queries a STAC items endpoint and returns the newest asset
// whose key matches assetKey.
func ResolveAsset(ctx context.Context, client *http.Client, itemsURL, assetKey string) (*ResolvedAsset, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, itemsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stac query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stac query HTTP %d for %s", resp.StatusCode, itemsURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("stac read: %w", err)
	}

	var list stacItemList
	if err := json.Unmarshal(body, &list); err != nil {
		// Endpoint may serve a single item instead of a feature collection
		var single stacItem
		if err2 := json.Unmarshal(body, &single); err2 != nil {
			return nil, fmt.Errorf("stac parse: %w", err)
		}
		list.Features = []stacItem{single}
	}

	var best *ResolvedAsset
	for _, item := range list.Features {
		asset, ok := item.Assets[assetKey]
		if !ok {
			continue
		}

		t, err := time.Parse(time.RFC3339, item.Properties.Datetime)
		if err != nil {
			continue
		}
		version := FormatVersion(t)

		if best == nil || version > best.Version {
			best = &ResolvedAsset{URL: asset.Href, Version: version}
		}
	}

	if best == nil {
		return nil, fmt.Errorf("no asset %q in %s", assetKey, itemsURL)
	}
	return best, nil
}
