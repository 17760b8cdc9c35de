// Package netfetch implements the plain HTTP GET used by the HLS
// assembler to retrieve media playlists and segments. Retry policy lives
// one layer up in internal/assets.VideoProcessor; this package only
// performs the request.
package netfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"rbxcache/internal/constants"
)

// Fetcher implements assets.SegmentFetcher over a real HTTP client.
type Fetcher struct {
	Client    *http.Client
	UserAgent string
}

// New returns a Fetcher with the spec's default network timeout.
func New(userAgent string) *Fetcher {
	return &Fetcher{
		Client:    &http.Client{Timeout: constants.NetworkGETTimeout},
		UserAgent: userAgent,
	}
}

// Get performs one GET request and returns the response body.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("netfetch: %s: status %d", url, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
