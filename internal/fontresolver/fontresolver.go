// Package fontresolver implements the font-list CDN resolver (C8): it
// downloads one face's font asset from the Roblox asset delivery endpoint,
// retrying with exponential backoff, and returns the payload bytes;
// deciding whether the payload is new content is left to the caller.
package fontresolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"rbxcache/internal/constants"
	"rbxcache/internal/logger"
)

// HTTPClient is the subset of *http.Client the resolver needs, so tests
// can substitute a fake transport without a real network call.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Resolver fetches font asset payloads from the CDN with a per-face retry
// budget. The zero value is not usable; construct with New.
type Resolver struct {
	Client     HTTPClient
	Log        *logger.Logger
	UserAgent  string
	MaxRetries int
	BaseWait   time.Duration
}

// New returns a Resolver configured with the spec's default retry budget
// (3 attempts, 1s exponential backoff).
func New(client HTTPClient, log *logger.Logger, userAgent string) *Resolver {
	return &Resolver{
		Client:     client,
		Log:        log,
		UserAgent:  userAgent,
		MaxRetries: constants.FontAssetMaxRetries,
		BaseWait:   constants.FontAssetRetryBaseWait,
	}
}

// Resolve downloads the asset identified by assetIDNum, retrying network
// errors and non-2xx responses with exponential backoff for at most
// r.MaxRetries attempts in total (the first request plus r.MaxRetries-1
// retries). The retry budget is per face: a fresh backoff clock starts on
// every call.
func (r *Resolver) Resolve(ctx context.Context, assetIDNum string) ([]byte, error) {
	url := fmt.Sprintf(constants.FontAssetDeliveryURLFmt, assetIDNum)

	var payload []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if r.UserAgent != "" {
			req.Header.Set("User-Agent", r.UserAgent)
		}

		resp, err := r.Client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("fontresolver: asset %s: status %d", assetIDNum, resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		payload = body
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.BaseWait
	bo := backoff.WithMaxRetries(eb, uint64(r.MaxRetries-1))

	var attempt int
	notify := func(err error, wait time.Duration) {
		attempt++
		if r.Log != nil {
			r.Log.Warn("font asset %s attempt %d failed: %v (retrying in %s)", assetIDNum, attempt, err, wait)
		}
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(bo, ctx), notify); err != nil {
		return nil, err
	}
	return payload, nil
}
