package main

import (
	"net/http"
	"time"
)

// httpDoer adapts *http.Client to fontresolver.HTTPClient with a fixed
// per-request timeout.
type httpDoer struct {
	timeout time.Duration
	client  *http.Client
}

func (d *httpDoer) Do(req *http.Request) (*http.Response, error) {
	if d.client == nil {
		d.client = &http.Client{Timeout: d.timeout}
	}
	return d.client.Do(req)
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
