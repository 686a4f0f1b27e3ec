package backend

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/hyperifyio/deepresearch/internal/cache"
)

// NewHTTPClient builds an http.Client tuned for a single backend adapter:
// large per-host connection pool (adapters are long-lived for the whole
// pipeline run), a short dial/TLS timeout, and an overall request timeout
// sized per the backend's expected response latency (connect=10s is fixed;
// readTimeout varies: 180s for SearchOnly and Reference, 300s for
// SearchAndCrawl, which fetches full pages itself).
func NewHTTPClient(readTimeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          0,
		MaxIdleConnsPerHost:   64,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   readTimeout,
	}
}

// cacheKey derives a cache key for a POST request. These backends are
// queried with a JSON body rather than a cacheable GET URL, so the key folds
// the request body's hash into the endpoint instead of reusing HTTPCache's
// URL-only keying.
func cacheKey(endpoint string, payload []byte) string {
	h := sha256.Sum256(payload)
	return endpoint + "#" + hex.EncodeToString(h[:])
}

// postJSON issues a POST with payload as the body, transparently serving a
// cached response when c is non-nil and a prior entry exists for the
// derived key, and saving successful responses back to the cache (the
// ambient on-disk cache the backend adapters share, spec §2/§3). Returns the
// raw response bytes and status code for the caller to parse and classify.
func postJSON(ctx context.Context, client *http.Client, c *cache.HTTPCache, endpoint string, payload []byte, headers map[string]string) (raw []byte, status int, err error) {
	key := cacheKey(endpoint, payload)
	if c != nil {
		if body, loadErr := c.LoadBody(ctx, key); loadErr == nil {
			return body, http.StatusOK, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode < 400 && c != nil {
		_ = c.Save(ctx, key, "application/json", "", "", raw)
	}
	return raw, resp.StatusCode, nil
}
