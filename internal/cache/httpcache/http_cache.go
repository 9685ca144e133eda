// Package httpcache stores upstream HTTP responses in the TTL cache, one cache
// namespace per upstream host.
package httpcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iTrooz/componentcache/internal/cache"
)

var hostReplacer = strings.NewReplacer(":", "_", "/", "_", `\`, "_")

type HTTPCache struct {
	cache *cache.Cache
	ttl   time.Duration
}

// New creates an HTTP response cache. Every stored response resets the expiry
// of its host namespace to ttl.
func New(c *cache.Cache, ttl time.Duration) *HTTPCache {
	return &HTTPCache{
		cache: c,
		ttl:   ttl,
	}
}

// Namespace returns the cache namespace holding responses for the request's host.
func Namespace(request *http.Request) string {
	host := request.URL.Host
	if host == "" {
		host = request.Host
	}
	host = strings.TrimSuffix(strings.TrimSuffix(host, ":80"), ":443")
	return "http-" + hostReplacer.Replace(host)
}

// GenerateKey builds the key of a request within its host namespace, based on
// method, path, query, selected headers and body.
func GenerateKey(request *http.Request) (string, error) {
	// Hash query parameters
	hash := sha256.Sum256([]byte(request.URL.RawQuery))
	queryHash := hex.EncodeToString(hash[:])[:8]

	// Hash selected headers
	headersToHash := []string{"Accept", "Accept-Encoding", "Accept-Language", "Content-Type", "Authorization"}
	headersStr := ""
	for _, k := range headersToHash {
		if v, ok := request.Header[k]; ok {
			headersStr += k + ":" + strings.Join(v, ",") + "\n"
		}
	}
	headersHash := sha256.Sum256([]byte(headersStr))
	headersHashStr := hex.EncodeToString(headersHash[:])[:8]

	// Hash body (read and restore)
	var bodyHashStr string
	if request.Body != nil {
		bodyBytes, err := io.ReadAll(request.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read request body: %w", err)
		}
		if err := request.Body.Close(); err != nil {
			return "", fmt.Errorf("failed to close request body: %w", err)
		}
		request.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		if len(bodyBytes) > 0 {
			bodyHash := sha256.Sum256(bodyBytes)
			bodyHashStr = hex.EncodeToString(bodyHash[:])[:8]
		}
	}

	// METHOD /path[_q<queryhash>][_h<headershash>][_b<bodyhash>]
	key := request.Method + " /" + strings.Trim(request.URL.Path, "/")
	if request.URL.RawQuery != "" {
		key += "_q" + queryHash
	}
	if headersStr != "" {
		key += "_h" + headersHashStr
	}
	if bodyHashStr != "" {
		key += "_b" + bodyHashStr
	}

	return key, nil
}

// Key locates a cached response.
type Key struct {
	Namespace string
	Name      string
}

// KeyFor computes the cache key of request. It reads and restores the body,
// so it must run before the request is sent.
func KeyFor(request *http.Request) (Key, error) {
	name, err := GenerateKey(request)
	if err != nil {
		return Key{}, fmt.Errorf("failed to generate cache key: %w", err)
	}
	return Key{Namespace: Namespace(request), Name: name}, nil
}

func (d *HTTPCache) SetReq(ctx context.Context, request *http.Request, resp *http.Response) error {
	key, err := KeyFor(request)
	if err != nil {
		return err
	}
	return d.SetKey(ctx, key, resp)
}

func (d *HTTPCache) SetKey(ctx context.Context, key Key, resp *http.Response) error {
	entry, err := Serialize(resp)
	if err != nil {
		return err
	}

	if err := d.cache.Set(ctx, key.Namespace, key.Name, entry, d.ttl); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// GetReq returns the cached response for req, or nil, nil on a miss.
func (d *HTTPCache) GetReq(ctx context.Context, req *http.Request) (*http.Response, error) {
	key, err := KeyFor(req)
	if err != nil {
		return nil, err
	}

	resp, err := d.GetKey(ctx, key, req)
	if err != nil {
		return nil, err
	}
	// Handle no cache hit
	if resp == nil {
		return nil, nil
	}

	logrus.Debugf("Cache hit for %s %s", req.Method, req.URL.String())
	return resp, nil
}

// GetKey returns the response cached under key, associated with req, or nil,
// nil on a miss.
func (d *HTTPCache) GetKey(ctx context.Context, key Key, req *http.Request) (*http.Response, error) {
	entry, found, err := cache.Get[Entry](ctx, d.cache, key.Namespace, key.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}
	if !found {
		return nil, nil // Cache miss
	}
	return Deserialize(entry, req), nil
}
