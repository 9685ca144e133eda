package tests

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/iTrooz/componentcache/internal/cache"
	"github.com/iTrooz/componentcache/internal/config"
	"github.com/iTrooz/componentcache/internal/proxy"
	"github.com/iTrooz/componentcache/internal/storage"
)

const profilePayload = `{
	"Response": {
		"profile": {"data": {"characterIds": ["2305843009", "2305843010"]}},
		"characters": {"data": {
			"2305843009": {"light": 1810},
			"2305843010": {"light": 1795}
		}}
	},
	"ErrorCode": 1,
	"ErrorStatus": "Success",
	"Message": "Ok"
}`

// fixture_upstream creates a fake platform API counting the requests it serves
func fixture_upstream(hits *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, requ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Seen-Components", requ.URL.Query().Get("components"))
		w.Header().Set("X-Seen-Authorization", requ.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(profilePayload))
	}))
}

// fixture_store creates a storage root inside tempDir
func fixture_store(tempDir string) (*storage.Store, error) {
	return storage.New(filepath.Join(tempDir, "store"))
}

// fixture_config creates a test config with optional rules
func fixture_config(tempDir string, rules *config.RulesConfig) *config.Config {
	cfg := &config.Config{
		Storage: config.StorageConfig{Root: filepath.Join(tempDir, "store")},
		Cache:   config.CacheConfig{TTL: "1h", ErrorPolicy: "surface"},
		Proxy: config.ProxyConfig{
			Port:  0, // Will be set by test server
			Rules: config.RulesConfig{Mode: "blacklist"},
		},
	}

	if rules != nil {
		cfg.Proxy.Rules = *rules
	}

	return cfg
}

// fixture_proxy creates a proxy server with the given config and returns the server, test server, and HTTP client
func fixture_proxy(cfg *config.Config, c *cache.Cache) (*proxy.Server, *httptest.Server, *http.Client, error) {
	proxyServer, err := proxy.New(cfg, c)
	if err != nil {
		return nil, nil, nil, err
	}

	// Create test proxy HTTP server using goproxy
	proxyTestServer := httptest.NewServer(proxyServer.GetProxy())

	// Create HTTP client that uses our proxy
	proxyURL, _ := url.Parse(proxyTestServer.URL)
	client := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
		},
		Timeout: 10 * time.Second,
	}

	return proxyServer, proxyTestServer, client, nil
}
