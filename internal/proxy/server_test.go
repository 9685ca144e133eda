package proxy

import (
	"net/http"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iTrooz/componentcache/internal/cache"
	"github.com/iTrooz/componentcache/internal/config"
	"github.com/iTrooz/componentcache/internal/storage"
)

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)
	return cache.New(store)
}

func TestNew(t *testing.T) {
	cfg := &config.Config{
		Cache: config.CacheConfig{TTL: "1h"},
		Proxy: config.ProxyConfig{Rules: config.RulesConfig{Mode: "whitelist"}},
	}

	_, err := New(cfg, newTestCache(t))
	require.NoError(t, err)
}

func TestNew_InvalidTTL(t *testing.T) {
	cfg := &config.Config{Cache: config.CacheConfig{TTL: "forever"}}

	_, err := New(cfg, newTestCache(t))
	assert.Error(t, err)
}

func TestNew_MissingCAFiles(t *testing.T) {
	cfg := &config.Config{
		Cache: config.CacheConfig{TTL: "1h"},
		Proxy: config.ProxyConfig{HTTPS: config.HTTPSConfig{
			Enabled:    true,
			CACertFile: "/nonexistent/ca.pem",
			CAKeyFile:  "/nonexistent/ca.key",
		}},
	}

	_, err := New(cfg, newTestCache(t))
	assert.Error(t, err)
}

func TestConfigRuleMatchWithStatusCodes(t *testing.T) {
	rule := &ConfigRule{
		CacheRule: config.CacheRule{
			BaseURI:     "https://api.example.com",
			Methods:     []string{"GET", "POST"},
			StatusCodes: []string{"200", "4xx"},
		},
	}

	tests := []struct {
		name       string
		targetURL  string
		method     string
		statusCode int
		want       bool
	}{
		{
			name:       "matching URL, method, and status code",
			targetURL:  "https://api.example.com/users",
			method:     "GET",
			statusCode: 200,
			want:       true,
		},
		{
			name:       "matching URL, method, and status pattern",
			targetURL:  "https://api.example.com/users",
			method:     "GET",
			statusCode: 404,
			want:       true,
		},
		{
			name:       "matching URL and method, non-matching status",
			targetURL:  "https://api.example.com/users",
			method:     "GET",
			statusCode: 500,
			want:       false,
		},
		{
			name:       "non-matching method",
			targetURL:  "https://api.example.com/users",
			method:     "DELETE",
			statusCode: 200,
			want:       false,
		},
		{
			name:       "non-matching base URI",
			targetURL:  "https://other.example.com/users",
			method:     "GET",
			statusCode: 200,
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.targetURL)
			require.NoError(t, err)

			requ := &http.Request{
				URL:    u,
				Method: tt.method,
			}
			resp := &http.Response{
				StatusCode: tt.statusCode,
			}

			assert.Equal(t, tt.want, rule.Match(requ, resp))
		})
	}
}

func TestConfigRuleMatchBeforeResponse(t *testing.T) {
	rule := &ConfigRule{
		CacheRule: config.CacheRule{
			BaseURI:     "https://api.example.com",
			Methods:     []string{"GET"},
			StatusCodes: []string{"200"},
		},
	}

	u, err := url.Parse("https://api.example.com/users")
	require.NoError(t, err)

	assert.True(t, rule.Match(&http.Request{URL: u, Method: "GET"}, nil))
}

func TestGetTargetURL(t *testing.T) {
	u, err := url.Parse("/Platform/Destiny2/")
	require.NoError(t, err)

	requ := &http.Request{URL: u, Host: "www.bungie.net"}
	assert.Equal(t, "http://www.bungie.net/Platform/Destiny2/", getTargetURL(requ))
}
