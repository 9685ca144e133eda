package proxy

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/iTrooz/componentcache/internal/cache/httpcache"
)

// getCachedResponse returns a cached HTTP response if available
func (s *Server) getCachedResponse(requ *http.Request, key httpcache.Key) *http.Response {
	resp, err := s.cacheManager.GetKey(requ.Context(), key, requ)
	if err != nil {
		logrus.Errorf("Failed to get cached data for %s: %v", requ.URL, err)
		return nil
	}
	if resp == nil {
		logrus.Debugf("No cached data found for %s", requ.URL)
		return nil
	}

	resp.Header.Set("X-Cache", "HIT")

	return resp
}

// shouldBeCached determines if a response should be cached based on rules
func (s *Server) shouldBeCached(requ *http.Request, resp *http.Response) bool {
	matched := false
	for _, rule := range s.rules {
		if rule.Match(requ, resp) {
			matched = true
			break
		}
	}

	if s.config.Proxy.Rules.Mode == "whitelist" {
		return matched
	}
	return !matched
}

// cacheResponse stores a response in the cache
func (s *Server) cacheResponse(requ *http.Request, key httpcache.Key, resp *http.Response) {
	if err := s.cacheManager.SetKey(requ.Context(), key, resp); err != nil {
		logrus.Errorf("Failed to cache response for %s: %v", requ.URL.String(), err)
	}
}
