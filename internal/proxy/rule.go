package proxy

import (
	"net/http"
	"strings"

	"github.com/iTrooz/componentcache/internal/config"
)

// Rule matches requests (and, once known, their responses) against caching rules
type Rule interface {
	// Match reports whether the rule applies. resp is nil before the request is sent.
	Match(requ *http.Request, resp *http.Response) bool
}

// ConfigRule implements Rule interface for config-based rules
type ConfigRule struct {
	config.CacheRule
}

// Match checks if a request matches this rule
func (r *ConfigRule) Match(requ *http.Request, resp *http.Response) bool {
	// Check if URL starts with base URI
	if !strings.HasPrefix(getTargetURL(requ), r.BaseURI) {
		return false
	}

	// Check if method matches
	methodMatches := false
	for _, m := range r.Methods {
		if strings.EqualFold(m, requ.Method) {
			methodMatches = true
			break
		}
	}
	if !methodMatches {
		return false
	}

	// Check if status code matches (if specified)
	if resp != nil && len(r.StatusCodes) > 0 {
		for _, statusPattern := range r.StatusCodes {
			if config.MatchesStatusCode(resp.StatusCode, statusPattern) {
				return true
			}
		}
		return false
	}

	return true
}

func getTargetURL(r *http.Request) string {
	if r.URL.IsAbs() {
		return r.URL.String()
	}

	// Reconstruct URL from Host header
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	return scheme + "://" + r.Host + r.URL.String()
}
