// Package proxy is a forward HTTP proxy that answers repeated API requests
// from the TTL cache.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/elazarl/goproxy"
	"github.com/sirupsen/logrus"

	"github.com/iTrooz/componentcache/internal/cache"
	"github.com/iTrooz/componentcache/internal/cache/httpcache"
	"github.com/iTrooz/componentcache/internal/config"
)

const shutdownTimeout = 5 * time.Second

// Server represents the caching proxy server
type Server struct {
	config       *config.Config
	proxy        *goproxy.ProxyHttpServer
	cacheManager *httpcache.HTTPCache
	rules        []Rule
}

// New creates a new proxy server storing responses in c
func New(cfg *config.Config, c *cache.Cache) (*Server, error) {
	cacheTTL, err := cfg.GetCacheTTL()
	if err != nil {
		return nil, fmt.Errorf("invalid cache TTL: %w", err)
	}

	s := &Server{
		config:       cfg,
		proxy:        goproxy.NewProxyHttpServer(),
		cacheManager: httpcache.New(c, cacheTTL),
	}
	s.proxy.Logger = logrus.StandardLogger()
	s.proxy.Verbose = logrus.IsLevelEnabled(logrus.DebugLevel)

	for _, rule := range cfg.Proxy.Rules.Rules {
		s.rules = append(s.rules, &ConfigRule{CacheRule: rule})
	}

	if cfg.Proxy.HTTPS.Enabled {
		if err := s.setupHTTPSProxyHandler(); err != nil {
			return nil, err
		}
	}

	s.proxy.OnRequest().DoFunc(s.onRequest)
	s.proxy.OnResponse().DoFunc(s.onResponse)

	return s, nil
}

// GetProxy returns the proxy handler (exported for testing)
func (s *Server) GetProxy() http.Handler {
	return s.proxy
}

// Start serves the proxy until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Proxy.Port),
		Handler:           s.proxy,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logrus.Infof("Starting caching proxy on port %d", s.config.Proxy.Port)
	logrus.Infof("Cache TTL: %s", s.config.Cache.TTL)
	logrus.Infof("Rules mode: %s", s.config.Proxy.Rules.Mode)

	errCh := make(chan error, 2)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	if port := s.config.Proxy.HTTPS.TransparentPort; s.config.Proxy.HTTPS.Enabled && port != 0 {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			_ = server.Close()
			return fmt.Errorf("failed to listen for transparent HTTPS: %w", err)
		}
		go func() {
			if err := s.ServeTransparentHTTPS(ctx, ln); err != nil {
				errCh <- err
			}
		}()
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) onRequest(requ *http.Request, ctx *goproxy.ProxyCtx) (*http.Request, *http.Response) {
	if !s.shouldBeCached(requ, nil) {
		return requ, nil
	}

	// The key is computed now: the body is consumed once the request is sent.
	key, err := httpcache.KeyFor(requ)
	if err != nil {
		logrus.Errorf("Failed to compute cache key for %s: %v", requ.URL, err)
		return requ, nil
	}
	ctx.UserData = key

	if resp := s.getCachedResponse(requ, key); resp != nil {
		logrus.Infof("Serving from cache: %s %s", requ.Method, requ.URL)
		return requ, resp
	}
	return requ, nil
}

func (s *Server) onResponse(resp *http.Response, ctx *goproxy.ProxyCtx) *http.Response {
	if resp == nil || resp.Header.Get("X-Cache") == "HIT" {
		return resp
	}

	key, ok := ctx.UserData.(httpcache.Key)
	if ok && resp.StatusCode == http.StatusOK && s.shouldBeCached(ctx.Req, resp) {
		s.cacheResponse(ctx.Req, key, resp)
	}

	resp.Header.Set("X-Cache", "MISS")
	logrus.Infof("Forwarded request: %s %s -> %d", ctx.Req.Method, ctx.Req.URL, resp.StatusCode)
	return resp
}
