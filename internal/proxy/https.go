package proxy

import (
	"crypto/tls"
	"fmt"

	"github.com/elazarl/goproxy"
	"github.com/sirupsen/logrus"

	"github.com/iTrooz/componentcache/internal/config"
)

func loadCertificate(cfg config.HTTPSConfig) (*tls.Certificate, error) {
	if cfg.CACertFile == "" || cfg.CAKeyFile == "" {
		logrus.Debugf("No CA certificate configured, using goproxy default certificate")
		return nil, nil // Use default goproxy certificate
	}

	cert, err := tls.LoadX509KeyPair(cfg.CACertFile, cfg.CAKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load CA certificate and key: %w", err)
	}
	logrus.Debugf("Loaded CA certificate from %s", cfg.CACertFile)
	return &cert, nil
}

// setupHTTPSProxyHandler intercepts CONNECT tunnels so that HTTPS API
// responses pass through the cache.
func (s *Server) setupHTTPSProxyHandler() error {
	caCert, err := loadCertificate(s.config.Proxy.HTTPS)
	if err != nil {
		return err
	}

	s.proxy.CertStore = newMemoryCertStore()

	if caCert == nil {
		logrus.Warnf("TLS interception enabled but no CA certificate loaded, using goproxy default certificate")
		s.proxy.OnRequest().HandleConnect(goproxy.AlwaysMitm)
		return nil
	}

	customCaMitm := &goproxy.ConnectAction{
		Action:    goproxy.ConnectMitm,
		TLSConfig: goproxy.TLSConfigFromCA(caCert),
	}
	customAlwaysMitm := goproxy.FuncHttpsHandler(func(host string, ctx *goproxy.ProxyCtx) (*goproxy.ConnectAction, string) {
		logrus.Debugf("Handling CONNECT request for %s", host)
		return customCaMitm, host
	})
	s.proxy.OnRequest().HandleConnect(customAlwaysMitm)
	return nil
}
