package proxy

import (
	"crypto/tls"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// memoryCertStore implements goproxy.CertStorage, keeping generated leaf
// certificates for the lifetime of the proxy
type memoryCertStore struct {
	mu    sync.Mutex
	certs map[string]*tls.Certificate
}

func newMemoryCertStore() *memoryCertStore {
	return &memoryCertStore{certs: map[string]*tls.Certificate{}}
}

func (s *memoryCertStore) Fetch(hostname string, gen func() (*tls.Certificate, error)) (*tls.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cert, ok := s.certs[hostname]; ok {
		return cert, nil
	}

	cert, err := gen()
	if err != nil {
		logrus.Errorf("Failed to generate certificate for hostname '%s': %v", hostname, err)
		return nil, fmt.Errorf("failed to generate certificate for hostname '%s': %w", hostname, err)
	}

	s.certs[hostname] = cert
	return cert, nil
}
