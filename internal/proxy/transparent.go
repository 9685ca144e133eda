package proxy

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/inconshreveable/go-vhost"
	"github.com/sirupsen/logrus"
)

// ServeTransparentHTTPS accepts TLS connections redirected to ln (by a NAT
// rule, for instance) and hands each one to the MITM handler as if the client
// had sent a CONNECT for its SNI host. It returns when ctx is cancelled.
func (s *Server) ServeTransparentHTTPS(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	logrus.Infof("Accepting transparent HTTPS connections on %s", ln.Addr())
	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			logrus.Warnf("Error accepting transparent connection: %v", err)
			continue
		}
		go s.handleTransparentConn(c)
	}
}

func (s *Server) handleTransparentConn(c net.Conn) {
	tlsConn, err := vhost.TLS(c)
	if err != nil {
		logrus.Debugf("Rejecting non TLS connection from %s: %v", c.RemoteAddr(), err)
		_ = c.Close()
		return
	}
	host := tlsConn.Host()
	if host == "" {
		logrus.Warnf("Rejecting connection from %s: client sent no SNI", c.RemoteAddr())
		_ = tlsConn.Close()
		return
	}

	connectReq := &http.Request{
		Method: http.MethodConnect,
		URL: &url.URL{
			Opaque: host,
			Host:   net.JoinHostPort(host, "443"),
		},
		Host:       host,
		Header:     make(http.Header),
		RemoteAddr: c.RemoteAddr().String(),
	}
	s.proxy.ServeHTTP(&tunnelWriter{conn: &tunnelConn{Conn: tlsConn}}, connectReq)
}

// tunnelConn drops the "200 Connection established" line goproxy writes after
// a CONNECT: a transparent client never sent one and expects TLS bytes only.
type tunnelConn struct {
	net.Conn
	established bool
}

func (c *tunnelConn) Write(b []byte) (int, error) {
	if !c.established {
		c.established = true
		if bytes.HasPrefix(b, []byte("HTTP/1.0 200")) || bytes.HasPrefix(b, []byte("HTTP/1.1 200")) {
			return len(b), nil
		}
	}
	return c.Conn.Write(b)
}

// tunnelWriter is the http.ResponseWriter of a synthesized CONNECT request.
type tunnelWriter struct {
	conn   *tunnelConn
	header http.Header
}

func (w *tunnelWriter) Header() http.Header {
	if w.header == nil {
		w.header = make(http.Header)
	}
	return w.header
}

func (w *tunnelWriter) Write(b []byte) (int, error) {
	return w.conn.Write(b)
}

func (w *tunnelWriter) WriteHeader(int) {}

func (w *tunnelWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.conn, bufio.NewReadWriter(bufio.NewReader(w.conn), bufio.NewWriter(w.conn)), nil
}
