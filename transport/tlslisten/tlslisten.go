// Package tlslisten provides a TLS-terminating net.Listener for secchan
// servers: automatic certificates via ACME when a public domain is
// configured, or a locally generated self-signed certificate for dev/
// localhost deployments. Either way the accepted connections are plain
// *tls.Conn, which already satisfy io.ReadWriteCloser and so plug directly
// into secchan.NewEndpoint.
package tlslisten

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"

	"golang.org/x/crypto/acme/autocert"
)

// Manager provisions TLS certificates for one or more Listen calls. When
// the domain is empty, TLSConfig serves a self-signed fallback certificate
// generated once at construction; when it is set, TLSConfig is autocert's,
// which obtains ACME certificates for that domain and its subdomains.
type Manager struct {
	domain   string
	manager  *autocert.Manager
	fallback tls.Certificate
}

// NewManager builds a Manager. cacheDir stores ACME-issued certificates
// across restarts; it is ignored when domain is empty.
func NewManager(domain, cacheDir string) (*Manager, error) {
	m := &Manager{domain: domain}

	if domain == "" {
		cert, err := selfSignedCert("localhost")
		if err != nil {
			return nil, err
		}
		m.fallback = cert
		return m, nil
	}

	m.manager = &autocert.Manager{
		Cache:      autocert.DirCache(cacheDir),
		Prompt:     autocert.AcceptTOS,
		HostPolicy: m.hostPolicy,
	}
	return m, nil
}

func (m *Manager) hostPolicy(_ context.Context, host string) error {
	if host == m.domain || strings.HasSuffix(host, "."+m.domain) {
		return nil
	}
	return fmt.Errorf("tlslisten: host %q is not %q or a subdomain of it", host, m.domain)
}

// HTTPHandler returns the ACME HTTP-01 challenge handler wrapping fallback,
// for use on the plain-HTTP port 80 listener. When ACME is disabled it
// returns fallback unchanged.
func (m *Manager) HTTPHandler(fallback http.Handler) http.Handler {
	if m.manager == nil {
		return fallback
	}
	return m.manager.HTTPHandler(fallback)
}

// TLSConfig returns a *tls.Config suitable for tls.NewListener, serving
// ACME-issued certificates when enabled or the self-signed fallback
// otherwise.
func (m *Manager) TLSConfig() *tls.Config {
	if m.manager != nil {
		return m.manager.TLSConfig()
	}
	return &tls.Config{
		Certificates: []tls.Certificate{m.fallback},
	}
}

// Listen opens a TCP listener on addr and wraps it with TLS termination
// using this Manager's certificate source. Each Accept() call returns a
// *tls.Conn ready to hand to secchan.NewEndpoint.
func (m *Manager) Listen(addr string) (net.Listener, error) {
	inner, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tlslisten: listen %s: %w", addr, err)
	}
	return tls.NewListener(inner, m.TLSConfig()), nil
}
