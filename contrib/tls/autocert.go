// Package tls wraps golang.org/x/crypto/acme/autocert as the external ACME
// collaborator the core engine deliberately knows nothing about: TLS
// listener creation, ACME client invocation, and the renewal scheduler
// all live outside the core. It reuses hannahttp.Scheduler, the same
// timer primitive the TTL cache is built on, to run a periodic warm-up
// that nudges autocert into renewing certificates before they expire
// rather than on the first handshake after expiry.
package tls

import (
	"crypto/tls"
	"net/http"
	"time"

	"golang.org/x/crypto/acme/autocert"

	"github.com/skywa04885/hannahttp"
)

// Manager issues and renews certificates for a fixed set of hostnames via
// Let's Encrypt (or any ACME-compatible CA), caching them on disk.
type Manager struct {
	autocert  *autocert.Manager
	scheduler *hannahttp.Scheduler
}

// NewManager returns a Manager for hosts, caching certificates under
// cacheDir.
func NewManager(cacheDir string, hosts []string) *Manager {
	return &Manager{
		autocert: &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(hosts...),
			Cache:      autocert.DirCache(cacheDir),
		},
		scheduler: hannahttp.NewScheduler(),
	}
}

// TLSConfig returns a *tls.Config suitable for a net/tls listener; the
// listener itself remains this package's caller's responsibility.
func (m *Manager) TLSConfig() *tls.Config {
	return m.autocert.TLSConfig()
}

// HTTPHandler wraps a plain-HTTP fallback handler with the one needed to
// answer ACME's http-01 challenge requests on port 80.
func (m *Manager) HTTPHandler(fallback http.Handler) http.Handler {
	return m.autocert.HTTPHandler(fallback)
}

// WarmRenewals schedules a recurring check, every interval, that asks
// autocert for each host's certificate. That call is a cache hit unless
// expiry is close (autocert renews inside GetCertificate once fewer than
// 30 days remain), so this only shortens the window between expiry and the
// next real handshake; it never blocks a handshake on network I/O.
func (m *Manager) WarmRenewals(interval time.Duration, hosts []string) {
	var tick func()
	tick = func() {
		for _, host := range hosts {
			hello := &tls.ClientHelloInfo{ServerName: host}
			_, _ = m.autocert.GetCertificate(hello)
		}
		m.scheduler.After(interval, tick)
	}
	m.scheduler.After(interval, tick)
}

// Close stops the renewal warm-up loop.
func (m *Manager) Close() { m.scheduler.Close() }
