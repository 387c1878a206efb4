// Package proxy hands out proxies to the engine and the thumbnail client,
// optionally dialing each one before use.
package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"time"

	"vidfetch/internal/config"
	"vidfetch/internal/errs"
	"vidfetch/internal/observability"
)

const (
	defaultSOCKSPort = "1080"
	defaultHTTPPort  = "8080"
)

// Manager handles proxy selection and health checking.
type Manager struct {
	log           *slog.Logger
	metrics       *observability.Metrics
	proxies       []*url.URL
	healthCheck   bool
	healthTimeout time.Duration
}

// New validates the configured proxies. metrics may be nil.
func New(log *slog.Logger, cfg config.Proxy, metrics *observability.Metrics) (*Manager, error) {
	m := &Manager{
		log:           log.With(slog.String("package", "proxy")),
		metrics:       metrics,
		proxies:       make([]*url.URL, 0, len(cfg.Proxies)),
		healthCheck:   cfg.HealthCheck,
		healthTimeout: cfg.HealthTimeout,
	}

	for _, raw := range cfg.Proxies {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", raw, err)
		}

		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy URL %q: missing scheme or host", raw)
		}

		m.proxies = append(m.proxies, u)
	}

	if metrics != nil {
		metrics.SetProxiesAvailable(len(m.proxies))
	}

	return m, nil
}

// GetProxy returns a proxy URL, or "" when none are configured.
func (m *Manager) GetProxy(ctx context.Context) (string, error) {
	u, err := m.pick(ctx)
	if err != nil || u == nil {
		return "", err
	}

	return u.String(), nil
}

// HTTPClient returns a client whose transport routes every request through
// a proxy picked per request.
func (m *Manager) HTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert
	transport.Proxy = func(req *http.Request) (*url.URL, error) {
		return m.pick(req.Context())
	}

	return &http.Client{Transport: transport, Timeout: timeout}
}

// Count returns the number of configured proxies.
func (m *Manager) Count() int {
	return len(m.proxies)
}

func (m *Manager) pick(ctx context.Context) (*url.URL, error) {
	if len(m.proxies) == 0 {
		return nil, nil //nolint:nilnil
	}

	if !m.healthCheck {
		return m.record(m.proxies[rand.IntN(len(m.proxies))]), nil
	}

	for _, idx := range rand.Perm(len(m.proxies)) {
		u := m.proxies[idx]
		if m.checkHealth(ctx, u) {
			return m.record(u), nil
		}

		m.log.WarnContext(ctx, "proxy unhealthy", slog.String("proxy", u.Redacted()))

		if m.metrics != nil {
			m.metrics.RecordProxyFailure(u.Redacted())
		}
	}

	return nil, errs.ErrNoProxiesAvailable
}

func (m *Manager) record(u *url.URL) *url.URL {
	if m.metrics != nil {
		m.metrics.RecordProxyRequest(u.Redacted())
	}

	return u
}

// checkHealth dials the proxy host.
func (m *Manager) checkHealth(ctx context.Context, u *url.URL) bool {
	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "socks5", "socks5h":
			host = net.JoinHostPort(u.Hostname(), defaultSOCKSPort)
		case "http", "https":
			host = net.JoinHostPort(u.Hostname(), defaultHTTPPort)
		default:
			return false
		}
	}

	checkCtx, cancel := context.WithTimeout(ctx, m.healthTimeout)
	defer cancel()

	dialer := &net.Dialer{}

	conn, err := dialer.DialContext(checkCtx, "tcp", host)
	if err != nil {
		return false
	}

	_ = conn.Close()

	return true
}
