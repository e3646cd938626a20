// Package proxymgr provides proxy management for outbound requests.
// It handles proxy rotation, health checking, and failure tracking.
package proxymgr

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"subgrab/internal/config"
	"subgrab/internal/observability"
)

// ProxyState represents the current state of a proxy.
type ProxyState int

const (
	// ProxyStateAvailable indicates the proxy is available for use.
	ProxyStateAvailable ProxyState = iota
	// ProxyStateFailed indicates the proxy has failed and is in backoff.
	ProxyStateFailed
)

// Internal constants.
const (
	// healthCheckTimeout is the timeout for proxy health checks.
	healthCheckTimeout = 10 * time.Second
	// maxBackoff caps the exponential backoff.
	maxBackoff = time.Hour
)

// proxyInfo holds information about a proxy.
type proxyInfo struct {
	URL           *url.URL
	State         ProxyState
	FailureCount  int
	LastFailure   time.Time
	BackoffUntil  time.Time
	LastHealthChk time.Time
	transport     *http.Transport
}

// Manager manages proxy rotation and health.
type Manager struct {
	log     *slog.Logger
	cfg     config.Proxy
	metrics *observability.Metrics

	mu      sync.Mutex
	proxies map[string]*proxyInfo
	order   []string // maintains insertion order for consistent iteration
}

// New creates a new proxy manager. Unparseable proxy URLs are logged and skipped.
func New(log *slog.Logger, cfg config.Proxy, metrics *observability.Metrics) *Manager {
	mgr := &Manager{
		log:     log.With(slog.String("package", "proxymgr")),
		cfg:     cfg,
		metrics: metrics,
		proxies: make(map[string]*proxyInfo),
		order:   make([]string, 0, len(cfg.Proxies)),
	}

	for _, raw := range cfg.Proxies {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			mgr.log.Warn("skipping invalid proxy", slog.String("proxy", raw), slog.Any("error", err))

			continue
		}

		if _, dup := mgr.proxies[raw]; dup {
			continue
		}

		mgr.proxies[raw] = &proxyInfo{URL: u, State: ProxyStateAvailable}
		mgr.order = append(mgr.order, raw)
	}

	mgr.reportAvailable()

	return mgr
}

// Transport wraps base so every request goes through a randomly picked available proxy.
// With no proxies configured it returns base unchanged.
func (m *Manager) Transport(base *http.Transport) http.RoundTripper {
	if !m.HasProxies() {
		return base
	}

	m.mu.Lock()
	for _, info := range m.proxies {
		t := base.Clone()
		t.Proxy = http.ProxyURL(info.URL)
		info.transport = t
	}
	m.mu.Unlock()

	return &roundTripper{mgr: m, direct: base}
}

type roundTripper struct {
	mgr    *Manager
	direct http.RoundTripper
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	proxy := rt.mgr.GetRandomProxy()
	if proxy == "" {
		rt.mgr.log.WarnContext(req.Context(), "no proxy available, going direct", slog.String("host", req.URL.Host))

		return rt.direct.RoundTrip(req)
	}

	rt.mgr.mu.Lock()
	transport := rt.mgr.proxies[proxy].transport
	rt.mgr.mu.Unlock()

	if rt.mgr.metrics != nil {
		rt.mgr.metrics.RecordProxyRequest(proxy)
	}

	resp, err := transport.RoundTrip(req)
	if err != nil {
		// a cancelled request says nothing about the proxy
		if req.Context().Err() == nil {
			rt.mgr.MarkFailed(proxy)
		}

		return nil, fmt.Errorf("via proxy %s: %w", proxy, err)
	}

	rt.mgr.MarkSuccess(proxy)

	return resp, nil
}

// GetRandomProxy returns a random available proxy URL.
// Returns empty string if no proxies are available.
func (m *Manager) GetRandomProxy() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	available := m.getAvailableProxies()
	if len(available) == 0 {
		return ""
	}

	return available[rand.IntN(len(available))]
}

// MarkFailed marks a proxy as failed and applies backoff.
func (m *Manager) MarkFailed(proxyURL string) {
	m.mu.Lock()

	info, exists := m.proxies[proxyURL]
	if !exists {
		m.mu.Unlock()

		return
	}

	info.FailureCount++
	info.LastFailure = time.Now()

	if info.FailureCount >= m.cfg.MaxFailures {
		info.State = ProxyStateFailed
		// Exponential backoff
		backoff := min(m.cfg.FailureBackoff*time.Duration(1<<(info.FailureCount-m.cfg.MaxFailures)), maxBackoff)

		info.BackoffUntil = time.Now().Add(backoff)

		m.log.Warn("proxy marked as failed",
			slog.String("proxy", proxyURL),
			slog.Int("failure_count", info.FailureCount),
			slog.Duration("backoff", backoff))
	}

	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordProxyFailure(proxyURL)
	}

	m.reportAvailable()
}

// MarkSuccess marks a proxy as successful and resets failure count.
func (m *Manager) MarkSuccess(proxyURL string) {
	m.mu.Lock()

	info, exists := m.proxies[proxyURL]
	if !exists {
		m.mu.Unlock()

		return
	}

	info.State = ProxyStateAvailable
	info.FailureCount = 0
	info.BackoffUntil = time.Time{}

	m.mu.Unlock()

	m.reportAvailable()
}

// HealthCheck dials the proxy host and updates its state.
func (m *Manager) HealthCheck(ctx context.Context, proxyURL string) error {
	m.mu.Lock()
	info, exists := m.proxies[proxyURL]
	m.mu.Unlock()

	if !exists {
		return fmt.Errorf("unknown proxy %q", proxyURL)
	}

	dialer := &net.Dialer{
		Timeout: healthCheckTimeout,
	}

	conn, err := dialer.DialContext(ctx, "tcp", info.URL.Host)
	if err != nil {
		m.MarkFailed(proxyURL)

		return fmt.Errorf("dial proxy: %w", err)
	}
	defer conn.Close()

	m.mu.Lock()
	info.LastHealthChk = time.Now()
	m.mu.Unlock()

	m.MarkSuccess(proxyURL)

	return nil
}

// StartHealthChecker checks every proxy once per interval until ctx is done.
func (m *Manager) StartHealthChecker(ctx context.Context) {
	if m.cfg.HealthCheckInterval <= 0 || len(m.proxies) == 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(m.cfg.HealthCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.checkAllProxies(ctx)
			}
		}
	}()

	m.log.Info("proxy health checker started",
		slog.Duration("interval", m.cfg.HealthCheckInterval),
		slog.Int("proxy_count", len(m.proxies)))
}

// HasProxies returns true if any proxies are configured.
func (m *Manager) HasProxies() bool {
	return len(m.proxies) > 0
}

// ProxyCount returns the total number of configured proxies.
func (m *Manager) ProxyCount() int {
	return len(m.proxies)
}

// AvailableCount returns the number of currently available proxies.
func (m *Manager) AvailableCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.getAvailableProxies())
}

func (m *Manager) getAvailableProxies() []string {
	now := time.Now()
	available := make([]string, 0, len(m.order))

	for _, proxyURL := range m.order {
		info := m.proxies[proxyURL]
		if info.State == ProxyStateAvailable {
			available = append(available, proxyURL)
		} else if info.State == ProxyStateFailed && now.After(info.BackoffUntil) {
			// Backoff expired, make available again
			available = append(available, proxyURL)
		}
	}

	return available
}

func (m *Manager) reportAvailable() {
	if m.metrics != nil {
		m.metrics.SetProxiesAvailable(m.AvailableCount())
	}
}

func (m *Manager) checkAllProxies(ctx context.Context) {
	m.mu.Lock()
	proxies := make([]string, len(m.order))
	copy(proxies, m.order)
	m.mu.Unlock()

	for _, proxy := range proxies {
		select {
		case <-ctx.Done():
			return
		default:
			if err := m.HealthCheck(ctx, proxy); err != nil {
				m.log.Debug("proxy health check failed",
					slog.String("proxy", proxy),
					slog.Any("error", err))
			}
		}
	}
}
