// Package proxy obtains, health-checks, and rotates sticky egress sessions.
// One session is shared across all of a run's range requests so they appear
// to come from a single network endpoint; rotation swaps the whole session
// value, never mutates it in place.
package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HealthBucket grades a probed session's latency.
type HealthBucket string

const (
	BucketGood   HealthBucket = "good"   // < 2s
	BucketFair   HealthBucket = "fair"   // < 5s
	BucketPoor   HealthBucket = "poor"   // >= 5s
	BucketFailed HealthBucket = "failed" // probe error
)

// Health is advisory only: a poor or failed session is still usable, just
// deprioritized when a better one can be obtained.
type Health struct {
	OK      bool
	Latency time.Duration
	Bucket  HealthBucket
}

// Session is one sticky egress identity.
type Session struct {
	URL    string
	Name   string
	Health Health
}

// Issuer mints new session identities. Implementations talk to whatever
// proxy service fronts the run.
type Issuer interface {
	NewSession(ctx context.Context) (Session, error)
}

// Prober measures reachability of the target network through a session.
type Prober interface {
	Probe(ctx context.Context, proxyURL string) (time.Duration, error)
}

// StickyIssuer derives sticky session URLs from a base proxy URL by encoding
// the group list and a fresh session name into the username, the convention
// residential proxy services use for session pinning.
type StickyIssuer struct {
	BaseURL string
	Groups  []string
}

func (s StickyIssuer) NewSession(ctx context.Context) (Session, error) {
	base, err := url.Parse(s.BaseURL)
	if err != nil {
		return Session{}, fmt.Errorf("parse proxy base URL: %w", err)
	}
	name := "youtube_clipper_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]

	parts := make([]string, 0, 2)
	if len(s.Groups) > 0 {
		parts = append(parts, "groups-"+strings.Join(s.Groups, "+"))
	}
	parts = append(parts, "session-"+name)

	password, _ := base.User.Password()
	base.User = url.UserPassword(strings.Join(parts, ","), password)
	return Session{URL: base.String(), Name: name}, nil
}

// HTTPProber issues a lightweight GET against Target through the session.
type HTTPProber struct {
	Target  string
	Timeout time.Duration
}

func (p HTTPProber) Probe(ctx context.Context, proxyURL string) (time.Duration, error) {
	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return 0, fmt.Errorf("parse session URL: %w", err)
	}
	client := &http.Client{
		Timeout:   p.Timeout,
		Transport: &http.Transport{Proxy: http.ProxyURL(parsed)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.Target, nil)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probe through session: %w", err)
	}
	_ = resp.Body.Close()
	return time.Since(start), nil
}

// ClassifyLatency buckets a probe result.
func ClassifyLatency(latency time.Duration, probeErr error) Health {
	if probeErr != nil {
		return Health{OK: false, Bucket: BucketFailed}
	}
	h := Health{OK: true, Latency: latency}
	switch {
	case latency < 2*time.Second:
		h.Bucket = BucketGood
	case latency < 5*time.Second:
		h.Bucket = BucketFair
	default:
		h.Bucket = BucketPoor
	}
	return h
}

// Manager owns the shared session. Readers take value copies via Current;
// only Rotate and NewHealthySession replace it, under the lock.
type Manager struct {
	issuer Issuer
	prober Prober
	logger *slog.Logger

	attemptDelay time.Duration
	sleep        func(ctx context.Context, d time.Duration) error

	mu      sync.RWMutex
	current Session
	haveOne bool
}

// NewManager wires a Manager. logger may be nil.
func NewManager(issuer Issuer, prober Prober, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		issuer:       issuer,
		prober:       prober,
		logger:       logger,
		attemptDelay: time.Second,
		sleep: func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		},
	}
}

// Current returns the session in use. The boolean is false before any
// session was established.
func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.haveOne
}

// NewHealthySession mints sessions until one probes good or fair, up to
// maxAttempts. When every attempt came back poor or failed, the last session
// obtained is accepted anyway so the run is never blocked on a perfect
// egress; its health stays marked degraded. A short fixed delay separates
// attempts to avoid hammering the session service.
func (m *Manager) NewHealthySession(ctx context.Context, maxAttempts int) (Session, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var last Session
	haveLast := false
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := m.sleep(ctx, m.attemptDelay); err != nil {
				return Session{}, err
			}
		}

		session, err := m.issuer.NewSession(ctx)
		if err != nil {
			m.logger.Warn("session issue failed", "attempt", attempt, "error", err)
			continue
		}

		latency, probeErr := m.prober.Probe(ctx, session.URL)
		session.Health = ClassifyLatency(latency, probeErr)
		last, haveLast = session, true

		if session.Health.Bucket == BucketGood || session.Health.Bucket == BucketFair {
			m.logger.Info("proxy session established",
				"session", session.Name, "bucket", string(session.Health.Bucket), "latency", session.Health.Latency.String())
			m.swap(session)
			return session, nil
		}
		m.logger.Warn("proxy session degraded",
			"attempt", attempt, "session", session.Name, "bucket", string(session.Health.Bucket))
	}

	if !haveLast {
		return Session{}, fmt.Errorf("no proxy session could be obtained after %d attempts", maxAttempts)
	}
	m.logger.Warn("accepting degraded proxy session after exhausting attempts",
		"session", last.Name, "bucket", string(last.Health.Bucket))
	m.swap(last)
	return last, nil
}

// Rotate replaces the shared session. It is called by the retry engine on
// network-classified failures, never by download strategies directly.
func (m *Manager) Rotate(ctx context.Context) error {
	_, err := m.NewHealthySession(ctx, 2)
	if err != nil {
		return fmt.Errorf("rotate proxy session: %w", err)
	}
	return nil
}

func (m *Manager) swap(s Session) {
	m.mu.Lock()
	m.current = s
	m.haveOne = true
	m.mu.Unlock()
}
