// Package abuse tracks per-session security incidents and request rates,
// and owns the unblocked→blocked escalation state machine.
package abuse

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ragfence/ragfence/internal/config"
)

// Stats is a point-in-time snapshot of one session's security state.
type Stats struct {
	SessionID      string           `json:"session_id"`
	IncidentCounts map[Category]int `json:"incident_counts"`
	TotalIncidents int              `json:"total_incidents"`
	Blocked        bool             `json:"blocked"`
	CreatedAt      time.Time        `json:"created_at"`
}

// sessionState is the mutable record for one session. Its own mutex
// keeps unrelated sessions from contending.
type sessionState struct {
	mu        sync.Mutex
	counts    map[Category]int
	blocked   bool
	createdAt time.Time
	window    rateWindow
}

func (s *sessionState) total() int {
	n := 0
	for _, c := range s.counts {
		n += c
	}
	return n
}

// Monitor is the in-memory abuse monitor. All methods are safe for
// concurrent use; state never leaves the process.
type Monitor struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState

	log *incidentRing

	perMinute      int
	perHour        int
	blockThreshold int

	logger zerolog.Logger
	now    func() time.Time
}

// Option customizes a Monitor.
type Option func(*Monitor)

// WithClock overrides the monitor's time source.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithLogger attaches a logger for incident and block events.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// NewMonitor builds a Monitor from config, applying defaults for
// unset thresholds.
func NewMonitor(cfg config.AbuseConfig, opts ...Option) *Monitor {
	perMinute := cfg.MaxRequestsPerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	perHour := cfg.MaxRequestsPerHour
	if perHour <= 0 {
		perHour = 500
	}
	threshold := cfg.BlockThreshold
	if threshold <= 0 {
		threshold = 5
	}

	m := &Monitor{
		sessions:       make(map[string]*sessionState),
		log:            newIncidentRing(cfg.IncidentLogCapacity),
		perMinute:      perMinute,
		perHour:        perHour,
		blockThreshold: threshold,
		logger:         zerolog.Nop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// session returns the state for sessionID, creating it lazily.
func (m *Monitor) session(sessionID string) *sessionState {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok = m.sessions[sessionID]; ok {
		return s
	}
	s = &sessionState{
		counts:    make(map[Category]int),
		createdAt: m.now(),
	}
	m.sessions[sessionID] = s
	return s
}

// RecordIncident increments the session's per-category counter, appends
// the incident to the bounded global log, and flips the session to
// blocked once the cumulative count reaches the threshold. It returns
// the created incident and whether this call triggered the block.
func (m *Monitor) RecordIncident(sessionID, origin string, category Category, details string) (Incident, bool) {
	inc := newIncident(sessionID, origin, category, details, m.now())

	s := m.session(sessionID)
	s.mu.Lock()
	s.counts[category]++
	blockedNow := false
	if !s.blocked && s.total() >= m.blockThreshold {
		s.blocked = true
		blockedNow = true
	}
	total := s.total()
	s.mu.Unlock()

	m.log.Append(inc)

	m.logger.Warn().
		Str("session_id", sessionID).
		Str("origin", origin).
		Str("category", string(category)).
		Msg("security incident recorded")
	if blockedNow {
		m.logger.Error().
			Str("session_id", sessionID).
			Int("incidents", total).
			Msg("session temporarily blocked")
	}

	return inc, blockedNow
}

// RecordRequest appends the current timestamp to the session's rate
// window. Called once per inbound request regardless of outcome.
func (m *Monitor) RecordRequest(sessionID string) {
	s := m.session(sessionID)
	s.mu.Lock()
	s.window.add(m.now())
	s.mu.Unlock()
}

// RateLimited prunes the session's window to the last hour and reports
// whether either rolling threshold is breached. It records nothing.
func (m *Monitor) RateLimited(sessionID string) bool {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return false
	}

	now := m.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.window.prune(now.Add(-time.Hour))

	if n := s.window.countSince(now.Add(-time.Minute)); n >= m.perMinute {
		m.logger.Warn().
			Str("session_id", sessionID).
			Int("requests_last_minute", n).
			Msg("per-minute rate limit exceeded")
		return true
	}
	if n := len(s.window.stamps); n >= m.perHour {
		m.logger.Warn().
			Str("session_id", sessionID).
			Int("requests_last_hour", n).
			Msg("per-hour rate limit exceeded")
		return true
	}
	return false
}

// Blocked reports whether the session has escalated past the incident
// threshold. Sessions with no recorded state are never blocked.
func (m *Monitor) Blocked(sessionID string) bool {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocked
}

// Unblock resets the session's blocked flag and clears its incident
// counts. It is the only transition back to unblocked.
func (m *Monitor) Unblock(sessionID string) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return
	}
	s.mu.Lock()
	s.blocked = false
	s.counts = make(map[Category]int)
	s.mu.Unlock()

	m.logger.Info().Str("session_id", sessionID).Msg("session manually unblocked")
}

// RecentIncidents returns up to limit most-recently-recorded incidents
// from the global log, oldest to newest.
func (m *Monitor) RecentIncidents(limit int) []Incident {
	return m.log.Recent(limit)
}

// Stats returns a snapshot for the session, or false if the session has
// no recorded state.
func (m *Monitor) Stats(sessionID string) (Stats, bool) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return Stats{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[Category]int, len(s.counts))
	for k, v := range s.counts {
		counts[k] = v
	}
	return Stats{
		SessionID:      sessionID,
		IncidentCounts: counts,
		TotalIncidents: s.total(),
		Blocked:        s.blocked,
		CreatedAt:      s.createdAt,
	}, true
}
