package server

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/email"
	"github.com/teemow/inboxagent/internal/logging"
	"github.com/teemow/inboxagent/internal/reasoner"
)

const (
	// DefaultSessionTTL is how long an untouched session is kept.
	DefaultSessionTTL = 24 * time.Hour

	defaultCleanupInterval = 10 * time.Minute
)

var (
	// ErrSessionNotFound is returned for unknown or expired session IDs.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionBusy is returned while another request resumes the session.
	ErrSessionBusy = errors.New("session is being resumed by another request")
)

// ExpireFunc is called for every session that expires while still open.
type ExpireFunc func(s *agent.Session)

// SessionSummary is the listing view of a stored session.
type SessionSummary struct {
	ID             string               `json:"id"`
	Status         agent.Status         `json:"status"`
	Classification email.Classification `json:"classification,omitempty"`
	From           string               `json:"from"`
	Subject        string               `json:"subject"`
	PendingKind    agent.ReviewKind     `json:"pending_kind,omitempty"`
	PendingTool    string               `json:"pending_tool,omitempty"`
	Iterations     int                  `json:"iterations"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

func summarize(s *agent.Session) SessionSummary {
	sum := SessionSummary{
		ID:             s.ID,
		Status:         s.Status,
		Classification: s.Classification,
		From:           s.Email.From,
		Subject:        s.Email.Subject,
		Iterations:     s.Iterations,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
	if s.Pending != nil {
		sum.PendingKind = s.Pending.Kind
		if s.Pending.Call != nil {
			sum.PendingTool = s.Pending.Call.Name
		}
	}
	return sum
}

type storedSession struct {
	session    *agent.Session
	reasoner   reasoner.Reasoner
	summary    SessionSummary
	lastAccess time.Time
	busy       bool
}

// SessionStore keeps the sessions created through the MCP server together
// with the reasoner that drives each of them. Sessions that are not touched
// for the TTL are dropped; open ones are handed to the ExpireFunc first.
type SessionStore struct {
	sessions      map[string]*storedSession
	mu            sync.Mutex
	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
	stopOnce      sync.Once
	ttl           time.Duration
	onExpire      ExpireFunc
	now           func() time.Time
	logger        *slog.Logger
}

// NewSessionStore creates a store and starts its cleanup goroutine. A
// non-positive ttl selects DefaultSessionTTL.
func NewSessionStore(ttl time.Duration, onExpire ExpireFunc, logger *slog.Logger) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	interval := defaultCleanupInterval
	if ttl < interval {
		interval = ttl
	}

	st := &SessionStore{
		sessions:      make(map[string]*storedSession),
		cleanupTicker: time.NewTicker(interval),
		cleanupDone:   make(chan struct{}),
		ttl:           ttl,
		onExpire:      onExpire,
		now:           time.Now,
		logger:        logger,
	}

	go st.cleanupExpiredSessions()

	return st
}

// TTL returns the idle time after which sessions expire.
func (st *SessionStore) TTL() time.Duration {
	return st.ttl
}

// Put stores s and the reasoner that continues it, replacing any earlier
// entry with the same ID.
func (st *SessionStore) Put(s *agent.Session, r reasoner.Reasoner) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID] = &storedSession{
		session:    s,
		reasoner:   r,
		summary:    summarize(s),
		lastAccess: st.now(),
	}
}

// Acquire hands out a session for mutation. The caller owns it until
// Release; concurrent Acquire calls fail with ErrSessionBusy.
func (st *SessionStore) Acquire(id string) (*agent.Session, reasoner.Reasoner, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	entry, ok := st.sessions[id]
	if !ok {
		return nil, nil, ErrSessionNotFound
	}
	if entry.busy {
		return nil, nil, ErrSessionBusy
	}
	entry.busy = true
	entry.lastAccess = st.now()
	return entry.session, entry.reasoner, nil
}

// Release returns a session taken with Acquire.
func (st *SessionStore) Release(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	entry, ok := st.sessions[id]
	if !ok {
		return
	}
	entry.busy = false
	entry.summary = summarize(entry.session)
	entry.lastAccess = st.now()
}

// View calls fn with the stored session while holding the store lock.
func (st *SessionStore) View(id string, fn func(*agent.Session) error) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	entry, ok := st.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if entry.busy {
		return ErrSessionBusy
	}
	entry.lastAccess = st.now()
	return fn(entry.session)
}

// Delete removes a session. It reports whether the session existed.
func (st *SessionStore) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	return ok
}

// List returns summaries of all stored sessions, oldest first.
func (st *SessionStore) List() []SessionSummary {
	st.mu.Lock()
	out := make([]SessionSummary, 0, len(st.sessions))
	for _, entry := range st.sessions {
		out = append(out, entry.summary)
	}
	st.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of stored sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// sweep drops sessions idle since before now-ttl and returns how many went.
func (st *SessionStore) sweep(now time.Time) int {
	var open []*agent.Session
	expired := 0

	st.mu.Lock()
	for id, entry := range st.sessions {
		if entry.busy || now.Sub(entry.lastAccess) <= st.ttl {
			continue
		}
		if !entry.session.Status.Terminal() {
			open = append(open, entry.session)
		}
		delete(st.sessions, id)
		expired++
	}
	st.mu.Unlock()

	for _, s := range open {
		st.logger.Info("Abandoning expired session", logging.Operation("session.expire"), logging.Session(s.ID), logging.Status(string(s.Status)))
		if st.onExpire != nil {
			st.onExpire(s)
		}
	}
	return expired
}

func (st *SessionStore) cleanupExpiredSessions() {
	for {
		select {
		case <-st.cleanupTicker.C:
			if n := st.sweep(st.now()); n > 0 {
				st.logger.Info("Cleaned up expired sessions", "count", n)
			}
		case <-st.cleanupDone:
			return
		}
	}
}

// Stop stops the session cleanup goroutine
func (st *SessionStore) Stop() {
	st.stopOnce.Do(func() {
		st.cleanupTicker.Stop()
		close(st.cleanupDone)
	})
}
