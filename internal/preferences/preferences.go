package preferences

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Namespace groups preferences by the step that uses them.
type Namespace string

const (
	NamespaceTriage   Namespace = "triage"
	NamespaceResponse Namespace = "response"
	NamespaceCalendar Namespace = "calendar"
)

// DefaultLimit is the number of entries kept per namespace.
const DefaultLimit = 20

// ErrInvalidEntry is returned for entries without a known namespace or note.
var ErrInvalidEntry = errors.New("invalid preference entry")

// Namespaces returns the known namespaces.
func Namespaces() []Namespace {
	return []Namespace{NamespaceTriage, NamespaceResponse, NamespaceCalendar}
}

// Valid reports whether n is a known namespace.
func (n Namespace) Valid() bool {
	switch n {
	case NamespaceTriage, NamespaceResponse, NamespaceCalendar:
		return true
	}
	return false
}

// Entry is one learned preference.
type Entry struct {
	Namespace Namespace `yaml:"namespace" json:"namespace"`
	// Tool is the reviewed tool, empty for triage entries.
	Tool string `yaml:"tool,omitempty" json:"tool,omitempty"`
	// Decision is the review decision the note was learned from.
	Decision   string    `yaml:"decision" json:"decision"`
	Note       string    `yaml:"note" json:"note"`
	SessionID  string    `yaml:"session_id,omitempty" json:"session_id,omitempty"`
	RecordedAt time.Time `yaml:"recorded_at" json:"recorded_at"`
}

// Validate checks the namespace and the note.
func (e Entry) Validate() error {
	if !e.Namespace.Valid() {
		return fmt.Errorf("%w: unknown namespace %q", ErrInvalidEntry, e.Namespace)
	}
	if strings.TrimSpace(e.Note) == "" {
		return fmt.Errorf("%w: note is required", ErrInvalidEntry)
	}
	return nil
}

// Store records and lists preferences.
type Store interface {
	Record(ctx context.Context, e Entry) error
	// List returns the entries of the given namespaces, or all entries when
	// none is given, oldest first.
	List(ctx context.Context, namespaces ...Namespace) ([]Entry, error)
}

// MemoryStore keeps the newest entries of each namespace in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	limit   int
	entries []Entry
	now     func() time.Time
}

// NewMemoryStore creates a store keeping limit entries per namespace, or
// DefaultLimit when limit is not positive. Invalid seed entries are dropped.
func NewMemoryStore(limit int, entries ...Entry) *MemoryStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	m := &MemoryStore{limit: limit, now: time.Now}
	for _, e := range entries {
		if e.Validate() == nil {
			m.add(e)
		}
	}
	return m
}

// Record stores e. A zero RecordedAt is set to the current time.
func (m *MemoryStore) Record(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = m.now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(e)
	return nil
}

// add appends e and drops the oldest entry of its namespace above the limit.
// The caller holds the lock.
func (m *MemoryStore) add(e Entry) {
	m.entries = append(m.entries, e)

	count := 0
	for _, existing := range m.entries {
		if existing.Namespace == e.Namespace {
			count++
		}
	}
	if count <= m.limit {
		return
	}
	for i, existing := range m.entries {
		if existing.Namespace == e.Namespace {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return
		}
	}
}

// List returns a copy of the matching entries.
func (m *MemoryStore) List(ctx context.Context, namespaces ...Namespace) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if len(namespaces) == 0 || containsNamespace(namespaces, e.Namespace) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Entries returns all entries, oldest first.
func (m *MemoryStore) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Entry(nil), m.entries...)
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func containsNamespace(namespaces []Namespace, n Namespace) bool {
	for _, candidate := range namespaces {
		if candidate == n {
			return true
		}
	}
	return false
}

// Format renders entries as a block for reasoner instructions, or "" when
// there are none.
func Format(entries []Entry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Preferences learned from earlier reviews (follow them unless the email says otherwise):\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "- [%s] %s\n", e.Namespace, e.Note)
	}
	return strings.TrimRight(b.String(), "\n")
}

const maxValueLen = 80

// EditNote describes how a reviewer changed the arguments of a call, or
// returns "" when nothing changed.
func EditNote(toolName string, before, after map[string]any) string {
	keys := make(map[string]struct{}, len(before)+len(after))
	for k := range before {
		keys[k] = struct{}{}
	}
	for k := range after {
		keys[k] = struct{}{}
	}
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)

	var changes []string
	for _, name := range names {
		old, hadOld := before[name]
		updated, hasNew := after[name]
		switch {
		case !hasNew:
			changes = append(changes, fmt.Sprintf("removed %s", name))
		case !hadOld:
			changes = append(changes, fmt.Sprintf("set %s to %s", name, quote(updated)))
		case fmt.Sprint(old) != fmt.Sprint(updated):
			changes = append(changes, fmt.Sprintf("changed %s from %s to %s", name, quote(old), quote(updated)))
		}
	}
	if len(changes) == 0 {
		return ""
	}
	return fmt.Sprintf("When using %s the user %s.", toolName, strings.Join(changes, "; "))
}

// FeedbackNote records feedback given instead of running a call.
func FeedbackNote(toolName, feedback string) string {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return ""
	}
	return fmt.Sprintf("Feedback on %s: %s", toolName, feedback)
}

func quote(v any) string {
	s := fmt.Sprint(v)
	if utf8.RuneCountInString(s) > maxValueLen {
		s = string([]rune(s)[:maxValueLen]) + "..."
	}
	return fmt.Sprintf("%q", s)
}
