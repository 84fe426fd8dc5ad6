// Package scenario reads scenario files: an email, the scripted reasoner
// turns that handle it and, optionally, the review decisions to apply. It
// also saves and loads paused sessions together with their scenario so a
// later process can resume them, and keeps learned preferences in YAML
// files.
package scenario

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/email"
	"github.com/teemow/inboxagent/internal/preferences"
	"github.com/teemow/inboxagent/internal/reasoner"
)

// Scenario is the content of a scenario file.
//
//	name: schedule sync
//	email:
//	  from: alice@example.com
//	  subject: Schedule sync
//	  body: Can we meet on June 1st?
//	triage: respond
//	turns:
//	  - tool: check_calendar_availability
//	    args: {date: "2024-06-01"}
//	  - tool: Done
//	decisions:
//	  - kind: approve
type Scenario struct {
	Name  string      `yaml:"name,omitempty" json:"name,omitempty"`
	Email email.Email `yaml:"email" json:"email"`
	// Triage is the answer given to the triage prompt. When empty the
	// keyword classifier decides.
	Triage    string           `yaml:"triage,omitempty" json:"triage,omitempty"`
	Turns     []reasoner.Turn  `yaml:"turns" json:"turns"`
	Decisions []agent.Decision `yaml:"decisions,omitempty" json:"decisions,omitempty"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is given by the user
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the email, the triage answer, every turn and every decision
// kind. Whether a decision fits its review is only known when it is applied.
func (sc *Scenario) Validate() error {
	if err := sc.Email.Validate(); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	if sc.Triage != "" {
		if _, err := email.ParseClassification(sc.Triage); err != nil {
			return fmt.Errorf("triage: %w", err)
		}
	}
	for i, turn := range sc.Turns {
		if err := turn.Validate(); err != nil {
			return fmt.Errorf("turn %d: %w", i+1, err)
		}
	}
	for i, d := range sc.Decisions {
		if _, err := agent.ParseDecisionKind(string(d.Kind)); err != nil {
			return fmt.Errorf("decision %d: %w", i+1, err)
		}
	}
	return nil
}

// Reasoner replays the scenario turns.
func (sc *Scenario) Reasoner() *reasoner.Scripted {
	return reasoner.NewScripted(sc.Turns...)
}

// TriageReasoner answers the triage prompt with sc.Triage, or returns nil
// when the scenario leaves triage to the keyword classifier.
func (sc *Scenario) TriageReasoner() reasoner.Reasoner {
	if sc.Triage == "" {
		return nil
	}
	return reasoner.Static{Answer: reasoner.Proposal{Text: sc.Triage}}
}

// Decision returns the i-th scripted decision with its kind normalised.
func (sc *Scenario) Decision(i int) (agent.Decision, bool) {
	if i < 0 || i >= len(sc.Decisions) {
		return agent.Decision{}, false
	}
	d := sc.Decisions[i]
	if kind, err := agent.ParseDecisionKind(string(d.Kind)); err == nil {
		d.Kind = kind
	}
	return d, true
}

// Saved is a paused session together with the scenario that drives it.
type Saved struct {
	Scenario Scenario      `yaml:"scenario" json:"scenario"`
	Session  agent.Session `yaml:"session" json:"session"`
	// Applied counts the scripted decisions already used.
	Applied int `yaml:"applied" json:"applied"`
	// Preferences learned so far, when no preferences file is used.
	Preferences []preferences.Entry `yaml:"preferences,omitempty" json:"preferences,omitempty"`
}

// SaveSession writes s and its scenario to path, together with prefs.
func SaveSession(path string, sc *Scenario, s *agent.Session, applied int, prefs ...preferences.Entry) error {
	if sc == nil || s == nil {
		return errors.New("scenario and session are required")
	}
	data, err := yaml.Marshal(Saved{Scenario: *sc, Session: *s, Applied: applied, Preferences: prefs})
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// LoadSession reads a file written by SaveSession.
func LoadSession(path string) (*Saved, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is given by the user
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	var saved Saved
	if err := yaml.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("parsing session %s: %w", path, err)
	}
	if saved.Session.ID == "" {
		return nil, fmt.Errorf("session file %s has no session", path)
	}
	return &saved, nil
}

// PreferencesFile is the content of a preferences file.
//
//	entries:
//	  - namespace: response
//	    tool: write_email
//	    decision: edit
//	    note: When using write_email the user changed content ...
type PreferencesFile struct {
	Entries []preferences.Entry `yaml:"entries" json:"entries"`
}

// LoadPreferences reads a preferences file into a store keeping limit
// entries per namespace. A missing file gives an empty store.
func LoadPreferences(path string, limit int) (*preferences.MemoryStore, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is given by the user
	if errors.Is(err, fs.ErrNotExist) {
		return preferences.NewMemoryStore(limit), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading preferences: %w", err)
	}
	var file PreferencesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing preferences %s: %w", path, err)
	}
	for i, e := range file.Entries {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("preferences %s entry %d: %w", path, i+1, err)
		}
	}
	return preferences.NewMemoryStore(limit, file.Entries...), nil
}

// SavePreferences writes the entries of store to path.
func SavePreferences(path string, store *preferences.MemoryStore) error {
	if store == nil {
		return errors.New("preference store is required")
	}
	data, err := yaml.Marshal(PreferencesFile{Entries: store.Entries()})
	if err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing preferences: %w", err)
	}
	return nil
}
