package assistant

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/calendar"
	"github.com/teemow/inboxagent/internal/preferences"
	"github.com/teemow/inboxagent/internal/tool"
)

// EnvPrefix prefixes environment overrides, e.g. INBOXAGENT_MAX_ITERATIONS.
const EnvPrefix = "INBOXAGENT"

// Calendar backends.
const (
	BackendMemory = "memory"
	BackendGoogle = "google"
)

// Config is the assistant configuration.
type Config struct {
	MaxIterations int
	NotifyReview  bool
	// ReviewPolicy overrides the review policy per tool name ("auto" or "review").
	ReviewPolicy map[string]string
	// Instructions replaces the response loop prompt.
	Instructions string
	// TriageInstructions replaces the triage prompt.
	TriageInstructions string
	Calendar           CalendarConfig
	Preferences        PreferencesConfig
}

// PreferencesConfig controls learning from review decisions.
type PreferencesConfig struct {
	// Learn records edits and feedback and adds them to later prompts.
	Learn bool
	// Limit is the number of entries kept per namespace.
	Limit int
	// File persists preferences between runs. Empty keeps them in memory.
	File string
}

// CalendarConfig selects and configures the calendar backend.
type CalendarConfig struct {
	Backend      string
	ID           string
	WorkingHours string
	SlotMinutes  int
	Timezone     string
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		MaxIterations: agent.DefaultMaxIterations,
		ReviewPolicy:  map[string]string{},
		Calendar: CalendarConfig{
			Backend:      BackendMemory,
			ID:           "primary",
			WorkingHours: calendar.DefaultWorkingHours().String(),
			SlotMinutes:  30,
			Timezone:     "UTC",
		},
		Preferences: PreferencesConfig{
			Learn: true,
			Limit: preferences.DefaultLimit,
		},
	}
}

// LoadConfig reads configuration with viper. An explicit path must exist.
// Without a path, inboxagent.yaml is looked up in the working directory and
// in $HOME/.config/inboxagent; if none is found the defaults apply.
// Environment variables prefixed with EnvPrefix override file values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("inboxagent")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "inboxagent"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("max_iterations", cfg.MaxIterations)
	v.SetDefault("notify_review", cfg.NotifyReview)
	v.SetDefault("instructions", "")
	v.SetDefault("triage_instructions", "")
	v.SetDefault("calendar.backend", cfg.Calendar.Backend)
	v.SetDefault("calendar.id", cfg.Calendar.ID)
	v.SetDefault("calendar.working_hours", cfg.Calendar.WorkingHours)
	v.SetDefault("calendar.slot_minutes", cfg.Calendar.SlotMinutes)
	v.SetDefault("calendar.timezone", cfg.Calendar.Timezone)
	v.SetDefault("preferences.learn", cfg.Preferences.Learn)
	v.SetDefault("preferences.limit", cfg.Preferences.Limit)
	v.SetDefault("preferences.file", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg.MaxIterations = v.GetInt("max_iterations")
	cfg.NotifyReview = v.GetBool("notify_review")
	cfg.Instructions = v.GetString("instructions")
	cfg.TriageInstructions = v.GetString("triage_instructions")
	for name, policy := range v.GetStringMapString("review_policy") {
		cfg.ReviewPolicy[name] = policy
	}
	cfg.Calendar = CalendarConfig{
		Backend:      v.GetString("calendar.backend"),
		ID:           v.GetString("calendar.id"),
		WorkingHours: v.GetString("calendar.working_hours"),
		SlotMinutes:  v.GetInt("calendar.slot_minutes"),
		Timezone:     v.GetString("calendar.timezone"),
	}
	cfg.Preferences = PreferencesConfig{
		Learn: v.GetBool("preferences.learn"),
		Limit: v.GetInt("preferences.limit"),
		File:  v.GetString("preferences.file"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", c.MaxIterations)
	}

	names := make([]string, 0, len(c.ReviewPolicy))
	for name := range c.ReviewPolicy {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := tool.ParseReviewPolicy(c.ReviewPolicy[name]); err != nil {
			return fmt.Errorf("review_policy.%s: %w", name, err)
		}
	}

	switch c.Calendar.Backend {
	case BackendMemory, BackendGoogle:
	default:
		return fmt.Errorf("invalid calendar backend %q, must be one of: memory, google", c.Calendar.Backend)
	}
	if _, err := calendar.ParseWorkingHours(c.Calendar.WorkingHours); err != nil {
		return fmt.Errorf("calendar.working_hours: %w", err)
	}
	if c.Calendar.SlotMinutes < 1 {
		return fmt.Errorf("calendar.slot_minutes must be at least 1, got %d", c.Calendar.SlotMinutes)
	}
	if _, err := c.Calendar.Location(); err != nil {
		return err
	}
	if c.Preferences.Limit < 1 {
		return fmt.Errorf("preferences.limit must be at least 1, got %d", c.Preferences.Limit)
	}
	return nil
}

// TelemetryAttributes describes the configured assistant for the telemetry
// resource, so dashboards can tell a google-backed deployment from a dry run.
func (c Config) TelemetryAttributes() map[string]string {
	return map[string]string{
		"inboxagent.calendar.backend":  c.Calendar.Backend,
		"inboxagent.calendar.timezone": c.Calendar.Timezone,
		"inboxagent.max_iterations":    strconv.Itoa(c.MaxIterations),
		"inboxagent.notify_review":     strconv.FormatBool(c.NotifyReview),
		"inboxagent.preferences.learn": strconv.FormatBool(c.Preferences.Learn),
	}
}

// Location loads the configured time zone.
func (c CalendarConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("calendar.timezone: %w", err)
	}
	return loc, nil
}
