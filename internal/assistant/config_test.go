package assistant

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inboxagent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 10, cfg.MaxIterations)
	assert.Equal(t, "09:00-17:00", cfg.Calendar.WorkingHours)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
max_iterations: 4
notify_review: true
instructions: Be brief.
review_policy:
  write_email: auto
  check_calendar_availability: review
calendar:
  working_hours: "08:30-12:00"
  slot_minutes: 15
  timezone: Europe/Berlin
preferences:
  limit: 5
  file: prefs.yaml
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.MaxIterations)
	assert.True(t, cfg.NotifyReview)
	assert.Equal(t, "Be brief.", cfg.Instructions)
	assert.Equal(t, map[string]string{"write_email": "auto", "check_calendar_availability": "review"}, cfg.ReviewPolicy)
	assert.Equal(t, BackendMemory, cfg.Calendar.Backend)
	assert.Equal(t, "08:30-12:00", cfg.Calendar.WorkingHours)
	assert.Equal(t, 15, cfg.Calendar.SlotMinutes)
	assert.Equal(t, PreferencesConfig{Learn: true, Limit: 5, File: "prefs.yaml"}, cfg.Preferences)

	loc, err := cfg.Calendar.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "max_iterations: 4\n")
	t.Setenv("INBOXAGENT_MAX_ITERATIONS", "7")
	t.Setenv("INBOXAGENT_CALENDAR_SLOT_MINUTES", "45")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxIterations)
	assert.Equal(t, 45, cfg.Calendar.SlotMinutes)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit path must exist")

	tests := map[string]string{
		"zero iterations":   "max_iterations: 0\n",
		"bad policy":        "review_policy:\n  write_email: sometimes\n",
		"bad backend":       "calendar:\n  backend: outlook\n",
		"bad working hours": "calendar:\n  working_hours: afternoons\n",
		"bad slot":          "calendar:\n  slot_minutes: 0\n",
		"bad timezone":      "calendar:\n  timezone: Mars/Olympus\n",
		"bad pref limit":    "preferences:\n  limit: 0\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestConfig_TelemetryAttributes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Calendar.Backend = BackendGoogle
	cfg.NotifyReview = true

	attrs := cfg.TelemetryAttributes()
	assert.Equal(t, "google", attrs["inboxagent.calendar.backend"])
	assert.Equal(t, "10", attrs["inboxagent.max_iterations"])
	assert.Equal(t, "true", attrs["inboxagent.notify_review"])
	assert.Equal(t, "true", attrs["inboxagent.preferences.learn"])
}
