package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

func newTestGoogleStore(t *testing.T, handler http.Handler) *GoogleStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store, err := NewGoogleStore(context.Background(), "",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return store
}

func TestGoogleStore_Busy(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/freeBusy", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2024-06-01T09:00:00Z", req["timeMin"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"calendars": {
				"primary": {
					"busy": [{"start": "2024-06-01T10:00:00Z", "end": "2024-06-01T11:00:00Z"}]
				}
			}
		}`))
	})
	store := newTestGoogleStore(t, mux)
	assert.Equal(t, "primary", store.CalendarID())

	p := NewPlanner(store, DefaultWorkingHours(), time.Hour, time.UTC)
	slots, err := p.FreeSlots(context.Background(), at(0, 0))
	require.NoError(t, err)
	require.Len(t, slots, 7)
	assert.Equal(t, "09:00-10:00", slots[0].String())
	assert.Equal(t, "11:00-12:00", slots[1].String())
}

func TestGoogleStore_BusyCalendarError(t *testing.T) {
	store := newTestGoogleStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"calendars": {"primary": {"errors": [{"domain": "global", "reason": "notFound"}]}}}`))
	}))

	_, err := store.Busy(context.Background(), at(9, 0), at(17, 0))
	assert.ErrorContains(t, err, "notFound")
}

func TestGoogleStore_Book(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "all", r.URL.Query().Get("sendUpdates"))

		var event map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		assert.Equal(t, "Sync", event["summary"])
		attendees, _ := event["attendees"].([]any)
		assert.Len(t, attendees, 2)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "evt-123", "summary": "Sync"}`))
	})
	store := newTestGoogleStore(t, mux)

	m, err := store.Book(context.Background(), Meeting{
		Title:     "Sync",
		Attendees: []string{"a@example.com", "b@example.com"},
		Start:     at(14, 0),
		End:       at(14, 30),
	})
	require.NoError(t, err)
	assert.Equal(t, "evt-123", m.ID)
}

func TestGoogleStore_BookFailure(t *testing.T) {
	store := newTestGoogleStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 403, "message": "forbidden"}}`, http.StatusForbidden)
	}))

	_, err := store.Book(context.Background(), Meeting{Title: "x", Start: at(9, 0), End: at(10, 0)})
	assert.ErrorContains(t, err, "failed to create event")
}

func TestNewGoogleStoreWithToken_RequiresToken(t *testing.T) {
	_, err := NewGoogleStoreWithToken(context.Background(), "primary", "")
	assert.Error(t, err)
}

func TestNewGoogleStoreWithTokenSource(t *testing.T) {
	_, err := NewGoogleStoreWithTokenSource(context.Background(), "primary", nil)
	assert.Error(t, err)

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "t"})
	store, err := NewGoogleStoreWithTokenSource(context.Background(), "", ts)
	require.NoError(t, err)
	assert.Equal(t, "primary", store.CalendarID())
}
