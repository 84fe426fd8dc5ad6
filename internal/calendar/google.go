package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/inboxagent/internal/instrumentation"
)

// GoogleStore is a Store backed by the Google Calendar API.
type GoogleStore struct {
	svc        *gcal.Service
	calendarID string
	metrics    *instrumentation.Metrics
}

// NewGoogleStore creates a store for calendarID ("primary" when empty).
// Authentication and endpoint are controlled through opts.
func NewGoogleStore(ctx context.Context, calendarID string, opts ...option.ClientOption) (*GoogleStore, error) {
	if calendarID == "" {
		calendarID = "primary"
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return &GoogleStore{svc: svc, calendarID: calendarID}, nil
}

// NewGoogleStoreWithToken creates a store authenticated with a bearer access
// token.
func NewGoogleStoreWithToken(ctx context.Context, calendarID, accessToken string) (*GoogleStore, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("access token cannot be empty")
	}
	return NewGoogleStoreWithTokenSource(ctx, calendarID, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))
}

// NewGoogleStoreWithTokenSource creates a store authenticated by ts.
func NewGoogleStoreWithTokenSource(ctx context.Context, calendarID string, ts oauth2.TokenSource) (*GoogleStore, error) {
	if ts == nil {
		return nil, fmt.Errorf("token source cannot be nil")
	}
	return NewGoogleStore(ctx, calendarID, option.WithHTTPClient(oauth2.NewClient(ctx, ts)))
}

// SetMetrics enables Google API metrics for this store.
func (s *GoogleStore) SetMetrics(m *instrumentation.Metrics) {
	s.metrics = m
}

// observe records the outcome of a Google API call.
func (s *GoogleStore) observe(ctx context.Context, operation string, start time.Time, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	s.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, operation, status, time.Since(start))
}

// CalendarID returns the calendar this store operates on.
func (s *GoogleStore) CalendarID() string {
	return s.calendarID
}

// Busy implements Store using a free/busy query.
func (s *GoogleStore) Busy(ctx context.Context, start, end time.Time) (busy []TimeRange, err error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationFreeBusy)
	defer span.End()
	defer func(began time.Time) {
		instrumentation.SetSpanError(span, err)
		s.observe(ctx, instrumentation.OperationFreeBusy, began, err)
	}(time.Now())

	query := &gcal.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: s.calendarID}},
	}

	result, err := s.svc.Freebusy.Query(query).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to query freebusy: %w", err)
	}

	cal, ok := result.Calendars[s.calendarID]
	if !ok {
		return nil, nil
	}
	if len(cal.Errors) > 0 {
		return nil, fmt.Errorf("freebusy error for %s: %s", s.calendarID, cal.Errors[0].Reason)
	}

	busy = make([]TimeRange, 0, len(cal.Busy))
	for _, b := range cal.Busy {
		bs, err := time.Parse(time.RFC3339, b.Start)
		if err != nil {
			return nil, fmt.Errorf("invalid busy start %q: %w", b.Start, err)
		}
		be, err := time.Parse(time.RFC3339, b.End)
		if err != nil {
			return nil, fmt.Errorf("invalid busy end %q: %w", b.End, err)
		}
		busy = append(busy, TimeRange{Start: bs, End: be})
	}
	return busy, nil
}

// Book implements Store by inserting an event.
func (s *GoogleStore) Book(ctx context.Context, m Meeting) (_ Meeting, err error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationInsert)
	defer span.End()
	defer func(began time.Time) {
		instrumentation.SetSpanError(span, err)
		s.observe(ctx, instrumentation.OperationInsert, began, err)
	}(time.Now())

	tz := m.Start.Location().String()
	event := &gcal.Event{
		Summary: m.Title,
		Start:   &gcal.EventDateTime{DateTime: m.Start.Format(time.RFC3339), TimeZone: tz},
		End:     &gcal.EventDateTime{DateTime: m.End.Format(time.RFC3339), TimeZone: tz},
	}
	for _, a := range m.Attendees {
		event.Attendees = append(event.Attendees, &gcal.EventAttendee{Email: a})
	}

	created, err := s.svc.Events.Insert(s.calendarID, event).SendUpdates("all").Context(ctx).Do()
	if err != nil {
		return Meeting{}, fmt.Errorf("failed to create event: %w", err)
	}
	m.ID = created.Id
	return m, nil
}
