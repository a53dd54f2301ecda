package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/haugli/meetflow/internal/app/model"
	"github.com/haugli/meetflow/internal/app/repository"
	"github.com/haugli/meetflow/internal/app/token"
	"github.com/haugli/meetflow/internal/calendar"
	"go.uber.org/zap"
)

type mockLeadRepository struct {
	getFn    func(ctx context.Context, id string) (*model.Lead, error)
	listFn   func(ctx context.Context) ([]model.Lead, error)
	updateFn func(ctx context.Context, lead *model.Lead) error
	deleteFn func(ctx context.Context, id string) error

	listCalls int
	updated   []*model.Lead
}

func (m *mockLeadRepository) GetByID(ctx context.Context, id string) (*model.Lead, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, repository.ErrLeadNotFound
}

func (m *mockLeadRepository) List(ctx context.Context) ([]model.Lead, error) {
	m.listCalls++
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockLeadRepository) Update(ctx context.Context, lead *model.Lead) error {
	m.updated = append(m.updated, lead)
	if m.updateFn != nil {
		return m.updateFn(ctx, lead)
	}
	return nil
}

func (m *mockLeadRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockMirror struct {
	publishFn func(event model.LeadSyncEvent) error
	published []model.LeadSyncEvent
}

func (m *mockMirror) PublishLeadSync(event model.LeadSyncEvent) error {
	m.published = append(m.published, event)
	if m.publishFn != nil {
		return m.publishFn(event)
	}
	return nil
}

func newTestBookingService(t *testing.T, cal calendar.Provider, leads repository.LeadRepository, mirror CRMMirror) BookingService {
	t.Helper()
	svc, err := NewBookingService(BookingDeps{
		Logger:   zap.NewNop(),
		Calendar: cal,
		Leads:    leads,
		Mirror:   mirror,
		Booking:  testBookingConfig(),
	})
	if err != nil {
		t.Fatalf("NewBookingService error: %v", err)
	}
	return svc
}

func slotToken(t *testing.T, start, end time.Time) string {
	t.Helper()
	tok, err := token.Encode(start, end, "anne@haugli.no")
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	return tok
}

func threeLinkLead() model.Lead {
	return model.Lead{
		ID:          "lead-1",
		Email:       "kari@kunde.no",
		ContactName: "Kari Kunde",
		MeetingDates: []string{
			"2026-09-14T09:30:00Z",
			"2026-09-15T12:00:00Z",
			"2026-09-16T14:30:00Z",
		},
		BookingLinks: []string{
			"https://meet.haugli.no/s/aaaa111",
			"https://meet.haugli.no/s/bbbb222",
			"https://meet.haugli.no/s/cccc333",
		},
		MeetingStatus: model.MeetingStatusProposed,
	}
}

func TestConfirmResolvesSlotIndexFromShortCode(t *testing.T) {
	lead := threeLinkLead()
	leads := &mockLeadRepository{
		listFn: func(ctx context.Context) ([]model.Lead, error) {
			return []model.Lead{lead}, nil
		},
	}
	cal := &mockCalendar{}
	mirror := &mockMirror{}
	svc := newTestBookingService(t, cal, leads, mirror)

	start := time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)
	result, err := svc.Confirm(context.Background(), slotToken(t, start, start.Add(30*time.Minute)), "bbbb222", "kari@kunde.no", "Kari Kunde")
	if err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}

	if result.SlotIndex != 1 {
		t.Errorf("slot index = %d, want 1", result.SlotIndex)
	}
	if result.LeadID != "lead-1" {
		t.Errorf("lead id = %s, want lead-1", result.LeadID)
	}
	if result.MeetingLink == "" || result.EventLink == "" {
		t.Error("expected event and meeting links on success")
	}

	if len(leads.updated) != 1 {
		t.Fatalf("expected one lead update, got %d", len(leads.updated))
	}
	updated := leads.updated[0]
	if updated.BookedSlotIndex == nil || *updated.BookedSlotIndex != 1 {
		t.Errorf("stored slot index = %v, want 1", updated.BookedSlotIndex)
	}
	if updated.MeetingStatus != model.MeetingStatusBooked {
		t.Errorf("meeting status = %s, want %s", updated.MeetingStatus, model.MeetingStatusBooked)
	}

	if len(mirror.published) != 1 {
		t.Fatalf("expected one mirror event, got %d", len(mirror.published))
	}
	if mirror.published[0].BookedSlotIndex != 1 {
		t.Errorf("mirrored slot index = %d, want 1", mirror.published[0].BookedSlotIndex)
	}
}

func TestConfirmFallbackLinkMatchesByToken(t *testing.T) {
	// When link shortening timed out at proposal time, the lead stores the
	// full booking URL; a click on it carries no short code, and the token
	// embedded in the stored URL must recover the slot index instead.
	start := time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)
	tok := slotToken(t, start, start.Add(30*time.Minute))

	lead := threeLinkLead()
	lead.BookingLinks[1] = "https://meet.haugli.no/book/" + tok + "?e=kari%40kunde.no&n=Kari+Kunde"

	leads := &mockLeadRepository{
		listFn: func(ctx context.Context) ([]model.Lead, error) {
			return []model.Lead{lead}, nil
		},
	}
	svc := newTestBookingService(t, &mockCalendar{}, leads, &mockMirror{})

	result, err := svc.Confirm(context.Background(), tok, "", "kari@kunde.no", "Kari Kunde")
	if err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}
	if result.SlotIndex != 1 {
		t.Errorf("slot index = %d, want 1", result.SlotIndex)
	}
	if len(leads.updated) != 1 {
		t.Fatalf("expected one lead update, got %d", len(leads.updated))
	}
	if got := leads.updated[0].BookedSlotIndex; got == nil || *got != 1 {
		t.Errorf("stored slot index = %v, want 1", got)
	}
}

func TestConfirmSlotNoLongerAvailable(t *testing.T) {
	lead := threeLinkLead()
	leads := &mockLeadRepository{
		listFn: func(ctx context.Context) ([]model.Lead, error) {
			return []model.Lead{lead}, nil
		},
	}

	start := time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)
	cal := &mockCalendar{
		freeBusyFn: func(ctx context.Context, from, to time.Time) ([]calendar.Interval, error) {
			// A concurrent booking consumed the interval.
			return []calendar.Interval{{Start: start, End: start.Add(30 * time.Minute)}}, nil
		},
	}
	svc := newTestBookingService(t, cal, leads, &mockMirror{})

	_, err := svc.Confirm(context.Background(), slotToken(t, start, start.Add(30*time.Minute)), "bbbb222", "", "")
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}

	if len(cal.createdEvents) != 0 {
		t.Error("no calendar event may be created when the slot is gone")
	}
	if len(leads.updated) != 0 {
		t.Error("lead record must stay unmodified when the slot is gone")
	}
}

func TestConfirmMalformedTokenMakesNoExternalCalls(t *testing.T) {
	leads := &mockLeadRepository{}
	cal := &mockCalendar{}
	svc := newTestBookingService(t, cal, leads, &mockMirror{})

	_, err := svc.Confirm(context.Background(), "definitely%%not-a-token", "bbbb222", "", "")
	if !errors.Is(err, token.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	if cal.freeBusyCalls != 0 || len(cal.createdEvents) != 0 {
		t.Error("no calendar calls may happen on a malformed token")
	}
	if leads.listCalls != 0 {
		t.Error("no lead lookups may happen on a malformed token")
	}
}

func TestConfirmUnknownShortCode(t *testing.T) {
	leads := &mockLeadRepository{
		listFn: func(ctx context.Context) ([]model.Lead, error) {
			lead := threeLinkLead()
			return []model.Lead{lead}, nil
		},
	}
	cal := &mockCalendar{}
	svc := newTestBookingService(t, cal, leads, &mockMirror{})

	start := time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)
	_, err := svc.Confirm(context.Background(), slotToken(t, start, start.Add(30*time.Minute)), "zzzz999", "", "")
	if !errors.Is(err, repository.ErrLeadNotFound) {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}
	if cal.freeBusyCalls != 0 {
		t.Error("availability must not be checked before a lead is matched")
	}
}

func TestConfirmMirrorFailureDoesNotFailBooking(t *testing.T) {
	lead := threeLinkLead()
	leads := &mockLeadRepository{
		listFn: func(ctx context.Context) ([]model.Lead, error) {
			return []model.Lead{lead}, nil
		},
	}
	mirror := &mockMirror{
		publishFn: func(event model.LeadSyncEvent) error {
			return errors.New("nats unreachable")
		},
	}
	svc := newTestBookingService(t, &mockCalendar{}, leads, mirror)

	start := time.Date(2026, 9, 14, 9, 30, 0, 0, time.UTC)
	result, err := svc.Confirm(context.Background(), slotToken(t, start, start.Add(30*time.Minute)), "aaaa111", "", "")
	if err != nil {
		t.Fatalf("Confirm must swallow mirror failures, got %v", err)
	}
	if result.SlotIndex != 0 {
		t.Errorf("slot index = %d, want 0", result.SlotIndex)
	}
}

func TestConfirmAttendeesFollowInviteToggle(t *testing.T) {
	lead := threeLinkLead()
	leads := &mockLeadRepository{
		listFn: func(ctx context.Context) ([]model.Lead, error) {
			return []model.Lead{lead}, nil
		},
	}
	cal := &mockCalendar{}

	cfg := testBookingConfig()
	svc, err := NewBookingService(BookingDeps{
		Logger:   zap.NewNop(),
		Calendar: cal,
		Leads:    leads,
		Mirror:   &mockMirror{},
		Booking:  cfg,
	})
	if err != nil {
		t.Fatalf("NewBookingService error: %v", err)
	}

	start := time.Date(2026, 9, 14, 9, 30, 0, 0, time.UTC)
	if _, err := svc.Confirm(context.Background(), slotToken(t, start, start.Add(30*time.Minute)), "aaaa111", "kari@kunde.no", "Kari"); err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}

	if len(cal.createdEvents) != 1 {
		t.Fatalf("expected one created event, got %d", len(cal.createdEvents))
	}
	// Customer invite is off by default: organizer only.
	attendees := cal.createdEvents[0].Attendees
	if len(attendees) != 1 || attendees[0] != cfg.OrganizerEmail {
		t.Fatalf("attendees = %v, want organizer only", attendees)
	}

	// With the toggle on, the customer joins the invite.
	cal2 := &mockCalendar{}
	cfg.InviteCustomer = true
	svc2, err := NewBookingService(BookingDeps{
		Logger:   zap.NewNop(),
		Calendar: cal2,
		Leads:    leads,
		Mirror:   &mockMirror{},
		Booking:  cfg,
	})
	if err != nil {
		t.Fatalf("NewBookingService error: %v", err)
	}
	if _, err := svc2.Confirm(context.Background(), slotToken(t, start, start.Add(30*time.Minute)), "aaaa111", "kari@kunde.no", "Kari"); err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}
	attendees = cal2.createdEvents[0].Attendees
	if len(attendees) != 2 || attendees[1] != "kari@kunde.no" {
		t.Fatalf("attendees = %v, want organizer plus customer", attendees)
	}
}
