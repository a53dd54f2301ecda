package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/haugli/meetflow/config"
	"github.com/haugli/meetflow/internal/app/model"
	"github.com/haugli/meetflow/internal/app/repository"
	"github.com/haugli/meetflow/internal/app/token"
	"github.com/haugli/meetflow/internal/calendar"
	infraprom "github.com/haugli/meetflow/internal/infra/prometheus"
	"go.uber.org/zap"
)

// ErrSlotUnavailable is returned when the live availability re-check fails
// at confirmation time. Distinct from token.ErrInvalidToken so the user can
// be told to pick another slot rather than that their link is broken.
var ErrSlotUnavailable = errors.New("slot no longer available")

// BookingResult is returned on a successful confirmation.
type BookingResult struct {
	LeadID      string
	SlotIndex   int
	Start       time.Time
	End         time.Time
	Display     string
	EventLink   string
	MeetingLink string
}

// BookingService confirms an inbound booking click: decode, match, re-check,
// book, record.
type BookingService interface {
	Confirm(ctx context.Context, bookingToken, shortCode, claimedEmail, claimedName string) (*BookingResult, error)
}

// BookingDeps bundles the collaborators of the booking service.
type BookingDeps struct {
	Logger   *zap.Logger
	Calendar calendar.Provider
	Leads    repository.LeadRepository
	Mirror   CRMMirror
	Booking  config.BookingConfig
}

type bookingService struct {
	logger   *zap.Logger
	calendar calendar.Provider
	leads    repository.LeadRepository
	mirror   CRMMirror
	cfg      config.BookingConfig
	loc      *time.Location
}

// NewBookingService builds the confirmation workflow.
func NewBookingService(deps BookingDeps) (BookingService, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(deps.Booking.Timezone)
	if err != nil {
		return nil, fmt.Errorf("booking: load timezone %q: %w", deps.Booking.Timezone, err)
	}

	return &bookingService{
		logger:   logger,
		calendar: deps.Calendar,
		leads:    deps.Leads,
		mirror:   deps.Mirror,
		cfg:      deps.Booking,
		loc:      loc,
	}, nil
}

// Confirm runs the booking workflow in a fixed order: the availability
// re-check happens before event creation, which happens before the lead
// update, which happens before the CRM mirror. The calendar event is the
// thing the customer is waiting on, so it is never contingent on a later
// step succeeding.
func (s *bookingService) Confirm(ctx context.Context, bookingToken, shortCode, claimedEmail, claimedName string) (*BookingResult, error) {
	slot, err := token.Decode(bookingToken)
	if err != nil {
		infraprom.BookingFailures.WithLabelValues("invalid_token").Inc()
		return nil, err
	}

	lead, slotIndex, err := s.matchLead(ctx, shortCode, bookingToken)
	if err != nil {
		if errors.Is(err, repository.ErrLeadNotFound) {
			infraprom.BookingFailures.WithLabelValues("lead_not_found").Inc()
		}
		return nil, err
	}

	// Fresh availability query for exactly this interval; the busy list from
	// proposal time is stale by definition.
	busy, err := s.calendar.FreeBusy(ctx, slot.Start, slot.End)
	if err != nil {
		infraprom.BookingFailures.WithLabelValues("calendar_error").Inc()
		return nil, fmt.Errorf("confirm: availability re-check: %w", err)
	}
	if overlapsAny(busy, slot.Start, slot.End) {
		infraprom.BookingFailures.WithLabelValues("slot_taken").Inc()
		return nil, ErrSlotUnavailable
	}

	attendees := []string{s.cfg.OrganizerEmail}
	if s.cfg.InviteCustomer && claimedEmail != "" {
		attendees = append(attendees, claimedEmail)
	}

	summary := fmt.Sprintf("Intromøte med %s", displayName(claimedName, lead))
	event, err := s.calendar.CreateEvent(ctx, calendar.EventInput{
		Summary:     summary,
		Description: fmt.Sprintf("Booket via tilbudslenke for %s (%s).", lead.ContactName, lead.Email),
		Start:       slot.Start,
		End:         slot.End,
		Attendees:   attendees,
		RequestID:   uuid.New().String(),
	})
	if err != nil {
		infraprom.BookingFailures.WithLabelValues("calendar_error").Inc()
		return nil, fmt.Errorf("confirm: create event: %w", err)
	}

	lead.BookedSlotIndex = &slotIndex
	lead.MeetingStatus = model.MeetingStatusBooked
	if err := s.leads.Update(ctx, lead); err != nil {
		// The event exists; report the bookkeeping failure rather than
		// pretending the booking did not happen.
		infraprom.BookingFailures.WithLabelValues("lead_update").Inc()
		return nil, fmt.Errorf("confirm: update lead: %w", err)
	}

	// CRM mirror is best effort: logged and swallowed, never rolls back the
	// event the customer already has.
	if s.mirror != nil {
		if err := s.mirror.PublishLeadSync(model.LeadSyncEvent{
			ID:              uuid.New().String(),
			LeadID:          lead.ID,
			BookedSlotIndex: slotIndex,
			MeetingStart:    slot.Start,
			MeetingStatus:   model.MeetingStatusBooked,
			Timestamp:       time.Now(),
		}); err != nil {
			s.logger.Warn("crm mirror publish failed",
				zap.Error(err), zap.String("lead_id", lead.ID))
		}
	}

	infraprom.BookingsConfirmed.Inc()
	s.logger.Info("meeting booked",
		zap.String("lead_id", lead.ID),
		zap.Int("slot_index", slotIndex),
		zap.Time("start", slot.Start))

	return &BookingResult{
		LeadID:      lead.ID,
		SlotIndex:   slotIndex,
		Start:       slot.Start,
		End:         slot.End,
		Display:     s.display(slot.Start, slot.End),
		EventLink:   event.HTMLLink,
		MeetingLink: event.MeetingLink,
	}, nil
}

// matchLead scans every lead's stored booking links for one containing the
// short code. The match position is the booked slot index; the token itself
// only carries the interval, not the ordinal. A lead whose link creation hit
// the short-link timeout stores the full booking URL instead, and a click on
// that link arrives with no short code at all; the booking token embedded in
// the stored URL is the match key then. Linear scan over all leads is
// accepted at this scale.
func (s *bookingService) matchLead(ctx context.Context, shortCode, bookingToken string) (*model.Lead, int, error) {
	key := shortCode
	if key == "" {
		key = bookingToken
	}
	if key == "" {
		return nil, 0, repository.ErrLeadNotFound
	}

	leads, err := s.leads.List(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("confirm: list leads: %w", err)
	}

	for i := range leads {
		for idx, link := range leads[i].BookingLinks {
			if strings.Contains(link, key) {
				return &leads[i], idx, nil
			}
		}
	}
	return nil, 0, repository.ErrLeadNotFound
}

func (s *bookingService) display(start, end time.Time) string {
	start = start.In(s.loc)
	end = end.In(s.loc)
	return fmt.Sprintf("%s %s-%s", start.Format("Mon 2 Jan"), start.Format("15:04"), end.Format("15:04"))
}

func displayName(claimedName string, lead *model.Lead) string {
	if claimedName != "" {
		return claimedName
	}
	if lead.ContactName != "" {
		return lead.ContactName
	}
	return lead.Email
}
