package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/haugli/meetflow/config"
	"github.com/haugli/meetflow/internal/app/model"
	"github.com/haugli/meetflow/internal/app/repository"
	"github.com/haugli/meetflow/internal/app/token"
	"github.com/haugli/meetflow/internal/calendar"
	infraprom "github.com/haugli/meetflow/internal/infra/prometheus"
	"go.uber.org/zap"
)

// ErrInsufficientAvailability is returned when fewer than three free slots
// exist in the window. Three-or-nothing is a hard contract: the outreach
// email template and the per-slot index mapping both assume exactly three.
var ErrInsufficientAvailability = errors.New("insufficient availability for three proposals")

// requiredProposals is the number of slots offered per lead.
const requiredProposals = 3

// anchor is a preferred time-of-day start for a proposal.
type anchor struct {
	hour   int
	minute int
}

// Morning, midday and afternoon anchors, tried in shuffled order per day.
var dayAnchors = []anchor{
	{9, 30},
	{12, 0},
	{14, 30},
}

const shortenTimeout = 3 * time.Second

// MeetingProposal is one candidate slot offered to a lead.
type MeetingProposal struct {
	Start        time.Time
	End          time.Time
	Display      string
	BookingToken string
}

// GenerateRequest parameterizes a three-slot generation run.
type GenerateRequest struct {
	WindowStart time.Time
	WindowEnd   time.Time

	// Identity is encoded into each booking token (the organizer email).
	Identity string

	// JitterKey shifts this lead's slots off the bare anchors so different
	// leads' proposals don't land on identical clock times.
	JitterKey string

	// TakenTimes holds slot starts already offered to other leads, keyed by
	// RFC 3339 UTC timestamp.
	TakenTimes map[string]struct{}
}

// ProposalService generates meeting proposals and persists them onto leads.
type ProposalService interface {
	Generate(ctx context.Context, req GenerateRequest) ([]MeetingProposal, error)
	ProposeForLead(ctx context.Context, leadID string) ([]MeetingProposal, error)
}

// ProposalDeps bundles the collaborators of the proposal service.
type ProposalDeps struct {
	Logger    *zap.Logger
	Calendar  calendar.Provider
	Ledger    Ledger
	Shortener Shortener
	Leads     repository.LeadRepository
	Booking   config.BookingConfig
}

type proposalService struct {
	logger    *zap.Logger
	calendar  calendar.Provider
	ledger    Ledger
	shortener Shortener
	leads     repository.LeadRepository
	cfg       config.BookingConfig
	loc       *time.Location
	now       func() time.Time
}

// NewProposalService builds the generator. The configured timezone must be
// loadable; meetings are proposed and displayed in that single fixed zone.
func NewProposalService(deps ProposalDeps) (ProposalService, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(deps.Booking.Timezone)
	if err != nil {
		return nil, fmt.Errorf("proposals: load timezone %q: %w", deps.Booking.Timezone, err)
	}

	return &proposalService{
		logger:    logger,
		calendar:  deps.Calendar,
		ledger:    deps.Ledger,
		shortener: deps.Shortener,
		leads:     deps.Leads,
		cfg:       deps.Booking,
		loc:       loc,
		now:       time.Now,
	}, nil
}

// Generate walks candidate weekdays chronologically from the window start,
// accepting at most one slot per day so meetings spread across the week, and
// returns exactly three proposals or ErrInsufficientAvailability.
func (s *proposalService) Generate(ctx context.Context, req GenerateRequest) ([]MeetingProposal, error) {
	if !req.WindowEnd.After(req.WindowStart) {
		return nil, fmt.Errorf("generate: window end %v not after start %v", req.WindowEnd, req.WindowStart)
	}

	// One batched busy query for the whole window; acceptance decisions
	// below never re-query mid-loop.
	busy, err := s.calendar.FreeBusy(ctx, req.WindowStart, req.WindowEnd)
	if err != nil {
		return nil, fmt.Errorf("generate: freebusy: %w", err)
	}

	slotLength := time.Duration(s.cfg.SlotMinutes) * time.Minute
	jitter := jitterFor(req.JitterKey)

	var proposals []MeetingProposal

	day := startOfDay(req.WindowStart.In(s.loc))
	lastDay := startOfDay(req.WindowEnd.In(s.loc))

	for !day.After(lastDay) && len(proposals) < requiredProposals {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			day = day.AddDate(0, 0, 1)
			continue
		}

		// Anchors in random order so repeated runs are not biased toward
		// the earliest one; day order itself stays strictly chronological.
		anchors := make([]anchor, len(dayAnchors))
		copy(anchors, dayAnchors)
		rand.Shuffle(len(anchors), func(i, j int) {
			anchors[i], anchors[j] = anchors[j], anchors[i]
		})

		for _, a := range anchors {
			start := time.Date(day.Year(), day.Month(), day.Day(), a.hour, a.minute, 0, 0, s.loc).Add(jitter)
			end := start.Add(slotLength)

			if start.Before(req.WindowStart) || end.After(req.WindowEnd) {
				continue
			}
			if !s.insideWorkday(start, end) {
				continue
			}
			if overlapsAny(busy, start, end) {
				continue
			}
			if _, taken := req.TakenTimes[timeKey(start)]; taken {
				continue
			}

			tok, err := token.Encode(start, end, req.Identity)
			if err != nil {
				return nil, fmt.Errorf("generate: encode token: %w", err)
			}

			proposals = append(proposals, MeetingProposal{
				Start:        start,
				End:          end,
				Display:      s.display(start, end),
				BookingToken: tok,
			})
			break // one slot per day
		}

		day = day.AddDate(0, 0, 1)
	}

	if len(proposals) != requiredProposals {
		infraprom.ProposalFailures.Inc()
		return nil, ErrInsufficientAvailability
	}

	infraprom.ProposalsGenerated.Inc()
	return proposals, nil
}

// ProposeForLead generates three slots for the lead, records them in the
// ledger, shortens the booking links and stores both onto the lead record.
func (s *proposalService) ProposeForLead(ctx context.Context, leadID string) ([]MeetingProposal, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("propose: load lead: %w", err)
	}

	taken, err := s.ledger.TakenTimes(ctx)
	if err != nil {
		return nil, fmt.Errorf("propose: %w", err)
	}

	windowStart := s.now().In(s.loc).Add(24 * time.Hour)
	windowEnd := windowStart.AddDate(0, 0, 14)

	proposals, err := s.Generate(ctx, GenerateRequest{
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Identity:    s.cfg.OrganizerEmail,
		JitterKey:   lead.Email,
		TakenTimes:  taken,
	})
	if err != nil {
		return nil, err
	}

	times := make([]string, len(proposals))
	for i, p := range proposals {
		times[i] = timeKey(p.Start)
	}

	if err := s.ledger.AddProposedTimes(ctx, lead.ID, lead.ContactName, times); err != nil {
		return nil, fmt.Errorf("propose: %w", err)
	}

	links := make([]string, len(proposals))
	for i, p := range proposals {
		links[i] = s.bookingLink(ctx, lead, p.BookingToken)
	}

	lead.MeetingDates = times
	lead.BookingLinks = links
	lead.BookedSlotIndex = nil
	lead.MeetingStatus = model.MeetingStatusProposed
	if err := s.leads.Update(ctx, lead); err != nil {
		return nil, fmt.Errorf("propose: update lead: %w", err)
	}

	s.logger.Info("proposals generated",
		zap.String("lead_id", lead.ID),
		zap.Strings("meeting_times", times))

	return proposals, nil
}

// bookingLink builds the full booking URL and shortens it. A short-link
// timeout falls back to the unshortened URL rather than failing the flow.
func (s *proposalService) bookingLink(ctx context.Context, lead *model.Lead, bookingToken string) string {
	base := strings.TrimRight(s.cfg.BaseURL, "/")
	full := fmt.Sprintf("%s/book/%s?e=%s&n=%s",
		base,
		bookingToken,
		url.QueryEscape(lead.Email),
		url.QueryEscape(lead.ContactName),
	)

	shortCtx, cancel := context.WithTimeout(ctx, shortenTimeout)
	defer cancel()

	code, err := s.shortener.Shorten(shortCtx, full)
	if err != nil {
		s.logger.Warn("short link creation failed, using full booking url",
			zap.Error(err), zap.String("lead_id", lead.ID))
		return full
	}
	return base + "/s/" + code
}

func (s *proposalService) insideWorkday(start, end time.Time) bool {
	startMin := start.In(s.loc).Hour()*60 + start.In(s.loc).Minute()
	endMin := end.In(s.loc).Hour()*60 + end.In(s.loc).Minute()
	if endMin == 0 && end.In(s.loc).Day() != start.In(s.loc).Day() {
		endMin = 24 * 60
	}
	return startMin >= s.cfg.WorkdayStartHour*60 && endMin <= s.cfg.WorkdayEndHour*60 && endMin > startMin
}

func (s *proposalService) display(start, end time.Time) string {
	start = start.In(s.loc)
	end = end.In(s.loc)
	return fmt.Sprintf("%s %s-%s", start.Format("Mon 2 Jan"), start.Format("15:04"), end.Format("15:04"))
}

// timeKey is the canonical ledger representation of a slot start.
func timeKey(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func overlapsAny(busy []calendar.Interval, start, end time.Time) bool {
	for _, iv := range busy {
		if iv.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// jitterFor derives a small stable per-lead offset (0, 5, 10 or 15 minutes).
func jitterFor(key string) time.Duration {
	if key == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return time.Duration(h.Sum32()%4) * 5 * time.Minute
}
