package service

import (
	"context"
	"fmt"

	"github.com/haugli/meetflow/internal/app/model"
	"github.com/haugli/meetflow/internal/app/repository"
)

// Ledger tracks which exact slot start times have been offered to which
// lead, independent of the calendar's own busy view (which only reflects
// booked events). The generator consults it so two leads are never offered
// the identical wall-clock slot.
type Ledger interface {
	// TakenTimes returns the flattened union of offered start times across
	// all leads, keyed by RFC 3339 UTC timestamp.
	TakenTimes(ctx context.Context) (map[string]struct{}, error)
	AddProposedTimes(ctx context.Context, leadID, leadName string, times []string) error
	UpdateProposedTimes(ctx context.Context, leadID string, times []string) error
	RemoveProposedTimes(ctx context.Context, leadID string) error
	Entries(ctx context.Context) ([]model.ProposedMeeting, error)
}

type ledgerService struct {
	repo repository.LedgerRepository
}

// NewLedger returns a Ledger backed by the given repository.
func NewLedger(repo repository.LedgerRepository) Ledger {
	return &ledgerService{repo: repo}
}

func (s *ledgerService) TakenTimes(ctx context.Context) (map[string]struct{}, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("taken times: %w", err)
	}

	taken := make(map[string]struct{})
	for _, entry := range entries {
		for _, t := range entry.MeetingTimes {
			taken[t] = struct{}{}
		}
	}
	return taken, nil
}

func (s *ledgerService) AddProposedTimes(ctx context.Context, leadID, leadName string, times []string) error {
	entry := &model.ProposedMeeting{
		LeadID:       leadID,
		LeadName:     leadName,
		MeetingTimes: times,
	}
	if err := s.repo.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("add proposed times: %w", err)
	}
	return nil
}

func (s *ledgerService) UpdateProposedTimes(ctx context.Context, leadID string, times []string) error {
	entry, err := s.repo.GetByLeadID(ctx, leadID)
	if err != nil {
		return fmt.Errorf("update proposed times: %w", err)
	}

	entry.MeetingTimes = times
	if err := s.repo.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("update proposed times: %w", err)
	}
	return nil
}

func (s *ledgerService) RemoveProposedTimes(ctx context.Context, leadID string) error {
	if err := s.repo.DeleteByLeadID(ctx, leadID); err != nil {
		return fmt.Errorf("remove proposed times: %w", err)
	}
	return nil
}

func (s *ledgerService) Entries(ctx context.Context) ([]model.ProposedMeeting, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, nil
}
