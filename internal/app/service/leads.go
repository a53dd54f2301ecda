package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/haugli/meetflow/internal/app/model"
	"github.com/haugli/meetflow/internal/app/repository"
	"go.uber.org/zap"
)

// LeadService exposes the lead lifecycle operations the booking core owns.
type LeadService interface {
	Get(ctx context.Context, id string) (*model.Lead, error)
	// Delete purges the lead together with its short links and ledger entry
	// so no orphaned redirect targets or taken-time claims remain.
	Delete(ctx context.Context, id string) error
}

type leadService struct {
	logger    *zap.Logger
	leads     repository.LeadRepository
	shortener Shortener
	ledger    Ledger
}

// NewLeadService returns a LeadService over the given collaborators.
func NewLeadService(logger *zap.Logger, leads repository.LeadRepository, shortener Shortener, ledger Ledger) LeadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &leadService{
		logger:    logger,
		leads:     leads,
		shortener: shortener,
		ledger:    ledger,
	}
}

func (s *leadService) Get(ctx context.Context, id string) (*model.Lead, error) {
	lead, err := s.leads.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

func (s *leadService) Delete(ctx context.Context, id string) error {
	lead, err := s.leads.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}

	if codes := shortCodesFromLinks(lead.BookingLinks); len(codes) > 0 {
		if err := s.shortener.DeleteCodes(ctx, codes); err != nil {
			return fmt.Errorf("delete lead: %w", err)
		}
	}

	if err := s.ledger.RemoveProposedTimes(ctx, id); err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}

	if err := s.leads.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}

	s.logger.Info("lead purged", zap.String("lead_id", id))
	return nil
}

// shortCodesFromLinks extracts the codes from stored short URLs. Links that
// fell back to the unshortened booking URL carry no code and are skipped.
func shortCodesFromLinks(links []string) []string {
	var codes []string
	for _, link := range links {
		marker := "/s/"
		idx := strings.LastIndex(link, marker)
		if idx < 0 {
			continue
		}
		code := link[idx+len(marker):]
		if cut := strings.IndexAny(code, "?#/"); cut >= 0 {
			code = code[:cut]
		}
		if code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}
