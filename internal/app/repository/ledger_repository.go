package repository

import (
	"context"
	"errors"

	"github.com/haugli/meetflow/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrLedgerEntryNotFound signals that no offer set exists for the lead.
	ErrLedgerEntryNotFound = errors.New("ledger entry not found")
)

// LedgerRepository defines the data access contract for the cross-lead slot ledger.
type LedgerRepository interface {
	List(ctx context.Context) ([]model.ProposedMeeting, error)
	GetByLeadID(ctx context.Context, leadID string) (*model.ProposedMeeting, error)
	Upsert(ctx context.Context, entry *model.ProposedMeeting) error
	DeleteByLeadID(ctx context.Context, leadID string) error
}

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository returns a GORM-backed LedgerRepository.
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) List(ctx context.Context) ([]model.ProposedMeeting, error) {
	var entries []model.ProposedMeeting
	if err := r.db.WithContext(ctx).
		Order("lead_id").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *ledgerRepository) GetByLeadID(ctx context.Context, leadID string) (*model.ProposedMeeting, error) {
	var entry model.ProposedMeeting
	if err := r.db.WithContext(ctx).Where("lead_id = ?", leadID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLedgerEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// Upsert replaces the lead's entire offer set. Full replace is deliberate:
// a re-generation supersedes every slot from an earlier outreach attempt.
func (r *ledgerRepository) Upsert(ctx context.Context, entry *model.ProposedMeeting) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lead_id"}},
			UpdateAll: true,
		}).
		Create(entry).Error
}

func (r *ledgerRepository) DeleteByLeadID(ctx context.Context, leadID string) error {
	return r.db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Delete(&model.ProposedMeeting{}).Error
}
