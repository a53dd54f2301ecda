package repository

import (
	"context"
	"errors"

	"github.com/haugli/meetflow/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrLeadNotFound signals that the requested lead does not exist.
	ErrLeadNotFound = errors.New("lead not found")
)

// LeadRepository defines the data access contract for lead records. The
// booking core reads and updates meeting fields; everything else belongs to
// the upstream outreach flow.
type LeadRepository interface {
	GetByID(ctx context.Context, id string) (*model.Lead, error)
	List(ctx context.Context) ([]model.Lead, error)
	Update(ctx context.Context, lead *model.Lead) error
	Delete(ctx context.Context, id string) error
}

type leadRepository struct {
	db *gorm.DB
}

// NewLeadRepository returns a GORM-backed LeadRepository.
func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &leadRepository{db: db}
}

func (r *leadRepository) GetByID(ctx context.Context, id string) (*model.Lead, error) {
	var lead model.Lead
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&lead).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	return &lead, nil
}

func (r *leadRepository) List(ctx context.Context) ([]model.Lead, error) {
	var leads []model.Lead
	if err := r.db.WithContext(ctx).
		Order("created_at").
		Find(&leads).Error; err != nil {
		return nil, err
	}
	return leads, nil
}

func (r *leadRepository) Update(ctx context.Context, lead *model.Lead) error {
	// Select forces the meeting fields through even when they are zero, and
	// keeps the JSON serializer applied to the slice columns.
	result := r.db.WithContext(ctx).
		Model(&model.Lead{}).
		Where("id = ?", lead.ID).
		Select("meeting_dates", "booking_links", "booked_slot_index", "meeting_status").
		Updates(lead)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func (r *leadRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.Lead{}).Error
}
