package repository

import (
	"context"
	"errors"

	"github.com/haugli/meetflow/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrLinkNotFound signals that the requested short link does not exist.
	ErrLinkNotFound = errors.New("short link not found")
)

// ShortLinkRepository defines the data access contract for short links.
type ShortLinkRepository interface {
	Create(ctx context.Context, link *model.ShortLink) error
	GetByCode(ctx context.Context, code string) (*model.ShortLink, error)
	GetByURL(ctx context.Context, url string) (*model.ShortLink, error)
	ListCodes(ctx context.Context) ([]string, error)
	DeleteByCodes(ctx context.Context, codes []string) error
}

type shortLinkRepository struct {
	db *gorm.DB
}

// NewShortLinkRepository returns a GORM-backed ShortLinkRepository.
func NewShortLinkRepository(db *gorm.DB) ShortLinkRepository {
	return &shortLinkRepository{db: db}
}

func (r *shortLinkRepository) Create(ctx context.Context, link *model.ShortLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *shortLinkRepository) GetByCode(ctx context.Context, code string) (*model.ShortLink, error) {
	var link model.ShortLink
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *shortLinkRepository) GetByURL(ctx context.Context, url string) (*model.ShortLink, error) {
	var link model.ShortLink
	if err := r.db.WithContext(ctx).Where("url = ?", url).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *shortLinkRepository) ListCodes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).
		Model(&model.ShortLink{}).
		Pluck("code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *shortLinkRepository) DeleteByCodes(ctx context.Context, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("code IN ?", codes).
		Delete(&model.ShortLink{}).Error
}
