package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/haugli/meetflow/internal/app/model"
	"github.com/haugli/meetflow/internal/app/repository"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	codeLength   = 7
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	maxCodeAttempts = 10

	cacheKeyPrefix = "shortlink:"
	cacheTTL       = 24 * time.Hour

	bloomCapacity      = 100_000
	bloomFalsePositive = 0.01
)

// Shortener maps full booking URLs to compact redirect codes. It has no
// knowledge of booking semantics; it is a generic code-to-URL map reused to
// fit long booking URLs into length-capped email and CRM fields.
type Shortener interface {
	// Shorten returns a code for the URL, reusing the existing code when the
	// same URL was shortened before.
	Shorten(ctx context.Context, fullURL string) (string, error)
	Resolve(ctx context.Context, code string) (string, error)
	DeleteCodes(ctx context.Context, codes []string) error
}

type shortener struct {
	repo   repository.ShortLinkRepository
	cache  *goredis.Client
	logger *zap.Logger

	// filter answers "definitely unknown code" without touching Redis or
	// Postgres. Nil when the warm-up read failed; lookups then always fall
	// through to the stores.
	mu     sync.Mutex
	filter *bloom.BloomFilter
}

// NewShortener returns a Shortener backed by Postgres with a Redis
// read-through cache. The bloom filter is warmed from the existing codes.
func NewShortener(ctx context.Context, repo repository.ShortLinkRepository, cache *goredis.Client, logger *zap.Logger) Shortener {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &shortener{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}

	codes, err := repo.ListCodes(ctx)
	if err != nil {
		logger.Warn("short link filter warm-up failed, lookups go straight to storage", zap.Error(err))
		return s
	}

	filter := bloom.NewWithEstimates(bloomCapacity, bloomFalsePositive)
	for _, code := range codes {
		filter.AddString(code)
	}
	s.filter = filter
	return s
}

func (s *shortener) Shorten(ctx context.Context, fullURL string) (string, error) {
	// Idempotent per URL: a retried request must not churn out a new link.
	existing, err := s.repo.GetByURL(ctx, fullURL)
	if err == nil {
		return existing.Code, nil
	}
	if !errors.Is(err, repository.ErrLinkNotFound) {
		return "", fmt.Errorf("shorten: lookup url: %w", err)
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", fmt.Errorf("shorten: generate code: %w", err)
		}

		if _, err := s.repo.GetByCode(ctx, code); err == nil {
			continue // collision, re-roll
		} else if !errors.Is(err, repository.ErrLinkNotFound) {
			return "", fmt.Errorf("shorten: check code: %w", err)
		}

		link := &model.ShortLink{Code: code, URL: fullURL}
		if err := s.repo.Create(ctx, link); err != nil {
			// The unique url index rejects a concurrent insert of the same
			// URL; the winner's code is the answer then.
			if existing, lookupErr := s.repo.GetByURL(ctx, fullURL); lookupErr == nil {
				return existing.Code, nil
			}
			return "", fmt.Errorf("shorten: create link: %w", err)
		}

		s.rememberCode(code)
		s.cacheSet(ctx, code, fullURL)
		return code, nil
	}

	return "", fmt.Errorf("shorten: exhausted %d code attempts", maxCodeAttempts)
}

func (s *shortener) Resolve(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", repository.ErrLinkNotFound
	}

	s.mu.Lock()
	unknown := s.filter != nil && !s.filter.TestString(code)
	s.mu.Unlock()
	if unknown {
		return "", repository.ErrLinkNotFound
	}

	if s.cache != nil {
		if url, err := s.cache.Get(ctx, cacheKeyPrefix+code).Result(); err == nil {
			return url, nil
		} else if !errors.Is(err, goredis.Nil) {
			s.logger.Warn("short link cache read failed", zap.Error(err), zap.String("code", code))
		}
	}

	link, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return "", err
		}
		return "", fmt.Errorf("resolve: %w", err)
	}

	s.cacheSet(ctx, code, link.URL)
	return link.URL, nil
}

func (s *shortener) DeleteCodes(ctx context.Context, codes []string) error {
	if len(codes) == 0 {
		return nil
	}

	if err := s.repo.DeleteByCodes(ctx, codes); err != nil {
		return fmt.Errorf("delete codes: %w", err)
	}

	// A deleted code stays in the bloom filter; the store lookup catches it.
	if s.cache != nil {
		keys := make([]string, len(codes))
		for i, code := range codes {
			keys[i] = cacheKeyPrefix + code
		}
		if err := s.cache.Del(ctx, keys...).Err(); err != nil {
			s.logger.Warn("short link cache invalidation failed", zap.Error(err))
		}
	}
	return nil
}

func (s *shortener) rememberCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filter != nil {
		s.filter.AddString(code)
	}
}

func (s *shortener) cacheSet(ctx context.Context, code, url string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKeyPrefix+code, url, cacheTTL).Err(); err != nil {
		s.logger.Warn("short link cache write failed", zap.Error(err), zap.String("code", code))
	}
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
