package service

import (
	"context"
	"errors"
	"testing"

	"github.com/haugli/meetflow/internal/app/model"
	"github.com/haugli/meetflow/internal/app/repository"
	"go.uber.org/zap"
)

type mockShortLinkRepository struct {
	byCode map[string]*model.ShortLink
	byURL  map[string]*model.ShortLink

	listCodesErr error
	getCodeFn    func(code string) (*model.ShortLink, error)
	createFn     func(link *model.ShortLink) error
	created      []*model.ShortLink
	deleted      [][]string
}

func newMockShortLinkRepository() *mockShortLinkRepository {
	return &mockShortLinkRepository{
		byCode: map[string]*model.ShortLink{},
		byURL:  map[string]*model.ShortLink{},
	}
}

func (m *mockShortLinkRepository) add(code, url string) {
	link := &model.ShortLink{Code: code, URL: url}
	m.byCode[code] = link
	m.byURL[url] = link
}

func (m *mockShortLinkRepository) Create(ctx context.Context, link *model.ShortLink) error {
	if m.createFn != nil {
		if err := m.createFn(link); err != nil {
			return err
		}
	}
	m.created = append(m.created, link)
	m.byCode[link.Code] = link
	m.byURL[link.URL] = link
	return nil
}

func (m *mockShortLinkRepository) GetByCode(ctx context.Context, code string) (*model.ShortLink, error) {
	if m.getCodeFn != nil {
		return m.getCodeFn(code)
	}
	if link, ok := m.byCode[code]; ok {
		return link, nil
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockShortLinkRepository) GetByURL(ctx context.Context, url string) (*model.ShortLink, error) {
	if link, ok := m.byURL[url]; ok {
		return link, nil
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockShortLinkRepository) ListCodes(ctx context.Context) ([]string, error) {
	if m.listCodesErr != nil {
		return nil, m.listCodesErr
	}
	codes := make([]string, 0, len(m.byCode))
	for code := range m.byCode {
		codes = append(codes, code)
	}
	return codes, nil
}

func (m *mockShortLinkRepository) DeleteByCodes(ctx context.Context, codes []string) error {
	m.deleted = append(m.deleted, codes)
	for _, code := range codes {
		if link, ok := m.byCode[code]; ok {
			delete(m.byURL, link.URL)
			delete(m.byCode, code)
		}
	}
	return nil
}

func TestShortenIsIdempotentPerURL(t *testing.T) {
	repo := newMockShortLinkRepository()
	svc := NewShortener(context.Background(), repo, nil, zap.NewNop())

	first, err := svc.Shorten(context.Background(), "https://meet.haugli.no/book/tok-1?e=a@b.no")
	if err != nil {
		t.Fatalf("Shorten returned error: %v", err)
	}
	if len(first) != codeLength {
		t.Errorf("code length = %d, want %d", len(first), codeLength)
	}

	second, err := svc.Shorten(context.Background(), "https://meet.haugli.no/book/tok-1?e=a@b.no")
	if err != nil {
		t.Fatalf("Shorten returned error: %v", err)
	}
	if second != first {
		t.Errorf("same URL produced two codes: %s and %s", first, second)
	}
	if len(repo.created) != 1 {
		t.Errorf("expected a single stored link, got %d", len(repo.created))
	}
}

func TestShortenDistinctURLsGetDistinctCodes(t *testing.T) {
	repo := newMockShortLinkRepository()
	svc := NewShortener(context.Background(), repo, nil, zap.NewNop())

	a, err := svc.Shorten(context.Background(), "https://meet.haugli.no/book/tok-a")
	if err != nil {
		t.Fatalf("Shorten returned error: %v", err)
	}
	b, err := svc.Shorten(context.Background(), "https://meet.haugli.no/book/tok-b")
	if err != nil {
		t.Fatalf("Shorten returned error: %v", err)
	}
	if a == b {
		t.Errorf("distinct URLs shared code %s", a)
	}
}

func TestShortenRerollsOnCollision(t *testing.T) {
	repo := newMockShortLinkRepository()
	// First code probe collides, every later one is free.
	probes := 0
	repo.getCodeFn = func(code string) (*model.ShortLink, error) {
		probes++
		if probes == 1 {
			return &model.ShortLink{Code: code, URL: "https://elsewhere"}, nil
		}
		return nil, repository.ErrLinkNotFound
	}
	svc := NewShortener(context.Background(), repo, nil, zap.NewNop())

	code, err := svc.Shorten(context.Background(), "https://meet.haugli.no/book/tok-c")
	if err != nil {
		t.Fatalf("Shorten returned error: %v", err)
	}
	if code == "" {
		t.Fatal("expected a code after re-roll")
	}
	if probes < 2 {
		t.Errorf("expected a re-roll after the collision, got %d probes", probes)
	}
}

func TestShortenConcurrentInsertReturnsWinnersCode(t *testing.T) {
	repo := newMockShortLinkRepository()
	// Another writer stores the same URL between our lookup and insert; the
	// unique url index rejects our row.
	repo.createFn = func(link *model.ShortLink) error {
		repo.add("winner7", link.URL)
		return errors.New(`duplicate key value violates unique constraint "idx_short_links_url"`)
	}
	svc := NewShortener(context.Background(), repo, nil, zap.NewNop())

	code, err := svc.Shorten(context.Background(), "https://meet.haugli.no/book/tok-race")
	if err != nil {
		t.Fatalf("Shorten returned error: %v", err)
	}
	if code != "winner7" {
		t.Errorf("code = %q, want the concurrent winner's code", code)
	}
}

func TestResolveRoundTrip(t *testing.T) {
	repo := newMockShortLinkRepository()
	svc := NewShortener(context.Background(), repo, nil, zap.NewNop())

	code, err := svc.Shorten(context.Background(), "https://meet.haugli.no/book/tok-d")
	if err != nil {
		t.Fatalf("Shorten returned error: %v", err)
	}

	url, err := svc.Resolve(context.Background(), code)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if url != "https://meet.haugli.no/book/tok-d" {
		t.Errorf("resolved %s", url)
	}
}

func TestResolveUnknownCode(t *testing.T) {
	repo := newMockShortLinkRepository()
	repo.add("known77", "https://meet.haugli.no/book/tok-e")
	svc := NewShortener(context.Background(), repo, nil, zap.NewNop())

	if _, err := svc.Resolve(context.Background(), "absent99"); !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
	if _, err := svc.Resolve(context.Background(), ""); !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound for empty code, got %v", err)
	}
}

func TestResolveSurvivesFilterWarmupFailure(t *testing.T) {
	repo := newMockShortLinkRepository()
	repo.add("warm123", "https://meet.haugli.no/book/tok-f")
	repo.listCodesErr = errors.New("postgres down during boot")
	svc := NewShortener(context.Background(), repo, nil, zap.NewNop())

	url, err := svc.Resolve(context.Background(), "warm123")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if url != "https://meet.haugli.no/book/tok-f" {
		t.Errorf("resolved %s", url)
	}
}

func TestDeleteCodesRemovesLinks(t *testing.T) {
	repo := newMockShortLinkRepository()
	repo.add("gone111", "https://meet.haugli.no/book/tok-g")
	repo.add("kept222", "https://meet.haugli.no/book/tok-h")
	svc := NewShortener(context.Background(), repo, nil, zap.NewNop())

	if err := svc.DeleteCodes(context.Background(), []string{"gone111"}); err != nil {
		t.Fatalf("DeleteCodes returned error: %v", err)
	}

	if _, err := svc.Resolve(context.Background(), "gone111"); !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("expected deleted code to be unresolvable, got %v", err)
	}
	if _, err := svc.Resolve(context.Background(), "kept222"); err != nil {
		t.Fatalf("unrelated code must survive, got %v", err)
	}

	// Empty input is a no-op, not a repo call.
	before := len(repo.deleted)
	if err := svc.DeleteCodes(context.Background(), nil); err != nil {
		t.Fatalf("DeleteCodes(nil) returned error: %v", err)
	}
	if len(repo.deleted) != before {
		t.Error("empty delete must not hit the repository")
	}
}
