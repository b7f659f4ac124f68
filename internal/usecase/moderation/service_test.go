package moderation

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"deal-hub/internal/domain"
)

type stubDealRepo struct {
	domain.DealRepo
	deals       map[string]domain.Deal
	rejected    []string
	pendingSeen int
}

func (s *stubDealRepo) ListPendingDeals(_ context.Context, limit int) ([]domain.Deal, error) {
	s.pendingSeen = limit
	var out []domain.Deal
	for _, d := range s.deals {
		if d.IsActive && !d.IsApproved {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *stubDealRepo) ApproveDeal(_ context.Context, id string) (domain.Deal, error) {
	d, ok := s.deals[id]
	if !ok {
		return domain.Deal{}, domain.ErrDealNotFound
	}
	if !d.IsActive {
		return domain.Deal{}, domain.ErrDealInactive
	}
	d.IsApproved = true
	s.deals[id] = d
	return d, nil
}

func (s *stubDealRepo) RejectDeal(_ context.Context, id string) error {
	d, ok := s.deals[id]
	if !ok {
		return domain.ErrDealNotFound
	}
	d.IsActive = false
	s.deals[id] = d
	s.rejected = append(s.rejected, id)
	return nil
}

type stubNotifier struct {
	notified []string
	err      error
}

func (s *stubNotifier) NotifyPublished(_ context.Context, deal domain.Deal) error {
	s.notified = append(s.notified, deal.ID)
	return s.err
}

func newRepo() *stubDealRepo {
	return &stubDealRepo{deals: map[string]domain.Deal{
		"pending": {ID: "pending", Title: "На модерации", IsActive: true},
		"dead":    {ID: "dead", Title: "Надгробие", IsActive: false},
	}}
}

func TestApprovePublishesAndNotifies(t *testing.T) {
	repo := newRepo()
	notifier := &stubNotifier{}
	svc := NewService(repo, notifier, zerolog.Nop(), 20)

	deal, err := svc.Approve(context.Background(), "pending")
	if err != nil {
		t.Fatalf("одобрение не должно падать: %v", err)
	}
	if !deal.IsApproved {
		t.Fatal("после одобрения сделка должна быть опубликована")
	}
	if len(notifier.notified) != 1 || notifier.notified[0] != "pending" {
		t.Fatalf("ожидали анонс одобренной сделки, получили %v", notifier.notified)
	}
}

func TestApproveNotifierFailureIsSoft(t *testing.T) {
	svc := NewService(newRepo(), &stubNotifier{err: errors.New("чат недоступен")}, zerolog.Nop(), 20)

	if _, err := svc.Approve(context.Background(), "pending"); err != nil {
		t.Fatalf("ошибка анонса не должна срывать одобрение: %v", err)
	}
}

func TestApproveUnknownDeal(t *testing.T) {
	svc := NewService(newRepo(), nil, zerolog.Nop(), 20)

	_, err := svc.Approve(context.Background(), "missing")
	if !errors.Is(err, domain.ErrDealNotFound) {
		t.Fatalf("ожидали ErrDealNotFound, получили %v", err)
	}
}

func TestApproveInactiveDeal(t *testing.T) {
	svc := NewService(newRepo(), nil, zerolog.Nop(), 20)

	_, err := svc.Approve(context.Background(), "dead")
	if !errors.Is(err, domain.ErrDealInactive) {
		t.Fatalf("ожидали ErrDealInactive, получили %v", err)
	}
}

func TestRejectTombstones(t *testing.T) {
	repo := newRepo()
	svc := NewService(repo, nil, zerolog.Nop(), 20)

	if err := svc.Reject(context.Background(), "pending"); err != nil {
		t.Fatalf("отклонение не должно падать: %v", err)
	}
	if repo.deals["pending"].IsActive {
		t.Fatal("отклонённая сделка должна стать неактивной")
	}
	deals, err := svc.ListPending(context.Background())
	if err != nil {
		t.Fatalf("выборка очереди упала: %v", err)
	}
	if len(deals) != 0 {
		t.Fatalf("отклонённая сделка не должна оставаться в очереди: %v", deals)
	}
}

func TestListPendingUsesLimit(t *testing.T) {
	repo := newRepo()
	svc := NewService(repo, nil, zerolog.Nop(), 7)

	if _, err := svc.ListPending(context.Background()); err != nil {
		t.Fatalf("выборка очереди упала: %v", err)
	}
	if repo.pendingSeen != 7 {
		t.Fatalf("ожидали лимит 7, репозиторий получил %d", repo.pendingSeen)
	}
}
