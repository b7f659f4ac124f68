package submission

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"deal-hub/internal/domain"
)

type stubAssessor struct {
	judgment domain.Judgment
	seen     domain.DealDraft
}

func (s *stubAssessor) Assess(_ context.Context, draft domain.DealDraft) domain.Judgment {
	s.seen = draft
	return s.judgment
}

type stubRepo struct {
	domain.DealRepo
	created *domain.Deal
	err     error
}

func (s *stubRepo) CreateDeal(_ context.Context, deal domain.Deal) (domain.Deal, error) {
	if s.err != nil {
		return domain.Deal{}, s.err
	}
	deal.ID = "deal-1"
	s.created = &deal
	return deal, nil
}

type stubNotifier struct {
	notified int
	err      error
}

func (s *stubNotifier) NotifyPublished(context.Context, domain.Deal) error {
	s.notified++
	return s.err
}

func validDraft() domain.DealDraft {
	return domain.DealDraft{
		Title:         "Беспроводные наушники",
		OriginalPrice: "59.99",
		SalePrice:     "19.99",
		AffiliateURL:  "https://example.com/deal",
		Store:         "TechStore",
	}
}

func approvedJudgment(score float64) domain.Judgment {
	return domain.Judgment{IsValid: true, Score: score, Category: "electronics", Tier: domain.TierHot}
}

func TestSubmitDerivesDiscount(t *testing.T) {
	assessor := &stubAssessor{judgment: approvedJudgment(7)}
	repo := &stubRepo{}
	svc := NewService(repo, assessor, nil, zerolog.Nop(), Options{})

	res := svc.Submit(context.Background(), validDraft())
	if !res.Success {
		t.Fatalf("ожидали успешный приём, получили: %s", res.Message)
	}
	if assessor.seen.DiscountPercentage != 67 {
		t.Fatalf("ожидали скидку 67%%, получили %d%%", assessor.seen.DiscountPercentage)
	}
	if repo.created == nil || repo.created.DiscountPercentage != 67 {
		t.Fatalf("скидка не дошла до сохранённой сделки: %+v", repo.created)
	}
}

func TestSubmitKeepsExplicitDiscount(t *testing.T) {
	assessor := &stubAssessor{judgment: approvedJudgment(7)}
	svc := NewService(&stubRepo{}, assessor, nil, zerolog.Nop(), Options{})

	draft := validDraft()
	draft.DiscountPercentage = 40
	svc.Submit(context.Background(), draft)
	if assessor.seen.DiscountPercentage != 40 {
		t.Fatalf("явная скидка не должна пересчитываться, получили %d%%", assessor.seen.DiscountPercentage)
	}
}

func TestSubmitNoDiscountWithoutBothPrices(t *testing.T) {
	cases := []struct {
		name  string
		draft func() domain.DealDraft
	}{
		{"без sale_price", func() domain.DealDraft {
			d := validDraft()
			d.SalePrice = ""
			return d
		}},
		{"без original_price", func() domain.DealDraft {
			d := validDraft()
			d.OriginalPrice = ""
			return d
		}},
	}
	for _, tc := range cases {
		assessor := &stubAssessor{judgment: approvedJudgment(7)}
		svc := NewService(&stubRepo{}, assessor, nil, zerolog.Nop(), Options{})
		svc.Submit(context.Background(), tc.draft())
		if assessor.seen.DiscountPercentage != 0 {
			t.Fatalf("%s: скидка не должна выводиться из одной цены, получили %d%%", tc.name, assessor.seen.DiscountPercentage)
		}
	}
}

func TestSubmitRejectsInvalidJudgment(t *testing.T) {
	assessor := &stubAssessor{judgment: domain.Judgment{
		IsValid: false,
		Score:   2,
		Reasons: []string{"discount too small", "price inflated"},
	}}
	repo := &stubRepo{}
	svc := NewService(repo, assessor, nil, zerolog.Nop(), Options{})

	res := svc.Submit(context.Background(), validDraft())
	if res.Success {
		t.Fatal("невалидная сделка не должна приниматься")
	}
	if repo.created != nil {
		t.Fatal("отклонённая сделка не должна сохраняться")
	}
	if !strings.Contains(res.Message, "discount too small") || !strings.Contains(res.Message, "price inflated") {
		t.Fatalf("в сообщении нет причин отклонения: %s", res.Message)
	}
}

func TestSubmitAutoApproveThreshold(t *testing.T) {
	cases := []struct {
		score     float64
		published bool
		message   string
	}{
		{8.5, true, "Deal approved and published!"},
		{8.4, false, "Deal submitted for review"},
	}
	for _, tc := range cases {
		repo := &stubRepo{}
		svc := NewService(repo, &stubAssessor{judgment: approvedJudgment(tc.score)}, nil, zerolog.Nop(), Options{})
		res := svc.Submit(context.Background(), validDraft())
		if res.Published != tc.published {
			t.Fatalf("оценка %.1f: ожидали published=%v", tc.score, tc.published)
		}
		if res.Message != tc.message {
			t.Fatalf("оценка %.1f: ожидали сообщение %q, получили %q", tc.score, tc.message, res.Message)
		}
		if repo.created.IsApproved != tc.published {
			t.Fatalf("оценка %.1f: флаг is_approved=%v не совпал с публикацией", tc.score, repo.created.IsApproved)
		}
	}
}

func TestSubmitUsesSuggestedTitle(t *testing.T) {
	judgment := approvedJudgment(9)
	judgment.SuggestedTitle = "🔥 Наушники за полцены"
	repo := &stubRepo{}
	svc := NewService(repo, &stubAssessor{judgment: judgment}, nil, zerolog.Nop(), Options{})

	svc.Submit(context.Background(), validDraft())
	if repo.created.Title != judgment.SuggestedTitle {
		t.Fatalf("ожидали заголовок от оценщика, получили %q", repo.created.Title)
	}
}

func TestSubmitMissingFields(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, &stubAssessor{judgment: approvedJudgment(9)}, nil, zerolog.Nop(), Options{})

	res := svc.Submit(context.Background(), domain.DealDraft{Title: "Без магазина и ссылки"})
	if res.Success {
		t.Fatal("черновик без обязательных полей должен отклоняться")
	}
	if repo.created != nil {
		t.Fatal("невалидный черновик не должен сохраняться")
	}
}

func TestSubmitStrictPricing(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, &stubAssessor{judgment: approvedJudgment(9)}, nil, zerolog.Nop(), Options{StrictPricing: true})

	draft := validDraft()
	draft.SalePrice = "N/A"
	res := svc.Submit(context.Background(), draft)
	if res.Success {
		t.Fatal("в строгом режиме нечисловая цена должна отклоняться")
	}
	if repo.created != nil {
		t.Fatal("сделка с нечисловой ценой не должна сохраняться")
	}
}

func TestSubmitLenientPricing(t *testing.T) {
	assessor := &stubAssessor{judgment: approvedJudgment(9)}
	svc := NewService(&stubRepo{}, assessor, nil, zerolog.Nop(), Options{})

	draft := validDraft()
	draft.OriginalPrice = "N/A"
	res := svc.Submit(context.Background(), draft)
	if !res.Success {
		t.Fatalf("в мягком режиме нечисловая цена трактуется как ноль: %s", res.Message)
	}
	if assessor.seen.DiscountPercentage != 0 {
		t.Fatalf("скидка из нулевой цены должна остаться 0, получили %d%%", assessor.seen.DiscountPercentage)
	}
}

func TestSubmitRepoError(t *testing.T) {
	svc := NewService(&stubRepo{err: errors.New("соединение разорвано")}, &stubAssessor{judgment: approvedJudgment(9)}, nil, zerolog.Nop(), Options{})

	res := svc.Submit(context.Background(), validDraft())
	if res.Success {
		t.Fatal("ошибка сохранения не должна выдаваться за успех")
	}
	if res.Message != "Deal processing failed" {
		t.Fatalf("неожиданное сообщение: %s", res.Message)
	}
}

func TestSubmitNotifierFailureDoesNotBlock(t *testing.T) {
	notifier := &stubNotifier{err: errors.New("чат недоступен")}
	svc := NewService(&stubRepo{}, &stubAssessor{judgment: approvedJudgment(9)}, notifier, zerolog.Nop(), Options{})

	res := svc.Submit(context.Background(), validDraft())
	if !res.Success || !res.Published {
		t.Fatalf("ошибка анонса не должна мешать публикации: %+v", res)
	}
	if notifier.notified != 1 {
		t.Fatalf("ожидали один анонс, получили %d", notifier.notified)
	}
}

func TestSubmitNoNotifyForPending(t *testing.T) {
	notifier := &stubNotifier{}
	svc := NewService(&stubRepo{}, &stubAssessor{judgment: approvedJudgment(6)}, notifier, zerolog.Nop(), Options{})

	svc.Submit(context.Background(), validDraft())
	if notifier.notified != 0 {
		t.Fatalf("сделка на модерации не анонсируется, получили %d анонсов", notifier.notified)
	}
}
