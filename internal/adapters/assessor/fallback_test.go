package assessor

import (
	"context"
	"testing"

	"deal-hub/internal/domain"
)

func TestFallbackThresholds(t *testing.T) {
	cases := []struct {
		discount int
		score    float64
		tier     domain.DealTier
		valid    bool
	}{
		{75, 9, domain.TierTop, true},
		{70, 9, domain.TierTop, true},
		{55, 7, domain.TierHot, true},
		{30, 6, domain.TierHot, true},
		{15, 5, domain.TierLatest, true},
		{5, 5, domain.TierLatest, false},
	}
	f := NewFallback()
	for _, tc := range cases {
		j := f.Assess(context.Background(), domain.DealDraft{DiscountPercentage: tc.discount})
		if j.Score != tc.score {
			t.Fatalf("скидка %d: ожидали score %v, получили %v", tc.discount, tc.score, j.Score)
		}
		if j.Tier != tc.tier {
			t.Fatalf("скидка %d: ожидали витрину %s, получили %s", tc.discount, tc.tier, j.Tier)
		}
		if j.IsValid != tc.valid {
			t.Fatalf("скидка %d: ожидали isValid %v", tc.discount, tc.valid)
		}
	}
}

func TestFallbackReasonAndCategory(t *testing.T) {
	f := NewFallback()
	j := f.Assess(context.Background(), domain.DealDraft{DiscountPercentage: 40, Category: "home"})
	if len(j.Reasons) != 1 || j.Reasons[0] != fallbackReason {
		t.Fatalf("ожидали единственную причину о запасном правиле, получили %v", j.Reasons)
	}
	if j.Category != "home" {
		t.Fatalf("ожидали категорию черновика, получили %q", j.Category)
	}

	j = f.Assess(context.Background(), domain.DealDraft{DiscountPercentage: 40})
	if j.Category != "other" {
		t.Fatalf("ожидали категорию other для пустого черновика, получили %q", j.Category)
	}
}
