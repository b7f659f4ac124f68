package assessor

import (
	"context"

	"deal-hub/internal/domain"
)

// fallbackReason попадает в вердикт, когда внешний оценщик недоступен.
const fallbackReason = "fallback validation: external assessor unavailable"

// Fallback выносит детерминированный вердикт по порогам скидки.
// Используется как запасное правило LLM-оценщика и как самостоятельный
// оценщик, когда ключ внешнего сервиса не задан.
type Fallback struct{}

// NewFallback создаёт оценщик.
func NewFallback() *Fallback {
	return &Fallback{}
}

// Assess реализует domain.Assessor.
func (f *Fallback) Assess(_ context.Context, draft domain.DealDraft) domain.Judgment {
	return fallbackJudgment(draft)
}

func fallbackJudgment(draft domain.DealDraft) domain.Judgment {
	discount := draft.DiscountPercentage
	score := 5.0
	tier := domain.TierLatest
	switch {
	case discount >= 70:
		score = 9
		tier = domain.TierTop
	case discount >= 50:
		score = 7
		tier = domain.TierHot
	case discount >= 30:
		score = 6
		tier = domain.TierHot
	}
	category := draft.Category
	if category == "" {
		category = "other"
	}
	return domain.Judgment{
		IsValid:  discount >= 10 && score >= 4,
		Score:    score,
		Category: category,
		Tier:     tier,
		Reasons:  []string{fallbackReason},
	}
}
