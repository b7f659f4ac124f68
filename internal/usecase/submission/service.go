package submission

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"deal-hub/internal/domain"
	"deal-hub/internal/infra/metrics"
)

// autoApproveScore — минимальная оценка, при которой сделка публикуется
// без ручной модерации.
const autoApproveScore = 8.5

// Options настраивают конвейер приёма сделок.
type Options struct {
	// StrictPricing запрещает трактовать нечисловую цену как ноль:
	// такой черновик отклоняется ещё до оценки качества.
	StrictPricing bool
}

// Service проводит черновик сделки через конвейер: нормализация цен,
// оценка качества, решение о публикации, сохранение.
type Service struct {
	repo     domain.DealRepo
	assessor domain.Assessor
	notifier domain.Notifier
	validate *validator.Validate
	log      zerolog.Logger
	opts     Options
}

// NewService создаёт конвейер. notifier может быть nil.
func NewService(repo domain.DealRepo, assessor domain.Assessor, notifier domain.Notifier, log zerolog.Logger, opts Options) *Service {
	return &Service{
		repo:     repo,
		assessor: assessor,
		notifier: notifier,
		validate: validator.New(),
		log:      log,
		opts:     opts,
	}
}

// Submit проводит черновик через конвейер. Любой исход выражается
// результатом, метод не возвращает ошибку и не паникует: источники
// сделок не должны падать из-за одного плохого черновика.
func (s *Service) Submit(ctx context.Context, draft domain.DealDraft) (result domain.SubmissionResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("title", draft.Title).Msg("submission: паника в конвейере")
			result = domain.SubmissionResult{Success: false, Message: "Deal processing failed"}
		}
		outcome := "rejected"
		switch {
		case result.Success && result.Published:
			outcome = "published"
		case result.Success:
			outcome = "pending"
		}
		metrics.IncSubmission(outcome)
		metrics.SubmissionSeconds.Observe(time.Since(start).Seconds())
	}()

	if err := s.validate.Struct(draft); err != nil {
		s.log.Warn().Err(err).Str("title", draft.Title).Msg("submission: черновик не прошёл валидацию")
		return domain.SubmissionResult{Success: false, Message: "Missing required fields: title, affiliate_url, store"}
	}

	normalized, err := normalizePricing(draft, s.opts.StrictPricing)
	if err != nil {
		s.log.Warn().Err(err).Str("title", draft.Title).Msg("submission: некорректные цены")
		return domain.SubmissionResult{Success: false, Message: fmt.Sprintf("Invalid pricing: %v", err)}
	}

	judgment := s.assessor.Assess(ctx, normalized)
	if !judgment.IsValid {
		s.log.Info().
			Str("title", normalized.Title).
			Float64("score", judgment.Score).
			Strs("reasons", judgment.Reasons).
			Msg("submission: сделка отклонена оценщиком")
		return domain.SubmissionResult{
			Success: false,
			Message: "Deal validation failed: " + strings.Join(judgment.Reasons, "; "),
		}
	}

	deal := buildDeal(normalized, judgment)
	published := judgment.Score >= autoApproveScore
	deal.IsApproved = published

	saved, err := s.repo.CreateDeal(ctx, deal)
	if err != nil {
		s.log.Error().Err(err).Str("title", deal.Title).Msg("submission: не удалось сохранить сделку")
		return domain.SubmissionResult{Success: false, Message: "Deal processing failed"}
	}

	if published && s.notifier != nil {
		// Анонс не влияет на итог публикации.
		if err := s.notifier.NotifyPublished(ctx, saved); err != nil {
			s.log.Warn().Err(err).Str("deal", saved.ID).Msg("submission: анонс не отправлен")
		}
	}

	message := "Deal submitted for review"
	if published {
		message = "Deal approved and published!"
	}
	s.log.Info().
		Str("deal", saved.ID).
		Float64("score", judgment.Score).
		Bool("published", published).
		Msg("submission: сделка принята")
	return domain.SubmissionResult{Success: true, DealID: saved.ID, Published: published, Message: message}
}

// normalizePricing выводит процент скидки из пары цен, если он не задан.
// Скидка выводится только когда обе цены присланы: отсутствующая цена не
// трактуется как ноль. Нечисловая цена даёт ноль, в строгом режиме — ошибку.
func normalizePricing(draft domain.DealDraft, strict bool) (domain.DealDraft, error) {
	original, err := parsePrice(draft.OriginalPrice)
	if err != nil && strict {
		return domain.DealDraft{}, fmt.Errorf("original_price %q: %w", draft.OriginalPrice, err)
	}
	sale, err := parsePrice(draft.SalePrice)
	if err != nil && strict {
		return domain.DealDraft{}, fmt.Errorf("sale_price %q: %w", draft.SalePrice, err)
	}
	bothSupplied := draft.OriginalPrice != "" && draft.SalePrice != ""
	if draft.DiscountPercentage == 0 && bothSupplied && original > 0 && sale >= 0 && sale <= original {
		draft.DiscountPercentage = int(math.Round((original - sale) / original * 100))
	}
	return draft, nil
}

func parsePrice(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	return v, nil
}

func buildDeal(draft domain.DealDraft, judgment domain.Judgment) domain.Deal {
	title := draft.Title
	if judgment.SuggestedTitle != "" {
		title = judgment.SuggestedTitle
	}
	category := draft.Category
	if judgment.Category != "" {
		category = judgment.Category
	}
	return domain.Deal{
		Title:              title,
		Description:        draft.Description,
		OriginalPrice:      draft.OriginalPrice,
		SalePrice:          draft.SalePrice,
		DiscountPercentage: draft.DiscountPercentage,
		ImageURL:           draft.ImageURL,
		AffiliateURL:       draft.AffiliateURL,
		Store:              draft.Store,
		StoreLogoURL:       draft.StoreLogoURL,
		Category:           category,
		Rating:             draft.Rating,
		ReviewCount:        draft.ReviewCount,
		ExpiresAt:          draft.ExpiresAt,
		IsActive:           true,
		QualityScore:       judgment.Score,
		QualityReasons:     judgment.Reasons,
		Tier:               judgment.Tier,
		SourceLabel:        draft.SourceLabel,
	}
}
