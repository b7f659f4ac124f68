package moderation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"deal-hub/internal/domain"
)

// Service обслуживает очередь ручной модерации.
type Service struct {
	repo       domain.DealRepo
	notifier   domain.Notifier
	log        zerolog.Logger
	pendingMax int
}

// NewService создаёт сервис модерации. notifier может быть nil.
func NewService(repo domain.DealRepo, notifier domain.Notifier, log zerolog.Logger, pendingMax int) *Service {
	return &Service{repo: repo, notifier: notifier, log: log, pendingMax: pendingMax}
}

// ListPending возвращает сделки, ожидающие решения модератора.
func (s *Service) ListPending(ctx context.Context) ([]domain.Deal, error) {
	deals, err := s.repo.ListPendingDeals(ctx, s.pendingMax)
	if err != nil {
		return nil, fmt.Errorf("выборка очереди модерации: %w", err)
	}
	return deals, nil
}

// Approve открывает сделку для публичной выдачи и анонсирует её.
func (s *Service) Approve(ctx context.Context, id string) (domain.Deal, error) {
	deal, err := s.repo.ApproveDeal(ctx, id)
	if err != nil {
		return domain.Deal{}, err
	}
	s.log.Info().Str("deal", deal.ID).Msg("moderation: сделка одобрена")
	if s.notifier != nil {
		if err := s.notifier.NotifyPublished(ctx, deal); err != nil {
			s.log.Warn().Err(err).Str("deal", deal.ID).Msg("moderation: анонс не отправлен")
		}
	}
	return deal, nil
}

// Reject выключает сделку. Повторное отклонение — ок, запись уже неактивна.
func (s *Service) Reject(ctx context.Context, id string) error {
	if err := s.repo.RejectDeal(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("deal", id).Msg("moderation: сделка отклонена")
	return nil
}

// Edit применяет правки модератора к сделке.
func (s *Service) Edit(ctx context.Context, id string, patch domain.DealPatch) (domain.Deal, error) {
	deal, err := s.repo.UpdateDeal(ctx, id, patch)
	if err != nil {
		return domain.Deal{}, err
	}
	s.log.Info().Str("deal", deal.ID).Msg("moderation: сделка отредактирована")
	return deal, nil
}
