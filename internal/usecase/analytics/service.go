package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"deal-hub/internal/domain"
	"deal-hub/internal/infra/metrics"
)

const (
	snapshotCacheKey = "analytics:snapshot"
	snapshotCacheTTL = 30 * time.Second
)

// Service считает переходы и шаринги, пересчитывает популярность
// и отдаёт сводку для админки.
type Service struct {
	deals  domain.DealRepo
	events domain.EventRepo
	cache  domain.Cache
	log    zerolog.Logger
}

// NewService создаёт сервис аналитики. cache может быть nil, тогда
// сводка считается на каждый запрос.
func NewService(deals domain.DealRepo, events domain.EventRepo, cache domain.Cache, log zerolog.Logger) *Service {
	return &Service{deals: deals, events: events, cache: cache, log: log}
}

// ClickThrough фиксирует переход и возвращает партнёрскую ссылку
// с метками источника. Счётчик сделки растёт атомарно в БД.
func (s *Service) ClickThrough(ctx context.Context, dealID string, meta domain.ClickMeta) (string, error) {
	deal, err := s.deals.GetDeal(ctx, dealID)
	if err != nil {
		return "", err
	}
	if !deal.IsActive {
		return "", domain.ErrDealInactive
	}
	if _, err := s.events.InsertClick(ctx, dealID, meta); err != nil {
		return "", fmt.Errorf("запись перехода: %w", err)
	}
	metrics.ClicksTotal.Inc()
	return decorateAffiliateURL(deal.AffiliateURL, dealID), nil
}

// RecordShare фиксирует шаринг сделки.
func (s *Service) RecordShare(ctx context.Context, dealID, platform string, meta domain.ShareMeta) (domain.ShareEvent, error) {
	if platform == "" {
		platform = "unknown"
	}
	event, err := s.events.InsertShare(ctx, dealID, platform, meta)
	if err != nil {
		return domain.ShareEvent{}, err
	}
	metrics.SharesTotal.WithLabelValues(platform).Inc()
	return event, nil
}

// RecomputePopularity пересчитывает популярность всех видимых сделок.
func (s *Service) RecomputePopularity(ctx context.Context) error {
	if err := s.deals.BulkRecomputePopularity(ctx); err != nil {
		return fmt.Errorf("пересчёт популярности: %w", err)
	}
	s.log.Info().Msg("analytics: популярность пересчитана")
	return nil
}

// Snapshot возвращает сводные счётчики. Свежая сводка ненадолго
// кэшируется, чтобы не дёргать БД на каждый запрос админки.
func (s *Service) Snapshot(ctx context.Context) (domain.AnalyticsSnapshot, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(snapshotCacheKey); err == nil && len(raw) > 0 {
			var cached domain.AnalyticsSnapshot
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}
	snapshot, err := s.events.AnalyticsSnapshot(ctx)
	if err != nil {
		return domain.AnalyticsSnapshot{}, fmt.Errorf("сводка аналитики: %w", err)
	}
	if s.cache != nil {
		raw, err := json.Marshal(snapshot)
		if err == nil {
			if err := s.cache.Set(snapshotCacheKey, raw, snapshotCacheTTL); err != nil {
				s.log.Warn().Err(err).Msg("analytics: не удалось закэшировать сводку")
			}
		}
	}
	return snapshot, nil
}

// decorateAffiliateURL добавляет к партнёрской ссылке метки источника.
// Некорректная ссылка возвращается как есть.
func decorateAffiliateURL(raw, dealID string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("ref", "dealhub")
	q.Set("deal_id", dealID)
	u.RawQuery = q.Encode()
	return u.String()
}
