package domain

import (
	"context"
	"time"
)

// Assessor выносит вердикт по черновику сделки.
// Реализация обязана всегда возвращать Judgment: недоступность внешнего
// оценщика поглощается детерминированным запасным правилом.
type Assessor interface {
	Assess(ctx context.Context, draft DealDraft) Judgment
}

// DealRepo управляет сделками.
type DealRepo interface {
	CreateDeal(ctx context.Context, deal Deal) (Deal, error)
	GetDeal(ctx context.Context, id string) (Deal, error)
	UpdateDeal(ctx context.Context, id string, patch DealPatch) (Deal, error)
	ListDeals(ctx context.Context, filter DealFilter) ([]Deal, error)
	ListPendingDeals(ctx context.Context, limit int) ([]Deal, error)
	ApproveDeal(ctx context.Context, id string) (Deal, error)
	RejectDeal(ctx context.Context, id string) error
	BulkRecomputePopularity(ctx context.Context) error
}

// EventRepo сохраняет события аналитики. Вставка события и инкремент
// счётчика родительской сделки выполняются как одна транзакция.
type EventRepo interface {
	InsertClick(ctx context.Context, dealID string, meta ClickMeta) (ClickEvent, error)
	InsertShare(ctx context.Context, dealID, platform string, meta ShareMeta) (ShareEvent, error)
	AnalyticsSnapshot(ctx context.Context) (AnalyticsSnapshot, error)
}

// DealPatch перечисляет изменяемые модерацией поля сделки.
// nil-поле означает «не менять».
type DealPatch struct {
	Title       *string
	Description *string
	Category    *string
	ExpiresAt   *time.Time
}

// Notifier объявляет о публикации сделки во внешний канал.
type Notifier interface {
	NotifyPublished(ctx context.Context, deal Deal) error
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}
