package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"deal-hub/internal/domain"
	"deal-hub/internal/infra/metrics"
)

// Postgres реализует репозитории сделок и событий на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.DealRepo  = (*Postgres)(nil)
	_ domain.EventRepo = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

const dealColumns = `id, title, description, original_price, sale_price, discount_percentage,
image_url, affiliate_url, store, store_logo_url, category, rating, review_count, expires_at,
is_active, is_approved, quality_score, quality_reasons, popularity, click_count, share_count,
tier, source_label, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeal(row rowScanner) (domain.Deal, error) {
	var (
		d            domain.Deal
		description  sql.NullString
		imageURL     sql.NullString
		storeLogoURL sql.NullString
		rating       sql.NullString
		expiresAt    sql.NullTime
		score        sql.NullFloat64
		reasonsJSON  []byte
	)
	err := row.Scan(&d.ID, &d.Title, &description, &d.OriginalPrice, &d.SalePrice, &d.DiscountPercentage,
		&imageURL, &d.AffiliateURL, &d.Store, &storeLogoURL, &d.Category, &rating, &d.ReviewCount, &expiresAt,
		&d.IsActive, &d.IsApproved, &score, &reasonsJSON, &d.Popularity, &d.ClickCount, &d.ShareCount,
		&d.Tier, &d.SourceLabel, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return domain.Deal{}, err
	}
	if description.Valid {
		d.Description = description.String
	}
	if imageURL.Valid {
		d.ImageURL = imageURL.String
	}
	if storeLogoURL.Valid {
		d.StoreLogoURL = storeLogoURL.String
	}
	if rating.Valid {
		d.Rating = rating.String
	}
	if expiresAt.Valid {
		ts := expiresAt.Time
		d.ExpiresAt = &ts
	}
	if score.Valid {
		d.QualityScore = score.Float64
	}
	if len(reasonsJSON) > 0 {
		if err := json.Unmarshal(reasonsJSON, &d.QualityReasons); err != nil {
			return domain.Deal{}, fmt.Errorf("распаковка quality_reasons: %w", err)
		}
	}
	return d, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// CreateDeal сохраняет новую сделку и возвращает её с идентификатором
// и таймстампами из БД.
func (p *Postgres) CreateDeal(ctx context.Context, deal domain.Deal) (domain.Deal, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	if deal.ID == "" {
		deal.ID = uuid.NewString()
	}
	reasonsJSON, err := json.Marshal(deal.QualityReasons)
	if err != nil {
		return domain.Deal{}, fmt.Errorf("сериализация quality_reasons: %w", err)
	}

	var expiresAt sql.NullTime
	if deal.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: *deal.ExpiresAt, Valid: true}
	}

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
INSERT INTO deals (id, title, description, original_price, sale_price, discount_percentage,
image_url, affiliate_url, store, store_logo_url, category, rating, review_count, expires_at,
is_active, is_approved, quality_score, quality_reasons, popularity, click_count, share_count,
tier, source_label)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
RETURNING `+dealColumns+`
`, deal.ID, deal.Title, nullString(deal.Description), deal.OriginalPrice, deal.SalePrice, deal.DiscountPercentage,
		nullString(deal.ImageURL), deal.AffiliateURL, deal.Store, nullString(deal.StoreLogoURL), deal.Category,
		nullString(deal.Rating), deal.ReviewCount, expiresAt, deal.IsActive, deal.IsApproved, deal.QualityScore,
		reasonsJSON, deal.Popularity, deal.ClickCount, deal.ShareCount, deal.Tier, deal.SourceLabel)
	created, err := scanDeal(row)
	metrics.ObserveNetworkRequest("postgres", "deals_insert", "deals", start, err)
	return created, err
}

// GetDeal возвращает сделку по идентификатору.
func (p *Postgres) GetDeal(ctx context.Context, id string) (domain.Deal, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE id=$1`, id)
	deal, err := scanDeal(row)
	metrics.ObserveNetworkRequest("postgres", "deals_get", "deals", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Deal{}, domain.ErrDealNotFound
	}
	return deal, err
}

// UpdateDeal применяет модерационные правки. nil-поля патча не меняются.
func (p *Postgres) UpdateDeal(ctx context.Context, id string, patch domain.DealPatch) (domain.Deal, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
UPDATE deals
SET title=COALESCE($2, title),
    description=COALESCE($3, description),
    category=COALESCE($4, category),
    expires_at=COALESCE($5, expires_at),
    updated_at=now()
WHERE id=$1
RETURNING `+dealColumns+`
`, id, patch.Title, patch.Description, patch.Category, patch.ExpiresAt)
	deal, err := scanDeal(row)
	metrics.ObserveNetworkRequest("postgres", "deals_update", "deals", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Deal{}, domain.ErrDealNotFound
	}
	return deal, err
}

// ListDeals возвращает публично видимые сделки: активные, одобренные,
// упорядоченные по популярности и свежести.
func (p *Postgres) ListDeals(ctx context.Context, filter domain.DealFilter) ([]domain.Deal, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	query := `SELECT ` + dealColumns + ` FROM deals WHERE is_active=true AND is_approved=true`
	args := make([]any, 0, 3)
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category=$%d", len(args))
	}
	if filter.Tier != "" {
		args = append(args, filter.Tier)
		query += fmt.Sprintf(" AND tier=$%d", len(args))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY popularity DESC, created_at DESC LIMIT $%d", len(args))

	start := time.Now()
	rows, err := p.pool.Query(ctx, query, args...)
	metrics.ObserveNetworkRequest("postgres", "deals_list", "deals", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDeals(rows)
}

// ListPendingDeals возвращает активные сделки, ожидающие модерации.
func (p *Postgres) ListPendingDeals(ctx context.Context, limit int) ([]domain.Deal, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}
	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+dealColumns+` FROM deals
WHERE is_active=true AND is_approved=false
ORDER BY created_at DESC
LIMIT $1
`, limit)
	metrics.ObserveNetworkRequest("postgres", "deals_list_pending", "deals", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDeals(rows)
}

func collectDeals(rows pgx.Rows) ([]domain.Deal, error) {
	var deals []domain.Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, deal)
	}
	return deals, rows.Err()
}

// ApproveDeal открывает сделку для публичной выдачи.
func (p *Postgres) ApproveDeal(ctx context.Context, id string) (domain.Deal, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
UPDATE deals SET is_approved=true, updated_at=now()
WHERE id=$1 AND is_active=true
RETURNING `+dealColumns+`
`, id)
	deal, err := scanDeal(row)
	metrics.ObserveNetworkRequest("postgres", "deals_approve", "deals", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		var active bool
		checkErr := p.pool.QueryRow(ctx, `SELECT is_active FROM deals WHERE id=$1`, id).Scan(&active)
		if errors.Is(checkErr, pgx.ErrNoRows) {
			return domain.Deal{}, domain.ErrDealNotFound
		}
		if checkErr != nil {
			return domain.Deal{}, checkErr
		}
		return domain.Deal{}, domain.ErrDealInactive
	}
	return deal, err
}

// RejectDeal выключает сделку. Запись остаётся надгробием, удаления нет.
func (p *Postgres) RejectDeal(ctx context.Context, id string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	res, err := p.pool.Exec(ctx, `UPDATE deals SET is_active=false, updated_at=now() WHERE id=$1`, id)
	metrics.ObserveNetworkRequest("postgres", "deals_reject", "deals", start, err)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrDealNotFound
	}
	return nil
}

// BulkRecomputePopularity пересчитывает популярность всех видимых сделок
// одним запросом.
func (p *Postgres) BulkRecomputePopularity(ctx context.Context) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
UPDATE deals
SET popularity = click_count * 2 + share_count * 5
WHERE is_active = true AND is_approved = true
`)
	metrics.ObserveNetworkRequest("postgres", "deals_recompute_popularity", "deals", start, err)
	metrics.PopularityRecalcSeconds.Observe(time.Since(start).Seconds())
	return err
}

// InsertClick сохраняет событие перехода и атомарно увеличивает счётчик
// сделки в одной транзакции. Инкремент выполняется на стороне БД,
// read-modify-write в приложении не допускается.
func (p *Postgres) InsertClick(ctx context.Context, dealID string, meta domain.ClickMeta) (domain.ClickEvent, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	metrics.ObserveNetworkRequest("postgres", "begin_tx", "deal_clicks", start, err)
	if err != nil {
		return domain.ClickEvent{}, err
	}
	defer tx.Rollback(ctx)

	start = time.Now()
	res, err := tx.Exec(ctx, `UPDATE deals SET click_count = click_count + 1, updated_at=now() WHERE id=$1`, dealID)
	metrics.ObserveNetworkRequest("postgres", "deals_inc_clicks", "deals", start, err)
	if err != nil {
		return domain.ClickEvent{}, err
	}
	if res.RowsAffected() == 0 {
		return domain.ClickEvent{}, domain.ErrDealNotFound
	}

	event := domain.ClickEvent{
		ID:        uuid.NewString(),
		DealID:    dealID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Referrer:  meta.Referrer,
	}
	start = time.Now()
	err = tx.QueryRow(ctx, `
INSERT INTO deal_clicks (id, deal_id, ip_address, user_agent, referrer)
VALUES ($1,$2,$3,$4,$5)
RETURNING clicked_at
`, event.ID, event.DealID, nullString(event.IPAddress), nullString(event.UserAgent), nullString(event.Referrer)).Scan(&event.ClickedAt)
	metrics.ObserveNetworkRequest("postgres", "deal_clicks_insert", "deal_clicks", start, err)
	if err != nil {
		return domain.ClickEvent{}, err
	}

	start = time.Now()
	err = tx.Commit(ctx)
	metrics.ObserveNetworkRequest("postgres", "commit", "deal_clicks", start, err)
	if err != nil {
		return domain.ClickEvent{}, err
	}
	return event, nil
}

// InsertShare сохраняет событие шаринга и атомарно увеличивает счётчик
// сделки в одной транзакции.
func (p *Postgres) InsertShare(ctx context.Context, dealID, platform string, meta domain.ShareMeta) (domain.ShareEvent, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	metrics.ObserveNetworkRequest("postgres", "begin_tx", "deal_shares", start, err)
	if err != nil {
		return domain.ShareEvent{}, err
	}
	defer tx.Rollback(ctx)

	start = time.Now()
	res, err := tx.Exec(ctx, `UPDATE deals SET share_count = share_count + 1, updated_at=now() WHERE id=$1`, dealID)
	metrics.ObserveNetworkRequest("postgres", "deals_inc_shares", "deals", start, err)
	if err != nil {
		return domain.ShareEvent{}, err
	}
	if res.RowsAffected() == 0 {
		return domain.ShareEvent{}, domain.ErrDealNotFound
	}

	event := domain.ShareEvent{
		ID:        uuid.NewString(),
		DealID:    dealID,
		Platform:  platform,
		IPAddress: meta.IPAddress,
	}
	start = time.Now()
	err = tx.QueryRow(ctx, `
INSERT INTO deal_shares (id, deal_id, platform, ip_address)
VALUES ($1,$2,$3,$4)
RETURNING shared_at
`, event.ID, event.DealID, event.Platform, nullString(event.IPAddress)).Scan(&event.SharedAt)
	metrics.ObserveNetworkRequest("postgres", "deal_shares_insert", "deal_shares", start, err)
	if err != nil {
		return domain.ShareEvent{}, err
	}

	start = time.Now()
	err = tx.Commit(ctx)
	metrics.ObserveNetworkRequest("postgres", "commit", "deal_shares", start, err)
	if err != nil {
		return domain.ShareEvent{}, err
	}
	return event, nil
}

// AnalyticsSnapshot собирает сводные счётчики для админки.
func (p *Postgres) AnalyticsSnapshot(ctx context.Context) (domain.AnalyticsSnapshot, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var snapshot domain.AnalyticsSnapshot
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT
    (SELECT COUNT(*) FROM deals WHERE is_active=true),
    (SELECT COUNT(*) FROM deals WHERE is_active=true AND is_approved=true),
    (SELECT COUNT(*) FROM deals WHERE is_active=true AND is_approved=false),
    (SELECT COUNT(*) FROM deal_clicks WHERE clicked_at >= date_trunc('day', now()))
`).Scan(&snapshot.TotalDeals, &snapshot.Approved, &snapshot.PendingReview, &snapshot.ClicksToday)
	metrics.ObserveNetworkRequest("postgres", "analytics_snapshot", "deals", start, err)
	return snapshot, err
}
