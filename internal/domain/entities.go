package domain

import "time"

// DealTier обозначает витрину, в которую попадает сделка.
type DealTier string

const (
	// TierTop — предложения с максимальной скидкой.
	TierTop DealTier = "top"
	// TierHot — горячие предложения.
	TierHot DealTier = "hot"
	// TierLatest — свежие предложения без особых заслуг.
	TierLatest DealTier = "latest"
)

// ValidTier сообщает, относится ли значение к допустимым витринам.
func ValidTier(t DealTier) bool {
	switch t {
	case TierTop, TierHot, TierLatest:
		return true
	}
	return false
}

// Deal описывает опубликованную или ожидающую модерации сделку.
// Цены хранятся строками с двумя знаками после запятой, как в БД (numeric(10,2)).
type Deal struct {
	ID                 string
	Title              string
	Description        string
	OriginalPrice      string
	SalePrice          string
	DiscountPercentage int
	ImageURL           string
	AffiliateURL       string
	Store              string
	StoreLogoURL       string
	Category           string
	Rating             string
	ReviewCount        int
	ExpiresAt          *time.Time
	IsActive           bool
	IsApproved         bool
	QualityScore       float64
	QualityReasons     []string
	Popularity         int
	ClickCount         int
	ShareCount         int
	Tier               DealTier
	SourceLabel        string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// DealDraft содержит сделку в том виде, в котором её прислал источник.
// Поля до нормализации могут быть заполнены частично.
type DealDraft struct {
	Title              string     `json:"title" validate:"required"`
	Description        string     `json:"description,omitempty"`
	OriginalPrice      string     `json:"original_price,omitempty"`
	SalePrice          string     `json:"sale_price,omitempty"`
	DiscountPercentage int        `json:"discount_percentage,omitempty"`
	ImageURL           string     `json:"image_url,omitempty"`
	AffiliateURL       string     `json:"affiliate_url" validate:"required,url"`
	Store              string     `json:"store" validate:"required"`
	StoreLogoURL       string     `json:"store_logo_url,omitempty"`
	Category           string     `json:"category,omitempty"`
	Rating             string     `json:"rating,omitempty"`
	ReviewCount        int        `json:"review_count,omitempty"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	SourceLabel        string     `json:"source_label,omitempty"`
}

// Judgment содержит вердикт оценщика качества по черновику сделки.
type Judgment struct {
	IsValid        bool
	Score          float64
	Category       string
	Tier           DealTier
	Reasons        []string
	SuggestedTitle string
}

// SubmissionResult описывает итог прохождения черновика через конвейер.
type SubmissionResult struct {
	Success   bool   `json:"success"`
	DealID    string `json:"deal_id,omitempty"`
	Published bool   `json:"published"`
	Message   string `json:"message"`
}

// ClickEvent фиксирует переход по сделке.
type ClickEvent struct {
	ID        string
	DealID    string
	IPAddress string
	UserAgent string
	Referrer  string
	ClickedAt time.Time
}

// ShareEvent фиксирует шаринг сделки в соцсеть.
type ShareEvent struct {
	ID        string
	DealID    string
	Platform  string
	IPAddress string
	SharedAt  time.Time
}

// ClickMeta содержит клиентские данные перехода.
type ClickMeta struct {
	IPAddress string
	UserAgent string
	Referrer  string
}

// ShareMeta содержит клиентские данные шаринга.
type ShareMeta struct {
	IPAddress string
}

// DealFilter задаёт параметры публичной выборки сделок.
type DealFilter struct {
	Limit    int
	Category string
	Tier     DealTier
}

// AnalyticsSnapshot содержит сводные счётчики для админки.
type AnalyticsSnapshot struct {
	TotalDeals    int `json:"total_deals"`
	Approved      int `json:"approved"`
	PendingReview int `json:"pending_review"`
	ClicksToday   int `json:"clicks_today"`
}
