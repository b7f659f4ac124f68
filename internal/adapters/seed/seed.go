package seed

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"deal-hub/internal/domain"
)

const onceKey = "seed:deals"

// submitter проводит черновик через конвейер приёма.
type submitter interface {
	Submit(ctx context.Context, draft domain.DealDraft) domain.SubmissionResult
}

// Seeder наполняет пустую витрину демонстрационными сделками.
// Каждый черновик проходит обычный конвейер приёма, поэтому
// демо-данные получают те же оценки и витрины, что и боевые.
type Seeder struct {
	pipeline submitter
	cache    domain.Cache
	log      zerolog.Logger
}

// New создаёт сидер. cache может быть nil, тогда защита от
// повторного наполнения отключена.
func New(pipeline submitter, cache domain.Cache, log zerolog.Logger) *Seeder {
	return &Seeder{pipeline: pipeline, cache: cache, log: log}
}

// Run прогоняет демо-черновики через конвейер. Повторный запуск в
// течение суток гасится ключом в кэше.
func (s *Seeder) Run(ctx context.Context) error {
	if s.cache == nil {
		s.run(ctx)
		return nil
	}
	return s.cache.Once(onceKey, 24*time.Hour, func() error {
		s.run(ctx)
		return nil
	})
}

func (s *Seeder) run(ctx context.Context) {
	s.log.Info().Int("count", len(sampleDrafts)).Msg("seed: наполняем витрину демо-сделками")
	for _, draft := range sampleDrafts {
		res := s.pipeline.Submit(ctx, draft)
		s.log.Info().
			Str("title", draft.Title).
			Bool("success", res.Success).
			Bool("published", res.Published).
			Msg("seed: черновик обработан")
	}
}

var sampleDrafts = []domain.DealDraft{
	{
		Title:              "Echo Dot (5th Gen) Smart Speaker with Alexa - 65% Off",
		Description:        "Compact smart speaker with improved audio, LED display, and Alexa voice control.",
		OriginalPrice:      "59.99",
		SalePrice:          "19.99",
		DiscountPercentage: 67,
		ImageURL:           "https://images.unsplash.com/photo-1589492477829-5e65395b66cc?w=800",
		AffiliateURL:       "https://amazon.com/echo-dot-5th-gen",
		Store:              "Amazon",
		Category:           "electronics",
		Rating:             "4.7",
		ReviewCount:        47821,
		SourceLabel:        "amazon_api",
	},
	{
		Title:              "Fire TV Stick 4K Max Streaming Device - 50% Off",
		Description:        "Stream 4K Ultra HD content with Wi-Fi 6 support and Alexa Voice Remote.",
		OriginalPrice:      "54.99",
		SalePrice:          "27.99",
		DiscountPercentage: 49,
		ImageURL:           "https://images.unsplash.com/photo-1522869635100-9f4c5e86aa37?w=800",
		AffiliateURL:       "https://amazon.com/fire-tv-stick-4k-max",
		Store:              "Amazon",
		Category:           "electronics",
		Rating:             "4.6",
		ReviewCount:        231654,
		SourceLabel:        "amazon_api",
	},
	{
		Title:              "Kindle Paperwhite (11th Generation) - 32% Off",
		Description:        "Waterproof e-reader with 6.8\" display and weeks of battery life.",
		OriginalPrice:      "149.99",
		SalePrice:          "99.99",
		DiscountPercentage: 33,
		ImageURL:           "https://images.unsplash.com/photo-1544716278-ca5e3f4abd8c?w=800",
		AffiliateURL:       "https://amazon.com/kindle-paperwhite-11th-gen",
		Store:              "Amazon",
		Category:           "electronics",
		Rating:             "4.5",
		ReviewCount:        89432,
		SourceLabel:        "amazon_api",
	},
	{
		Title:              "Instant Vortex Plus 6 Quart Air Fryer - 43% Off",
		Description:        "6-in-1 air fryer with smart programs and easy cleanup.",
		OriginalPrice:      "139.99",
		SalePrice:          "79.99",
		DiscountPercentage: 43,
		ImageURL:           "https://images.unsplash.com/photo-1585515656798-f4da54d7c3bf?w=800",
		AffiliateURL:       "https://amazon.com/instant-vortex-plus-air-fryer",
		Store:              "Amazon",
		Category:           "home",
		Rating:             "4.3",
		ReviewCount:        23876,
		SourceLabel:        "amazon_api",
	},
	{
		Title:              "Dyson V15 Detect Cordless Vacuum - 35% Off",
		Description:        "Cordless vacuum with laser dust detection and powerful suction.",
		OriginalPrice:      "750.00",
		SalePrice:          "487.50",
		DiscountPercentage: 35,
		ImageURL:           "https://images.unsplash.com/photo-1558618047-3c8c76ca7d13?w=800",
		AffiliateURL:       "https://dyson.com/v15-detect",
		Store:              "Dyson",
		Category:           "home",
		Rating:             "4.9",
		ReviewCount:        567,
		SourceLabel:        "dyson_api",
	},
	{
		Title:              "AirPods Pro 2nd Generation - 30% Off Apple Store",
		Description:        "Active Noise Cancellation and spatial audio with dynamic head tracking.",
		OriginalPrice:      "249.00",
		SalePrice:          "174.30",
		DiscountPercentage: 30,
		ImageURL:           "https://images.unsplash.com/photo-1588423771073-b8903fbb85b5?w=800",
		AffiliateURL:       "https://apple.com/airpods-pro",
		Store:              "Apple",
		Category:           "electronics",
		Rating:             "4.8",
		ReviewCount:        1876,
		SourceLabel:        "apple_api",
	},
	{
		Title:              "Instant Pot Duo 7-in-1 Electric Pressure Cooker - 50% Off",
		Description:        "Multi-functional pressure cooker that combines 7 kitchen appliances in one.",
		OriginalPrice:      "99.99",
		SalePrice:          "49.99",
		DiscountPercentage: 50,
		ImageURL:           "https://images.unsplash.com/photo-1556909114-2b522d8deb8d?w=800",
		AffiliateURL:       "https://instantpot.com/duo-7-in-1",
		Store:              "Target",
		Category:           "home",
		Rating:             "4.5",
		ReviewCount:        3421,
		SourceLabel:        "target_api",
	},
	{
		Title:              "Levi's 501 Original Fit Jeans - 35% Off",
		Description:        "Classic straight fit jeans made from premium cotton denim.",
		OriginalPrice:      "69.50",
		SalePrice:          "44.99",
		DiscountPercentage: 35,
		ImageURL:           "https://images.unsplash.com/photo-1542272604-787c3835535d?w=800",
		AffiliateURL:       "https://amazon.com/levis-501-original-fit-jeans",
		Store:              "Amazon",
		Category:           "fashion",
		Rating:             "4.2",
		ReviewCount:        8934,
		SourceLabel:        "amazon_api",
	},
}
