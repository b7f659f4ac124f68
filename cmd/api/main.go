package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"deal-hub/internal/adapters/assessor"
	"deal-hub/internal/adapters/notifier"
	"deal-hub/internal/adapters/repo"
	"deal-hub/internal/adapters/seed"
	"deal-hub/internal/domain"
	"deal-hub/internal/infra/cache"
	"deal-hub/internal/infra/config"
	"deal-hub/internal/infra/db"
	httpinfra "deal-hub/internal/infra/http"
	applog "deal-hub/internal/infra/log"
	"deal-hub/internal/infra/metrics"
	"deal-hub/internal/infra/openai"
	"deal-hub/internal/infra/queue"
	"deal-hub/internal/usecase/analytics"
	"deal-hub/internal/usecase/moderation"
	"deal-hub/internal/usecase/submission"
)

func main() {
	cfg := config.Load()
	log := applog.NewLogger(cfg.AppEnv).With().Str("component", "api").Logger()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)

	var cacheAdapter domain.Cache
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		cacheAdapter = cache.NewRedis(redisClient)
	}

	var qualityAssessor domain.Assessor
	if cfg.OpenAI.APIKey != "" {
		client := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Timeout)
		qualityAssessor = assessor.NewLLM(client, cfg.OpenAI.Model, cfg.OpenAI.Timeout)
	} else {
		log.Warn().Msg("api: ключ оценщика не задан, работаем по порогам скидки")
		qualityAssessor = assessor.NewFallback()
	}

	var published domain.Notifier
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			log.Fatal().Err(err).Msg("api: не удалось создать Bot API")
		}
		published = notifier.NewTelegram(botAPI, cfg.Telegram.ChatID, log.With().Str("component", "notifier").Logger())
	}

	var submissions domain.SubmissionQueue
	switch {
	case cfg.AMQPURL != "":
		rq, err := queue.NewRabbitSubmissionQueue(cfg.AMQPURL, cfg.Queues.Submissions)
		if err != nil {
			log.Fatal().Err(err).Msg("api: нет подключения к AMQP")
		}
		defer rq.Close()
		submissions = rq
	case redisClient != nil:
		submissions = queue.NewRedisSubmissionQueue(redisClient, cfg.Queues.Submissions)
	}

	pipeline := submission.NewService(repoAdapter, qualityAssessor, published, log.With().Str("component", "submission").Logger(), submission.Options{StrictPricing: cfg.Pricing.Strict})
	moderationService := moderation.NewService(repoAdapter, published, log.With().Str("component", "moderation").Logger(), cfg.Limits.PendingMax)
	analyticsService := analytics.NewService(repoAdapter, repoAdapter, cacheAdapter, log.With().Str("component", "analytics").Logger())
	seeder := seed.New(pipeline, cacheAdapter, log.With().Str("component", "seed").Logger())

	srv := httpinfra.NewServer(log)
	registerRoutes(srv.Router, cfg, routesDeps{
		repo:       repoAdapter,
		pipeline:   pipeline,
		moderation: moderationService,
		analytics:  analyticsService,
		seeder:     seeder,
		queue:      submissions,
		log:        log,
	})

	go func() {
		if err := srv.Start(":" + strconv.Itoa(cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("api: сервер остановлен")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

type routesDeps struct {
	repo       domain.DealRepo
	pipeline   *submission.Service
	moderation *moderation.Service
	analytics  *analytics.Service
	seeder     *seed.Seeder
	queue      domain.SubmissionQueue
	log        zerolog.Logger
}

func registerRoutes(r chi.Router, cfg config.AppConfig, deps routesDeps) {
	r.Get("/api/v1/deals", func(w http.ResponseWriter, r *http.Request) {
		filter := domain.DealFilter{
			Limit:    cfg.Limits.DealsDefault,
			Category: r.URL.Query().Get("category"),
			Tier:     domain.DealTier(r.URL.Query().Get("tier")),
		}
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit <= 0 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			if limit < filter.Limit {
				filter.Limit = limit
			}
		}
		if filter.Tier != "" && !domain.ValidTier(filter.Tier) {
			writeError(w, http.StatusBadRequest, "unknown tier")
			return
		}
		deals, err := deps.repo.ListDeals(r.Context(), filter)
		if err != nil {
			deps.log.Error().Err(err).Msg("api: выборка сделок")
			writeError(w, http.StatusInternalServerError, "failed to list deals")
			return
		}
		writeJSON(w, http.StatusOK, toDealResponses(deals))
	})

	r.Get("/api/v1/deals/{id}", func(w http.ResponseWriter, r *http.Request) {
		deal, err := deps.repo.GetDeal(r.Context(), chi.URLParam(r, "id"))
		if err != nil || !deal.IsActive {
			if err != nil && !errors.Is(err, domain.ErrDealNotFound) {
				deps.log.Error().Err(err).Msg("api: чтение сделки")
				writeError(w, http.StatusInternalServerError, "failed to fetch deal")
				return
			}
			writeError(w, http.StatusNotFound, "deal not found")
			return
		}
		writeJSON(w, http.StatusOK, toDealResponse(deal))
	})

	r.Post("/api/v1/deals/{id}/click", func(w http.ResponseWriter, r *http.Request) {
		meta := domain.ClickMeta{
			IPAddress: r.RemoteAddr,
			UserAgent: r.UserAgent(),
			Referrer:  r.Referer(),
		}
		link, err := deps.analytics.ClickThrough(r.Context(), chi.URLParam(r, "id"), meta)
		if err != nil {
			writeDomainError(w, deps.log, err, "failed to record click")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"affiliate_url": link})
	})

	r.Post("/api/v1/deals/{id}/share", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req shareRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		event, err := deps.analytics.RecordShare(r.Context(), chi.URLParam(r, "id"), req.Platform, domain.ShareMeta{IPAddress: r.RemoteAddr})
		if err != nil {
			writeDomainError(w, deps.log, err, "failed to record share")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "platform": event.Platform})
	})

	r.Group(func(admin chi.Router) {
		admin.Use(httpinfra.AdminTokenMiddleware(cfg.AdminToken))

		admin.Post("/api/v1/admin/deals", func(w http.ResponseWriter, r *http.Request) {
			defer r.Body.Close()
			var draft domain.DealDraft
			if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			result := deps.pipeline.Submit(r.Context(), draft)
			status := http.StatusOK
			if !result.Success {
				status = http.StatusUnprocessableEntity
			}
			writeJSON(w, status, result)
		})

		admin.Post("/api/v1/admin/deals/enqueue", func(w http.ResponseWriter, r *http.Request) {
			defer r.Body.Close()
			if deps.queue == nil {
				writeError(w, http.StatusServiceUnavailable, "submission queue is not configured")
				return
			}
			var draft domain.DealDraft
			if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			job := domain.SubmissionJob{ID: uuid.NewString(), Draft: draft, EnqueuedAt: time.Now().UTC()}
			if err := deps.queue.Enqueue(r.Context(), job); err != nil {
				deps.log.Error().Err(err).Msg("api: постановка черновика в очередь")
				writeError(w, http.StatusInternalServerError, "failed to enqueue deal")
				return
			}
			writeJSON(w, http.StatusAccepted, map[string]any{"queued": true, "job_id": job.ID})
		})

		admin.Get("/api/v1/admin/deals/pending", func(w http.ResponseWriter, r *http.Request) {
			deals, err := deps.moderation.ListPending(r.Context())
			if err != nil {
				deps.log.Error().Err(err).Msg("api: очередь модерации")
				writeError(w, http.StatusInternalServerError, "failed to list pending deals")
				return
			}
			writeJSON(w, http.StatusOK, toDealResponses(deals))
		})

		admin.Post("/api/v1/admin/deals/{id}/approve", func(w http.ResponseWriter, r *http.Request) {
			deal, err := deps.moderation.Approve(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeDomainError(w, deps.log, err, "failed to approve deal")
				return
			}
			writeJSON(w, http.StatusOK, toDealResponse(deal))
		})

		admin.Post("/api/v1/admin/deals/{id}/reject", func(w http.ResponseWriter, r *http.Request) {
			if err := deps.moderation.Reject(r.Context(), chi.URLParam(r, "id")); err != nil {
				writeDomainError(w, deps.log, err, "failed to reject deal")
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		admin.Patch("/api/v1/admin/deals/{id}", func(w http.ResponseWriter, r *http.Request) {
			defer r.Body.Close()
			var req editDealRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			deal, err := deps.moderation.Edit(r.Context(), chi.URLParam(r, "id"), domain.DealPatch{
				Title:       req.Title,
				Description: req.Description,
				Category:    req.Category,
				ExpiresAt:   req.ExpiresAt,
			})
			if err != nil {
				writeDomainError(w, deps.log, err, "failed to edit deal")
				return
			}
			writeJSON(w, http.StatusOK, toDealResponse(deal))
		})

		admin.Get("/api/v1/admin/analytics", func(w http.ResponseWriter, r *http.Request) {
			snapshot, err := deps.analytics.Snapshot(r.Context())
			if err != nil {
				deps.log.Error().Err(err).Msg("api: сводка аналитики")
				writeError(w, http.StatusInternalServerError, "failed to build analytics")
				return
			}
			writeJSON(w, http.StatusOK, snapshot)
		})

		admin.Post("/api/v1/admin/popularity/recompute", func(w http.ResponseWriter, r *http.Request) {
			if err := deps.analytics.RecomputePopularity(r.Context()); err != nil {
				deps.log.Error().Err(err).Msg("api: пересчёт популярности")
				writeError(w, http.StatusInternalServerError, "failed to recompute popularity")
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		})

		admin.Post("/api/v1/admin/seed", func(w http.ResponseWriter, r *http.Request) {
			if err := deps.seeder.Run(r.Context()); err != nil {
				deps.log.Error().Err(err).Msg("api: наполнение демо-данными")
				writeError(w, http.StatusInternalServerError, "failed to seed deals")
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Sample deals seeded successfully"})
		})
	})
}

type shareRequest struct {
	Platform string `json:"platform"`
}

type editDealRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Category    *string    `json:"category"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

type dealResponse struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	OriginalPrice      string     `json:"original_price"`
	SalePrice          string     `json:"sale_price"`
	DiscountPercentage int        `json:"discount_percentage"`
	ImageURL           string     `json:"image_url,omitempty"`
	AffiliateURL       string     `json:"affiliate_url"`
	Store              string     `json:"store"`
	StoreLogoURL       string     `json:"store_logo_url,omitempty"`
	Category           string     `json:"category"`
	Rating             string     `json:"rating,omitempty"`
	ReviewCount        int        `json:"review_count"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	IsApproved         bool       `json:"is_approved"`
	QualityScore       float64    `json:"quality_score"`
	Popularity         int        `json:"popularity"`
	ClickCount         int        `json:"click_count"`
	ShareCount         int        `json:"share_count"`
	Tier               string     `json:"tier"`
	CreatedAt          time.Time  `json:"created_at"`
}

func toDealResponse(d domain.Deal) dealResponse {
	return dealResponse{
		ID:                 d.ID,
		Title:              d.Title,
		Description:        d.Description,
		OriginalPrice:      d.OriginalPrice,
		SalePrice:          d.SalePrice,
		DiscountPercentage: d.DiscountPercentage,
		ImageURL:           d.ImageURL,
		AffiliateURL:       d.AffiliateURL,
		Store:              d.Store,
		StoreLogoURL:       d.StoreLogoURL,
		Category:           d.Category,
		Rating:             d.Rating,
		ReviewCount:        d.ReviewCount,
		ExpiresAt:          d.ExpiresAt,
		IsApproved:         d.IsApproved,
		QualityScore:       d.QualityScore,
		Popularity:         d.Popularity,
		ClickCount:         d.ClickCount,
		ShareCount:         d.ShareCount,
		Tier:               string(d.Tier),
		CreatedAt:          d.CreatedAt,
	}
}

func toDealResponses(deals []domain.Deal) []dealResponse {
	out := make([]dealResponse, 0, len(deals))
	for _, d := range deals {
		out = append(out, toDealResponse(d))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, httpinfra.ErrorResponse{Error: msg})
}

func writeDomainError(w http.ResponseWriter, log zerolog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrDealNotFound):
		writeError(w, http.StatusNotFound, "deal not found")
	case errors.Is(err, domain.ErrDealInactive):
		writeError(w, http.StatusConflict, "deal is inactive")
	default:
		log.Error().Err(err).Msg(fmt.Sprintf("api: %s", fallback))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
