package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"deal-hub/internal/adapters/assessor"
	"deal-hub/internal/adapters/notifier"
	"deal-hub/internal/adapters/repo"
	"deal-hub/internal/domain"
	"deal-hub/internal/infra/config"
	"deal-hub/internal/infra/db"
	applog "deal-hub/internal/infra/log"
	"deal-hub/internal/infra/metrics"
	"deal-hub/internal/infra/openai"
	"deal-hub/internal/infra/queue"
	"deal-hub/internal/usecase/submission"
)

// worker снимает черновики сделок из очереди и проводит их через
// конвейер приёма. Источники сделок кладут черновики в очередь и не
// ждут вердикта оценщика.
func main() {
	cfg := config.Load()
	log := applog.NewLogger(cfg.AppEnv).With().Str("component", "worker").Logger()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("worker: нет подключения к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)

	var submissions domain.SubmissionQueue
	switch {
	case cfg.AMQPURL != "":
		rq, err := queue.NewRabbitSubmissionQueue(cfg.AMQPURL, cfg.Queues.Submissions)
		if err != nil {
			log.Fatal().Err(err).Msg("worker: нет подключения к AMQP")
		}
		defer rq.Close()
		submissions = rq
	case cfg.RedisAddr != "":
		submissions = queue.NewRedisSubmissionQueue(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), cfg.Queues.Submissions)
	default:
		log.Fatal().Msg("worker: не задан ни AMQP_URL, ни REDIS_ADDR")
	}

	var qualityAssessor domain.Assessor
	if cfg.OpenAI.APIKey != "" {
		client := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Timeout)
		qualityAssessor = assessor.NewLLM(client, cfg.OpenAI.Model, cfg.OpenAI.Timeout)
	} else {
		log.Warn().Msg("worker: ключ оценщика не задан, работаем по порогам скидки")
		qualityAssessor = assessor.NewFallback()
	}

	var published domain.Notifier
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			log.Fatal().Err(err).Msg("worker: не удалось создать Bot API")
		}
		published = notifier.NewTelegram(botAPI, cfg.Telegram.ChatID, log.With().Str("component", "notifier").Logger())
	}

	pipeline := submission.NewService(repoAdapter, qualityAssessor, published, log.With().Str("component", "submission").Logger(), submission.Options{StrictPricing: cfg.Pricing.Strict})

	metrics.StartServer(ctx, log.With().Str("component", "metrics").Logger(), ":9090")

	log.Info().Str("queue", cfg.Queues.Submissions).Msg("worker: старт")
	for {
		job, err := submissions.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			log.Error().Err(err).Msg("worker: ошибка чтения очереди")
			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
			}
			continue
		}
		result := pipeline.Submit(ctx, job.Draft)
		log.Info().
			Str("job", job.ID).
			Bool("success", result.Success).
			Bool("published", result.Published).
			Msg("worker: черновик обработан")
	}
	log.Info().Msg("worker: остановка")
}
