package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"8080"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	AMQPURL string `envconfig:"AMQP_URL"`

	OpenAI struct {
		APIKey  string        `envconfig:"OPENAI_API_KEY"`
		BaseURL string        `envconfig:"OPENAI_BASE_URL"`
		Model   string        `envconfig:"OPENAI_MODEL" default:"gpt-4o"`
		Timeout time.Duration `envconfig:"OPENAI_TIMEOUT" default:"30s"`
	} `envconfig:""`

	Telegram struct {
		Token  string `envconfig:"TG_BOT_TOKEN"`
		ChatID int64  `envconfig:"TG_ANNOUNCE_CHAT_ID"`
	} `envconfig:""`

	Pricing struct {
		// Strict запрещает подставлять ноль вместо нечисловых цен при
		// выводе скидки: такой черновик отклоняется на нормализации.
		Strict bool `envconfig:"PRICING_STRICT" default:"false"`
	} `envconfig:""`

	Limits struct {
		DealsDefault int `envconfig:"DEALS_LIST_DEFAULT" default:"50"`
		PendingMax   int `envconfig:"PENDING_LIST_MAX" default:"20"`
	} `envconfig:""`

	Queues struct {
		Submissions string `envconfig:"SUBMISSIONS_QUEUE_KEY" default:"deal_submissions"`
	} `envconfig:""`

	Recalc struct {
		Interval time.Duration `envconfig:"POPULARITY_RECALC_INTERVAL" default:"5m"`
	} `envconfig:""`

	AdminToken string `envconfig:"ADMIN_TOKEN"`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
