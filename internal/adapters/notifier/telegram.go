package notifier

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"deal-hub/internal/domain"
	"deal-hub/internal/infra/metrics"
)

// Telegram анонсирует автоматически опубликованные сделки в канал.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    zerolog.Logger
}

var _ domain.Notifier = (*Telegram)(nil)

// NewTelegram создаёт нотификатор поверх Bot API.
func NewTelegram(bot *tgbotapi.BotAPI, chatID int64, log zerolog.Logger) *Telegram {
	return &Telegram{bot: bot, chatID: chatID, log: log}
}

// NotifyPublished отправляет анонс сделки. Ошибка отправки не должна
// блокировать публикацию, вызывающая сторона логирует её и продолжает.
func (t *Telegram) NotifyPublished(ctx context.Context, deal domain.Deal) error {
	msg := tgbotapi.NewMessage(t.chatID, formatAnnouncement(deal))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	start := time.Now()
	_, err := t.bot.Send(msg)
	metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(t.chatID, 10), start, err)
	if err != nil {
		t.log.Error().Err(err).Str("deal", deal.ID).Msg("notifier: не удалось отправить анонс")
		return err
	}
	return nil
}

func formatAnnouncement(deal domain.Deal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔥 <b>%s</b>\n", html.EscapeString(deal.Title))
	fmt.Fprintf(&b, "💰 %s вместо %s (−%d%%)\n", html.EscapeString(deal.SalePrice), html.EscapeString(deal.OriginalPrice), deal.DiscountPercentage)
	fmt.Fprintf(&b, "🏪 %s\n", html.EscapeString(deal.Store))
	fmt.Fprintf(&b, `<a href="%s">Перейти к сделке</a>`, html.EscapeString(deal.AffiliateURL))
	return b.String()
}
