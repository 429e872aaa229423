package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"membership-payments/internal/config"
	"membership-payments/internal/domain/ports/adapter"
	"membership-payments/internal/infra/metrics"
	"membership-payments/internal/infra/worker"
)

var _ adapter.Notifier = (*AdminNotifier)(nil)

// Sender is the part of tgbotapi.BotAPI the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// AdminNotifier forwards operator notices to the configured Telegram chats.
// Delivery runs on the worker pool so reconciliation never waits on Telegram.
type AdminNotifier struct {
	bot   Sender
	chats []int64
	pool  *worker.Pool
	// kinds that go to Telegram; everything else is only logged
	kinds map[adapter.NoticeKind]struct{}
	log   *zerolog.Logger
}

// NewBot connects to the Bot API. endpoint may be empty for the public one.
func NewBot(token, endpoint string, timeout time.Duration) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, errors.New("telegram token is empty")
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: timeout})
}

func NewAdminNotifier(bot Sender, cfg config.NotifyConfig, pool *worker.Pool, logger *zerolog.Logger) (*AdminNotifier, error) {
	if bot == nil {
		return nil, errors.New("telegram bot is nil")
	}
	if pool == nil {
		return nil, errors.New("worker pool is nil")
	}
	l := logger.With().Str("component", "AdminNotifier").Logger()
	return &AdminNotifier{
		bot:   bot,
		chats: append([]int64(nil), cfg.AdminChatIDs...),
		pool:  pool,
		kinds: map[adapter.NoticeKind]struct{}{
			adapter.NoticeReconciliationGap: {},
			adapter.NoticeCorruptPayment:    {},
		},
		log: &l,
	}, nil
}

func (n *AdminNotifier) Notify(ctx context.Context, notice adapter.Notice) {
	kind := string(notice.Kind)
	if _, ok := n.kinds[notice.Kind]; !ok || len(n.chats) == 0 {
		n.log.Info().Str("kind", kind).Str("payment_id", notice.PaymentID).Str("payer_id", notice.PayerID).Msg(notice.Text)
		metrics.IncNotice(kind, "logged")
		return
	}
	text := FormatNotice(notice)
	err := n.pool.Submit(func(ctx context.Context) error {
		var errs []error
		for _, chat := range n.chats {
			if _, err := n.bot.Send(tgbotapi.NewMessage(chat, text)); err != nil {
				metrics.IncNotice(kind, "error")
				errs = append(errs, fmt.Errorf("chat %d: %w", chat, err))
				continue
			}
			metrics.IncNotice(kind, "sent")
		}
		return errors.Join(errs...)
	})
	if err != nil {
		metrics.IncNotice(kind, "dropped")
		n.log.Warn().Err(err).Str("kind", kind).Str("payment_id", notice.PaymentID).Msg("notice dropped")
	}
}

// FormatNotice renders a notice as a plain-text Telegram message.
func FormatNotice(n adapter.Notice) string {
	var b strings.Builder
	switch n.Kind {
	case adapter.NoticeReconciliationGap:
		b.WriteString("⚠️ Reconciliation gap")
	case adapter.NoticeCorruptPayment:
		b.WriteString("⚠️ Payment detail rejected")
	default:
		b.WriteString(string(n.Kind))
	}
	if n.PaymentID != "" {
		fmt.Fprintf(&b, "\npayment: %s", n.PaymentID)
	}
	if n.PayerID != "" {
		fmt.Fprintf(&b, "\npayer: %s", n.PayerID)
	}
	if n.Text != "" {
		fmt.Fprintf(&b, "\n%s", n.Text)
	}
	return b.String()
}
