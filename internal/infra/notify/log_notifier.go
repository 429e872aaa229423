// Package notify holds the fallback notifier used when no Telegram bot is configured.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"membership-payments/internal/domain/ports/adapter"
	"membership-payments/internal/infra/logging"
	"membership-payments/internal/infra/metrics"
)

var _ adapter.Notifier = (*LogNotifier)(nil)

// LogNotifier writes notices to the log. Ops notices are warnings so they
// reach whatever alerting watches the log stream.
type LogNotifier struct {
	log *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	l := logger.With().Str("component", "Notifier").Logger()
	return &LogNotifier{log: &l}
}

func (n *LogNotifier) Notify(ctx context.Context, notice adapter.Notice) {
	l := logging.With(ctx, n.log)
	evt := l.Warn()
	if notice.Kind == adapter.NoticeMembershipActivated {
		evt = l.Info()
	}
	evt.Str("kind", string(notice.Kind)).
		Str("payment_id", notice.PaymentID).
		Str("payer_id", notice.PayerID).
		Msg(notice.Text)
	metrics.IncNotice(string(notice.Kind), "logged")
}
