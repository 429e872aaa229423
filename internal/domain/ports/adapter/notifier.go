package adapter

import "context"

type NoticeKind string

const (
	NoticeMembershipActivated NoticeKind = "membership_activated"
	NoticeReconciliationGap   NoticeKind = "reconciliation_gap"
	NoticeCorruptPayment      NoticeKind = "corrupt_payment"
)

// Notice is a fire-and-forget message for operators or payers.
type Notice struct {
	Kind      NoticeKind
	PayerID   string
	PaymentID string
	Text      string
}

// Notifier dispatches notices. Callers never block on delivery and ignore failures.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}
