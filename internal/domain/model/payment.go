package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"  // awaiting settlement (e.g. bank transfer)
	PaymentStatusApproved PaymentStatus = "approved" // accredited by the gateway
	PaymentStatusRejected PaymentStatus = "rejected" // declined; status_detail carries the reason
)

// IsTerminal reports whether the status can no longer be replaced by a different one.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusApproved || s == PaymentStatusRejected
}

// Known reports whether the status is one the ledger models.
func (s PaymentStatus) Known() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusApproved, PaymentStatusRejected:
		return true
	}
	return false
}

// PaymentIntentRequest is the raw checkout request as received from the UI.
type PaymentIntentRequest struct {
	PayerID    string           `json:"payer_id"`
	PayerEmail string           `json:"payer_email"`
	Title      string           `json:"title"`
	UnitPrice  *decimal.Decimal `json:"unit_price"`
	Quantity   *int             `json:"quantity,omitempty"`
}

// ValidatedIntent is a PaymentIntentRequest that passed validation.
type ValidatedIntent struct {
	PayerID    string
	PayerEmail string
	Title      string
	UnitPrice  decimal.Decimal
	Quantity   int
}

// Total is unit price times quantity.
func (v ValidatedIntent) Total() decimal.Decimal {
	return v.UnitPrice.Mul(decimal.NewFromInt(int64(v.Quantity)))
}

// CheckoutSession is what the gateway hands back for a created preference.
// It is returned to the caller and never persisted.
type CheckoutSession struct {
	ID          string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
	SandboxURL  string `json:"sandbox_url,omitempty"`
}

// PaymentDetail is the authoritative payment state read from the gateway.
type PaymentDetail struct {
	ID                string
	Status            PaymentStatus // raw gateway value; may be outside the modelled set
	StatusDetail      string
	Amount            decimal.Decimal
	Currency          string
	ExternalReference string
	PaymentMethodID   string
	PaymentTypeID     string
	PayerEmail        string
	DateApproved      *time.Time
	MoneyReleaseDate  *time.Time
	Raw               map[string]any // full gateway document, kept for unknown fields
}

// PaymentRecord is the durable ledger row, keyed by the gateway payment id.
type PaymentRecord struct {
	GatewayPaymentID string
	PayerID          string
	Amount           decimal.Decimal
	Currency         string
	Status           PaymentStatus
	PaymentMethod    string
	StatusDetail     string
	Metadata         map[string]any
	FirstApprovedAt  *time.Time // set once, by compare-and-set, on the first approval
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewPaymentRecord builds the ledger row for a fetched detail under the given status.
func NewPaymentRecord(d *PaymentDetail, status PaymentStatus, now time.Time) *PaymentRecord {
	meta := map[string]any{}
	if extra := d.Extra(); len(extra) > 0 {
		meta["gateway"] = extra
	}
	if d.PaymentMethodID != "" {
		meta["payment_method_id"] = d.PaymentMethodID
	}
	if d.PaymentTypeID != "" {
		meta["payment_type_id"] = d.PaymentTypeID
	}
	if d.PayerEmail != "" {
		meta["payer_email"] = d.PayerEmail
	}
	if d.DateApproved != nil {
		meta["date_approved"] = d.DateApproved.UTC().Format(time.RFC3339)
	}
	if d.MoneyReleaseDate != nil {
		meta["money_release_date"] = d.MoneyReleaseDate.UTC().Format(time.RFC3339)
	}
	if status == PaymentStatusRejected && d.StatusDetail != "" {
		meta["rejection_reason"] = d.StatusDetail
	}
	return &PaymentRecord{
		GatewayPaymentID: d.ID,
		PayerID:          d.ExternalReference,
		Amount:           d.Amount,
		Currency:         d.Currency,
		Status:           status,
		PaymentMethod:    d.PaymentMethodID,
		StatusDetail:     d.StatusDetail,
		Metadata:         meta,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// modelled lists the gateway fields already mapped onto PaymentDetail.
var modelled = map[string]struct{}{
	"id": {}, "status": {}, "status_detail": {}, "transaction_amount": {}, "currency_id": {},
	"external_reference": {}, "payment_method_id": {}, "payment_type_id": {}, "payer": {},
	"date_approved": {}, "money_release_date": {},
}

// Extra returns the gateway fields PaymentDetail does not model, untouched.
func (d *PaymentDetail) Extra() map[string]any {
	out := map[string]any{}
	for k, v := range d.Raw {
		if _, ok := modelled[k]; ok || v == nil {
			continue
		}
		out[k] = v
	}
	return out
}
