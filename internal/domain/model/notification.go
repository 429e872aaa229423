package model

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"membership-payments/internal/domain"
)

type NotificationType string

const (
	NotificationTypePayment NotificationType = "payment"
)

// Notification is a parsed webhook delivery. Only the payment variant is typed;
// everything else the gateway sent survives in Extra.
type Notification struct {
	Type      NotificationType
	Action    string
	PaymentID string // set for the payment variant only
	LiveMode  bool
	Extra     map[string]any
}

func (n *Notification) IsPayment() bool { return n.Type == NotificationTypePayment }

type notificationEnvelope struct {
	Type     string          `json:"type"`
	Topic    string          `json:"topic"`
	Action   string          `json:"action"`
	LiveMode bool            `json:"live_mode"`
	Data     json.RawMessage `json:"data"`
}

// ParseNotification decodes a webhook body, falling back to the legacy query form
// (?topic=payment&id=… or ?type=payment&data.id=…) when the body carries no type.
func ParseNotification(body []byte, query url.Values) (*Notification, error) {
	var env notificationEnvelope
	extra := map[string]any{}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedNotification, err)
		}
		_ = json.Unmarshal(body, &extra)
		for _, k := range []string{"type", "topic", "action", "live_mode", "data"} {
			delete(extra, k)
		}
	}

	n := &Notification{Action: env.Action, LiveMode: env.LiveMode, Extra: extra}
	typ := firstNonEmpty(env.Type, env.Topic, query.Get("type"), query.Get("topic"))
	if typ == "" {
		return nil, fmt.Errorf("%w: missing type", domain.ErrMalformedNotification)
	}
	n.Type = NotificationType(strings.ToLower(typ))
	if !n.IsPayment() {
		return n, nil
	}

	id, err := dataID(env.Data)
	if err != nil {
		return nil, err
	}
	n.PaymentID = firstNonEmpty(id, query.Get("data.id"), query.Get("id"))
	if n.PaymentID == "" {
		return nil, fmt.Errorf("%w: missing payment id", domain.ErrMalformedNotification)
	}
	return n, nil
}

// dataID reads data.id, which the gateway sends either as a string or a number.
func dataID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var data struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", fmt.Errorf("%w: data: %v", domain.ErrMalformedNotification, err)
	}
	if len(data.ID) == 0 || string(data.ID) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(data.ID, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var num json.Number
	if err := json.Unmarshal(data.ID, &num); err == nil {
		return num.String(), nil
	}
	return "", fmt.Errorf("%w: data.id is neither string nor number", domain.ErrMalformedNotification)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// WebhookDelivery is one received notification, kept for audit.
type WebhookDelivery struct {
	ID         string // ULID
	Type       string
	PaymentID  string
	RequestID  string
	Body       []byte
	Outcome    string
	HTTPStatus int
	Error      string
	ReceivedAt time.Time
}
