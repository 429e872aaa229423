//go:build !integration

package notify_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"membership-payments/internal/domain/ports/adapter"
	"membership-payments/internal/infra/notify"
)

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	n := notify.NewLogNotifier(&logger)

	n.Notify(context.Background(), adapter.Notice{Kind: adapter.NoticeReconciliationGap, PaymentID: "p1", PayerID: "u1", Text: "gap"})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if line["level"] != "warn" || line["kind"] != "reconciliation_gap" || line["payment_id"] != "p1" || line["message"] != "gap" {
		t.Fatalf("unexpected line %v", line)
	}
}
