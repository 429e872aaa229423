package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"membership-payments/internal/infra/payment"
)

// mockwebhook delivers a payment notification the way the gateway does,
// signed when a secret is given. Handy against a sandbox payment id.
func main() {
	target := flag.String("url", "http://localhost:8080/api/v1/webhooks/payments", "webhook endpoint")
	paymentID := flag.String("payment-id", "", "gateway payment id to notify")
	secret := flag.String("secret", "", "webhook secret; empty sends no signature")
	repeat := flag.Int("repeat", 1, "deliver the same notification n times")
	flag.Parse()

	if *paymentID == "" {
		log.Fatal("-payment-id is required")
	}
	u, err := url.Parse(*target)
	if err != nil {
		log.Fatalf("url: %v", err)
	}
	q := u.Query()
	q.Set("data.id", *paymentID)
	q.Set("type", "payment")
	u.RawQuery = q.Encode()

	body := []byte(fmt.Sprintf(`{"action":"payment.updated","api_version":"v1","type":"payment","live_mode":false,"data":{"id":%q}}`, *paymentID))
	client := &http.Client{Timeout: 15 * time.Second}
	requestID := uuid.NewString()

	for i := 0; i < *repeat; i++ {
		req, err := http.NewRequest(http.MethodPost, u.String(), bytes.NewReader(body))
		if err != nil {
			log.Fatalf("request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Request-Id", requestID)
		if *secret != "" {
			req.Header.Set("X-Signature", payment.SignatureHeader(*secret, requestID, *paymentID, time.Now().Unix()))
		}

		resp, err := client.Do(req)
		if err != nil {
			log.Fatalf("deliver: %v", err)
		}
		out, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		fmt.Printf("#%d %s %s\n", i+1, resp.Status, bytes.TrimSpace(out))
	}
}
