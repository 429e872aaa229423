package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"membership-payments/internal/domain"
)

// Signature is the parsed x-signature header: "ts=<unix>,v1=<hex hmac>".
type Signature struct {
	TS int64
	V1 string
}

func ParseSignature(header string) (Signature, error) {
	var sig Signature
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(k) {
		case "ts":
			ts, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return Signature{}, fmt.Errorf("%w: bad ts", domain.ErrInvalidSignature)
			}
			sig.TS = ts
		case "v1":
			sig.V1 = strings.TrimSpace(v)
		}
	}
	if sig.TS == 0 || sig.V1 == "" {
		return Signature{}, fmt.Errorf("%w: header incomplete", domain.ErrInvalidSignature)
	}
	return sig, nil
}

// Manifest is the string the gateway signs. Alphanumeric ids are lowercased.
func Manifest(dataID, requestID string, ts int64) string {
	var b strings.Builder
	if dataID != "" {
		fmt.Fprintf(&b, "id:%s;", strings.ToLower(dataID))
	}
	if requestID != "" {
		fmt.Fprintf(&b, "request-id:%s;", requestID)
	}
	fmt.Fprintf(&b, "ts:%d;", ts)
	return b.String()
}

func Sign(secret, manifest string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(manifest))
	return hex.EncodeToString(h.Sum(nil))
}

// SignatureVerifier checks webhook deliveries against the shared secret.
// A zero MaxAge accepts any timestamp.
type SignatureVerifier struct {
	Secret string
	MaxAge time.Duration
	Now    func() time.Time
}

func (v SignatureVerifier) Enabled() bool { return v.Secret != "" }

func (v SignatureVerifier) Verify(header, requestID, dataID string) error {
	sig, err := ParseSignature(header)
	if err != nil {
		return err
	}
	if v.MaxAge > 0 {
		now := time.Now
		if v.Now != nil {
			now = v.Now
		}
		// ts may arrive in seconds or milliseconds
		ts := sig.TS
		if ts > 1e12 {
			ts /= 1000
		}
		if age := now().Sub(time.Unix(ts, 0)); age > v.MaxAge || age < -v.MaxAge {
			return fmt.Errorf("%w: timestamp outside window", domain.ErrInvalidSignature)
		}
	}
	expected := Sign(v.Secret, Manifest(dataID, requestID, sig.TS))
	if !hmac.Equal([]byte(strings.ToLower(sig.V1)), []byte(expected)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// SignatureHeader builds an x-signature value; used by the mock webhook tool and tests.
func SignatureHeader(secret, requestID, dataID string, ts int64) string {
	return fmt.Sprintf("ts=%d,v1=%s", ts, Sign(secret, Manifest(dataID, requestID, ts)))
}
