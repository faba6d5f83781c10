package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/valyala/fasthttp"
)

// Provider headers carrying the notification signature.
const (
	HeaderSignature        = "X-Signature"
	HeaderWebhookRequestID = "X-Request-Id"
)

var (
	ErrMissingSignature = errors.New("missing payment signature")
	ErrBadSignature     = errors.New("payment signature mismatch")
	ErrNoWebhookSecret  = errors.New("payment webhook secret not configured")
)

// PaymentSignature checks the provider's x-signature header: "ts=<ts>,v1=<hex>"
// where v1 is HMAC-SHA256 of "id:<data.id>;request-id:<x-request-id>;ts:<ts>;".
// Parts whose value is absent are left out of the manifest.
type PaymentSignature struct {
	secret []byte
}

func NewPaymentSignature(secret string) *PaymentSignature {
	return &PaymentSignature{secret: []byte(secret)}
}

// Verify fails closed: without a configured secret nothing is accepted.
func (s *PaymentSignature) Verify(ctx *fasthttp.RequestCtx, dataID string) error {
	if len(s.secret) == 0 {
		return ErrNoWebhookSecret
	}

	ts, v1 := parseSignature(string(ctx.Request.Header.Peek(HeaderSignature)))
	if ts == "" || v1 == "" {
		return ErrMissingSignature
	}
	got, err := hex.DecodeString(v1)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	requestID := string(ctx.Request.Header.Peek(HeaderWebhookRequestID))
	if !hmac.Equal(got, s.mac(dataID, requestID, ts)) {
		return ErrBadSignature
	}
	return nil
}

func (s *PaymentSignature) mac(dataID, requestID, ts string) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(signatureManifest(dataID, requestID, ts)))
	return h.Sum(nil)
}

// Sign returns the header value the provider would send for these values.
func (s *PaymentSignature) Sign(dataID, requestID, ts string) string {
	return "ts=" + ts + ",v1=" + hex.EncodeToString(s.mac(dataID, requestID, ts))
}

func signatureManifest(dataID, requestID, ts string) string {
	var b strings.Builder
	if dataID != "" {
		b.WriteString("id:" + strings.ToLower(dataID) + ";")
	}
	if requestID != "" {
		b.WriteString("request-id:" + requestID + ";")
	}
	b.WriteString("ts:" + ts + ";")
	return b.String()
}

func parseSignature(header string) (ts, v1 string) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			v1 = strings.TrimSpace(value)
		}
	}
	return ts, v1
}
