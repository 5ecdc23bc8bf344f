package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yawasante/databundles-backend/pkg/paystack"
)

type fakePaystackService struct {
	calls    int
	lastBody []byte
	err      error
}

func (f *fakePaystackService) HandleEvent(_ context.Context, body []byte) error {
	f.calls++
	f.lastBody = body
	return f.err
}

type fakeSignatureValidator struct {
	secret string
}

func (f *fakeSignatureValidator) ValidateSignature(body []byte, signature string) bool {
	return paystack.ValidateSignature(f.secret, body, signature)
}

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPaystackWebhookAcceptsSignedEvent(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"PAY_1","amount":1000}}`)
	service := &fakePaystackService{}
	handler := PaystackWebhook(service, &fakeSignatureValidator{secret: "whsec"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set(paystack.SignatureHeader, signBody(body, "whsec"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}
	if !bytes.Equal(service.lastBody, body) {
		t.Fatalf("service received altered body: %s", service.lastBody)
	}
}

func TestPaystackWebhookRejectsMissingSignature(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"PAY_2","amount":1000}}`)
	service := &fakePaystackService{}
	handler := PaystackWebhook(service, &fakeSignatureValidator{secret: "whsec"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing signature, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked without a signature")
	}
}

func TestPaystackWebhookRejectsTamperedBody(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"PAY_3","amount":1000}}`)
	signature := signBody(body, "whsec")
	tampered := []byte(`{"event":"charge.success","data":{"reference":"PAY_3","amount":999000}}`)
	service := &fakePaystackService{}
	handler := PaystackWebhook(service, &fakeSignatureValidator{secret: "whsec"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewReader(tampered))
	req.Header.Set(paystack.SignatureHeader, signature)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for tampered body, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on signature mismatch")
	}
}

func TestPaystackWebhookSurfacesServiceFailure(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"PAY_4","amount":1000}}`)
	service := &fakePaystackService{err: errors.New("db down")}
	handler := PaystackWebhook(service, &fakeSignatureValidator{secret: "whsec"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set(paystack.SignatureHeader, signBody(body, "whsec"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 so the gateway retries, got %d", rec.Code)
	}
}

func TestWirenetOrderWebhookAlwaysAcks(t *testing.T) {
	handler := WirenetOrderWebhook(nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/wirenet/orders", bytes.NewReader([]byte("not-json")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("supplier callback must always be acknowledged, got %d", rec.Code)
	}
}
