package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

type stubDisputeHandler struct {
	err            error
	lastResourceID string
	calls          int
}

func (s *stubDisputeHandler) HandleDispute(_ context.Context, resourceID string) error {
	s.calls++
	s.lastResourceID = resourceID
	return s.err
}

func webhookTestApp(handler *WebhookHandler) *fiber.App {
	app := fiber.New()
	app.Post("/api/webhooks/paypal", handler.HandlePaypalEvent)
	return app
}

func TestWebhookHandlesDisputeCreated(t *testing.T) {
	payments := &stubDisputeHandler{}
	handler := &WebhookHandler{payments: payments}
	app := webhookTestApp(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/paypal", strings.NewReader(`{
		"id": "WH-1",
		"event_type": "CUSTOMER.DISPUTE.CREATED",
		"resource": {
			"id": "PP-D-1",
			"disputed_transactions": [{"seller_transaction_id": "8AC50239HE093581F"}]
		}
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if payments.lastResourceID != "8AC50239HE093581F" {
		t.Fatalf("expected disputed transaction id, got %q", payments.lastResourceID)
	}
}

func TestWebhookFallsBackToResourceID(t *testing.T) {
	payments := &stubDisputeHandler{}
	handler := &WebhookHandler{payments: payments}
	app := webhookTestApp(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/paypal", strings.NewReader(`{
		"id": "WH-2",
		"event_type": "CUSTOMER.DISPUTE.UPDATED",
		"resource": {"id": "PP-D-2"}
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if payments.lastResourceID != "PP-D-2" {
		t.Fatalf("expected resource id fallback, got %q", payments.lastResourceID)
	}
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	payments := &stubDisputeHandler{}
	handler := &WebhookHandler{payments: payments}
	app := webhookTestApp(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/paypal", strings.NewReader(`{
		"id": "WH-3",
		"event_type": "PAYMENT.CAPTURE.COMPLETED",
		"resource": {"id": "8AC50239HE093581F"}
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if payments.calls != 0 {
		t.Fatalf("expected no dispute handling, got %d calls", payments.calls)
	}
}

func TestWebhookIgnoresUnknownOrder(t *testing.T) {
	payments := &stubDisputeHandler{err: pgx.ErrNoRows}
	handler := &WebhookHandler{payments: payments}
	app := webhookTestApp(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/paypal", strings.NewReader(`{
		"id": "WH-4",
		"event_type": "CUSTOMER.DISPUTE.CREATED",
		"resource": {"id": "PP-D-4"}
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestWebhookSurfacesProcessingFailure(t *testing.T) {
	payments := &stubDisputeHandler{err: errors.New("transaction failed")}
	handler := &WebhookHandler{payments: payments}
	app := webhookTestApp(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/paypal", strings.NewReader(`{
		"id": "WH-5",
		"event_type": "CUSTOMER.DISPUTE.CREATED",
		"resource": {"id": "PP-D-5"}
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}
