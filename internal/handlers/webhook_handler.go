package handlers

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/tutorhive/backend/internal/services"
)

type WebhookHandler struct {
	payments disputeHandler
}

type disputeHandler interface {
	HandleDispute(ctx context.Context, resourceID string) error
}

func NewWebhookHandler(payments *services.PaymentService) *WebhookHandler {
	return &WebhookHandler{payments: payments}
}

type paypalWebhookEvent struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		ID                   string `json:"id"`
		DisputedTransactions []struct {
			SellerTransactionID string `json:"seller_transaction_id"`
		} `json:"disputed_transactions"`
	} `json:"resource"`
}

// HandlePaypalEvent receives gateway webhooks. Only dispute openings are
// acted on; everything else is acknowledged and dropped.
func (h *WebhookHandler) HandlePaypalEvent(c *fiber.Ctx) error {
	var event paypalWebhookEvent
	if err := c.BodyParser(&event); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid webhook payload"})
	}

	if !strings.HasPrefix(event.EventType, "CUSTOMER.DISPUTE.") {
		return c.JSON(fiber.Map{"status": "ignored"})
	}

	resourceID := event.Resource.ID
	if len(event.Resource.DisputedTransactions) > 0 {
		resourceID = event.Resource.DisputedTransactions[0].SellerTransactionID
	}
	if resourceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing dispute resource"})
	}

	if err := h.payments.HandleDispute(c.Context(), resourceID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Printf("webhook %s: no order for resource %s", event.ID, resourceID)
			return c.JSON(fiber.Map{"status": "ignored"})
		}
		log.Printf("webhook %s: handle dispute: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process webhook"})
	}

	return c.JSON(fiber.Map{"status": "processed"})
}
