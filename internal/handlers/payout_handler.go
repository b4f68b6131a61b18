package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/tutorhive/backend/internal/models"
	"github.com/tutorhive/backend/internal/services"
)

type PayoutHandler struct {
	service payoutApplicationService
}

type payoutApplicationService interface {
	RequestPayout(ctx context.Context, actorID int64) ([]models.Payout, error)
	MarkComplete(ctx context.Context, payoutIDs []int64) ([]models.Payout, error)
	Summary(ctx context.Context, userID int64) (*models.PayoutSummary, error)
	ListPayouts(ctx context.Context, userID int64, page, size int) ([]models.Payout, int64, error)
	UpdatePayoutSettings(ctx context.Context, actorID int64, payoutEmail *string, emailEnabled bool) (*models.Tutor, error)
}

func NewPayoutHandler(service *services.PayoutService) *PayoutHandler {
	return &PayoutHandler{service: service}
}

func (h *PayoutHandler) Summary(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "tutor" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	summary, err := h.service.Summary(c.Context(), actorID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"summary": summary})
}

func (h *PayoutHandler) ListPayouts(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "tutor" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	page, size := parsePagination(c)
	payouts, total, err := h.service.ListPayouts(c.Context(), actorID, page, size)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"payouts":    payouts,
		"pagination": buildPaginationMeta(page, size, total),
	})
}

func (h *PayoutHandler) RequestPayout(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "tutor" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	payouts, err := h.service.RequestPayout(c.Context(), actorID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"payouts": payouts})
}

type markCompleteRequest struct {
	PayoutIDs []int64 `json:"payout_ids"`
}

// MarkComplete records that the operator sent the money for a batch of
// payouts.
func (h *PayoutHandler) MarkComplete(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	var req markCompleteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if len(req.PayoutIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "payout_ids must not be empty"})
	}
	for _, id := range req.PayoutIDs {
		if id <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payout id"})
		}
	}

	payouts, err := h.service.MarkComplete(c.Context(), req.PayoutIDs)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"payouts": payouts})
}

type payoutSettingsRequest struct {
	PayoutEmail  *string `json:"payout_email"`
	EmailEnabled bool    `json:"email_enabled"`
}

func (h *PayoutHandler) UpdateSettings(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "tutor" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req payoutSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.PayoutEmail != nil {
		trimmed := strings.TrimSpace(*req.PayoutEmail)
		if trimmed == "" {
			req.PayoutEmail = nil
		} else {
			req.PayoutEmail = &trimmed
		}
	}

	tutor, err := h.service.UpdatePayoutSettings(c.Context(), actorID, req.PayoutEmail, req.EmailEnabled)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"tutor": tutor})
}
