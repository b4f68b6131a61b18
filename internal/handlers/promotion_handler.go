package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/tutorhive/backend/internal/models"
	"github.com/tutorhive/backend/internal/services"
)

type PromotionHandler struct {
	service promotionApplicationService
}

type promotionApplicationService interface {
	All() []models.Promotion
	AddPromotion(ctx context.Context, tutorUserID int64, code models.PromoCode) (*models.Tutor, error)
	RemovePromotion(ctx context.Context, tutorUserID int64, code models.PromoCode) (*models.Tutor, error)
	Quote(ctx context.Context, actorID, lessonID int64, code models.PromoCode) (*services.PromotionQuote, error)
}

func NewPromotionHandler(service *services.PromotionService) *PromotionHandler {
	return &PromotionHandler{service: service}
}

func (h *PromotionHandler) ListPromotions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"promotions": h.service.All()})
}

type promotionRequest struct {
	Code string `json:"code"`
}

func (h *PromotionHandler) AddPromotion(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "tutor" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req promotionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	tutor, err := h.service.AddPromotion(c.Context(), actorID, models.PromoCode(strings.ToUpper(strings.TrimSpace(req.Code))))
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"tutor": tutor})
}

func (h *PromotionHandler) RemovePromotion(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "tutor" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	code := models.PromoCode(strings.ToUpper(strings.TrimSpace(c.Params("code"))))
	tutor, err := h.service.RemovePromotion(c.Context(), actorID, code)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"tutor": tutor})
}

// Quote prices a lesson with a promotion applied without committing to it.
func (h *PromotionHandler) Quote(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "student" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	lessonID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || lessonID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid lesson id"})
	}

	code := models.PromoCode(strings.ToUpper(strings.TrimSpace(c.Query("code"))))
	quote, err := h.service.Quote(c.Context(), actorID, lessonID, code)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"quote": quote})
}
