package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/tutorhive/backend/internal/models"
	"github.com/tutorhive/backend/internal/services"
)

type OrderHandler struct {
	service orderApplicationService
}

type orderApplicationService interface {
	ProcessOrder(ctx context.Context, actorID, lessonID int64, promo *models.PromoCode) (*services.OrderResult, error)
	CaptureOrder(ctx context.Context, actorID int64, orderID string) (*models.Payment, error)
	GetOrderByLesson(ctx context.Context, actorID, lessonID int64) (*models.Payment, error)
	ListOrders(ctx context.Context, actorID int64, page, size int) ([]models.Payment, int64, error)
}

func NewOrderHandler(service *services.PaymentService) *OrderHandler {
	return &OrderHandler{service: service}
}

type createOrderRequest struct {
	Promo *string `json:"promo"`
}

// CreateOrder starts payment for a lesson. Free orders settle immediately;
// paid ones return a gateway order id for the client to take through
// approval.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
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

	var req createOrderRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}

	var promo *models.PromoCode
	if req.Promo != nil && strings.TrimSpace(*req.Promo) != "" {
		code := models.PromoCode(strings.ToUpper(strings.TrimSpace(*req.Promo)))
		promo = &code
	}

	result, err := h.service.ProcessOrder(c.Context(), actorID, lessonID, promo)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"order": result})
}

func (h *OrderHandler) CaptureOrder(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "student" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	orderID := strings.TrimSpace(c.Params("orderId"))
	if orderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order id"})
	}

	payment, err := h.service.CaptureOrder(c.Context(), actorID, orderID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"payment": payment})
}

func (h *OrderHandler) GetLessonOrder(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	lessonID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || lessonID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid lesson id"})
	}

	payment, err := h.service.GetOrderByLesson(c.Context(), actorID, lessonID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"payment": payment})
}

func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	page, size := parsePagination(c)
	payments, total, err := h.service.ListOrders(c.Context(), actorID, page, size)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"payments":   payments,
		"pagination": buildPaginationMeta(page, size, total),
	})
}
