package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/tutorhive/backend/internal/models"
	"github.com/tutorhive/backend/internal/services"
)

type LessonHandler struct {
	service lessonApplicationService
}

type lessonApplicationService interface {
	CreateLesson(ctx context.Context, actorID int64, input services.CreateLessonInput) (*models.Lesson, error)
	CreateStatus(ctx context.Context, actorID, lessonID int64, status models.LessonStatus) (*models.Lesson, error)
	UpdateLesson(ctx context.Context, actorID, lessonID int64, input services.UpdateLessonInput) (*models.Lesson, error)
	DeleteLesson(ctx context.Context, actorID, lessonID int64) error
	GetLesson(ctx context.Context, actorID, lessonID int64) (*models.Lesson, error)
	ListLessons(ctx context.Context, actorID int64, start, end time.Time, enquiryID *int64) ([]models.Lesson, int64, error)
}

func NewLessonHandler(service *services.LessonService) *LessonHandler {
	return &LessonHandler{service: service}
}

type createLessonRequest struct {
	StudentID int64   `json:"student_id"`
	TopicID   int64   `json:"topic_id"`
	EnquiryID int64   `json:"enquiry_id"`
	StartAt   string  `json:"start_at"`
	EndAt     string  `json:"end_at"`
	Cost      float64 `json:"cost"`
}

type updateLessonRequest struct {
	TopicID int64   `json:"topic_id"`
	StartAt string  `json:"start_at"`
	EndAt   string  `json:"end_at"`
	Cost    float64 `json:"cost"`
}

type lessonStatusRequest struct {
	Status string `json:"status"`
}

func (h *LessonHandler) CreateLesson(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "tutor" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	startAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartAt))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start_at must be a valid RFC3339 timestamp"})
	}
	endAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.EndAt))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end_at must be a valid RFC3339 timestamp"})
	}

	lesson, err := h.service.CreateLesson(c.Context(), actorID, services.CreateLessonInput{
		StudentID: req.StudentID,
		TopicID:   req.TopicID,
		EnquiryID: req.EnquiryID,
		StartAt:   startAt,
		EndAt:     endAt,
		Cost:      req.Cost,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"lesson": lesson})
}

func (h *LessonHandler) ListLessons(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start must be a valid RFC3339 timestamp"})
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end must be a valid RFC3339 timestamp"})
	}

	var enquiryID *int64
	if raw := strings.TrimSpace(c.Query("enquiry_id")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid enquiry id"})
		}
		enquiryID = &parsed
	}

	lessons, total, err := h.service.ListLessons(c.Context(), actorID, start, end, enquiryID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"lessons": lessons, "total": total})
}

func (h *LessonHandler) GetLesson(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	lessonID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || lessonID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid lesson id"})
	}

	lesson, err := h.service.GetLesson(c.Context(), actorID, lessonID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"lesson": lesson})
}

func (h *LessonHandler) CreateStatus(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	lessonID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || lessonID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid lesson id"})
	}

	var req lessonStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	status := models.LessonStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	lesson, err := h.service.CreateStatus(c.Context(), actorID, lessonID, status)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"lesson": lesson})
}

func (h *LessonHandler) UpdateLesson(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "tutor" {
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

	var req updateLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	startAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartAt))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start_at must be a valid RFC3339 timestamp"})
	}
	endAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.EndAt))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end_at must be a valid RFC3339 timestamp"})
	}

	lesson, err := h.service.UpdateLesson(c.Context(), actorID, lessonID, services.UpdateLessonInput{
		TopicID: req.TopicID,
		StartAt: startAt,
		EndAt:   endAt,
		Cost:    req.Cost,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"lesson": lesson})
}

func (h *LessonHandler) DeleteLesson(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "tutor" {
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

	if err := h.service.DeleteLesson(c.Context(), actorID, lessonID); err != nil {
		return mapServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func mapServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrUnknownPromotion):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidStateTransition),
		errors.Is(err, services.ErrNotPayable),
		errors.Is(err, services.ErrCaptureIncomplete),
		errors.Is(err, services.ErrPromotionOffered),
		errors.Is(err, services.ErrPromotionNotOffered),
		errors.Is(err, services.ErrPromotionNotEligible),
		errors.Is(err, services.ErrNoAvailablePayouts),
		errors.Is(err, services.ErrNoPayoutEmail):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrAlreadyPaid):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrStudentNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process request"})
	}
}
