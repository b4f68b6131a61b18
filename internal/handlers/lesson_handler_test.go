package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/tutorhive/backend/internal/models"
	"github.com/tutorhive/backend/internal/services"
)

type stubLessonService struct {
	createResult *models.Lesson
	createErr    error
	statusResult *models.Lesson
	statusErr    error
	updateResult *models.Lesson
	updateErr    error
	deleteErr    error
	getResult    *models.Lesson
	getErr       error
	listResult   []models.Lesson
	listTotal    int64
	listErr      error

	lastActorID     int64
	lastLessonID    int64
	lastStatus      models.LessonStatus
	lastCreateInput services.CreateLessonInput
	lastStart       time.Time
	lastEnd         time.Time
	lastEnquiryID   *int64
}

func (s *stubLessonService) CreateLesson(_ context.Context, actorID int64, input services.CreateLessonInput) (*models.Lesson, error) {
	s.lastActorID = actorID
	s.lastCreateInput = input
	return s.createResult, s.createErr
}

func (s *stubLessonService) CreateStatus(_ context.Context, actorID, lessonID int64, status models.LessonStatus) (*models.Lesson, error) {
	s.lastActorID = actorID
	s.lastLessonID = lessonID
	s.lastStatus = status
	return s.statusResult, s.statusErr
}

func (s *stubLessonService) UpdateLesson(_ context.Context, actorID, lessonID int64, _ services.UpdateLessonInput) (*models.Lesson, error) {
	s.lastActorID = actorID
	s.lastLessonID = lessonID
	return s.updateResult, s.updateErr
}

func (s *stubLessonService) DeleteLesson(_ context.Context, actorID, lessonID int64) error {
	s.lastActorID = actorID
	s.lastLessonID = lessonID
	return s.deleteErr
}

func (s *stubLessonService) GetLesson(_ context.Context, actorID, lessonID int64) (*models.Lesson, error) {
	s.lastActorID = actorID
	s.lastLessonID = lessonID
	return s.getResult, s.getErr
}

func (s *stubLessonService) ListLessons(_ context.Context, actorID int64, start, end time.Time, enquiryID *int64) ([]models.Lesson, int64, error) {
	s.lastActorID = actorID
	s.lastStart = start
	s.lastEnd = end
	s.lastEnquiryID = enquiryID
	return s.listResult, s.listTotal, s.listErr
}

func lessonTestApp(handler *LessonHandler, role, userID string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", role)
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Post("/api/v1/lessons", handler.CreateLesson)
	app.Get("/api/v1/lessons", handler.ListLessons)
	app.Get("/api/v1/lessons/:id", handler.GetLesson)
	app.Put("/api/v1/lessons/:id", handler.UpdateLesson)
	app.Delete("/api/v1/lessons/:id", handler.DeleteLesson)
	app.Post("/api/v1/lessons/:id/status", handler.CreateStatus)
	return app
}

func TestCreateLessonReturnsCreated(t *testing.T) {
	service := &stubLessonService{
		createResult: &models.Lesson{ID: 31, TutorUserID: 7, StudentID: 42},
	}
	handler := &LessonHandler{service: service}
	app := lessonTestApp(handler, "tutor", "7")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/lessons", strings.NewReader(`{
		"student_id": 42,
		"topic_id": 3,
		"enquiry_id": 12,
		"start_at": "2026-03-10T14:00:00Z",
		"end_at": "2026-03-10T15:00:00Z",
		"cost": 25
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastActorID != 7 {
		t.Fatalf("expected actor id 7, got %d", service.lastActorID)
	}
	if service.lastCreateInput.StudentID != 42 {
		t.Fatalf("expected student id 42, got %d", service.lastCreateInput.StudentID)
	}
	if service.lastCreateInput.Cost != 25 {
		t.Fatalf("expected cost 25, got %v", service.lastCreateInput.Cost)
	}
}

func TestCreateLessonForbiddenForStudents(t *testing.T) {
	handler := &LessonHandler{service: &stubLessonService{}}
	app := lessonTestApp(handler, "student", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/lessons", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestCreateStatusUppercasesAndPassesStatus(t *testing.T) {
	service := &stubLessonService{
		statusResult: &models.Lesson{ID: 31, States: []models.LessonState{{Status: models.LessonCancelled}}},
	}
	handler := &LessonHandler{service: service}
	app := lessonTestApp(handler, "tutor", "7")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/lessons/31/status", strings.NewReader(`{"status": "cancelled"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastLessonID != 31 {
		t.Fatalf("expected lesson id 31, got %d", service.lastLessonID)
	}
	if service.lastStatus != models.LessonCancelled {
		t.Fatalf("expected CANCELLED, got %s", service.lastStatus)
	}
}

func TestCreateStatusMapsTransitionError(t *testing.T) {
	service := &stubLessonService{statusErr: services.ErrInvalidStateTransition}
	handler := &LessonHandler{service: service}
	app := lessonTestApp(handler, "student", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/lessons/31/status", strings.NewReader(`{"status": "REJECTED"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestGetLessonReturnsNotFound(t *testing.T) {
	service := &stubLessonService{getErr: pgx.ErrNoRows}
	handler := &LessonHandler{service: service}
	app := lessonTestApp(handler, "student", "42")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/lessons/900", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestListLessonsPassesRangeAndEnquiry(t *testing.T) {
	service := &stubLessonService{
		listResult: []models.Lesson{{ID: 31}},
		listTotal:  1,
	}
	handler := &LessonHandler{service: service}
	app := lessonTestApp(handler, "student", "42")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/lessons?start=2026-03-01T00:00:00Z&end=2026-04-01T00:00:00Z&enquiry_id=12", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastStart.Month() != time.March || service.lastEnd.Month() != time.April {
		t.Fatalf("unexpected range %v to %v", service.lastStart, service.lastEnd)
	}
	if service.lastEnquiryID == nil || *service.lastEnquiryID != 12 {
		t.Fatalf("expected enquiry id 12, got %v", service.lastEnquiryID)
	}

	var body struct {
		Total int64 `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Total != 1 {
		t.Fatalf("expected total 1, got %d", body.Total)
	}
}

func TestListLessonsRejectsMissingRange(t *testing.T) {
	handler := &LessonHandler{service: &stubLessonService{}}
	app := lessonTestApp(handler, "student", "42")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/lessons", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestDeleteLessonReturnsNoContent(t *testing.T) {
	service := &stubLessonService{}
	handler := &LessonHandler{service: service}
	app := lessonTestApp(handler, "tutor", "7")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/lessons/31", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if service.lastLessonID != 31 {
		t.Fatalf("expected lesson id 31, got %d", service.lastLessonID)
	}
}
