package services

import (
	"errors"
	"testing"
	"time"

	"github.com/tutorhive/backend/internal/models"
)

func lessonFixture(startAt time.Time, history ...models.LessonStatus) *models.Lesson {
	states := make([]models.LessonState, len(history))
	for i, status := range history {
		states[i] = models.LessonState{Status: status}
	}
	return &models.Lesson{
		ID:          31,
		TutorUserID: 7,
		StudentID:   42,
		TopicID:     3,
		EnquiryID:   12,
		StartAt:     startAt,
		EndAt:       startAt.Add(time.Hour),
		Cost:        25,
		States:      states,
	}
}

func TestValidateLessonTransition(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(48 * time.Hour)
	past := now.Add(-48 * time.Hour)

	tests := []struct {
		name    string
		lesson  *models.Lesson
		target  models.LessonStatus
		wantErr bool
	}{
		{"cancel pending", lessonFixture(future, models.LessonPending), models.LessonCancelled, false},
		{"cancel confirmed", lessonFixture(future, models.LessonConfirmed, models.LessonPending), models.LessonCancelled, false},
		{"cancel cancelled", lessonFixture(future, models.LessonCancelled, models.LessonPending), models.LessonCancelled, true},
		{"cancel rejected", lessonFixture(future, models.LessonRejected, models.LessonPending), models.LessonCancelled, true},
		{"cancel after start", lessonFixture(past, models.LessonPending), models.LessonCancelled, true},
		{"reject pending", lessonFixture(future, models.LessonPending), models.LessonRejected, false},
		{"reject cancelled", lessonFixture(future, models.LessonCancelled, models.LessonPending), models.LessonRejected, true},
		{"reject after start", lessonFixture(past, models.LessonRescheduled, models.LessonPending), models.LessonRejected, true},
		{"confirm pending", lessonFixture(future, models.LessonPending), models.LessonConfirmed, false},
		{"confirm rescheduled", lessonFixture(future, models.LessonRescheduled, models.LessonPending), models.LessonConfirmed, false},
		{"confirm confirmed", lessonFixture(future, models.LessonConfirmed, models.LessonPending), models.LessonConfirmed, true},
		{"confirm cancelled", lessonFixture(future, models.LessonCancelled, models.LessonPending), models.LessonConfirmed, true},
		{"confirm rejected", lessonFixture(future, models.LessonRejected, models.LessonPending), models.LessonConfirmed, true},
		{"review confirmed", lessonFixture(past, models.LessonConfirmed, models.LessonPending), models.LessonReviewed, false},
		{"review pending", lessonFixture(past, models.LessonPending), models.LessonReviewed, true},
		{"review cancelled", lessonFixture(past, models.LessonCancelled, models.LessonPending), models.LessonReviewed, true},
		{"review twice", lessonFixture(past, models.LessonReviewed, models.LessonConfirmed, models.LessonPending), models.LessonReviewed, true},
		{"target pending", lessonFixture(future, models.LessonPending), models.LessonPending, true},
		{"target rescheduled", lessonFixture(future, models.LessonPending), models.LessonRescheduled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateLessonTransition(tt.lesson, tt.target, now)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidStateTransition) {
					t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRefundRequired(t *testing.T) {
	future := time.Now().Add(48 * time.Hour)

	tests := []struct {
		name   string
		lesson *models.Lesson
		target models.LessonStatus
		want   bool
	}{
		{"cancel confirmed", lessonFixture(future, models.LessonConfirmed, models.LessonPending), models.LessonCancelled, true},
		{"reject confirmed", lessonFixture(future, models.LessonConfirmed, models.LessonPending), models.LessonRejected, true},
		{"cancel pending", lessonFixture(future, models.LessonPending), models.LessonCancelled, false},
		{"reject pending", lessonFixture(future, models.LessonPending), models.LessonRejected, false},
		{"cancel rescheduled", lessonFixture(future, models.LessonRescheduled, models.LessonPending), models.LessonCancelled, false},
		{"reject rescheduled", lessonFixture(future, models.LessonRescheduled, models.LessonPending), models.LessonRejected, false},
		{"confirm pending", lessonFixture(future, models.LessonPending), models.LessonConfirmed, false},
		{"review confirmed", lessonFixture(future, models.LessonConfirmed, models.LessonPending), models.LessonReviewed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := refundRequired(tt.lesson, tt.target); got != tt.want {
				t.Fatalf("refundRequired = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthorizeStatusChange(t *testing.T) {
	lesson := lessonFixture(time.Now().Add(time.Hour), models.LessonPending)

	tests := []struct {
		name    string
		actorID int64
		status  models.LessonStatus
		wantErr bool
	}{
		{"tutor cancels", 7, models.LessonCancelled, false},
		{"student cancels", 42, models.LessonCancelled, true},
		{"student rejects", 42, models.LessonRejected, false},
		{"tutor rejects", 7, models.LessonRejected, true},
		{"student reviews", 42, models.LessonReviewed, false},
		{"stranger rejects", 99, models.LessonRejected, true},
		{"stranger cancels", 99, models.LessonCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authorizeStatusChange(tt.actorID, lesson, tt.status)
			if tt.wantErr {
				if !errors.Is(err, ErrForbidden) {
					t.Fatalf("expected ErrForbidden, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateSchedule(t *testing.T) {
	future := time.Now().UTC().Add(24 * time.Hour)

	if err := validateSchedule(future, future.Add(time.Hour), 25, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := validateSchedule(time.Now().UTC().Add(-time.Hour), future, 25, 5); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for past start, got %v", err)
	}
	if err := validateSchedule(future, future.Add(-time.Minute), 25, 5); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for end before start, got %v", err)
	}
	if err := validateSchedule(future, future, 25, 5); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero duration, got %v", err)
	}
	if err := validateSchedule(future, future.Add(time.Hour), 3, 5); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for cost below minimum, got %v", err)
	}
}
