package services

import (
	"errors"
	"testing"
	"time"

	"github.com/tutorhive/backend/internal/models"
)

func TestPayableGuard(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(48 * time.Hour)
	past := now.Add(-48 * time.Hour)

	tests := []struct {
		name    string
		lesson  *models.Lesson
		actorID int64
		wantErr error
	}{
		{"pending lesson", lessonFixture(future, models.LessonPending), 42, nil},
		{"rescheduled lesson", lessonFixture(future, models.LessonRescheduled, models.LessonPending), 42, nil},
		{"tutor pays", lessonFixture(future, models.LessonPending), 7, ErrForbidden},
		{"stranger pays", lessonFixture(future, models.LessonPending), 99, ErrForbidden},
		{"already confirmed", lessonFixture(future, models.LessonConfirmed, models.LessonPending), 42, ErrAlreadyPaid},
		{"was confirmed once", lessonFixture(future, models.LessonRescheduled, models.LessonConfirmed, models.LessonPending), 42, ErrAlreadyPaid},
		{"start passed", lessonFixture(past, models.LessonPending), 42, ErrNotPayable},
		{"cancelled lesson", lessonFixture(future, models.LessonCancelled, models.LessonPending), 42, ErrNotPayable},
		{"rejected lesson", lessonFixture(future, models.LessonRejected, models.LessonPending), 42, ErrNotPayable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := payable(tt.lesson, tt.actorID, now)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestPenceFromPounds(t *testing.T) {
	tests := []struct {
		pounds float64
		want   int64
	}{
		{25, 2500},
		{19.99, 1999},
		{0.01, 1},
		{0, 0},
		{12.345, 1235},
	}
	for _, tt := range tests {
		if got := penceFromPounds(tt.pounds); got != tt.want {
			t.Errorf("penceFromPounds(%v) = %d, want %d", tt.pounds, got, tt.want)
		}
	}
}

func TestPenceFromString(t *testing.T) {
	got, err := penceFromString("25.00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 2500 {
		t.Fatalf("expected 2500, got %d", got)
	}

	got, err = penceFromString("0.50")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 50 {
		t.Fatalf("expected 50, got %d", got)
	}

	if _, err := penceFromString("not-money"); err == nil {
		t.Fatal("expected error for malformed amount")
	}
}

func TestPoundsString(t *testing.T) {
	tests := []struct {
		pence int64
		want  string
	}{
		{2500, "25.00"},
		{1999, "19.99"},
		{5, "0.05"},
		{0, "0.00"},
	}
	for _, tt := range tests {
		if got := poundsString(tt.pence); got != tt.want {
			t.Errorf("poundsString(%d) = %q, want %q", tt.pence, got, tt.want)
		}
	}
}

func TestProcessingFeeRoundsToNearestPenny(t *testing.T) {
	service := &PaymentService{feeFraction: 0.1}

	if got := service.processingFee(2500); got != 250 {
		t.Fatalf("expected 250, got %d", got)
	}
	if got := service.processingFee(1999); got != 200 {
		t.Fatalf("expected 200, got %d", got)
	}
	if got := service.processingFee(0); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}
