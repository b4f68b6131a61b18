package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tutorhive/backend/internal/models"
)

type stubTutorPromotionsStore struct {
	tutor          *models.Tutor
	getErr         error
	updateErr      error
	lastTutorID    int64
	lastPromotions []string
}

func (s *stubTutorPromotionsStore) GetByUserID(_ context.Context, _ int64) (*models.Tutor, error) {
	return s.tutor, s.getErr
}

func (s *stubTutorPromotionsStore) UpdatePromotions(_ context.Context, tutorID int64, promotions []string) error {
	s.lastTutorID = tutorID
	s.lastPromotions = promotions
	return s.updateErr
}

type stubPromotionLessonReader struct {
	lesson    *models.Lesson
	getErr    error
	confirmed int64
	countErr  error
}

func (s *stubPromotionLessonReader) GetByID(_ context.Context, _ int64) (*models.Lesson, error) {
	return s.lesson, s.getErr
}

func (s *stubPromotionLessonReader) CountConfirmedByEnquiry(_ context.Context, _ int64) (int64, error) {
	return s.confirmed, s.countErr
}

func TestAddPromotionAppendsCode(t *testing.T) {
	tutorRepo := &stubTutorPromotionsStore{tutor: &models.Tutor{ID: 3, UserID: 7}}
	service := NewPromotionService(tutorRepo, &stubPromotionLessonReader{})

	tutor, err := service.AddPromotion(context.Background(), 7, models.PromoTrial)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tutor.Promotions) != 1 || tutor.Promotions[0] != "TRIAL" {
		t.Fatalf("expected promotions [TRIAL], got %v", tutor.Promotions)
	}
	if tutorRepo.lastTutorID != 3 {
		t.Fatalf("expected tutor id 3, got %d", tutorRepo.lastTutorID)
	}
}

func TestAddPromotionRejectsUnknownCode(t *testing.T) {
	service := NewPromotionService(&stubTutorPromotionsStore{}, &stubPromotionLessonReader{})

	if _, err := service.AddPromotion(context.Background(), 7, "HALFPRICE"); !errors.Is(err, ErrUnknownPromotion) {
		t.Fatalf("expected ErrUnknownPromotion, got %v", err)
	}
}

func TestAddPromotionRejectsDuplicate(t *testing.T) {
	tutorRepo := &stubTutorPromotionsStore{tutor: &models.Tutor{ID: 3, UserID: 7, Promotions: []string{"TRIAL"}}}
	service := NewPromotionService(tutorRepo, &stubPromotionLessonReader{})

	if _, err := service.AddPromotion(context.Background(), 7, models.PromoTrial); !errors.Is(err, ErrPromotionOffered) {
		t.Fatalf("expected ErrPromotionOffered, got %v", err)
	}
}

func TestRemovePromotionDropsCode(t *testing.T) {
	tutorRepo := &stubTutorPromotionsStore{
		tutor: &models.Tutor{ID: 3, UserID: 7, Promotions: []string{"TRIAL", "LOYALTY25"}},
	}
	service := NewPromotionService(tutorRepo, &stubPromotionLessonReader{})

	tutor, err := service.RemovePromotion(context.Background(), 7, models.PromoTrial)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tutor.Promotions) != 1 || tutor.Promotions[0] != "LOYALTY25" {
		t.Fatalf("expected promotions [LOYALTY25], got %v", tutor.Promotions)
	}
}

func TestRemovePromotionNotOffered(t *testing.T) {
	tutorRepo := &stubTutorPromotionsStore{tutor: &models.Tutor{ID: 3, UserID: 7}}
	service := NewPromotionService(tutorRepo, &stubPromotionLessonReader{})

	if _, err := service.RemovePromotion(context.Background(), 7, models.PromoLoyalty25); !errors.Is(err, ErrPromotionNotOffered) {
		t.Fatalf("expected ErrPromotionNotOffered, got %v", err)
	}
}

func TestValidateTrialEligibility(t *testing.T) {
	lesson := lessonFixture(time.Now().Add(24*time.Hour), models.LessonPending)
	tutorRepo := &stubTutorPromotionsStore{
		tutor: &models.Tutor{ID: 3, UserID: 7, Promotions: []string{"TRIAL"}},
	}

	service := NewPromotionService(tutorRepo, &stubPromotionLessonReader{})
	promo, err := service.Validate(context.Background(), lesson, models.PromoTrial)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if promo.DiscountPercent != 100 {
		t.Fatalf("expected 100 percent discount, got %d", promo.DiscountPercent)
	}

	service = NewPromotionService(tutorRepo, &stubPromotionLessonReader{confirmed: 1})
	if _, err := service.Validate(context.Background(), lesson, models.PromoTrial); !errors.Is(err, ErrPromotionNotEligible) {
		t.Fatalf("expected ErrPromotionNotEligible after a confirmed lesson, got %v", err)
	}
}

func TestValidateLoyaltyEligibility(t *testing.T) {
	lesson := lessonFixture(time.Now().Add(24*time.Hour), models.LessonPending)
	tutorRepo := &stubTutorPromotionsStore{
		tutor: &models.Tutor{ID: 3, UserID: 7, Promotions: []string{"LOYALTY25"}},
	}

	for _, confirmed := range []int64{0, 1, 3} {
		service := NewPromotionService(tutorRepo, &stubPromotionLessonReader{confirmed: confirmed})
		if _, err := service.Validate(context.Background(), lesson, models.PromoLoyalty25); !errors.Is(err, ErrPromotionNotEligible) {
			t.Fatalf("expected ErrPromotionNotEligible at %d confirmed, got %v", confirmed, err)
		}
	}

	service := NewPromotionService(tutorRepo, &stubPromotionLessonReader{confirmed: 2})
	promo, err := service.Validate(context.Background(), lesson, models.PromoLoyalty25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if promo.DiscountPercent != 25 {
		t.Fatalf("expected 25 percent discount, got %d", promo.DiscountPercent)
	}
}

func TestValidateRequiresTutorOptIn(t *testing.T) {
	lesson := lessonFixture(time.Now().Add(24*time.Hour), models.LessonPending)
	tutorRepo := &stubTutorPromotionsStore{tutor: &models.Tutor{ID: 3, UserID: 7}}
	service := NewPromotionService(tutorRepo, &stubPromotionLessonReader{})

	if _, err := service.Validate(context.Background(), lesson, models.PromoTrial); !errors.Is(err, ErrPromotionNotOffered) {
		t.Fatalf("expected ErrPromotionNotOffered, got %v", err)
	}
}

func TestQuoteAppliesDiscount(t *testing.T) {
	lesson := lessonFixture(time.Now().Add(24*time.Hour), models.LessonPending)
	tutorRepo := &stubTutorPromotionsStore{
		tutor: &models.Tutor{ID: 3, UserID: 7, Promotions: []string{"LOYALTY25"}},
	}
	service := NewPromotionService(tutorRepo, &stubPromotionLessonReader{lesson: lesson, confirmed: 2})

	quote, err := service.Quote(context.Background(), 42, lesson.ID, models.PromoLoyalty25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.OriginalCost != 25 {
		t.Fatalf("expected original cost 25, got %v", quote.OriginalCost)
	}
	if quote.DiscountedCost != 18.75 {
		t.Fatalf("expected discounted cost 18.75, got %v", quote.DiscountedCost)
	}
}

func TestQuoteForbiddenForOtherUsers(t *testing.T) {
	lesson := lessonFixture(time.Now().Add(24*time.Hour), models.LessonPending)
	service := NewPromotionService(&stubTutorPromotionsStore{}, &stubPromotionLessonReader{lesson: lesson})

	if _, err := service.Quote(context.Background(), 7, lesson.ID, models.PromoTrial); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestDiscountedCost(t *testing.T) {
	tests := []struct {
		cost    float64
		percent int
		want    float64
	}{
		{25, 100, 0},
		{25, 25, 18.75},
		{19.99, 25, 14.99},
		{30, 0, 30},
	}
	for _, tt := range tests {
		if got := discountedCost(tt.cost, tt.percent); got != tt.want {
			t.Errorf("discountedCost(%v, %d) = %v, want %v", tt.cost, tt.percent, got, tt.want)
		}
	}
}
