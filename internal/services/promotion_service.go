package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/tutorhive/backend/internal/models"
)

var (
	ErrUnknownPromotion     = errors.New("unknown promotion")
	ErrPromotionOffered     = errors.New("promotion already offered")
	ErrPromotionNotOffered  = errors.New("promotion not offered by tutor")
	ErrPromotionNotEligible = errors.New("promotion requirements not met")
)

// promotions is the closed set of discount policies. Eligibility depends on
// how many lessons in the enquiry have ever been confirmed.
var promotions = []models.Promotion{
	{Code: models.PromoTrial, Description: "Free trial lesson for new students", DiscountPercent: 100},
	{Code: models.PromoLoyalty25, Description: "25% off your third lesson", DiscountPercent: 25},
}

type tutorPromotionsStore interface {
	GetByUserID(ctx context.Context, userID int64) (*models.Tutor, error)
	UpdatePromotions(ctx context.Context, tutorID int64, promotions []string) error
}

type promotionLessonReader interface {
	GetByID(ctx context.Context, lessonID int64) (*models.Lesson, error)
	CountConfirmedByEnquiry(ctx context.Context, enquiryID int64) (int64, error)
}

type PromotionService struct {
	tutorRepo  tutorPromotionsStore
	lessonRepo promotionLessonReader
}

func NewPromotionService(
	tutorRepo tutorPromotionsStore,
	lessonRepo promotionLessonReader,
) *PromotionService {
	return &PromotionService{
		tutorRepo:  tutorRepo,
		lessonRepo: lessonRepo,
	}
}

func (s *PromotionService) All() []models.Promotion {
	result := make([]models.Promotion, len(promotions))
	copy(result, promotions)
	return result
}

func promotionByCode(code models.PromoCode) (models.Promotion, bool) {
	for _, promo := range promotions {
		if promo.Code == code {
			return promo, true
		}
	}
	return models.Promotion{}, false
}

// AddPromotion opts the tutor in to offering the given promotion.
func (s *PromotionService) AddPromotion(ctx context.Context, tutorUserID int64, code models.PromoCode) (*models.Tutor, error) {
	if _, ok := promotionByCode(code); !ok {
		return nil, ErrUnknownPromotion
	}

	tutor, err := s.tutorRepo.GetByUserID(ctx, tutorUserID)
	if err != nil {
		return nil, err
	}
	for _, offered := range tutor.Promotions {
		if offered == string(code) {
			return nil, ErrPromotionOffered
		}
	}

	updated := append(tutor.Promotions, string(code))
	if err := s.tutorRepo.UpdatePromotions(ctx, tutor.ID, updated); err != nil {
		return nil, err
	}
	tutor.Promotions = updated
	return tutor, nil
}

func (s *PromotionService) RemovePromotion(ctx context.Context, tutorUserID int64, code models.PromoCode) (*models.Tutor, error) {
	if _, ok := promotionByCode(code); !ok {
		return nil, ErrUnknownPromotion
	}

	tutor, err := s.tutorRepo.GetByUserID(ctx, tutorUserID)
	if err != nil {
		return nil, err
	}

	updated := make([]string, 0, len(tutor.Promotions))
	found := false
	for _, offered := range tutor.Promotions {
		if offered == string(code) {
			found = true
			continue
		}
		updated = append(updated, offered)
	}
	if !found {
		return nil, ErrPromotionNotOffered
	}

	if err := s.tutorRepo.UpdatePromotions(ctx, tutor.ID, updated); err != nil {
		return nil, err
	}
	tutor.Promotions = updated
	return tutor, nil
}

// Validate checks that the lesson's tutor offers the promotion and that the
// enquiry's confirmed lesson count meets the code's requirement.
func (s *PromotionService) Validate(ctx context.Context, lesson *models.Lesson, code models.PromoCode) (models.Promotion, error) {
	promo, ok := promotionByCode(code)
	if !ok {
		return models.Promotion{}, ErrUnknownPromotion
	}

	tutor, err := s.tutorRepo.GetByUserID(ctx, lesson.TutorUserID)
	if err != nil {
		return models.Promotion{}, err
	}
	offered := false
	for _, candidate := range tutor.Promotions {
		if candidate == string(code) {
			offered = true
			break
		}
	}
	if !offered {
		return models.Promotion{}, ErrPromotionNotOffered
	}

	confirmed, err := s.lessonRepo.CountConfirmedByEnquiry(ctx, lesson.EnquiryID)
	if err != nil {
		return models.Promotion{}, err
	}

	switch promo.Code {
	case models.PromoTrial:
		if confirmed >= 1 {
			return models.Promotion{}, ErrPromotionNotEligible
		}
	case models.PromoLoyalty25:
		if confirmed != 2 {
			return models.Promotion{}, ErrPromotionNotEligible
		}
	}

	return promo, nil
}

type PromotionQuote struct {
	Code           models.PromoCode `json:"code"`
	OriginalCost   float64          `json:"original_cost"`
	DiscountedCost float64          `json:"discounted_cost"`
}

// Quote returns what the lesson would cost with the promotion applied. Only
// the lesson's student may ask.
func (s *PromotionService) Quote(ctx context.Context, actorID, lessonID int64, code models.PromoCode) (*PromotionQuote, error) {
	lesson, err := s.lessonRepo.GetByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.StudentID != actorID {
		return nil, ErrForbidden
	}

	promo, err := s.Validate(ctx, lesson, code)
	if err != nil {
		return nil, err
	}

	return &PromotionQuote{
		Code:           promo.Code,
		OriginalCost:   lesson.Cost,
		DiscountedCost: discountedCost(lesson.Cost, promo.DiscountPercent),
	}, nil
}

// discountedCost applies a percentage discount in exact decimal arithmetic,
// rounded to whole pence.
func discountedCost(cost float64, discountPercent int) float64 {
	result, _ := decimal.NewFromFloat(cost).
		Mul(decimal.NewFromInt(int64(100 - discountPercent))).
		Div(decimal.NewFromInt(100)).
		Round(2).
		Float64()
	return result
}
