package models

import "time"

type PromoCode string

const (
	PromoTrial     PromoCode = "TRIAL"
	PromoLoyalty25 PromoCode = "LOYALTY25"
)

// Promotion is one of the closed set of discount policies. DiscountPercent is
// applied to the lesson cost; eligibility is decided from the enquiry's
// confirmed-lesson count, see services.PromotionService.
type Promotion struct {
	Code            PromoCode `json:"code"`
	Description     string    `json:"description"`
	DiscountPercent int       `json:"discount_percent"`
}

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}
