package models

import "time"

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	DisplayName  string    `json:"display_name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Tutor is the tutor-specific record attached to a user with the tutor role.
// Promotions holds the promo codes the tutor has opted in to.
type Tutor struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	Promotions         []string  `json:"promotions"`
	PayoutEmail        *string   `json:"payout_email"`
	PayoutEmailEnabled bool      `json:"payout_email_enabled"`
	CreatedAt          time.Time `json:"created_at"`
}
