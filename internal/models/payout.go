package models

import "time"

type PayoutState string

const (
	PayoutPending   PayoutState = "PENDING"
	PayoutAvailable PayoutState = "AVAILABLE"
	PayoutRequested PayoutState = "REQUESTED"
	PayoutCancelled PayoutState = "CANCELLED"
	PayoutDisputed  PayoutState = "DISPUTED"
	PayoutComplete  PayoutState = "COMPLETE"
)

type PayoutStatus struct {
	PayoutID  int64       `json:"payout_id"`
	Status    PayoutState `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// Payout tracks money owed to the tutor for one paid lesson, 1:1 with its
// payment. Statuses is ordered newest first; the current state is Statuses[0].
type Payout struct {
	ID            int64          `json:"id"`
	PaymentID     int64          `json:"payment_id"`
	LessonID      int64          `json:"lesson_id"`
	TutorUserID   int64          `json:"tutor_user_id"`
	Amount        int64          `json:"amount"`
	ProcessingFee int64          `json:"processing_fee"`
	CreatedAt     time.Time      `json:"created_at"`
	Statuses      []PayoutStatus `json:"statuses"`
}

func (p *Payout) CurrentStatus() PayoutState {
	return p.Statuses[0].Status
}

// PayoutSummary totals (amount - fee) per bucket. Disputed is nil when the
// tutor has no disputed payouts.
type PayoutSummary struct {
	Available int64  `json:"available"`
	Pending   int64  `json:"pending"`
	Disputed  *int64 `json:"disputed"`
}
