package models

import "time"

type PaymentState string

const (
	PaymentConfirmed       PaymentState = "CONFIRMED"
	PaymentRefunded        PaymentState = "REFUNDED"
	PaymentRefundRequested PaymentState = "REFUND_REQUESTED"
)

type PaymentStatus struct {
	ID        int64        `json:"id"`
	PaymentID int64        `json:"payment_id"`
	Status    PaymentState `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

// Payment is the student-facing order record for a lesson. Amounts are in
// integer pence. GatewayPaymentID is nil for free orders, in which case no
// payout exists either. At most one payment exists per lesson.
type Payment struct {
	ID               int64           `json:"id"`
	LessonID         int64           `json:"lesson_id"`
	UserID           int64           `json:"user_id"`
	TutorUserID      int64           `json:"tutor_user_id"`
	ExternalID       string          `json:"external_id"`
	GatewayPaymentID *string         `json:"gateway_payment_id"`
	Amount           int64           `json:"amount"`
	ProcessingFee    int64           `json:"processing_fee"`
	RefundID         *string         `json:"refund_id"`
	UpdatedAt        time.Time       `json:"updated_at"`
	CreatedAt        time.Time       `json:"created_at"`
	StatusHistory    []PaymentStatus `json:"status_history"`
}

func (p *Payment) HasStatus(status PaymentState) bool {
	for _, entry := range p.StatusHistory {
		if entry.Status == status {
			return true
		}
	}
	return false
}

// GatewayOrder is the locally persisted mirror of the payment gateway's
// order, keyed by the gateway's own identifiers. Monetary fields are kept as
// the gateway's decimal strings.
type GatewayOrder struct {
	OrderID     string    `json:"order_id"`
	LessonID    int64     `json:"lesson_id"`
	Status      string    `json:"status"`
	GrossAmount string    `json:"gross_amount"`
	NetAmount   *string   `json:"net_amount"`
	GatewayFee  *string   `json:"gateway_fee"`
	CaptureID   *string   `json:"capture_id"`
	UpdatedAt   time.Time `json:"updated_at"`
}
