package repository

import (
	"context"

	"github.com/tutorhive/backend/internal/models"
)

type CreatePaymentInput struct {
	LessonID         int64
	UserID           int64
	TutorUserID      int64
	ExternalID       string
	GatewayPaymentID *string
	Amount           int64
	ProcessingFee    int64
}

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `
	id, lesson_id, user_id, tutor_user_id, external_id, gateway_payment_id,
	amount, processing_fee, refund_id, updated_at, created_at
`

func (r *PaymentRepository) scanPayment(row interface{ Scan(...any) error }) (*models.Payment, error) {
	var payment models.Payment
	err := row.Scan(
		&payment.ID,
		&payment.LessonID,
		&payment.UserID,
		&payment.TutorUserID,
		&payment.ExternalID,
		&payment.GatewayPaymentID,
		&payment.Amount,
		&payment.ProcessingFee,
		&payment.RefundID,
		&payment.UpdatedAt,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) Create(ctx context.Context, input CreatePaymentInput) (*models.Payment, error) {
	query := `
		INSERT INTO payments (lesson_id, user_id, tutor_user_id, external_id, gateway_payment_id, amount, processing_fee)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + paymentColumns

	return r.scanPayment(r.db.QueryRow(
		ctx,
		query,
		input.LessonID,
		input.UserID,
		input.TutorUserID,
		input.ExternalID,
		input.GatewayPaymentID,
		input.Amount,
		input.ProcessingFee,
	))
}

func (r *PaymentRepository) GetByID(ctx context.Context, paymentID int64) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := r.scanPayment(r.db.QueryRow(ctx, query, paymentID))
	if err != nil {
		return nil, err
	}
	if payment.StatusHistory, err = r.ListStatuses(ctx, payment.ID); err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *PaymentRepository) GetByLessonID(ctx context.Context, lessonID int64) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE lesson_id = $1`

	payment, err := r.scanPayment(r.db.QueryRow(ctx, query, lessonID))
	if err != nil {
		return nil, err
	}
	if payment.StatusHistory, err = r.ListStatuses(ctx, payment.ID); err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *PaymentRepository) ListStatuses(ctx context.Context, paymentID int64) ([]models.PaymentStatus, error) {
	query := `
		SELECT id, payment_id, status, created_at
		FROM payment_states
		WHERE payment_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []models.PaymentStatus
	for rows.Next() {
		var status models.PaymentStatus
		if err := rows.Scan(&status.ID, &status.PaymentID, &status.Status, &status.CreatedAt); err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, rows.Err()
}

func (r *PaymentRepository) InsertStatus(ctx context.Context, paymentID int64, status models.PaymentState) error {
	query := `
		INSERT INTO payment_states (payment_id, status)
		VALUES ($1, $2)
	`

	_, err := r.db.Exec(ctx, query, paymentID, status)
	return err
}

func (r *PaymentRepository) UpdateRefundID(ctx context.Context, paymentID int64, refundID string) error {
	query := `
		UPDATE payments
		SET refund_id = $2, updated_at = now()
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, paymentID, refundID)
	return err
}

func (r *PaymentRepository) ListByUserID(ctx context.Context, userID int64, page, size int) ([]models.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, size, pageOffset(page, size))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		payment, err := r.scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *payment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range payments {
		if payments[i].StatusHistory, err = r.ListStatuses(ctx, payments[i].ID); err != nil {
			return nil, err
		}
	}
	return payments, nil
}

func (r *PaymentRepository) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE user_id = $1`, userID).Scan(&count)
	return count, err
}
