package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/tutorhive/backend/internal/models"
)

type PayoutRepository struct {
	db DBTX
}

func NewPayoutRepository(db DBTX) *PayoutRepository {
	return &PayoutRepository{db: db}
}

// payoutQuery joins the owning payment so every payout carries the tutor,
// lesson and amounts it is for.
const payoutQuery = `
	SELECT o.id, o.payment_id, p.lesson_id, p.tutor_user_id, p.amount, p.processing_fee, o.created_at
	FROM payouts o
	JOIN payments p ON p.id = o.payment_id
`

// latestStatusFilter selects payouts whose most recent status entry matches.
const latestStatusFilter = `
	o.id IN (
		SELECT payout_id FROM (
			SELECT payout_id, status,
				RANK() OVER (PARTITION BY payout_id ORDER BY created_at DESC, id DESC) AS latest
			FROM payout_states
		) ranked
		WHERE latest = 1 AND status = ANY($2)
	)
`

func (r *PayoutRepository) scanPayout(row interface{ Scan(...any) error }) (*models.Payout, error) {
	var payout models.Payout
	err := row.Scan(
		&payout.ID,
		&payout.PaymentID,
		&payout.LessonID,
		&payout.TutorUserID,
		&payout.Amount,
		&payout.ProcessingFee,
		&payout.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// Create inserts the payout and its initial PENDING status.
func (r *PayoutRepository) Create(ctx context.Context, paymentID int64) (int64, error) {
	query := `
		INSERT INTO payouts (payment_id)
		VALUES ($1)
		RETURNING id
	`

	var payoutID int64
	if err := r.db.QueryRow(ctx, query, paymentID).Scan(&payoutID); err != nil {
		return 0, err
	}
	if err := r.InsertStatus(ctx, payoutID, models.PayoutPending); err != nil {
		return 0, err
	}
	return payoutID, nil
}

func (r *PayoutRepository) InsertStatus(ctx context.Context, payoutID int64, status models.PayoutState) error {
	query := `
		INSERT INTO payout_states (payout_id, status)
		VALUES ($1, $2)
	`

	_, err := r.db.Exec(ctx, query, payoutID, status)
	return err
}

func (r *PayoutRepository) ListStatuses(ctx context.Context, payoutID int64) ([]models.PayoutStatus, error) {
	query := `
		SELECT payout_id, status, created_at
		FROM payout_states
		WHERE payout_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, payoutID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []models.PayoutStatus
	for rows.Next() {
		var status models.PayoutStatus
		if err := rows.Scan(&status.PayoutID, &status.Status, &status.CreatedAt); err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, rows.Err()
}

func (r *PayoutRepository) withStatuses(ctx context.Context, payout *models.Payout) (*models.Payout, error) {
	statuses, err := r.ListStatuses(ctx, payout.ID)
	if err != nil {
		return nil, err
	}
	payout.Statuses = statuses
	return payout, nil
}

func (r *PayoutRepository) GetByID(ctx context.Context, payoutID int64) (*models.Payout, error) {
	payout, err := r.scanPayout(r.db.QueryRow(ctx, payoutQuery+` WHERE o.id = $1`, payoutID))
	if err != nil {
		return nil, err
	}
	return r.withStatuses(ctx, payout)
}

func (r *PayoutRepository) GetByPaymentID(ctx context.Context, paymentID int64) (*models.Payout, error) {
	payout, err := r.scanPayout(r.db.QueryRow(ctx, payoutQuery+` WHERE o.payment_id = $1`, paymentID))
	if err != nil {
		return nil, err
	}
	return r.withStatuses(ctx, payout)
}

func (r *PayoutRepository) listPayouts(ctx context.Context, query string, args ...any) ([]models.Payout, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payouts []models.Payout
	for rows.Next() {
		payout, err := r.scanPayout(rows)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, *payout)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range payouts {
		if _, err := r.withStatuses(ctx, &payouts[i]); err != nil {
			return nil, err
		}
	}
	return payouts, nil
}

// ListAvailableByUserID returns the tutor's payouts whose current status is
// AVAILABLE.
func (r *PayoutRepository) ListAvailableByUserID(ctx context.Context, userID int64) ([]models.Payout, error) {
	query := payoutQuery + `
		WHERE p.tutor_user_id = $1 AND ` + latestStatusFilter + `
		ORDER BY o.created_at DESC`

	return r.listPayouts(ctx, query, userID, []models.PayoutState{models.PayoutAvailable})
}

func (r *PayoutRepository) ListByUserID(ctx context.Context, userID int64, page, size int) ([]models.Payout, error) {
	query := payoutQuery + `
		WHERE p.tutor_user_id = $1
		ORDER BY o.created_at DESC
		LIMIT $2 OFFSET $3`

	return r.listPayouts(ctx, query, userID, size, pageOffset(page, size))
}

func (r *PayoutRepository) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM payouts o
		JOIN payments p ON p.id = o.payment_id
		WHERE p.tutor_user_id = $1
	`

	var count int64
	err := r.db.QueryRow(ctx, query, userID).Scan(&count)
	return count, err
}

// SumByStatus totals gross amount and fees across the tutor's payouts whose
// current status matches. Returns pgx.ErrNoRows when none match.
func (r *PayoutRepository) SumByStatus(ctx context.Context, userID int64, status models.PayoutState) (gross int64, fees int64, err error) {
	query := `
		SELECT SUM(p.amount), SUM(p.processing_fee)
		FROM payouts o
		JOIN payments p ON p.id = o.payment_id
		WHERE p.tutor_user_id = $1 AND ` + latestStatusFilter

	var grossSum, feeSum *int64
	err = r.db.QueryRow(ctx, query, userID, []models.PayoutState{status}).Scan(&grossSum, &feeSum)
	if err != nil {
		return 0, 0, err
	}
	if grossSum == nil {
		return 0, 0, pgx.ErrNoRows
	}
	return *grossSum, *feeSum, nil
}
