package repository

import (
	"context"

	"github.com/tutorhive/backend/internal/models"
)

type TutorRepository struct {
	db DBTX
}

func NewTutorRepository(db DBTX) *TutorRepository {
	return &TutorRepository{db: db}
}

func (r *TutorRepository) GetByUserID(ctx context.Context, userID int64) (*models.Tutor, error) {
	query := `
		SELECT id, user_id, promotions, payout_email, payout_email_enabled, created_at
		FROM tutors
		WHERE user_id = $1
	`

	var tutor models.Tutor
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&tutor.ID,
		&tutor.UserID,
		&tutor.Promotions,
		&tutor.PayoutEmail,
		&tutor.PayoutEmailEnabled,
		&tutor.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tutor, nil
}

func (r *TutorRepository) Create(ctx context.Context, userID int64) (*models.Tutor, error) {
	query := `
		INSERT INTO tutors (user_id, promotions)
		VALUES ($1, '{}')
		RETURNING id, user_id, promotions, payout_email, payout_email_enabled, created_at
	`

	var tutor models.Tutor
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&tutor.ID,
		&tutor.UserID,
		&tutor.Promotions,
		&tutor.PayoutEmail,
		&tutor.PayoutEmailEnabled,
		&tutor.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tutor, nil
}

func (r *TutorRepository) UpdatePromotions(ctx context.Context, tutorID int64, promotions []string) error {
	query := `
		UPDATE tutors
		SET promotions = $2
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, tutorID, promotions)
	return err
}

func (r *TutorRepository) UpdatePayoutEmail(ctx context.Context, tutorID int64, email *string, enabled bool) error {
	query := `
		UPDATE tutors
		SET payout_email = $2, payout_email_enabled = $3
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, tutorID, email, enabled)
	return err
}
