package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tutorhive/backend/internal/models"
)

type ReminderRepository struct {
	db DBTX
}

func NewReminderRepository(db DBTX) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(ctx context.Context, lessonID int64, reminderType models.ReminderType, payload json.RawMessage, triggerAt time.Time) (int64, error) {
	query := `
		INSERT INTO reminders (lesson_id, type, payload, trigger_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRow(ctx, query, lessonID, reminderType, payload, triggerAt).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListDue returns reminders whose trigger time has passed, oldest first.
func (r *ReminderRepository) ListDue(ctx context.Context, now time.Time) ([]models.Reminder, error) {
	query := `
		SELECT id, lesson_id, type, payload, trigger_at, created_at, last_error
		FROM reminders
		WHERE trigger_at <= $1
		ORDER BY trigger_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []models.Reminder
	for rows.Next() {
		var reminder models.Reminder
		err := rows.Scan(
			&reminder.ID,
			&reminder.LessonID,
			&reminder.Type,
			&reminder.Payload,
			&reminder.TriggerAt,
			&reminder.CreatedAt,
			&reminder.LastError,
		)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}

	return reminders, rows.Err()
}

func (r *ReminderRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM reminders WHERE id = $1`, id)
	return err
}

// DeleteByLessonAndTypes removes the given reminder types for a lesson. Used
// when a lesson is cancelled or rejected and its follow-ups no longer apply.
func (r *ReminderRepository) DeleteByLessonAndTypes(ctx context.Context, lessonID int64, types []models.ReminderType) error {
	_, err := r.db.Exec(ctx, `DELETE FROM reminders WHERE lesson_id = $1 AND type = ANY($2)`, lessonID, types)
	return err
}

func (r *ReminderRepository) SetError(ctx context.Context, id int64, message string) error {
	_, err := r.db.Exec(ctx, `UPDATE reminders SET last_error = $2 WHERE id = $1`, id, message)
	return err
}
