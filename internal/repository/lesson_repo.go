package repository

import (
	"context"
	"time"

	"github.com/tutorhive/backend/internal/models"
)

type CreateLessonInput struct {
	TutorUserID int64
	StudentID   int64
	TopicID     int64
	EnquiryID   int64
	StartAt     time.Time
	EndAt       time.Time
	Cost        float64
}

type UpdateLessonInput struct {
	TopicID int64
	StartAt time.Time
	EndAt   time.Time
	Cost    float64
}

type LessonRepository struct {
	db DBTX
}

func NewLessonRepository(db DBTX) *LessonRepository {
	return &LessonRepository{db: db}
}

const lessonColumns = `
	id, tutor_user_id, student_id, topic_id, enquiry_id,
	start_at, end_at, cost, promo_used, created_at
`

func (r *LessonRepository) scanLesson(row interface{ Scan(...any) error }) (*models.Lesson, error) {
	var lesson models.Lesson
	err := row.Scan(
		&lesson.ID,
		&lesson.TutorUserID,
		&lesson.StudentID,
		&lesson.TopicID,
		&lesson.EnquiryID,
		&lesson.StartAt,
		&lesson.EndAt,
		&lesson.Cost,
		&lesson.PromoUsed,
		&lesson.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *LessonRepository) Create(ctx context.Context, input CreateLessonInput) (*models.Lesson, error) {
	query := `
		INSERT INTO lessons (tutor_user_id, student_id, topic_id, enquiry_id, start_at, end_at, cost)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + lessonColumns

	return r.scanLesson(r.db.QueryRow(
		ctx,
		query,
		input.TutorUserID,
		input.StudentID,
		input.TopicID,
		input.EnquiryID,
		input.StartAt,
		input.EndAt,
		input.Cost,
	))
}

// GetByID returns the lesson with its full state history, newest entry first.
func (r *LessonRepository) GetByID(ctx context.Context, lessonID int64) (*models.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1`

	lesson, err := r.scanLesson(r.db.QueryRow(ctx, query, lessonID))
	if err != nil {
		return nil, err
	}
	if lesson.States, err = r.ListStates(ctx, lessonID); err != nil {
		return nil, err
	}
	return lesson, nil
}

// GetByIDForUpdate locks the lesson row for the enclosing transaction so
// guard evaluation and the state insert see a consistent current state.
func (r *LessonRepository) GetByIDForUpdate(ctx context.Context, lessonID int64) (*models.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1 FOR UPDATE`

	lesson, err := r.scanLesson(r.db.QueryRow(ctx, query, lessonID))
	if err != nil {
		return nil, err
	}
	if lesson.States, err = r.ListStates(ctx, lessonID); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (r *LessonRepository) ListStates(ctx context.Context, lessonID int64) ([]models.LessonState, error) {
	query := `
		SELECT id, status, created_at
		FROM lesson_states
		WHERE lesson_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, lessonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []models.LessonState
	for rows.Next() {
		var state models.LessonState
		if err := rows.Scan(&state.ID, &state.Status, &state.CreatedAt); err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

func (r *LessonRepository) InsertState(ctx context.Context, lessonID int64, status models.LessonStatus) (int64, error) {
	query := `
		INSERT INTO lesson_states (lesson_id, status)
		VALUES ($1, $2)
		RETURNING id
	`

	var stateID int64
	if err := r.db.QueryRow(ctx, query, lessonID, status).Scan(&stateID); err != nil {
		return 0, err
	}
	return stateID, nil
}

func (r *LessonRepository) UpdateSchedule(ctx context.Context, lessonID int64, input UpdateLessonInput) error {
	query := `
		UPDATE lessons
		SET topic_id = $2, start_at = $3, end_at = $4, cost = $5
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, lessonID, input.TopicID, input.StartAt, input.EndAt, input.Cost)
	return err
}

func (r *LessonRepository) SetPromo(ctx context.Context, lessonID int64, code string) error {
	query := `
		UPDATE lessons
		SET promo_used = $2
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, lessonID, code)
	return err
}

func (r *LessonRepository) Delete(ctx context.Context, lessonID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM lessons WHERE id = $1`, lessonID)
	return err
}

func (r *LessonRepository) listLessons(ctx context.Context, query string, args ...any) ([]models.Lesson, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lessons []models.Lesson
	for rows.Next() {
		lesson, err := r.scanLesson(rows)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, *lesson)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range lessons {
		if lessons[i].States, err = r.ListStates(ctx, lessons[i].ID); err != nil {
			return nil, err
		}
	}
	return lessons, nil
}

func (r *LessonRepository) ListByDateRange(ctx context.Context, userID int64, start, end time.Time) ([]models.Lesson, error) {
	query := `SELECT ` + lessonColumns + `
		FROM lessons
		WHERE (tutor_user_id = $1 OR student_id = $1)
		AND start_at > $2 AND end_at < $3
		ORDER BY start_at`

	return r.listLessons(ctx, query, userID, start, end)
}

func (r *LessonRepository) CountByDateRange(ctx context.Context, userID int64, start, end time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM lessons
		WHERE (tutor_user_id = $1 OR student_id = $1)
		AND start_at > $2 AND end_at < $3
	`

	var count int64
	err := r.db.QueryRow(ctx, query, userID, start, end).Scan(&count)
	return count, err
}

func (r *LessonRepository) ListByEnquiry(ctx context.Context, userID, enquiryID int64, start, end time.Time) ([]models.Lesson, error) {
	query := `SELECT ` + lessonColumns + `
		FROM lessons
		WHERE (tutor_user_id = $1 OR student_id = $1)
		AND enquiry_id = $2
		AND start_at > $3 AND end_at < $4
		ORDER BY start_at`

	return r.listLessons(ctx, query, userID, enquiryID, start, end)
}

func (r *LessonRepository) CountByEnquiry(ctx context.Context, userID, enquiryID int64, start, end time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM lessons
		WHERE (tutor_user_id = $1 OR student_id = $1)
		AND enquiry_id = $2
		AND start_at > $3 AND end_at < $4
	`

	var count int64
	err := r.db.QueryRow(ctx, query, userID, enquiryID, start, end).Scan(&count)
	return count, err
}

// CountConfirmedByEnquiry counts the lessons in an enquiry that have ever
// reached CONFIRMED; promotion eligibility is decided from this number.
func (r *LessonRepository) CountConfirmedByEnquiry(ctx context.Context, enquiryID int64) (int64, error) {
	query := `
		SELECT COUNT(DISTINCT l.id)
		FROM lessons l
		JOIN lesson_states s ON s.lesson_id = l.id
		WHERE l.enquiry_id = $1 AND s.status = 'CONFIRMED'
	`

	var count int64
	err := r.db.QueryRow(ctx, query, enquiryID).Scan(&count)
	return count, err
}
