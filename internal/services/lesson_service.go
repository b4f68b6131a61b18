package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tutorhive/backend/internal/models"
	"github.com/tutorhive/backend/internal/notifier"
	"github.com/tutorhive/backend/internal/repository"
)

var (
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrStudentNotFound        = errors.New("student not found")
)

// refunder reverses a lesson's payment inside the caller's transaction. It is
// wired after construction to break the cycle with the payment service.
type refunder interface {
	RefundLesson(ctx context.Context, tx pgx.Tx, lesson *models.Lesson) error
}

type LessonService struct {
	db         *pgxpool.Pool
	lessonRepo *repository.LessonRepository
	userRepo   *repository.UserRepository
	tutorRepo  *repository.TutorRepository
	topicRepo  *repository.TopicRepository
	reminders  *ReminderService
	mailer     notifier.Mailer
	clientURL  string
	minCost    float64
	refunder   refunder
}

func NewLessonService(
	db *pgxpool.Pool,
	lessonRepo *repository.LessonRepository,
	userRepo *repository.UserRepository,
	tutorRepo *repository.TutorRepository,
	topicRepo *repository.TopicRepository,
	reminders *ReminderService,
	mailer notifier.Mailer,
	clientURL string,
	minCost float64,
) *LessonService {
	return &LessonService{
		db:         db,
		lessonRepo: lessonRepo,
		userRepo:   userRepo,
		tutorRepo:  tutorRepo,
		topicRepo:  topicRepo,
		reminders:  reminders,
		mailer:     mailer,
		clientURL:  clientURL,
		minCost:    minCost,
	}
}

func (s *LessonService) setRefunder(r refunder) {
	s.refunder = r
}

type CreateLessonInput struct {
	StudentID int64
	TopicID   int64
	EnquiryID int64
	StartAt   time.Time
	EndAt     time.Time
	Cost      float64
}

func (s *LessonService) CreateLesson(ctx context.Context, actorID int64, input CreateLessonInput) (*models.Lesson, error) {
	if input.StudentID <= 0 || input.TopicID <= 0 || input.EnquiryID <= 0 {
		return nil, ErrInvalidInput
	}
	if input.StudentID == actorID {
		return nil, ErrInvalidInput
	}
	if err := validateSchedule(input.StartAt, input.EndAt, input.Cost, s.minCost); err != nil {
		return nil, err
	}

	if _, err := s.tutorRepo.GetByUserID(ctx, actorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	student, err := s.userRepo.GetByID(ctx, input.StudentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txLessonRepo := repository.NewLessonRepository(tx)
	txNotificationRepo := repository.NewNotificationRepository(tx)

	lesson, err := txLessonRepo.Create(ctx, repository.CreateLessonInput{
		TutorUserID: actorID,
		StudentID:   input.StudentID,
		TopicID:     input.TopicID,
		EnquiryID:   input.EnquiryID,
		StartAt:     input.StartAt.UTC(),
		EndAt:       input.EndAt.UTC(),
		Cost:        input.Cost,
	})
	if err != nil {
		return nil, err
	}

	stateID, err := txLessonRepo.InsertState(ctx, lesson.ID, models.LessonPending)
	if err != nil {
		return nil, err
	}
	lesson.States = []models.LessonState{{ID: stateID, Status: models.LessonPending}}

	if notifType, ok := models.LessonPending.NotificationType(); ok {
		if _, err := txNotificationRepo.Create(ctx, input.StudentID, notifType); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.sendLessonScheduledEmail(lesson, student, false)
	return s.lessonRepo.GetByID(ctx, lesson.ID)
}

// CreateStatus appends a status to the lesson's history on behalf of its
// owning party, running the side effects that go with the transition in the
// same transaction. CONFIRMED can never be set directly; it only ever arrives
// through payment.
func (s *LessonService) CreateStatus(ctx context.Context, actorID, lessonID int64, status models.LessonStatus) (*models.Lesson, error) {
	if !status.Known() {
		return nil, ErrInvalidStatus
	}
	switch status {
	case models.LessonConfirmed, models.LessonPending, models.LessonRescheduled:
		return nil, ErrInvalidStateTransition
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txLessonRepo := repository.NewLessonRepository(tx)

	lesson, err := txLessonRepo.GetByIDForUpdate(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if err := authorizeStatusChange(actorID, lesson, status); err != nil {
		return nil, err
	}
	if err := validateLessonTransition(lesson, status, time.Now().UTC()); err != nil {
		return nil, err
	}

	if refundRequired(lesson, status) {
		if s.refunder == nil {
			return nil, errors.New("refunds are not configured")
		}
		if err := s.refunder.RefundLesson(ctx, tx, lesson); err != nil {
			return nil, err
		}
	}

	if err := s.applyState(ctx, tx, lesson, status, lesson.Counterpart(actorID)); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.sendStatusChangeEmail(lesson, actorID, status)
	return s.lessonRepo.GetByID(ctx, lessonID)
}

// applyState inserts the state entry plus its reminder and notification side
// effects. Callers hold the lesson lock.
func (s *LessonService) applyState(ctx context.Context, q repository.DBTX, lesson *models.Lesson, status models.LessonStatus, notifyUserID int64) error {
	txLessonRepo := repository.NewLessonRepository(q)
	txReminderRepo := repository.NewReminderRepository(q)
	txNotificationRepo := repository.NewNotificationRepository(q)

	if _, err := txLessonRepo.InsertState(ctx, lesson.ID, status); err != nil {
		return err
	}

	if status == models.LessonCancelled || status == models.LessonRejected {
		err := txReminderRepo.DeleteByLessonAndTypes(ctx, lesson.ID, []models.ReminderType{
			models.ReminderOpenMeeting,
			models.ReminderLesson,
			models.ReminderReview,
			models.ReminderAvailablePayout,
		})
		if err != nil {
			return err
		}
	}

	if notifType, ok := status.NotificationType(); ok {
		if _, err := txNotificationRepo.Create(ctx, notifyUserID, notifType); err != nil {
			return err
		}
	}
	return nil
}

// ConfirmPaid moves the lesson to CONFIRMED inside the payment transaction
// and schedules its follow-up reminders. The payment is nil-gateway for free
// orders, which suppresses the payout reminder.
func (s *LessonService) ConfirmPaid(ctx context.Context, tx pgx.Tx, lessonID, actorID int64, payment *models.Payment) (*models.Lesson, error) {
	txLessonRepo := repository.NewLessonRepository(tx)

	lesson, err := txLessonRepo.GetByIDForUpdate(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.StudentID != actorID {
		return nil, ErrForbidden
	}
	if err := validateLessonTransition(lesson, models.LessonConfirmed, time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := s.applyState(ctx, tx, lesson, models.LessonConfirmed, lesson.TutorUserID); err != nil {
		return nil, err
	}
	if err := s.reminders.GenerateForConfirmed(ctx, tx, lesson, payment); err != nil {
		return nil, err
	}
	return lesson, nil
}

// rejectForDispute appends REJECTED without an acting party, used when the
// gateway reports a dispute. It runs the same refund-before-record cascade as
// a student rejection, so a confirmed lesson's money goes back through the
// gateway. The transition guard still applies; a lesson past its start
// returns ErrInvalidStateTransition and stays put.
func (s *LessonService) rejectForDispute(ctx context.Context, tx pgx.Tx, lessonID int64) error {
	txLessonRepo := repository.NewLessonRepository(tx)

	lesson, err := txLessonRepo.GetByIDForUpdate(ctx, lessonID)
	if err != nil {
		return err
	}
	if err := validateLessonTransition(lesson, models.LessonRejected, time.Now().UTC()); err != nil {
		return err
	}
	if refundRequired(lesson, models.LessonRejected) {
		if s.refunder == nil {
			return errors.New("refunds are not configured")
		}
		if err := s.refunder.RefundLesson(ctx, tx, lesson); err != nil {
			return err
		}
	}
	return s.applyState(ctx, tx, lesson, models.LessonRejected, lesson.TutorUserID)
}

type UpdateLessonInput struct {
	TopicID int64
	StartAt time.Time
	EndAt   time.Time
	Cost    float64
}

// UpdateLesson reschedules an unconfirmed lesson and appends RESCHEDULED so
// the student has to confirm the new time.
func (s *LessonService) UpdateLesson(ctx context.Context, actorID, lessonID int64, input UpdateLessonInput) (*models.Lesson, error) {
	if input.TopicID <= 0 {
		return nil, ErrInvalidInput
	}
	if err := validateSchedule(input.StartAt, input.EndAt, input.Cost, s.minCost); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txLessonRepo := repository.NewLessonRepository(tx)

	lesson, err := txLessonRepo.GetByIDForUpdate(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.TutorUserID != actorID {
		return nil, ErrForbidden
	}
	switch lesson.CurrentStatus() {
	case models.LessonPending, models.LessonRescheduled:
	default:
		return nil, ErrInvalidStateTransition
	}

	err = txLessonRepo.UpdateSchedule(ctx, lessonID, repository.UpdateLessonInput{
		TopicID: input.TopicID,
		StartAt: input.StartAt.UTC(),
		EndAt:   input.EndAt.UTC(),
		Cost:    input.Cost,
	})
	if err != nil {
		return nil, err
	}
	if _, err := txLessonRepo.InsertState(ctx, lessonID, models.LessonRescheduled); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	updated, err := s.lessonRepo.GetByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if student, err := s.userRepo.GetByID(ctx, updated.StudentID); err == nil {
		s.sendLessonScheduledEmail(updated, student, true)
	}
	return updated, nil
}

// DeleteLesson removes a lesson the student has not yet responded to.
func (s *LessonService) DeleteLesson(ctx context.Context, actorID, lessonID int64) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txLessonRepo := repository.NewLessonRepository(tx)

	lesson, err := txLessonRepo.GetByIDForUpdate(ctx, lessonID)
	if err != nil {
		return err
	}
	if lesson.TutorUserID != actorID {
		return ErrForbidden
	}
	if lesson.CurrentStatus() != models.LessonPending {
		return ErrInvalidStateTransition
	}

	if err := txLessonRepo.Delete(ctx, lessonID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *LessonService) GetLesson(ctx context.Context, actorID, lessonID int64) (*models.Lesson, error) {
	lesson, err := s.lessonRepo.GetByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.TutorUserID != actorID && lesson.StudentID != actorID {
		return nil, ErrForbidden
	}
	return lesson, nil
}

func (s *LessonService) ListLessons(ctx context.Context, actorID int64, start, end time.Time, enquiryID *int64) ([]models.Lesson, int64, error) {
	if !end.After(start) {
		return nil, 0, ErrInvalidInput
	}
	if enquiryID != nil {
		lessons, err := s.lessonRepo.ListByEnquiry(ctx, actorID, *enquiryID, start, end)
		if err != nil {
			return nil, 0, err
		}
		total, err := s.lessonRepo.CountByEnquiry(ctx, actorID, *enquiryID, start, end)
		return lessons, total, err
	}
	lessons, err := s.lessonRepo.ListByDateRange(ctx, actorID, start, end)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.lessonRepo.CountByDateRange(ctx, actorID, start, end)
	return lessons, total, err
}

func validateSchedule(startAt, endAt time.Time, cost, minCost float64) error {
	if !startAt.After(time.Now().UTC()) {
		return ErrInvalidInput
	}
	if !endAt.After(startAt) {
		return ErrInvalidInput
	}
	if cost < minCost {
		return ErrInvalidInput
	}
	return nil
}

// authorizeStatusChange enforces which party may set which status: the tutor
// drives scheduling and cancellation, the student responds.
func authorizeStatusChange(actorID int64, lesson *models.Lesson, status models.LessonStatus) error {
	if lesson.TutorUserID != actorID && lesson.StudentID != actorID {
		return ErrForbidden
	}
	if status.TutorOwned() {
		if lesson.TutorUserID != actorID {
			return ErrForbidden
		}
	} else if lesson.StudentID != actorID {
		return ErrForbidden
	}
	return nil
}

// refundRequired reports whether recording target over the lesson's current
// state must return the student's money first. A confirmed lesson has been
// paid for, so both ways of killing it give the money back before the state
// entry lands.
func refundRequired(lesson *models.Lesson, target models.LessonStatus) bool {
	if target != models.LessonCancelled && target != models.LessonRejected {
		return false
	}
	return lesson.CurrentStatus() == models.LessonConfirmed
}

// validateLessonTransition is the transition guard over the lesson's current
// status. Terminal statuses never move again, and nothing about a lesson
// changes once its start time has passed except leaving a review.
func validateLessonTransition(lesson *models.Lesson, target models.LessonStatus, now time.Time) error {
	current := lesson.CurrentStatus()
	switch target {
	case models.LessonRejected, models.LessonCancelled:
		if current == models.LessonCancelled || current == models.LessonRejected {
			return ErrInvalidStateTransition
		}
		if !lesson.StartAt.After(now) {
			return ErrInvalidStateTransition
		}
	case models.LessonConfirmed:
		switch current {
		case models.LessonCancelled, models.LessonConfirmed, models.LessonRejected:
			return ErrInvalidStateTransition
		}
	case models.LessonReviewed:
		switch current {
		case models.LessonCancelled, models.LessonRejected, models.LessonPending, models.LessonReviewed:
			return ErrInvalidStateTransition
		}
	default:
		return ErrInvalidStateTransition
	}
	return nil
}

func (s *LessonService) sendLessonScheduledEmail(lesson *models.Lesson, student *models.User, rescheduled bool) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		tutor, err := s.userRepo.GetByID(ctx, lesson.TutorUserID)
		if err != nil {
			log.Printf("lesson email: load tutor %d: %v", lesson.TutorUserID, err)
			return
		}
		topic, err := s.topicRepo.GetByID(ctx, lesson.TopicID)
		if err != nil {
			log.Printf("lesson email: load topic %d: %v", lesson.TopicID, err)
			return
		}

		var subject, body string
		if rescheduled {
			subject, body = notifier.LessonUpdatedEmail(student.FirstName, tutor.DisplayName, topic.Name, lesson.StartAt, s.clientURL)
		} else {
			subject, body = notifier.LessonCreatedEmail(student.FirstName, tutor.DisplayName, topic.Name, lesson.StartAt, s.clientURL)
		}
		if err := s.mailer.Send(ctx, student.Email, subject, body); err != nil {
			log.Printf("lesson email: send to %s: %v", student.Email, err)
		}
	}()
}

func (s *LessonService) sendStatusChangeEmail(lesson *models.Lesson, actorID int64, status models.LessonStatus) {
	if _, notifiable := status.NotificationType(); !notifiable {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		recipient, err := s.userRepo.GetByID(ctx, lesson.Counterpart(actorID))
		if err != nil {
			log.Printf("status email: load user %d: %v", lesson.Counterpart(actorID), err)
			return
		}
		actor, err := s.userRepo.GetByID(ctx, actorID)
		if err != nil {
			log.Printf("status email: load user %d: %v", actorID, err)
			return
		}
		topic, err := s.topicRepo.GetByID(ctx, lesson.TopicID)
		if err != nil {
			log.Printf("status email: load topic %d: %v", lesson.TopicID, err)
			return
		}

		subject, body := notifier.LessonStatusEmail(recipient.FirstName, actor.DisplayName, topic.Name, status, lesson.StartAt, s.clientURL)
		if err := s.mailer.Send(ctx, recipient.Email, subject, body); err != nil {
			log.Printf("status email: send to %s: %v", recipient.Email, err)
		}
	}()
}
