package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tutorhive/backend/internal/meeting"
	"github.com/tutorhive/backend/internal/models"
	"github.com/tutorhive/backend/internal/notifier"
	"github.com/tutorhive/backend/internal/repository"
)

const (
	openMeetingLead    = 15 * time.Minute
	lessonReminderLead = time.Hour
	reviewReminderLag  = time.Hour
	payoutReminderLag  = 24 * time.Hour

	// Rooms stay open a little past the scheduled end so lessons can
	// overrun.
	meetingOverrunMinutes = 30
)

type reminderStore interface {
	ListDue(ctx context.Context, now time.Time) ([]models.Reminder, error)
	Delete(ctx context.Context, id int64) error
	SetError(ctx context.Context, id int64, message string) error
}

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type tutorReader interface {
	GetByUserID(ctx context.Context, userID int64) (*models.Tutor, error)
}

type payoutPromoter interface {
	MarkAvailable(ctx context.Context, paymentID int64) (*models.Payout, error)
}

// ReminderService schedules and delivers deferred follow-up work: meeting
// rooms, reminder emails, review requests and payout promotion. Reminders are
// generated when a lesson is confirmed and processed by a polling worker.
type ReminderService struct {
	reminderRepo reminderStore
	userRepo     userReader
	tutorRepo    tutorReader
	payouts      payoutPromoter
	meetings     meeting.Service
	mailer       notifier.Mailer
	alerter      notifier.Alerter
	clientURL    string
	pollInterval time.Duration
	cron         *cron.Cron
}

func NewReminderService(
	reminderRepo reminderStore,
	userRepo userReader,
	tutorRepo tutorReader,
	payouts payoutPromoter,
	meetings meeting.Service,
	mailer notifier.Mailer,
	alerter notifier.Alerter,
	clientURL string,
	pollInterval time.Duration,
) *ReminderService {
	return &ReminderService{
		reminderRepo: reminderRepo,
		userRepo:     userRepo,
		tutorRepo:    tutorRepo,
		payouts:      payouts,
		meetings:     meetings,
		mailer:       mailer,
		alerter:      alerter,
		clientURL:    clientURL,
		pollInterval: pollInterval,
	}
}

// GenerateForConfirmed schedules the confirmed lesson's follow-ups inside the
// caller's transaction. The payout reminder is only created when real money
// changed hands.
func (s *ReminderService) GenerateForConfirmed(ctx context.Context, q repository.DBTX, lesson *models.Lesson, payment *models.Payment) error {
	snapshot, err := s.buildSnapshot(ctx, q, lesson)
	if err != nil {
		return err
	}

	txReminderRepo := repository.NewReminderRepository(q)

	type entry struct {
		reminderType models.ReminderType
		payload      any
		triggerAt    time.Time
	}

	entries := []entry{
		{
			reminderType: models.ReminderOpenMeeting,
			payload: models.OpenMeetingPayload{
				Lesson:          snapshot,
				DurationMinutes: lesson.DurationMinutes() + meetingOverrunMinutes,
			},
			triggerAt: lesson.StartAt.Add(-openMeetingLead),
		},
		{
			reminderType: models.ReminderLesson,
			payload:      models.LessonReminderPayload{Lesson: snapshot},
			triggerAt:    lesson.StartAt.Add(-lessonReminderLead),
		},
		{
			reminderType: models.ReminderReview,
			payload:      models.ReviewReminderPayload{Lesson: snapshot},
			triggerAt:    lesson.EndAt.Add(reviewReminderLag),
		},
	}

	if payment != nil && payment.GatewayPaymentID != nil {
		entries = append(entries, entry{
			reminderType: models.ReminderAvailablePayout,
			payload: models.AvailablePayoutPayload{
				Order: models.OrderSnapshot{
					PaymentID:   payment.ID,
					ExternalID:  payment.ExternalID,
					TutorUserID: payment.TutorUserID,
					Lesson:      snapshot,
				},
			},
			triggerAt: lesson.EndAt.Add(payoutReminderLag),
		})
	}

	for _, item := range entries {
		payload, err := json.Marshal(item.payload)
		if err != nil {
			return err
		}
		if _, err := txReminderRepo.Create(ctx, lesson.ID, item.reminderType, payload, item.triggerAt.UTC()); err != nil {
			return err
		}
	}
	return nil
}

func (s *ReminderService) buildSnapshot(ctx context.Context, q repository.DBTX, lesson *models.Lesson) (models.LessonSnapshot, error) {
	txUserRepo := repository.NewUserRepository(q)
	txTopicRepo := repository.NewTopicRepository(q)

	tutor, err := txUserRepo.GetByID(ctx, lesson.TutorUserID)
	if err != nil {
		return models.LessonSnapshot{}, err
	}
	student, err := txUserRepo.GetByID(ctx, lesson.StudentID)
	if err != nil {
		return models.LessonSnapshot{}, err
	}
	topic, err := txTopicRepo.GetByID(ctx, lesson.TopicID)
	if err != nil {
		return models.LessonSnapshot{}, err
	}

	return models.LessonSnapshot{
		ID:          lesson.ID,
		TutorUserID: lesson.TutorUserID,
		StudentID:   lesson.StudentID,
		EnquiryID:   lesson.EnquiryID,
		TopicName:   topic.Name,
		TutorName:   tutor.DisplayName,
		StudentName: student.DisplayName,
		StartAt:     lesson.StartAt,
		EndAt:       lesson.EndAt,
	}, nil
}

// Start launches the polling worker.
func (s *ReminderService) Start() error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.pollInterval), func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.pollInterval)
		defer cancel()
		if err := s.ProcessDue(ctx, time.Now().UTC()); err != nil {
			log.Printf("reminder worker: %v", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *ReminderService) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// ProcessDue delivers every due reminder, isolating failures per item. A
// delivered reminder is deleted; a failed one keeps its error and stays due
// for the next poll. The payout reminder is the exception: retrying it could
// double-promote, so on failure it alerts the operator and is removed.
func (s *ReminderService) ProcessDue(ctx context.Context, now time.Time) error {
	due, err := s.reminderRepo.ListDue(ctx, now)
	if err != nil {
		return err
	}

	for _, reminder := range due {
		if err := s.process(ctx, &reminder); err != nil {
			log.Printf("reminder %d (%s): %v", reminder.ID, reminder.Type, err)

			if reminder.Type == models.ReminderAvailablePayout {
				message := fmt.Sprintf("Payout promotion failed for lesson %d: %v. Reminder %d removed, investigate manually.", reminder.LessonID, err, reminder.ID)
				if alertErr := s.alerter.Alert(ctx, message); alertErr != nil {
					log.Printf("reminder %d: alert: %v", reminder.ID, alertErr)
				}
				if delErr := s.reminderRepo.Delete(ctx, reminder.ID); delErr != nil {
					log.Printf("reminder %d: delete: %v", reminder.ID, delErr)
				}
				continue
			}

			if setErr := s.reminderRepo.SetError(ctx, reminder.ID, err.Error()); setErr != nil {
				log.Printf("reminder %d: record error: %v", reminder.ID, setErr)
			}
			continue
		}

		if err := s.reminderRepo.Delete(ctx, reminder.ID); err != nil {
			log.Printf("reminder %d: delete: %v", reminder.ID, err)
		}
	}
	return nil
}

func (s *ReminderService) process(ctx context.Context, reminder *models.Reminder) error {
	payload, err := reminder.DecodePayload()
	if err != nil {
		return err
	}

	switch p := payload.(type) {
	case *models.OpenMeetingPayload:
		return s.openMeeting(ctx, p)
	case *models.LessonReminderPayload:
		return s.remindLesson(ctx, &p.Lesson)
	case *models.ReviewReminderPayload:
		return s.requestReview(ctx, &p.Lesson)
	case *models.AvailablePayoutPayload:
		return s.promotePayout(ctx, p)
	default:
		return fmt.Errorf("unhandled reminder type %q", reminder.Type)
	}
}

// openMeeting provisions the video room and mails both parties their join
// links. The tutor joins as moderator.
func (s *ReminderService) openMeeting(ctx context.Context, payload *models.OpenMeetingPayload) error {
	lesson := payload.Lesson
	meetingID := fmt.Sprintf("lesson-%d", lesson.ID)
	name := fmt.Sprintf("%s lesson with %s", lesson.TopicName, lesson.TutorName)

	room, err := s.meetings.CreateRoom(ctx, meetingID, name, payload.DurationMinutes)
	if err != nil {
		return err
	}

	tutor, err := s.userRepo.GetByID(ctx, lesson.TutorUserID)
	if err != nil {
		return err
	}
	student, err := s.userRepo.GetByID(ctx, lesson.StudentID)
	if err != nil {
		return err
	}

	tutorJoin := s.meetings.JoinURL(meetingID, tutor.DisplayName, room.ModeratorPW)
	subject, body := notifier.JoinMeetingEmail(tutor.FirstName, lesson.TopicName, tutorJoin, lesson.StartAt)
	if err := s.mailer.Send(ctx, tutor.Email, subject, body); err != nil {
		return err
	}

	studentJoin := s.meetings.JoinURL(meetingID, student.DisplayName, room.AttendeePW)
	subject, body = notifier.JoinMeetingEmail(student.FirstName, lesson.TopicName, studentJoin, lesson.StartAt)
	return s.mailer.Send(ctx, student.Email, subject, body)
}

func (s *ReminderService) remindLesson(ctx context.Context, lesson *models.LessonSnapshot) error {
	tutor, err := s.userRepo.GetByID(ctx, lesson.TutorUserID)
	if err != nil {
		return err
	}
	student, err := s.userRepo.GetByID(ctx, lesson.StudentID)
	if err != nil {
		return err
	}

	subject, body := notifier.UpcomingLessonEmail(tutor.FirstName, lesson.TopicName, lesson.StartAt, s.clientURL)
	if err := s.mailer.Send(ctx, tutor.Email, subject, body); err != nil {
		return err
	}
	subject, body = notifier.UpcomingLessonEmail(student.FirstName, lesson.TopicName, lesson.StartAt, s.clientURL)
	return s.mailer.Send(ctx, student.Email, subject, body)
}

func (s *ReminderService) requestReview(ctx context.Context, lesson *models.LessonSnapshot) error {
	student, err := s.userRepo.GetByID(ctx, lesson.StudentID)
	if err != nil {
		return err
	}
	subject, body := notifier.ReviewRequestEmail(student.FirstName, lesson.TutorName, lesson.TopicName, s.clientURL)
	return s.mailer.Send(ctx, student.Email, subject, body)
}

func (s *ReminderService) promotePayout(ctx context.Context, payload *models.AvailablePayoutPayload) error {
	payout, err := s.payouts.MarkAvailable(ctx, payload.Order.PaymentID)
	if err != nil {
		return err
	}

	tutorRecord, err := s.tutorRepo.GetByUserID(ctx, payout.TutorUserID)
	if err != nil {
		return err
	}
	if !tutorRecord.PayoutEmailEnabled {
		return nil
	}

	tutor, err := s.userRepo.GetByID(ctx, payout.TutorUserID)
	if err != nil {
		return err
	}
	subject, body := notifier.PayoutAvailableEmail(tutor.FirstName, payout.Amount-payout.ProcessingFee, s.clientURL)
	return s.mailer.Send(ctx, tutor.Email, subject, body)
}
