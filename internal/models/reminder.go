package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type ReminderType string

const (
	ReminderOpenMeeting     ReminderType = "OPEN_MEETING"
	ReminderLesson          ReminderType = "LESSON_REMINDER"
	ReminderReview          ReminderType = "REVIEW_REMINDER"
	ReminderAvailablePayout ReminderType = "AVAILABLE_PAYOUT"
)

// Reminder is a deferred unit of follow-up work. Payload holds the serialized
// snapshot for the matching type so the row stays processable even if the
// source lesson or payment is later mutated or deleted. A failed delivery
// writes LastError and leaves the row due for the next poll.
type Reminder struct {
	ID        int64           `json:"id"`
	LessonID  int64           `json:"lesson_id"`
	Type      ReminderType    `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	TriggerAt time.Time       `json:"trigger_at"`
	CreatedAt time.Time       `json:"created_at"`
	LastError *string         `json:"last_error"`
}

// LessonSnapshot is the denormalized lesson data a reminder handler needs.
type LessonSnapshot struct {
	ID          int64     `json:"id"`
	TutorUserID int64     `json:"tutor_user_id"`
	StudentID   int64     `json:"student_id"`
	EnquiryID   int64     `json:"enquiry_id"`
	TopicName   string    `json:"topic_name"`
	TutorName   string    `json:"tutor_name"`
	StudentName string    `json:"student_name"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
}

type OrderSnapshot struct {
	PaymentID   int64          `json:"payment_id"`
	ExternalID  string         `json:"external_id"`
	TutorUserID int64          `json:"tutor_user_id"`
	Lesson      LessonSnapshot `json:"lesson"`
}

type OpenMeetingPayload struct {
	Lesson          LessonSnapshot `json:"lesson"`
	DurationMinutes int            `json:"duration_minutes"`
}

type LessonReminderPayload struct {
	Lesson LessonSnapshot `json:"lesson"`
}

type ReviewReminderPayload struct {
	Lesson LessonSnapshot `json:"lesson"`
}

type AvailablePayoutPayload struct {
	Order OrderSnapshot `json:"order"`
}

// DecodePayload unmarshals the reminder payload into the variant matching its
// type discriminator.
func (r *Reminder) DecodePayload() (any, error) {
	switch r.Type {
	case ReminderOpenMeeting:
		var payload OpenMeetingPayload
		if err := json.Unmarshal(r.Payload, &payload); err != nil {
			return nil, err
		}
		return &payload, nil
	case ReminderLesson:
		var payload LessonReminderPayload
		if err := json.Unmarshal(r.Payload, &payload); err != nil {
			return nil, err
		}
		return &payload, nil
	case ReminderReview:
		var payload ReviewReminderPayload
		if err := json.Unmarshal(r.Payload, &payload); err != nil {
			return nil, err
		}
		return &payload, nil
	case ReminderAvailablePayout:
		var payload AvailablePayoutPayload
		if err := json.Unmarshal(r.Payload, &payload); err != nil {
			return nil, err
		}
		return &payload, nil
	default:
		return nil, fmt.Errorf("unknown reminder type %q", r.Type)
	}
}
