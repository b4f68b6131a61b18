package models

import "time"

// Topic is a subject a tutor teaches, referenced by lessons.
type Topic struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type LessonStatus string

const (
	LessonPending     LessonStatus = "PENDING"
	LessonRescheduled LessonStatus = "RESCHEDULED"
	LessonConfirmed   LessonStatus = "CONFIRMED"
	LessonRejected    LessonStatus = "REJECTED"
	LessonCancelled   LessonStatus = "CANCELLED"
	LessonReviewed    LessonStatus = "REVIEWED"
)

// TutorOwned reports whether the status may only be set on behalf of the
// tutor party; the remaining statuses belong to the student.
func (s LessonStatus) TutorOwned() bool {
	switch s {
	case LessonPending, LessonRescheduled, LessonCancelled:
		return true
	default:
		return false
	}
}

func (s LessonStatus) Known() bool {
	switch s {
	case LessonPending, LessonRescheduled, LessonConfirmed,
		LessonRejected, LessonCancelled, LessonReviewed:
		return true
	default:
		return false
	}
}

// NotificationType maps a status to the notification sent to the counterpart
// user. RESCHEDULED and REVIEWED produce no notification.
func (s LessonStatus) NotificationType() (string, bool) {
	switch s {
	case LessonPending:
		return "LESSON_CREATED", true
	case LessonConfirmed:
		return "LESSON_CONFIRMED", true
	case LessonRejected:
		return "LESSON_REJECTED", true
	case LessonCancelled:
		return "LESSON_CANCELLED", true
	default:
		return "", false
	}
}

// LessonState is one append-only entry in a lesson's status history.
type LessonState struct {
	ID        int64        `json:"id"`
	Status    LessonStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

// Lesson carries its full state history ordered newest first; the current
// state is always States[0]. A lesson is created together with its first
// PENDING entry, so States is never empty.
type Lesson struct {
	ID           int64         `json:"id"`
	TutorUserID  int64         `json:"tutor_user_id"`
	StudentID    int64         `json:"student_id"`
	TopicID      int64         `json:"topic_id"`
	EnquiryID    int64         `json:"enquiry_id"`
	StartAt      time.Time     `json:"start_at"`
	EndAt        time.Time     `json:"end_at"`
	Cost         float64       `json:"cost"`
	PromoUsed    *string       `json:"promo_used"`
	CreatedAt    time.Time     `json:"created_at"`
	States       []LessonState `json:"states"`
}

func (l *Lesson) CurrentStatus() LessonStatus {
	return l.States[0].Status
}

func (l *Lesson) HasEverBeen(status LessonStatus) bool {
	for _, state := range l.States {
		if state.Status == status {
			return true
		}
	}
	return false
}

func (l *Lesson) DurationMinutes() int {
	return int(l.EndAt.Sub(l.StartAt) / time.Minute)
}

// Counterpart returns the lesson party opposite the given user.
func (l *Lesson) Counterpart(userID int64) int64 {
	if userID == l.TutorUserID {
		return l.StudentID
	}
	return l.TutorUserID
}
