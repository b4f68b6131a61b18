package notifier

import (
	"fmt"
	"time"

	"github.com/tutorhive/backend/internal/models"
)

const timeLayout = "Mon 2 Jan 2006 15:04"

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

// LessonCreatedEmail is sent to the student when a tutor schedules a lesson.
func LessonCreatedEmail(studentName, tutorName, topicName string, startAt time.Time, clientURL string) (subject, body string) {
	subject = fmt.Sprintf("%s has scheduled a lesson with you", tutorName)
	body = fmt.Sprintf(
		`<p>Hi %s,</p>
<p>%s has scheduled a %s lesson with you on <strong>%s</strong>.</p>
<p>Please review and confirm the lesson: <a href="%s/lessons">View lesson</a></p>`,
		studentName, tutorName, topicName, formatTime(startAt), clientURL)
	return subject, body
}

// LessonUpdatedEmail is sent to the student when a tutor reschedules.
func LessonUpdatedEmail(studentName, tutorName, topicName string, startAt time.Time, clientURL string) (subject, body string) {
	subject = fmt.Sprintf("%s has updated your lesson", tutorName)
	body = fmt.Sprintf(
		`<p>Hi %s,</p>
<p>%s has updated your %s lesson. The new time is <strong>%s</strong>.</p>
<p>Please review and confirm the change: <a href="%s/lessons">View lesson</a></p>`,
		studentName, tutorName, topicName, formatTime(startAt), clientURL)
	return subject, body
}

// LessonStatusEmail tells the counterpart that a lesson changed status.
func LessonStatusEmail(recipientName, actorName, topicName string, status models.LessonStatus, startAt time.Time, clientURL string) (subject, body string) {
	var verb string
	switch status {
	case models.LessonConfirmed:
		verb = "confirmed"
	case models.LessonRejected:
		verb = "rejected"
	case models.LessonCancelled:
		verb = "cancelled"
	default:
		verb = "updated"
	}

	subject = fmt.Sprintf("Your %s lesson has been %s", topicName, verb)
	body = fmt.Sprintf(
		`<p>Hi %s,</p>
<p>%s has %s your %s lesson scheduled for <strong>%s</strong>.</p>
<p><a href="%s/lessons">View your lessons</a></p>`,
		recipientName, actorName, verb, topicName, formatTime(startAt), clientURL)
	return subject, body
}

// OrderConfirmationEmail confirms a successful payment to the student.
// Amount is in pence.
func OrderConfirmationEmail(studentName, topicName, externalID string, amount int64, startAt time.Time) (subject, body string) {
	subject = "Your lesson payment confirmation"
	body = fmt.Sprintf(
		`<p>Hi %s,</p>
<p>We have received your payment of <strong>£%.2f</strong> for the %s lesson on %s.</p>
<p>Your order reference is <strong>%s</strong>.</p>`,
		studentName, float64(amount)/100, topicName, formatTime(startAt), externalID)
	return subject, body
}

// RefundEmail notifies the student that a refund has been issued.
func RefundEmail(studentName, topicName string, amount int64) (subject, body string) {
	subject = "Your lesson has been refunded"
	body = fmt.Sprintf(
		`<p>Hi %s,</p>
<p>Your %s lesson was cancelled and a refund of <strong>£%.2f</strong> has been issued. It may take a few days to reach your account.</p>`,
		studentName, topicName, float64(amount)/100)
	return subject, body
}

// UpcomingLessonEmail reminds a participant shortly before the lesson starts.
func UpcomingLessonEmail(recipientName, topicName string, startAt time.Time, clientURL string) (subject, body string) {
	subject = fmt.Sprintf("Your %s lesson starts soon", topicName)
	body = fmt.Sprintf(
		`<p>Hi %s,</p>
<p>Your %s lesson starts at <strong>%s</strong>.</p>
<p><a href="%s/lessons">Go to your lessons</a></p>`,
		recipientName, topicName, formatTime(startAt), clientURL)
	return subject, body
}

// JoinMeetingEmail carries a participant's personal join link for the video
// room.
func JoinMeetingEmail(recipientName, topicName, joinURL string, startAt time.Time) (subject, body string) {
	subject = fmt.Sprintf("Join your %s lesson", topicName)
	body = fmt.Sprintf(
		`<p>Hi %s,</p>
<p>Your %s lesson at %s is about to begin.</p>
<p><a href="%s">Click here to join the meeting room</a></p>`,
		recipientName, topicName, formatTime(startAt), joinURL)
	return subject, body
}

// ReviewRequestEmail asks the student for feedback after the lesson ends.
func ReviewRequestEmail(studentName, tutorName, topicName, clientURL string) (subject, body string) {
	subject = fmt.Sprintf("How was your lesson with %s?", tutorName)
	body = fmt.Sprintf(
		`<p>Hi %s,</p>
<p>We hope your %s lesson with %s went well. Leaving a review helps other students find great tutors.</p>
<p><a href="%s/lessons">Leave a review</a></p>`,
		studentName, topicName, tutorName, clientURL)
	return subject, body
}

// PayoutAvailableEmail tells the tutor their earnings can be requested.
func PayoutAvailableEmail(tutorName string, amount int64, clientURL string) (subject, body string) {
	subject = "Your lesson earnings are ready"
	body = fmt.Sprintf(
		`<p>Hi %s,</p>
<p>Earnings of <strong>£%.2f</strong> are now available for payout.</p>
<p><a href="%s/payouts">Request your payout</a></p>`,
		tutorName, float64(amount)/100, clientURL)
	return subject, body
}

// PayoutCompleteEmail confirms to the tutor that money has been sent.
func PayoutCompleteEmail(tutorName string, amount int64) (subject, body string) {
	subject = "Your payout has been sent"
	body = fmt.Sprintf(
		`<p>Hi %s,</p>
<p>Your payout of <strong>£%.2f</strong> has been sent. It may take a few days to reach your account.</p>`,
		tutorName, float64(amount)/100)
	return subject, body
}
