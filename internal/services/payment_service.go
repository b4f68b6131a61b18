package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/tutorhive/backend/internal/gateway"
	"github.com/tutorhive/backend/internal/models"
	"github.com/tutorhive/backend/internal/notifier"
	"github.com/tutorhive/backend/internal/repository"
)

var (
	ErrNotPayable        = errors.New("lesson is not payable")
	ErrAlreadyPaid       = errors.New("lesson is already paid")
	ErrCaptureIncomplete = errors.New("payment capture did not complete")
)

type PaymentService struct {
	db               *pgxpool.Pool
	paymentRepo      *repository.PaymentRepository
	lessonRepo       *repository.LessonRepository
	gatewayOrderRepo *repository.GatewayOrderRepository
	payoutRepo       *repository.PayoutRepository
	userRepo         *repository.UserRepository
	topicRepo        *repository.TopicRepository
	gateway          gateway.PaymentGateway
	promotions       *PromotionService
	lessons          *LessonService
	mailer           notifier.Mailer
	alerter          notifier.Alerter
	feeFraction      float64
}

func NewPaymentService(
	db *pgxpool.Pool,
	paymentRepo *repository.PaymentRepository,
	lessonRepo *repository.LessonRepository,
	gatewayOrderRepo *repository.GatewayOrderRepository,
	payoutRepo *repository.PayoutRepository,
	userRepo *repository.UserRepository,
	topicRepo *repository.TopicRepository,
	gw gateway.PaymentGateway,
	promotions *PromotionService,
	lessons *LessonService,
	mailer notifier.Mailer,
	alerter notifier.Alerter,
	feeFraction float64,
) *PaymentService {
	s := &PaymentService{
		db:               db,
		paymentRepo:      paymentRepo,
		lessonRepo:       lessonRepo,
		gatewayOrderRepo: gatewayOrderRepo,
		payoutRepo:       payoutRepo,
		userRepo:         userRepo,
		topicRepo:        topicRepo,
		gateway:          gw,
		promotions:       promotions,
		lessons:          lessons,
		mailer:           mailer,
		alerter:          alerter,
		feeFraction:      feeFraction,
	}
	lessons.setRefunder(s)
	return s
}

// OrderResult is what starting an order yields: either an immediately settled
// free payment or a gateway order awaiting buyer approval and capture.
type OrderResult struct {
	Free    bool            `json:"free"`
	OrderID string          `json:"order_id,omitempty"`
	Status  string          `json:"status,omitempty"`
	Amount  int64           `json:"amount"`
	Payment *models.Payment `json:"payment,omitempty"`
}

// ProcessOrder starts payment for a lesson. When a promotion brings the price
// to zero no gateway round trip happens and the lesson confirms on the spot.
func (s *PaymentService) ProcessOrder(ctx context.Context, actorID, lessonID int64, promo *models.PromoCode) (*OrderResult, error) {
	lesson, err := s.lessonRepo.GetByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if err := payable(lesson, actorID, time.Now().UTC()); err != nil {
		return nil, err
	}
	if _, err := s.paymentRepo.GetByLessonID(ctx, lessonID); err == nil {
		return nil, ErrAlreadyPaid
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	cost := lesson.Cost
	var promoCode *string
	if promo != nil {
		applied, err := s.promotions.Validate(ctx, lesson, *promo)
		if err != nil {
			return nil, err
		}
		cost = discountedCost(cost, applied.DiscountPercent)
		code := string(applied.Code)
		promoCode = &code
	}

	amount := penceFromPounds(cost)
	if amount <= 0 {
		return s.processFreeOrder(ctx, actorID, lesson, promoCode)
	}

	topic, err := s.topicRepo.GetByID(ctx, lesson.TopicID)
	if err != nil {
		return nil, err
	}

	created, err := s.gateway.CreateOrder(ctx, poundsString(amount), fmt.Sprintf("%s tutoring lesson", topic.Name))
	if err != nil {
		return nil, err
	}

	err = s.gatewayOrderRepo.Create(ctx, models.GatewayOrder{
		OrderID:     created.OrderID,
		LessonID:    lessonID,
		Status:      created.Status,
		GrossAmount: poundsString(amount),
	})
	if err != nil {
		return nil, err
	}
	if promoCode != nil {
		if err := s.lessonRepo.SetPromo(ctx, lessonID, *promoCode); err != nil {
			return nil, err
		}
	}

	return &OrderResult{OrderID: created.OrderID, Status: created.Status, Amount: amount}, nil
}

// processFreeOrder settles a zero-amount order locally: a payment with no
// gateway reference, confirmed immediately, no payout.
func (s *PaymentService) processFreeOrder(ctx context.Context, actorID int64, lesson *models.Lesson, promoCode *string) (*OrderResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txPaymentRepo := repository.NewPaymentRepository(tx)
	txLessonRepo := repository.NewLessonRepository(tx)

	locked, err := txLessonRepo.GetByIDForUpdate(ctx, lesson.ID)
	if err != nil {
		return nil, err
	}
	if err := payable(locked, actorID, time.Now().UTC()); err != nil {
		return nil, err
	}
	if promoCode != nil {
		if err := txLessonRepo.SetPromo(ctx, lesson.ID, *promoCode); err != nil {
			return nil, err
		}
	}

	payment, err := txPaymentRepo.Create(ctx, repository.CreatePaymentInput{
		LessonID:    lesson.ID,
		UserID:      lesson.StudentID,
		TutorUserID: lesson.TutorUserID,
		ExternalID:  uuid.NewString(),
	})
	if err != nil {
		return nil, err
	}
	if err := txPaymentRepo.InsertStatus(ctx, payment.ID, models.PaymentConfirmed); err != nil {
		return nil, err
	}

	if _, err := s.lessons.ConfirmPaid(ctx, tx, lesson.ID, actorID, payment); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.sendOrderConfirmationEmail(lesson, payment)
	return &OrderResult{Free: true, Amount: 0, Payment: payment}, nil
}

// CaptureOrder completes a gateway order after buyer approval. Nothing is
// written to payments, payouts or the lesson unless the gateway reports the
// capture COMPLETED.
func (s *PaymentService) CaptureOrder(ctx context.Context, actorID int64, orderID string) (*models.Payment, error) {
	order, err := s.gatewayOrderRepo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	lesson, err := s.lessonRepo.GetByID(ctx, order.LessonID)
	if err != nil {
		return nil, err
	}
	if lesson.StudentID != actorID {
		return nil, ErrForbidden
	}

	result, err := s.gateway.CaptureOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if result.Status != gateway.OrderStatusCompleted {
		if updateErr := s.gatewayOrderRepo.UpdateStatus(ctx, orderID, result.Status); updateErr != nil {
			log.Printf("capture order %s: record status %s: %v", orderID, result.Status, updateErr)
		}
		return nil, ErrCaptureIncomplete
	}

	amount, err := penceFromString(order.GrossAmount)
	if err != nil {
		return nil, err
	}
	fee := s.processingFee(amount)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txPaymentRepo := repository.NewPaymentRepository(tx)
	txLessonRepo := repository.NewLessonRepository(tx)
	txGatewayRepo := repository.NewGatewayOrderRepository(tx)
	txPayoutRepo := repository.NewPayoutRepository(tx)

	locked, err := txLessonRepo.GetByIDForUpdate(ctx, lesson.ID)
	if err != nil {
		return nil, err
	}
	if err := payable(locked, actorID, time.Now().UTC()); err != nil {
		return nil, err
	}
	if _, err := txPaymentRepo.GetByLessonID(ctx, lesson.ID); err == nil {
		return nil, ErrAlreadyPaid
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	payment, err := txPaymentRepo.Create(ctx, repository.CreatePaymentInput{
		LessonID:         lesson.ID,
		UserID:           lesson.StudentID,
		TutorUserID:      lesson.TutorUserID,
		ExternalID:       uuid.NewString(),
		GatewayPaymentID: &orderID,
		Amount:           amount,
		ProcessingFee:    fee,
	})
	if err != nil {
		return nil, err
	}
	if err := txPaymentRepo.InsertStatus(ctx, payment.ID, models.PaymentConfirmed); err != nil {
		return nil, err
	}

	err = txGatewayRepo.UpdateCapture(ctx, orderID, result.Status, result.CaptureID, result.NetAmount, result.GatewayFee)
	if err != nil {
		return nil, err
	}
	if _, err := txPayoutRepo.Create(ctx, payment.ID); err != nil {
		return nil, err
	}

	if _, err := s.lessons.ConfirmPaid(ctx, tx, lesson.ID, actorID, payment); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.sendOrderConfirmationEmail(lesson, payment)
	return s.paymentRepo.GetByID(ctx, payment.ID)
}

// RefundLesson reverses the lesson's payment inside the caller's transaction.
// A free payment just flips to REFUNDED; a paid one goes back through the
// gateway, and its payout is cancelled.
func (s *PaymentService) RefundLesson(ctx context.Context, tx pgx.Tx, lesson *models.Lesson) error {
	txPaymentRepo := repository.NewPaymentRepository(tx)

	payment, err := txPaymentRepo.GetByLessonID(ctx, lesson.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if payment.HasStatus(models.PaymentRefunded) {
		return nil
	}
	if payment.GatewayPaymentID == nil {
		return txPaymentRepo.InsertStatus(ctx, payment.ID, models.PaymentRefunded)
	}

	if err := txPaymentRepo.InsertStatus(ctx, payment.ID, models.PaymentRefundRequested); err != nil {
		return err
	}

	txGatewayRepo := repository.NewGatewayOrderRepository(tx)
	order, err := txGatewayRepo.Get(ctx, *payment.GatewayPaymentID)
	if err != nil {
		return err
	}
	if order.CaptureID == nil {
		return fmt.Errorf("gateway order %s has no capture to refund", order.OrderID)
	}

	refund, err := s.gateway.RefundCapture(ctx, *order.CaptureID)
	if err != nil {
		return err
	}

	if err := txPaymentRepo.UpdateRefundID(ctx, payment.ID, refund.RefundID); err != nil {
		return err
	}
	if err := txPaymentRepo.InsertStatus(ctx, payment.ID, models.PaymentRefunded); err != nil {
		return err
	}
	if err := txGatewayRepo.UpdateStatus(ctx, order.OrderID, "REFUNDED"); err != nil {
		return err
	}

	txPayoutRepo := repository.NewPayoutRepository(tx)
	payout, err := txPayoutRepo.GetByPaymentID(ctx, payment.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if err := txPayoutRepo.InsertStatus(ctx, payout.ID, models.PayoutCancelled); err != nil {
		return err
	}

	s.sendRefundEmail(lesson, payment)
	return nil
}

// HandleDispute reacts to a chargeback reported by the gateway. The lesson is
// rejected through the normal state machine first, which refunds a confirmed
// lesson's payment on the way. Only when the rejection is no longer legal
// does the dispute freeze everything in place: the payment is flagged
// refund-requested, the payout disputed, and the operator told to sort it out
// by hand.
func (s *PaymentService) HandleDispute(ctx context.Context, resourceID string) error {
	order, err := s.gatewayOrderRepo.Get(ctx, resourceID)
	if errors.Is(err, pgx.ErrNoRows) {
		order, err = s.gatewayOrderRepo.GetByCaptureID(ctx, resourceID)
	}
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rejectErr := s.lessons.rejectForDispute(ctx, tx, order.LessonID)
	if rejectErr == nil {
		if err := tx.Commit(ctx); err != nil {
			return err
		}
		log.Printf("dispute on order %s: lesson %d rejected and refunded", order.OrderID, order.LessonID)
		return nil
	}
	if !errors.Is(rejectErr, ErrInvalidStateTransition) {
		return rejectErr
	}

	txPaymentRepo := repository.NewPaymentRepository(tx)
	txPayoutRepo := repository.NewPayoutRepository(tx)
	txGatewayRepo := repository.NewGatewayOrderRepository(tx)

	payment, err := txPaymentRepo.GetByLessonID(ctx, order.LessonID)
	if err != nil {
		return err
	}
	if !payment.HasStatus(models.PaymentRefundRequested) {
		if err := txPaymentRepo.InsertStatus(ctx, payment.ID, models.PaymentRefundRequested); err != nil {
			return err
		}
	}

	payout, err := txPayoutRepo.GetByPaymentID(ctx, payment.ID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if err == nil && payout.CurrentStatus() != models.PayoutDisputed {
		if err := txPayoutRepo.InsertStatus(ctx, payout.ID, models.PayoutDisputed); err != nil {
			return err
		}
	}

	if err := txGatewayRepo.UpdateStatus(ctx, order.OrderID, "DISPUTED"); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	message := fmt.Sprintf(
		"Dispute opened on order %s (lesson %d, payment %d) but the lesson could not be rejected. Payout frozen, review in the gateway dashboard.",
		order.OrderID, order.LessonID, payment.ID,
	)
	if err := s.alerter.Alert(ctx, message); err != nil {
		log.Printf("dispute alert for order %s: %v", order.OrderID, err)
	}
	return nil
}

func (s *PaymentService) GetOrderByLesson(ctx context.Context, actorID, lessonID int64) (*models.Payment, error) {
	lesson, err := s.lessonRepo.GetByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.TutorUserID != actorID && lesson.StudentID != actorID {
		return nil, ErrForbidden
	}
	return s.paymentRepo.GetByLessonID(ctx, lessonID)
}

func (s *PaymentService) ListOrders(ctx context.Context, actorID int64, page, size int) ([]models.Payment, int64, error) {
	payments, err := s.paymentRepo.ListByUserID(ctx, actorID, page, size)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.paymentRepo.CountByUserID(ctx, actorID)
	return payments, total, err
}

// payable is the guard on starting or capturing payment: only the student
// pays, only before the lesson starts, and only while the lesson awaits their
// confirmation.
func payable(lesson *models.Lesson, actorID int64, now time.Time) error {
	if lesson.StudentID != actorID {
		return ErrForbidden
	}
	if lesson.HasEverBeen(models.LessonConfirmed) {
		return ErrAlreadyPaid
	}
	if !lesson.StartAt.After(now) {
		return ErrNotPayable
	}
	switch lesson.CurrentStatus() {
	case models.LessonPending, models.LessonRescheduled:
		return nil
	default:
		return ErrNotPayable
	}
}

func (s *PaymentService) processingFee(amount int64) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromFloat(s.feeFraction)).
		Round(0).
		IntPart()
}

func penceFromPounds(pounds float64) int64 {
	return decimal.NewFromFloat(pounds).
		Mul(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

func penceFromString(pounds string) (int64, error) {
	value, err := decimal.NewFromString(pounds)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", pounds, err)
	}
	return value.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}

func poundsString(pence int64) string {
	return decimal.NewFromInt(pence).Div(decimal.NewFromInt(100)).StringFixed(2)
}

func (s *PaymentService) sendOrderConfirmationEmail(lesson *models.Lesson, payment *models.Payment) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		student, err := s.userRepo.GetByID(ctx, lesson.StudentID)
		if err != nil {
			log.Printf("order email: load user %d: %v", lesson.StudentID, err)
			return
		}
		topic, err := s.topicRepo.GetByID(ctx, lesson.TopicID)
		if err != nil {
			log.Printf("order email: load topic %d: %v", lesson.TopicID, err)
			return
		}

		subject, body := notifier.OrderConfirmationEmail(student.FirstName, topic.Name, payment.ExternalID, payment.Amount, lesson.StartAt)
		if err := s.mailer.Send(ctx, student.Email, subject, body); err != nil {
			log.Printf("order email: send to %s: %v", student.Email, err)
		}
	}()
}

func (s *PaymentService) sendRefundEmail(lesson *models.Lesson, payment *models.Payment) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		student, err := s.userRepo.GetByID(ctx, lesson.StudentID)
		if err != nil {
			log.Printf("refund email: load user %d: %v", lesson.StudentID, err)
			return
		}
		topic, err := s.topicRepo.GetByID(ctx, lesson.TopicID)
		if err != nil {
			log.Printf("refund email: load topic %d: %v", lesson.TopicID, err)
			return
		}

		subject, body := notifier.RefundEmail(student.FirstName, topic.Name, payment.Amount)
		if err := s.mailer.Send(ctx, student.Email, subject, body); err != nil {
			log.Printf("refund email: send to %s: %v", student.Email, err)
		}
	}()
}
