package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tutorhive/backend/internal/gateway"
	"github.com/tutorhive/backend/internal/models"
	"github.com/tutorhive/backend/internal/notifier"
	"github.com/tutorhive/backend/internal/repository"
)

var (
	ErrOrderNotSettled    = errors.New("gateway order has not settled")
	ErrRefundRequested    = errors.New("a refund has been requested for the payment")
	ErrPayoutDisputed     = errors.New("payout is disputed")
	ErrNoAvailablePayouts = errors.New("no payouts are available")
	ErrNoPayoutEmail      = errors.New("no payout email is set")
)

type PayoutService struct {
	db               *pgxpool.Pool
	payoutRepo       *repository.PayoutRepository
	paymentRepo      *repository.PaymentRepository
	gatewayOrderRepo *repository.GatewayOrderRepository
	tutorRepo        *repository.TutorRepository
	userRepo         *repository.UserRepository
	mailer           notifier.Mailer
	alerter          notifier.Alerter
	clientURL        string
}

func NewPayoutService(
	db *pgxpool.Pool,
	payoutRepo *repository.PayoutRepository,
	paymentRepo *repository.PaymentRepository,
	gatewayOrderRepo *repository.GatewayOrderRepository,
	tutorRepo *repository.TutorRepository,
	userRepo *repository.UserRepository,
	mailer notifier.Mailer,
	alerter notifier.Alerter,
	clientURL string,
) *PayoutService {
	return &PayoutService{
		db:               db,
		payoutRepo:       payoutRepo,
		paymentRepo:      paymentRepo,
		gatewayOrderRepo: gatewayOrderRepo,
		tutorRepo:        tutorRepo,
		userRepo:         userRepo,
		mailer:           mailer,
		alerter:          alerter,
		clientURL:        clientURL,
	}
}

// MarkAvailable promotes a payout from PENDING to AVAILABLE once the lesson
// has finished. Every guard fails loudly rather than skipping silently: money
// only becomes claimable when the gateway order settled, no refund was asked
// for, and the payout is not under dispute.
func (s *PayoutService) MarkAvailable(ctx context.Context, paymentID int64) (*models.Payout, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txPayoutRepo := repository.NewPayoutRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)
	txGatewayRepo := repository.NewGatewayOrderRepository(tx)

	payment, err := txPaymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.GatewayPaymentID == nil {
		return nil, ErrOrderNotSettled
	}
	order, err := txGatewayRepo.Get(ctx, *payment.GatewayPaymentID)
	if err != nil {
		return nil, err
	}
	if order.Status != gateway.OrderStatusCompleted {
		return nil, ErrOrderNotSettled
	}
	if payment.HasStatus(models.PaymentRefundRequested) {
		return nil, ErrRefundRequested
	}

	payout, err := txPayoutRepo.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	switch payout.CurrentStatus() {
	case models.PayoutDisputed:
		return nil, ErrPayoutDisputed
	case models.PayoutPending:
	default:
		return nil, ErrInvalidStateTransition
	}

	if err := txPayoutRepo.InsertStatus(ctx, payout.ID, models.PayoutAvailable); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return s.payoutRepo.GetByID(ctx, payout.ID)
}

// RequestPayout moves all of the tutor's AVAILABLE payouts to REQUESTED and
// raises a single operator alert with the totals and the address to pay.
func (s *PayoutService) RequestPayout(ctx context.Context, actorID int64) ([]models.Payout, error) {
	tutor, err := s.tutorRepo.GetByUserID(ctx, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if tutor.PayoutEmail == nil {
		return nil, ErrNoPayoutEmail
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txPayoutRepo := repository.NewPayoutRepository(tx)

	available, err := txPayoutRepo.ListAvailableByUserID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if len(available) == 0 {
		return nil, ErrNoAvailablePayouts
	}

	var gross, fees int64
	for _, payout := range available {
		if err := txPayoutRepo.InsertStatus(ctx, payout.ID, models.PayoutRequested); err != nil {
			return nil, err
		}
		gross += payout.Amount
		fees += payout.ProcessingFee
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	message := fmt.Sprintf(
		"Payout requested by tutor %d: %d lessons, £%.2f gross, £%.2f fees, £%.2f to pay. Send to %s.",
		actorID, len(available),
		float64(gross)/100, float64(fees)/100, float64(gross-fees)/100,
		*tutor.PayoutEmail,
	)
	if err := s.alerter.Alert(ctx, message); err != nil {
		log.Printf("payout request alert: %v", err)
	}

	requested := make([]models.Payout, 0, len(available))
	for _, payout := range available {
		updated, err := s.payoutRepo.GetByID(ctx, payout.ID)
		if err != nil {
			return nil, err
		}
		requested = append(requested, *updated)
	}
	return requested, nil
}

// MarkComplete records that the money for a batch of REQUESTED payouts was
// sent. Operator-only; the whole batch lands in one transaction, and each
// affected tutor gets a single email covering their share.
func (s *PayoutService) MarkComplete(ctx context.Context, payoutIDs []int64) ([]models.Payout, error) {
	if len(payoutIDs) == 0 {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txPayoutRepo := repository.NewPayoutRepository(tx)

	netByTutor := make(map[int64]int64)
	for _, payoutID := range payoutIDs {
		payout, err := txPayoutRepo.GetByID(ctx, payoutID)
		if err != nil {
			return nil, err
		}
		if payout.CurrentStatus() != models.PayoutRequested {
			return nil, ErrInvalidStateTransition
		}
		if err := txPayoutRepo.InsertStatus(ctx, payoutID, models.PayoutComplete); err != nil {
			return nil, err
		}
		netByTutor[payout.TutorUserID] += payout.Amount - payout.ProcessingFee
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	for tutorUserID, net := range netByTutor {
		s.sendPayoutCompleteEmail(tutorUserID, net)
	}

	completed := make([]models.Payout, 0, len(payoutIDs))
	for _, payoutID := range payoutIDs {
		payout, err := s.payoutRepo.GetByID(ctx, payoutID)
		if err != nil {
			return nil, err
		}
		completed = append(completed, *payout)
	}
	return completed, nil
}

// UpdatePayoutSettings sets where the tutor's money is sent and whether they
// want payout notification emails.
func (s *PayoutService) UpdatePayoutSettings(ctx context.Context, actorID int64, payoutEmail *string, emailEnabled bool) (*models.Tutor, error) {
	tutor, err := s.tutorRepo.GetByUserID(ctx, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	if err := s.tutorRepo.UpdatePayoutEmail(ctx, tutor.ID, payoutEmail, emailEnabled); err != nil {
		return nil, err
	}
	tutor.PayoutEmail = payoutEmail
	tutor.PayoutEmailEnabled = emailEnabled
	return tutor, nil
}

// Summary totals the tutor's earnings net of fees per bucket. Disputed stays
// nil when nothing is disputed so the client can hide the row entirely.
func (s *PayoutService) Summary(ctx context.Context, userID int64) (*models.PayoutSummary, error) {
	summary := &models.PayoutSummary{}

	available, err := s.netSum(ctx, userID, models.PayoutAvailable)
	if err != nil {
		return nil, err
	}
	if available != nil {
		summary.Available = *available
	}

	pending, err := s.netSum(ctx, userID, models.PayoutPending)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		summary.Pending = *pending
	}

	summary.Disputed, err = s.netSum(ctx, userID, models.PayoutDisputed)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *PayoutService) netSum(ctx context.Context, userID int64, status models.PayoutState) (*int64, error) {
	gross, fees, err := s.payoutRepo.SumByStatus(ctx, userID, status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	net := gross - fees
	return &net, nil
}

func (s *PayoutService) ListPayouts(ctx context.Context, userID int64, page, size int) ([]models.Payout, int64, error) {
	payouts, err := s.payoutRepo.ListByUserID(ctx, userID, page, size)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.payoutRepo.CountByUserID(ctx, userID)
	return payouts, total, err
}

func (s *PayoutService) sendPayoutCompleteEmail(tutorUserID, net int64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		tutor, err := s.userRepo.GetByID(ctx, tutorUserID)
		if err != nil {
			log.Printf("payout email: load user %d: %v", tutorUserID, err)
			return
		}
		subject, body := notifier.PayoutCompleteEmail(tutor.FirstName, net)
		if err := s.mailer.Send(ctx, tutor.Email, subject, body); err != nil {
			log.Printf("payout email: send to %s: %v", tutor.Email, err)
		}
	}()
}
