package repository

import (
	"context"

	"github.com/tutorhive/backend/internal/models"
)

// GatewayOrderRepository persists the local mirror of the payment gateway's
// orders, keyed by the gateway's own order id.
type GatewayOrderRepository struct {
	db DBTX
}

func NewGatewayOrderRepository(db DBTX) *GatewayOrderRepository {
	return &GatewayOrderRepository{db: db}
}

const gatewayOrderColumns = `
	order_id, lesson_id, status, gross_amount, net_amount, gateway_fee, capture_id, updated_at
`

func (r *GatewayOrderRepository) scanOrder(row interface{ Scan(...any) error }) (*models.GatewayOrder, error) {
	var order models.GatewayOrder
	err := row.Scan(
		&order.OrderID,
		&order.LessonID,
		&order.Status,
		&order.GrossAmount,
		&order.NetAmount,
		&order.GatewayFee,
		&order.CaptureID,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GatewayOrderRepository) Create(ctx context.Context, order models.GatewayOrder) error {
	query := `
		INSERT INTO gateway_orders (order_id, lesson_id, status, gross_amount)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.Exec(ctx, query, order.OrderID, order.LessonID, order.Status, order.GrossAmount)
	return err
}

func (r *GatewayOrderRepository) Get(ctx context.Context, orderID string) (*models.GatewayOrder, error) {
	query := `SELECT ` + gatewayOrderColumns + ` FROM gateway_orders WHERE order_id = $1`
	return r.scanOrder(r.db.QueryRow(ctx, query, orderID))
}

func (r *GatewayOrderRepository) GetByCaptureID(ctx context.Context, captureID string) (*models.GatewayOrder, error) {
	query := `SELECT ` + gatewayOrderColumns + ` FROM gateway_orders WHERE capture_id = $1`
	return r.scanOrder(r.db.QueryRow(ctx, query, captureID))
}

// UpdateCapture records the capture outcome together with the gateway's
// net/fee breakdown.
func (r *GatewayOrderRepository) UpdateCapture(ctx context.Context, orderID, status, captureID string, netAmount, gatewayFee *string) error {
	query := `
		UPDATE gateway_orders
		SET status = $2, capture_id = $3, net_amount = $4, gateway_fee = $5, updated_at = now()
		WHERE order_id = $1
	`

	_, err := r.db.Exec(ctx, query, orderID, status, captureID, netAmount, gatewayFee)
	return err
}

func (r *GatewayOrderRepository) UpdateStatus(ctx context.Context, orderID, status string) error {
	query := `
		UPDATE gateway_orders
		SET status = $2, updated_at = now()
		WHERE order_id = $1
	`

	_, err := r.db.Exec(ctx, query, orderID, status)
	return err
}
