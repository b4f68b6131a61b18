package gateway

import (
	"context"
	"fmt"

	"github.com/plutov/paypal/v4"
)

// OrderStatusCompleted is the gateway status a capture must reach before any
// money is treated as received.
const OrderStatusCompleted = "COMPLETED"

type CreateOrderResult struct {
	OrderID string
	Status  string
}

// CaptureResult carries the capture outcome. NetAmount and GatewayFee are the
// gateway's decimal strings and are nil when the breakdown is absent.
type CaptureResult struct {
	Status     string
	CaptureID  string
	NetAmount  *string
	GatewayFee *string
}

type RefundResult struct {
	RefundID string
	Status   string
}

// PaymentGateway abstracts the card-processing provider so services and tests
// do not depend on the PayPal SDK.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount string, description string) (*CreateOrderResult, error)
	CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error)
	RefundCapture(ctx context.Context, captureID string) (*RefundResult, error)
}

type PaypalGateway struct {
	client *paypal.Client
}

func NewPaypalGateway(clientID, secret string, sandbox bool) (*PaypalGateway, error) {
	apiBase := paypal.APIBaseLive
	if sandbox {
		apiBase = paypal.APIBaseSandBox
	}

	client, err := paypal.NewClient(clientID, secret, apiBase)
	if err != nil {
		return nil, fmt.Errorf("failed to create paypal client: %w", err)
	}

	if _, err := client.GetAccessToken(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to get paypal access token: %w", err)
	}

	return &PaypalGateway{client: client}, nil
}

func (g *PaypalGateway) CreateOrder(ctx context.Context, amount string, description string) (*CreateOrderResult, error) {
	units := []paypal.PurchaseUnitRequest{
		{
			Description: description,
			Amount: &paypal.PurchaseUnitAmount{
				Currency: "GBP",
				Value:    amount,
			},
		},
	}

	appCtx := &paypal.ApplicationContext{
		ShippingPreference: "NO_SHIPPING",
	}

	order, err := g.client.CreateOrder(ctx, "CAPTURE", units, nil, appCtx)
	if err != nil {
		return nil, fmt.Errorf("paypal create order: %w", err)
	}

	return &CreateOrderResult{OrderID: order.ID, Status: order.Status}, nil
}

func (g *PaypalGateway) CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error) {
	resp, err := g.client.CaptureOrder(ctx, orderID, paypal.CaptureOrderRequest{})
	if err != nil {
		return nil, fmt.Errorf("paypal capture order %s: %w", orderID, err)
	}

	result := &CaptureResult{Status: resp.Status}

	if len(resp.PurchaseUnits) > 0 && resp.PurchaseUnits[0].Payments != nil && len(resp.PurchaseUnits[0].Payments.Captures) > 0 {
		capture := resp.PurchaseUnits[0].Payments.Captures[0]
		result.CaptureID = capture.ID
		if capture.SellerReceivableBreakdown != nil {
			if capture.SellerReceivableBreakdown.NetAmount != nil {
				net := capture.SellerReceivableBreakdown.NetAmount.Value
				result.NetAmount = &net
			}
			if capture.SellerReceivableBreakdown.PaypalFee != nil {
				fee := capture.SellerReceivableBreakdown.PaypalFee.Value
				result.GatewayFee = &fee
			}
		}
	}

	return result, nil
}

func (g *PaypalGateway) RefundCapture(ctx context.Context, captureID string) (*RefundResult, error) {
	resp, err := g.client.RefundCapture(ctx, captureID, paypal.RefundCaptureRequest{})
	if err != nil {
		return nil, fmt.Errorf("paypal refund capture %s: %w", captureID, err)
	}

	return &RefundResult{RefundID: resp.ID, Status: resp.Status}, nil
}
