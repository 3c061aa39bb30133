package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mercadopago/sdk-go/pkg/config"
	mppayment "github.com/mercadopago/sdk-go/pkg/payment"

	"github.com/dog52841/Rentify-sub001/internal/app/policies"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/faults"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/money"
)

var ErrMissingAccessToken = errors.New("payments: mercado pago access token is required")

// MercadoPagoProvider adapts the Mercado Pago payments API to the provider
// port. Orders are created as two-step payments (authorize now, capture
// later) so the booking flow controls when money moves.
type MercadoPagoProvider struct {
	client mppayment.Client
}

func NewMercadoPagoProvider(accessToken string) (*MercadoPagoProvider, error) {
	if accessToken == "" {
		return nil, ErrMissingAccessToken
	}
	cfg, err := config.New(accessToken)
	if err != nil {
		return nil, err
	}
	return &MercadoPagoProvider{client: mppayment.NewClient(cfg)}, nil
}

func (p *MercadoPagoProvider) CreateOrder(ctx context.Context, reference string, amount money.Money) (policies.ProviderOrder, error) {
	req := mppayment.Request{
		TransactionAmount: toMajorUnits(amount),
		Description:       "rental booking " + reference,
		ExternalReference: reference,
		Capture:           false,
	}
	resp, err := p.client.Create(ctx, req)
	if err != nil {
		return policies.ProviderOrder{}, faults.Gateway("payments: create order failed", err)
	}
	return mapOrder(resp, reference, amount), nil
}

func (p *MercadoPagoProvider) Capture(ctx context.Context, providerOrderID string) (policies.ProviderCapture, error) {
	id, err := strconv.Atoi(providerOrderID)
	if err != nil {
		return policies.ProviderCapture{}, faults.Validationf("payments: malformed provider order id %q", providerOrderID)
	}
	resp, err := p.client.Capture(ctx, id)
	if err != nil {
		// The API rejects captures of already-settled payments. Check the
		// current state before classifying: a settled payment means a prior
		// attempt succeeded and the caller should reconcile, not fail.
		if current, gerr := p.client.Get(ctx, id); gerr == nil && current.Status == statusApproved {
			return policies.ProviderCapture{}, policies.ErrAlreadyCaptured
		}
		return policies.ProviderCapture{}, faults.Gateway("payments: capture failed", err)
	}
	switch resp.Status {
	case statusApproved:
		return policies.ProviderCapture{
			OrderID: providerOrderID,
			TxnID:   txnID(resp),
			State:   policies.OrderCaptured,
		}, nil
	case statusRejected, statusCancelled:
		return policies.ProviderCapture{}, faults.Rejection("payments: provider declined the capture: "+resp.StatusDetail, nil)
	default:
		return policies.ProviderCapture{}, faults.Gateway("payments: capture left payment in state "+resp.Status, nil)
	}
}

func (p *MercadoPagoProvider) Fetch(ctx context.Context, providerOrderID string) (policies.ProviderOrder, error) {
	id, err := strconv.Atoi(providerOrderID)
	if err != nil {
		return policies.ProviderOrder{}, faults.Validationf("payments: malformed provider order id %q", providerOrderID)
	}
	resp, err := p.client.Get(ctx, id)
	if err != nil {
		return policies.ProviderOrder{}, faults.Gateway("payments: fetch order failed", err)
	}
	return mapOrder(resp, resp.ExternalReference, money.Money{}), nil
}

const (
	statusApproved  = "approved"
	statusRejected  = "rejected"
	statusCancelled = "cancelled"
)

func mapOrder(resp *mppayment.Response, reference string, amount money.Money) policies.ProviderOrder {
	order := policies.ProviderOrder{
		ID:        fmt.Sprintf("%d", resp.ID),
		Reference: reference,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
	switch resp.Status {
	case statusApproved:
		order.State = policies.OrderCaptured
		order.TxnID = txnID(resp)
	case statusRejected, statusCancelled:
		order.State = policies.OrderDeclined
	default:
		order.State = policies.OrderCreated
	}
	return order
}

func txnID(resp *mppayment.Response) string {
	return fmt.Sprintf("mp-%d", resp.ID)
}

func toMajorUnits(amount money.Money) float64 {
	return float64(amount.Amount) / 100
}

var _ policies.PaymentProvider = (*MercadoPagoProvider)(nil)
