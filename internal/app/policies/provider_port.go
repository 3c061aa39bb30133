package policies

import (
	"context"
	"errors"
	"time"

	"github.com/dog52841/Rentify-sub001/internal/domain/shared/money"
)

// ErrAlreadyCaptured signals that the provider settled the order in a prior
// attempt the core never observed (crash, lost response). Callers reconcile
// by fetching the existing transaction instead of failing.
var ErrAlreadyCaptured = errors.New("payments: order already captured by provider")

type OrderState string

const (
	OrderCreated  OrderState = "CREATED"
	OrderCaptured OrderState = "CAPTURED"
	OrderDeclined OrderState = "DECLINED"
)

// ProviderOrder mirrors the provider's view of a charge.
type ProviderOrder struct {
	ID        string
	Reference string
	Amount    money.Money
	State     OrderState
	TxnID     string
	CreatedAt time.Time
}

// ProviderCapture is the outcome of a capture call.
type ProviderCapture struct {
	OrderID string
	TxnID   string
	State   OrderState
}

// PaymentProvider is the outbound port to the external payment system.
// Transient failures surface as faults.KindGateway (safe to retry with the
// same order id); terminal declines as faults.KindGatewayRejection.
type PaymentProvider interface {
	CreateOrder(ctx context.Context, reference string, amount money.Money) (ProviderOrder, error)
	Capture(ctx context.Context, providerOrderID string) (ProviderCapture, error)
	Fetch(ctx context.Context, providerOrderID string) (ProviderOrder, error)
}
