package payment

import (
	"context"
	"errors"
	"time"

	"github.com/dog52841/Rentify-sub001/internal/domain/booking"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/faults"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/money"
)

var ErrNotFound = errors.New("payment: order not found")

type OrderStatus string

const (
	StatusCreated  OrderStatus = "CREATED"
	StatusCaptured OrderStatus = "CAPTURED"
	StatusFailed   OrderStatus = "FAILED"
)

// Order tracks one charge attempt against the payment provider. A booking
// accumulates additional orders only after earlier ones failed; at most one
// order per booking ever reaches CAPTURED.
type Order struct {
	ID         string
	BookingID  booking.BookingID
	ProviderID string
	Amount     money.Money
	Status     OrderStatus
	TxnID      string
	FailReason string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Version    int64
}

type Repository interface {
	ByID(ctx context.Context, id string) (*Order, error)
	Save(ctx context.Context, order *Order) error
	ListByBooking(ctx context.Context, id booking.BookingID) ([]*Order, error)
}

func NewOrder(id string, bookingID booking.BookingID, providerID string, amount money.Money, now time.Time) (*Order, error) {
	if id == "" {
		return nil, faults.Validationf("payment: order id is required")
	}
	if bookingID == "" {
		return nil, faults.Validationf("payment: booking id is required")
	}
	if amount.Amount <= 0 || amount.Currency == "" {
		return nil, faults.Validationf("payment: amount must be positive")
	}
	return &Order{
		ID:         id,
		BookingID:  bookingID,
		ProviderID: providerID,
		Amount:     amount,
		Status:     StatusCreated,
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}, nil
}

// MarkCaptured records the single successful charge for this order. Calling
// it again with the same transaction id is a no-op.
func (o *Order) MarkCaptured(txnID string, now time.Time) error {
	if txnID == "" {
		return faults.Validationf("payment: transaction id is required")
	}
	if o.Status == StatusCaptured {
		if o.TxnID == txnID {
			return nil
		}
		return faults.Validationf("payment: order already captured with a different transaction")
	}
	o.Status = StatusCaptured
	o.TxnID = txnID
	o.UpdatedAt = now.UTC()
	return nil
}

// MarkFailed closes the order after a terminal decline; retries use a fresh order.
func (o *Order) MarkFailed(reason string, now time.Time) {
	if o.Status == StatusCaptured {
		return
	}
	o.Status = StatusFailed
	o.FailReason = reason
	o.UpdatedAt = now.UTC()
}
