package payment

import (
	"context"
	"errors"
	"time"

	"github.com/dog52841/Rentify-sub001/internal/app/commands"
	"github.com/dog52841/Rentify-sub001/internal/app/middleware"
	"github.com/dog52841/Rentify-sub001/internal/app/outbox"
	"github.com/dog52841/Rentify-sub001/internal/app/policies"
	"github.com/dog52841/Rentify-sub001/internal/app/uow"
	domainbooking "github.com/dog52841/Rentify-sub001/internal/domain/booking"
	domainpayment "github.com/dog52841/Rentify-sub001/internal/domain/payment"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/faults"
)

const captureOrderKey = "payment.capture"

// CaptureOrderCommand settles a created order with the provider. The call is
// idempotent: a second capture of an already-settled order returns the stored
// transaction without charging again.
type CaptureOrderCommand struct {
	OrderID         string
	ActorID         string
	IdempotencyKeyV string
}

func (c CaptureOrderCommand) Key() string { return captureOrderKey }

func (c CaptureOrderCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CaptureOrderCommand) ResultPrototype() any { return &CaptureOrderResult{} }

// Concurrent captures of one order serialize on the order id. The command
// only carries the order id, so the booking-wide lock is taken by the handler
// once the order is resolved.
func (c CaptureOrderCommand) SerializationKey() string { return "order:" + c.OrderID }

func (c CaptureOrderCommand) Validate() error {
	if c.OrderID == "" {
		return faults.Validationf("payment: order id is required")
	}
	return nil
}

type CaptureOrderResult struct {
	OrderID       string `json:"order_id"`
	BookingID     string `json:"booking_id"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
	FailReason    string `json:"fail_reason,omitempty"`
}

type CaptureOrderHandler struct {
	Provider policies.PaymentProvider
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	// Locks must be the same keyed mutex the dispatch pipeline serializes
	// on, so capture excludes every other command touching the booking.
	Locks   *middleware.KeyedMutex
	Timeout time.Duration
	Now     func() time.Time
}

func (h *CaptureOrderHandler) Handle(ctx context.Context, cmd CaptureOrderCommand) (*CaptureOrderResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, ErrUnitOfWorkRequired
	}
	now := h.now()

	order, err := h.loadOrder(ctx, unit, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	// The dispatch lock covers this order id only; a booking may carry more
	// than one order. At most one of them may ever settle, so hold the
	// booking for the rest of the handler, provider call included, and
	// re-read the order underneath the lock.
	if h.Locks != nil {
		unlock := h.Locks.Lock("booking:" + string(order.BookingID))
		defer unlock()
		if order, err = h.loadOrder(ctx, unit, cmd.OrderID); err != nil {
			return nil, err
		}
	}
	bk, err := unit.Bookings().ByID(ctx, order.BookingID)
	if err != nil {
		return nil, err
	}
	if cmd.ActorID != "" && cmd.ActorID != bk.RenterID && cmd.ActorID != bk.OwnerID {
		return nil, faults.Authorizationf("payment: only participants may capture")
	}

	// Short-circuit before touching the provider: a settled order means the
	// money already moved.
	if order.Status == domainpayment.StatusCaptured {
		return &CaptureOrderResult{
			OrderID:       order.ID,
			BookingID:     string(bk.ID),
			Status:        string(domainpayment.StatusCaptured),
			TransactionID: firstNonEmpty(order.TxnID, bk.TxnID),
		}, nil
	}
	if bk.State == domainbooking.StateConfirmed {
		if bk.OrderID == order.ID {
			return &CaptureOrderResult{
				OrderID:       order.ID,
				BookingID:     string(bk.ID),
				Status:        string(domainpayment.StatusCaptured),
				TransactionID: firstNonEmpty(order.TxnID, bk.TxnID),
			}, nil
		}
		// A sibling order settled the booking; this one must never charge.
		return nil, faults.Validationf("payment: booking %s was already settled through order %s", bk.ID, bk.OrderID)
	}
	if order.Status == domainpayment.StatusFailed {
		return nil, faults.Validationf("payment: order %s already failed, initiate a new payment", order.ID)
	}

	callCtx, cancel := h.callContext(ctx)
	defer cancel()
	capture, err := h.Provider.Capture(callCtx, order.ProviderID)
	switch {
	case err == nil:
		if err := order.MarkCaptured(capture.TxnID, now); err != nil {
			return nil, err
		}
		if err := bk.Confirm(order.ID, capture.TxnID, now); err != nil {
			return nil, err
		}
	case errors.Is(err, policies.ErrAlreadyCaptured):
		// The provider settled a prior attempt we never saw. Adopt its
		// transaction and converge the booking to CONFIRMED.
		po, ferr := h.Provider.Fetch(callCtx, order.ProviderID)
		if ferr != nil {
			return nil, classifyProviderError("payment: reconcile fetch failed", ferr)
		}
		if po.TxnID == "" {
			return nil, faults.Gateway("payment: provider reported capture without a transaction id", err)
		}
		if err := order.MarkCaptured(po.TxnID, now); err != nil {
			return nil, err
		}
		if bk.State == domainbooking.StatePaymentPending {
			if err := bk.Confirm(order.ID, po.TxnID, now); err != nil {
				return nil, err
			}
		}
	case faults.IsKind(err, faults.KindGatewayRejection):
		// Terminal decline: close the order, keep the booking in
		// PAYMENT_PENDING so the renter can retry with a new order.
		order.MarkFailed(err.Error(), now)
		if serr := unit.Payments().Save(ctx, order); serr != nil {
			return nil, serr
		}
		return &CaptureOrderResult{
			OrderID:    order.ID,
			BookingID:  string(bk.ID),
			Status:     string(domainpayment.StatusFailed),
			FailReason: err.Error(),
		}, nil
	default:
		return nil, classifyProviderError("payment: capture failed", err)
	}

	if err := unit.Payments().Save(ctx, order); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, bk); err != nil {
		return nil, err
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), bk.Drain()); err != nil {
		return nil, err
	}

	return &CaptureOrderResult{
		OrderID:       order.ID,
		BookingID:     string(bk.ID),
		Status:        string(order.Status),
		TransactionID: order.TxnID,
	}, nil
}

func (h *CaptureOrderHandler) loadOrder(ctx context.Context, unit uow.UnitOfWork, id string) (*domainpayment.Order, error) {
	order, err := unit.Payments().ByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainpayment.ErrNotFound) {
			return nil, faults.NotFoundf("payment: order %s not found", id)
		}
		return nil, err
	}
	return order, nil
}

func (h *CaptureOrderHandler) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, h.Timeout)
}

func (h *CaptureOrderHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *CaptureOrderHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ commands.Handler[CaptureOrderCommand, *CaptureOrderResult] = (*CaptureOrderHandler)(nil)
var _ middleware.IdempotentCommand = (*CaptureOrderCommand)(nil)
var _ middleware.SerializedCommand = (*CaptureOrderCommand)(nil)
