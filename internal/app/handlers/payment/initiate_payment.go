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

const initiatePaymentKey = "payment.initiate"

// InitiatePaymentCommand creates a provider order for an approved booking and
// moves it to PAYMENT_PENDING. Retrying after a declined capture attaches a
// fresh order to the same booking.
type InitiatePaymentCommand struct {
	CommandID       string
	BookingID       string
	ActorID         string
	AmountCents     int64
	Currency        string
	IdempotencyKeyV string
}

func (c InitiatePaymentCommand) Key() string { return initiatePaymentKey }

func (c InitiatePaymentCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c InitiatePaymentCommand) ResultPrototype() any { return &InitiatePaymentResult{} }

func (c InitiatePaymentCommand) SerializationKey() string { return "booking:" + c.BookingID }

func (c InitiatePaymentCommand) Validate() error {
	if c.BookingID == "" {
		return faults.Validationf("payment: booking id is required")
	}
	if c.AmountCents <= 0 {
		return faults.Validationf("payment: amount must be positive")
	}
	return nil
}

type InitiatePaymentResult struct {
	OrderID   string `json:"order_id"`
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

type InitiatePaymentHandler struct {
	Provider policies.PaymentProvider
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Timeout  time.Duration
	Now      func() time.Time
}

var ErrUnitOfWorkRequired = errors.New("payment: unit of work required")

func (h *InitiatePaymentHandler) Handle(ctx context.Context, cmd InitiatePaymentCommand) (*InitiatePaymentResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, ErrUnitOfWorkRequired
	}
	now := h.now()

	bk, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		if errors.Is(err, domainbooking.ErrNotFound) {
			return nil, faults.NotFoundf("payment: booking %s not found", cmd.BookingID)
		}
		return nil, err
	}
	if cmd.ActorID != bk.RenterID {
		return nil, faults.Authorizationf("payment: only the renter may pay")
	}
	switch bk.State {
	case domainbooking.StateApproved, domainbooking.StatePaymentPending:
	default:
		return nil, faults.Validationf("payment: booking is not awaiting payment")
	}
	if cmd.AmountCents != bk.Price.Total.Amount || (cmd.Currency != "" && cmd.Currency != bk.Price.Total.Currency) {
		return nil, faults.Validationf("payment: amount does not match the booking total")
	}

	// A booking accumulates a fresh order only after earlier ones failed.
	prior, err := unit.Payments().ListByBooking(ctx, bk.ID)
	if err != nil {
		return nil, err
	}
	for _, existing := range prior {
		switch existing.Status {
		case domainpayment.StatusCreated:
			return nil, faults.Validationf("payment: order %s is still open for booking %s", existing.ID, bk.ID)
		case domainpayment.StatusCaptured:
			return nil, faults.Validationf("payment: booking %s already has a settled order", bk.ID)
		}
	}

	callCtx, cancel := h.callContext(ctx)
	defer cancel()
	po, err := h.Provider.CreateOrder(callCtx, string(bk.ID), bk.Price.Total)
	if err != nil {
		return nil, classifyProviderError("payment: create order failed", err)
	}

	order, err := domainpayment.NewOrder(cmd.CommandID, bk.ID, po.ID, bk.Price.Total, now)
	if err != nil {
		return nil, err
	}
	if err := unit.Payments().Save(ctx, order); err != nil {
		return nil, err
	}

	if err := bk.InitiatePayment(cmd.ActorID, order.ID, now); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, bk); err != nil {
		return nil, err
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), bk.Drain()); err != nil {
		return nil, err
	}

	return &InitiatePaymentResult{OrderID: order.ID, BookingID: string(bk.ID), Status: string(order.Status)}, nil
}

func (h *InitiatePaymentHandler) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, h.Timeout)
}

func (h *InitiatePaymentHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *InitiatePaymentHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

// classifyProviderError keeps provider classifications and treats everything
// unclassified (timeouts, connection resets) as retryable gateway trouble.
func classifyProviderError(message string, err error) error {
	if faults.KindOf(err) != "" {
		return err
	}
	return faults.Gateway(message, err)
}

var _ commands.Handler[InitiatePaymentCommand, *InitiatePaymentResult] = (*InitiatePaymentHandler)(nil)
var _ middleware.IdempotentCommand = (*InitiatePaymentCommand)(nil)
var _ middleware.SerializedCommand = (*InitiatePaymentCommand)(nil)
