package booking

import (
	"context"
	"errors"
	"time"

	"github.com/dog52841/Rentify-sub001/internal/app/commands"
	"github.com/dog52841/Rentify-sub001/internal/app/middleware"
	"github.com/dog52841/Rentify-sub001/internal/app/outbox"
	"github.com/dog52841/Rentify-sub001/internal/app/uow"
	domainbooking "github.com/dog52841/Rentify-sub001/internal/domain/booking"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/faults"
)

const cancelBookingKey = "booking.cancel"

type CancelBookingCommand struct {
	BookingID       string
	ActorID         string
	Reason          string
	ListingID       string
	IdempotencyKeyV string
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

func (c CancelBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CancelBookingCommand) ResultPrototype() any { return &CancelBookingResult{} }

// Cancellation releases calendar days, so it serializes with approvals on the
// same listing.
func (c CancelBookingCommand) SerializationKey() string {
	if c.ListingID != "" {
		return "listing:" + c.ListingID
	}
	return "booking:" + c.BookingID
}

type CancelBookingResult struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

type CancelBookingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Now     func() time.Time
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*CancelBookingResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, ErrUnitOfWorkRequired
	}
	now := nowOrDefault(h.Now)

	bk, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		if errors.Is(err, domainbooking.ErrNotFound) {
			return nil, faults.NotFoundf("booking: %s not found", cmd.BookingID)
		}
		return nil, err
	}

	held := bk.HoldsCalendar()
	if err := bk.Cancel(cmd.ActorID, cmd.Reason, now); err != nil {
		return nil, err
	}

	if held {
		calendar, err := unit.Availability().Calendar(ctx, bk.ListingID)
		if err != nil {
			return nil, err
		}
		if err := calendar.Release(bk.Range, now); err != nil {
			return nil, err
		}
		if err := unit.Availability().Save(ctx, calendar); err != nil {
			return nil, err
		}
		if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), calendar.Drain()); err != nil {
			return nil, err
		}
	}

	if err := unit.Bookings().Save(ctx, bk); err != nil {
		return nil, err
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), bk.Drain()); err != nil {
		return nil, err
	}

	return &CancelBookingResult{BookingID: string(bk.ID), Status: string(bk.State)}, nil
}

func (h *CancelBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[CancelBookingCommand, *CancelBookingResult] = (*CancelBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*CancelBookingCommand)(nil)
var _ middleware.SerializedCommand = (*CancelBookingCommand)(nil)
