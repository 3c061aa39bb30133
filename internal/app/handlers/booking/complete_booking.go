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
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/dates"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/faults"
)

const completeBookingKey = "booking.complete"

// CompleteBookingCommand is dispatched by the completion sweeper once a
// confirmed booking's end day has passed.
type CompleteBookingCommand struct {
	BookingID string
	ListingID string
}

func (c CompleteBookingCommand) Key() string { return completeBookingKey }

func (c CompleteBookingCommand) SerializationKey() string {
	if c.ListingID != "" {
		return "listing:" + c.ListingID
	}
	return "booking:" + c.BookingID
}

type CompleteBookingResult struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

type CompleteBookingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Now     func() time.Time
}

func (h *CompleteBookingHandler) Handle(ctx context.Context, cmd CompleteBookingCommand) (*CompleteBookingResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, ErrUnitOfWorkRequired
	}
	now := nowOrDefault(h.Now)
	today := dates.FromTime(now)

	bk, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		if errors.Is(err, domainbooking.ErrNotFound) {
			return nil, faults.NotFoundf("booking: %s not found", cmd.BookingID)
		}
		return nil, err
	}

	if err := bk.Complete(today, now); err != nil {
		return nil, err
	}

	// Completed stays are released so the day index only carries active holds.
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
	if err := unit.Bookings().Save(ctx, bk); err != nil {
		return nil, err
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), calendar.Drain()); err != nil {
		return nil, err
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), bk.Drain()); err != nil {
		return nil, err
	}

	return &CompleteBookingResult{BookingID: string(bk.ID), Status: string(bk.State)}, nil
}

func (h *CompleteBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[CompleteBookingCommand, *CompleteBookingResult] = (*CompleteBookingHandler)(nil)
var _ middleware.SerializedCommand = (*CompleteBookingCommand)(nil)
