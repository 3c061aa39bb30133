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

const decideBookingKey = "booking.decide"

const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// DecideBookingCommand is the owner's approve/reject call. Approval reserves
// the listing calendar; when two requests contest the same days, the first
// decision to commit wins and later ones fail with a conflict.
type DecideBookingCommand struct {
	BookingID       string
	ActorID         string
	Decision        string
	ListingID       string
	IdempotencyKeyV string
}

func (c DecideBookingCommand) Key() string { return decideBookingKey }

func (c DecideBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c DecideBookingCommand) ResultPrototype() any { return &DecideBookingResult{} }

// Approval writes the listing calendar, so decisions serialize per listing.
func (c DecideBookingCommand) SerializationKey() string {
	if c.ListingID != "" {
		return "listing:" + c.ListingID
	}
	return "booking:" + c.BookingID
}

func (c DecideBookingCommand) Validate() error {
	if c.BookingID == "" {
		return faults.Validationf("booking: booking id is required")
	}
	if c.Decision != DecisionApprove && c.Decision != DecisionReject {
		return faults.Validationf("booking: decision must be %q or %q", DecisionApprove, DecisionReject)
	}
	return nil
}

type DecideBookingResult struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

type DecideBookingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Now     func() time.Time
}

func (h *DecideBookingHandler) Handle(ctx context.Context, cmd DecideBookingCommand) (*DecideBookingResult, error) {
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

	switch cmd.Decision {
	case DecisionApprove:
		if err := bk.Approve(cmd.ActorID, now); err != nil {
			return nil, err
		}
		calendar, err := unit.Availability().Calendar(ctx, bk.ListingID)
		if err != nil {
			return nil, err
		}
		if err := calendar.Reserve(bk.Range, dates.FromTime(now), now); err != nil {
			return nil, err
		}
		if err := unit.Availability().Save(ctx, calendar); err != nil {
			return nil, err
		}
		if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), calendar.Drain()); err != nil {
			return nil, err
		}
	case DecisionReject:
		if err := bk.Reject(cmd.ActorID, now); err != nil {
			return nil, err
		}
	default:
		return nil, faults.Validationf("booking: unknown decision %q", cmd.Decision)
	}

	if err := unit.Bookings().Save(ctx, bk); err != nil {
		return nil, err
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), bk.Drain()); err != nil {
		return nil, err
	}

	return &DecideBookingResult{BookingID: string(bk.ID), Status: string(bk.State)}, nil
}

func (h *DecideBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func nowOrDefault(now func() time.Time) time.Time {
	if now != nil {
		return now()
	}
	return time.Now().UTC()
}

var _ commands.Handler[DecideBookingCommand, *DecideBookingResult] = (*DecideBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*DecideBookingCommand)(nil)
var _ middleware.SerializedCommand = (*DecideBookingCommand)(nil)
