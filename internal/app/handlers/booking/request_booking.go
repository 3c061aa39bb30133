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
	domainlisting "github.com/dog52841/Rentify-sub001/internal/domain/listing"
	"github.com/dog52841/Rentify-sub001/internal/domain/pricing"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/dates"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/faults"
)

const requestBookingKey = "booking.request"

type RequestBookingCommand struct {
	CommandID       string
	ListingID       string
	RenterID        string
	StartDate       string
	EndDate         string
	IdempotencyKeyV string
}

func (c RequestBookingCommand) Key() string { return requestBookingKey }

func (c RequestBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RequestBookingCommand) ResultPrototype() any { return &RequestBookingResult{} }

// The availability pre-check reads the calendar, so requests line up behind
// writers of the same listing.
func (c RequestBookingCommand) SerializationKey() string { return "listing:" + c.ListingID }

func (c RequestBookingCommand) Validate() error {
	if c.ListingID == "" {
		return faults.Validationf("booking: listing id is required")
	}
	if c.RenterID == "" {
		return faults.Validationf("booking: renter id is required")
	}
	if c.StartDate == "" || c.EndDate == "" {
		return faults.Validationf("booking: start and end dates are required")
	}
	return nil
}

type RequestBookingResult struct {
	BookingID  string `json:"booking_id"`
	Status     string `json:"status"`
	TotalCents int64  `json:"total_cents"`
	Currency   string `json:"currency"`
}

// FeeRates carries the platform commission in basis points.
type FeeRates struct {
	RenterBps int64
	ListerBps int64
}

func (r FeeRates) orDefaults() FeeRates {
	if r.RenterBps == 0 && r.ListerBps == 0 {
		return FeeRates{RenterBps: pricing.DefaultRenterFeeBps, ListerBps: pricing.DefaultListerFeeBps}
	}
	return r
}

type RequestBookingHandler struct {
	UoWFactory uow.UoWFactory
	Rates      FeeRates
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

var ErrUnitOfWorkRequired = errors.New("booking: unit of work required")

func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (*RequestBookingResult, error) {
	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		managed = true
	}
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	r, err := dates.ParseRange(cmd.StartDate, cmd.EndDate)
	if err != nil {
		return nil, faults.Validationf("booking: %v", err)
	}
	now := h.now()
	today := dates.FromTime(now)

	lst, err := unit.Listings().ByID(ctx, domainlisting.ListingID(cmd.ListingID))
	if err != nil {
		if errors.Is(err, domainlisting.ErrNotFound) {
			return nil, faults.NotFoundf("booking: listing %s not found", cmd.ListingID)
		}
		return nil, err
	}

	calendar, err := unit.Availability().Calendar(ctx, lst.ID)
	if err != nil {
		return nil, err
	}
	if conflict := calendar.ConflictingRange(r); conflict != nil {
		return nil, faults.Conflictf(conflict.StartKey(), conflict.EndKey(), "booking: requested dates are unavailable")
	}
	if r.Start.Before(today) {
		return nil, faults.Validationf("booking: start day is in the past")
	}

	rates := h.Rates.orDefaults()
	price, err := pricing.Quote(r.Days(), lst.DailyRate, rates.RenterBps, rates.ListerBps)
	if err != nil {
		return nil, faults.Validationf("booking: %v", err)
	}

	bk, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        domainbooking.BookingID(cmd.CommandID),
		ListingID: lst.ID,
		RenterID:  cmd.RenterID,
		OwnerID:   string(lst.Owner),
		Range:     r,
		Price:     price,
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	if err := unit.Bookings().Save(ctx, bk); err != nil {
		return nil, err
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), bk.Drain()); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	return &RequestBookingResult{
		BookingID:  string(bk.ID),
		Status:     string(bk.State),
		TotalCents: bk.Price.Total.Amount,
		Currency:   bk.Price.Total.Currency,
	}, nil
}

func (h *RequestBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *RequestBookingHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

var _ commands.Handler[RequestBookingCommand, *RequestBookingResult] = (*RequestBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*RequestBookingCommand)(nil)
var _ middleware.SerializedCommand = (*RequestBookingCommand)(nil)
