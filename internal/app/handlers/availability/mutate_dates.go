package availability

import (
	"context"
	"errors"
	"time"

	"github.com/dog52841/Rentify-sub001/internal/app/commands"
	"github.com/dog52841/Rentify-sub001/internal/app/dto"
	"github.com/dog52841/Rentify-sub001/internal/app/middleware"
	"github.com/dog52841/Rentify-sub001/internal/app/outbox"
	"github.com/dog52841/Rentify-sub001/internal/app/uow"
	domainlisting "github.com/dog52841/Rentify-sub001/internal/domain/listing"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/dates"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/faults"
)

const mutateDatesKey = "availability.mutate"

const (
	OpAdd    = "add"
	OpRemove = "remove"
)

// MutateDatesCommand lets the listing owner manage manual blackouts. Days held
// by active bookings cannot be removed here; they are released by the booking
// lifecycle.
type MutateDatesCommand struct {
	ListingID string
	ActorID   string
	Op        string
	Dates     []string
}

func (c MutateDatesCommand) Key() string { return mutateDatesKey }

func (c MutateDatesCommand) SerializationKey() string { return "listing:" + c.ListingID }

type MutateDatesHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Now     func() time.Time
}

var ErrUnitOfWorkRequired = errors.New("availability: unit of work required")

func (h *MutateDatesHandler) Handle(ctx context.Context, cmd MutateDatesCommand) (*dto.Calendar, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, ErrUnitOfWorkRequired
	}
	now := h.now()

	lst, err := unit.Listings().ByID(ctx, domainlisting.ListingID(cmd.ListingID))
	if err != nil {
		if errors.Is(err, domainlisting.ErrNotFound) {
			return nil, faults.NotFoundf("availability: listing %s not found", cmd.ListingID)
		}
		return nil, err
	}
	if !lst.OwnedBy(cmd.ActorID) {
		return nil, faults.Authorizationf("availability: only the listing owner may edit the calendar")
	}
	if len(cmd.Dates) == 0 {
		return nil, faults.Validationf("availability: at least one date is required")
	}
	days := make([]dates.Day, 0, len(cmd.Dates))
	for _, key := range cmd.Dates {
		d, err := dates.Parse(key)
		if err != nil {
			return nil, faults.Validationf("availability: %q: %v", key, err)
		}
		days = append(days, d)
	}

	calendar, err := unit.Availability().Calendar(ctx, lst.ID)
	if err != nil {
		return nil, err
	}

	switch cmd.Op {
	case OpAdd:
		calendar.Block(days, now)
	case OpRemove:
		if err := h.guardActiveHolds(ctx, unit, lst.ID, days); err != nil {
			return nil, err
		}
		calendar.Unblock(days, now)
	default:
		return nil, faults.Validationf("availability: unknown op %q", cmd.Op)
	}

	if err := unit.Availability().Save(ctx, calendar); err != nil {
		return nil, err
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), calendar.Drain()); err != nil {
		return nil, err
	}

	view := dto.MapCalendar(calendar)
	return &view, nil
}

// guardActiveHolds refuses to free days reserved by an in-flight booking.
func (h *MutateDatesHandler) guardActiveHolds(ctx context.Context, unit uow.UnitOfWork, listingID domainlisting.ListingID, days []dates.Day) error {
	bookings, err := unit.Bookings().ListByListing(ctx, listingID)
	if err != nil {
		return err
	}
	for _, bk := range bookings {
		if !bk.HoldsCalendar() {
			continue
		}
		for _, d := range days {
			if bk.Range.Contains(d) {
				return faults.Conflictf(bk.Range.StartKey(), bk.Range.EndKey(), "availability: day %s is held by booking %s", d.Key(), bk.ID)
			}
		}
	}
	return nil
}

func (h *MutateDatesHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *MutateDatesHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

var _ commands.Handler[MutateDatesCommand, *dto.Calendar] = (*MutateDatesHandler)(nil)
var _ middleware.SerializedCommand = (*MutateDatesCommand)(nil)
