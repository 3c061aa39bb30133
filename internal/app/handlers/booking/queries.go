package booking

import (
	"context"
	"errors"

	"github.com/dog52841/Rentify-sub001/internal/app/dto"
	"github.com/dog52841/Rentify-sub001/internal/app/handlers/support"
	"github.com/dog52841/Rentify-sub001/internal/app/queries"
	"github.com/dog52841/Rentify-sub001/internal/app/uow"
	domainbooking "github.com/dog52841/Rentify-sub001/internal/domain/booking"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/faults"
)

const (
	getBookingKey         = "booking.get"
	listRenterBookingsKey = "booking.list_renter"
)

type GetBookingQuery struct {
	BookingID string
	ActorID   string
}

func (q GetBookingQuery) Key() string { return getBookingKey }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (*dto.BookingView, error) {
	unit, ctx, done, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer done()

	bk, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		if errors.Is(err, domainbooking.ErrNotFound) {
			return nil, faults.NotFoundf("booking: %s not found", q.BookingID)
		}
		return nil, err
	}
	if q.ActorID != "" && q.ActorID != bk.RenterID && q.ActorID != bk.OwnerID {
		return nil, faults.Authorizationf("booking: only participants may view a booking")
	}
	view := dto.MapBooking(bk)
	return &view, nil
}

type ListRenterBookingsQuery struct {
	RenterID string
}

func (q ListRenterBookingsQuery) Key() string { return listRenterBookingsKey }

type ListRenterBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListRenterBookingsHandler) Handle(ctx context.Context, q ListRenterBookingsQuery) (*dto.BookingCollection, error) {
	unit, ctx, done, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer done()

	items, err := unit.Bookings().ListByRenter(ctx, q.RenterID)
	if err != nil {
		return nil, err
	}
	coll := dto.BookingCollection{Items: make([]dto.BookingView, 0, len(items))}
	for _, bk := range items {
		coll.Items = append(coll.Items, dto.MapBooking(bk))
	}
	return &coll, nil
}

var _ queries.Handler[GetBookingQuery, *dto.BookingView] = (*GetBookingHandler)(nil)
var _ queries.Handler[ListRenterBookingsQuery, *dto.BookingCollection] = (*ListRenterBookingsHandler)(nil)
