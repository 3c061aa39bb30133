package memory

import (
	"context"
	"errors"

	"github.com/dog52841/Rentify-sub001/internal/app/uow"
	domainavailability "github.com/dog52841/Rentify-sub001/internal/domain/availability"
	domainbooking "github.com/dog52841/Rentify-sub001/internal/domain/booking"
	domainlisting "github.com/dog52841/Rentify-sub001/internal/domain/listing"
	domainpayment "github.com/dog52841/Rentify-sub001/internal/domain/payment"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	ListingsRepo     domainlisting.Repository
	AvailabilityRepo domainavailability.Repository
	BookingRepo      domainbooking.Repository
	PaymentRepo      domainpayment.Repository
}

var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// NewFactory builds a factory over fresh empty stores.
func NewFactory() Factory {
	return Factory{
		ListingsRepo:     NewListingRepository(),
		AvailabilityRepo: NewAvailabilityRepository(),
		BookingRepo:      NewBookingRepository(),
		PaymentRepo:      NewPaymentRepository(),
	}
}

// Begin starts a lightweight transaction boundary. The memory stores apply
// writes on Save, so Commit and Rollback are observation points only; the
// clone-on-read repositories keep aborted commands from leaking mutations.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.ListingsRepo == nil || f.AvailabilityRepo == nil || f.BookingRepo == nil || f.PaymentRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		listings:     f.ListingsRepo,
		availability: f.AvailabilityRepo,
		bookings:     f.BookingRepo,
		payments:     f.PaymentRepo,
	}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	listings     domainlisting.Repository
	availability domainavailability.Repository
	bookings     domainbooking.Repository
	payments     domainpayment.Repository
}

func (u *Unit) Listings() domainlisting.Repository { return u.listings }

func (u *Unit) Availability() domainavailability.Repository { return u.availability }

func (u *Unit) Bookings() domainbooking.Repository { return u.bookings }

func (u *Unit) Payments() domainpayment.Repository { return u.payments }

func (u *Unit) Commit(ctx context.Context) error { return nil }

func (u *Unit) Rollback(ctx context.Context) error { return nil }
