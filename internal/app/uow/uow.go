package uow

import (
	"context"

	domainavailability "github.com/dog52841/Rentify-sub001/internal/domain/availability"
	domainbooking "github.com/dog52841/Rentify-sub001/internal/domain/booking"
	domainlisting "github.com/dog52841/Rentify-sub001/internal/domain/listing"
	domainpayment "github.com/dog52841/Rentify-sub001/internal/domain/payment"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Listings() domainlisting.Repository
	Availability() domainavailability.Repository
	Bookings() domainbooking.Repository
	Payments() domainpayment.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
