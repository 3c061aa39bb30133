package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dog52841/Rentify-sub001/internal/app/uow"
	domainavailability "github.com/dog52841/Rentify-sub001/internal/domain/availability"
	domainbooking "github.com/dog52841/Rentify-sub001/internal/domain/booking"
	domainlisting "github.com/dog52841/Rentify-sub001/internal/domain/listing"
	domainpayment "github.com/dog52841/Rentify-sub001/internal/domain/payment"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	ListingsRepo     domainlisting.Repository
	AvailabilityRepo domainavailability.Repository
	BookingRepo      domainbooking.Repository
	PaymentRepo      domainpayment.Repository
}

// NewFactory builds a factory with repositories bound to db.
func NewFactory(db *mongo.Database) Factory {
	return Factory{
		DB:               db,
		ListingsRepo:     NewListingRepository(db),
		AvailabilityRepo: NewAvailabilityRepository(db),
		BookingRepo:      NewBookingRepository(db),
		PaymentRepo:      NewPaymentRepository(db),
	}
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		db:           f.DB,
		session:      session,
		listings:     f.ListingsRepo,
		availability: f.AvailabilityRepo,
		bookings:     f.BookingRepo,
		payments:     f.PaymentRepo,
	}, nil
}

type Unit struct {
	db      *mongo.Database
	session mongo.Session

	listings     domainlisting.Repository
	availability domainavailability.Repository
	bookings     domainbooking.Repository
	payments     domainpayment.Repository
}

func (u *Unit) Listings() domainlisting.Repository { return u.listings }

func (u *Unit) Availability() domainavailability.Repository { return u.availability }

func (u *Unit) Bookings() domainbooking.Repository { return u.bookings }

func (u *Unit) Payments() domainpayment.Repository { return u.payments }

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures the Mongo session is available to downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}
