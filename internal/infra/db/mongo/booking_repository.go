package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "github.com/dog52841/Rentify-sub001/internal/domain/booking"
	domainlisting "github.com/dog52841/Rentify-sub001/internal/domain/listing"
	domainpricing "github.com/dog52841/Rentify-sub001/internal/domain/pricing"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/dates"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/money"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	col := db.Collection("agg_booking")
	for _, idx := range []mongo.IndexModel{
		{Keys: bson.D{{Key: "renter_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "listing_id", Value: 1}}},
		{Keys: bson.D{{Key: "state", Value: 1}, {Key: "end_day", Value: 1}}},
	} {
		_, _ = col.Indexes().CreateOne(context.Background(), idx)
	}
	return &BookingRepository{col: col}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate()
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ListByRenter(ctx context.Context, renterID string) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.list(ctx, bson.M{"renter_id": renterID}, opts)
}

func (r *BookingRepository) ListByListing(ctx context.Context, listingID domainlisting.ListingID) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.list(ctx, bson.M{"listing_id": string(listingID)}, opts)
}

func (r *BookingRepository) ListConfirmedEndingBefore(ctx context.Context, day dates.Day) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"state":   string(domainbooking.StateConfirmed),
		"end_day": bson.M{"$lt": day.Key()},
	}
	return r.list(ctx, filter, options.Find())
}

func (r *BookingRepository) list(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domainbooking.Booking, error) {
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var out []*domainbooking.Booking
	for cursor.Next(ctx) {
		var doc bookingDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		agg, err := doc.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	return out, cursor.Err()
}

type bookingDocument struct {
	ID        string        `bson:"_id"`
	ListingID string        `bson:"listing_id"`
	RenterID  string        `bson:"renter_id"`
	OwnerID   string        `bson:"owner_id"`
	StartDay  string        `bson:"start_day"`
	EndDay    string        `bson:"end_day"`
	Price     priceDocument `bson:"price"`
	State     string        `bson:"state"`
	OrderID   string        `bson:"order_id,omitempty"`
	TxnID     string        `bson:"txn_id,omitempty"`
	CreatedAt int64         `bson:"created_at"`
	UpdatedAt int64         `bson:"updated_at"`
	Version   int64         `bson:"version"`
}

type priceDocument struct {
	Days         int    `bson:"days"`
	Currency     string `bson:"currency"`
	DailyRate    int64  `bson:"daily_rate"`
	Subtotal     int64  `bson:"subtotal"`
	RenterFee    int64  `bson:"renter_fee"`
	ListerFee    int64  `bson:"lister_fee"`
	Total        int64  `bson:"total"`
	ListerPayout int64  `bson:"lister_payout"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:        string(b.ID),
		ListingID: string(b.ListingID),
		RenterID:  b.RenterID,
		OwnerID:   b.OwnerID,
		StartDay:  b.Range.StartKey(),
		EndDay:    b.Range.EndKey(),
		Price: priceDocument{
			Days:         b.Price.Days,
			Currency:     b.Price.Total.Currency,
			DailyRate:    b.Price.DailyRate.Amount,
			Subtotal:     b.Price.Subtotal.Amount,
			RenterFee:    b.Price.RenterFee.Amount,
			ListerFee:    b.Price.ListerFee.Amount,
			Total:        b.Price.Total.Amount,
			ListerPayout: b.Price.ListerPayout.Amount,
		},
		State:     string(b.State),
		OrderID:   b.OrderID,
		TxnID:     b.TxnID,
		CreatedAt: b.CreatedAt.UnixMilli(),
		UpdatedAt: b.UpdatedAt.UnixMilli(),
		Version:   b.Version,
	}
}

func (d bookingDocument) toAggregate() (*domainbooking.Booking, error) {
	r, err := dates.ParseRange(d.StartDay, d.EndDay)
	if err != nil {
		return nil, err
	}
	cur := d.Price.Currency
	agg := &domainbooking.Booking{
		ID:        domainbooking.BookingID(d.ID),
		ListingID: domainlisting.ListingID(d.ListingID),
		RenterID:  d.RenterID,
		OwnerID:   d.OwnerID,
		Range:     r,
		Price: domainpricing.Breakdown{
			Days:         d.Price.Days,
			DailyRate:    money.Money{Amount: d.Price.DailyRate, Currency: cur},
			Subtotal:     money.Money{Amount: d.Price.Subtotal, Currency: cur},
			RenterFee:    money.Money{Amount: d.Price.RenterFee, Currency: cur},
			ListerFee:    money.Money{Amount: d.Price.ListerFee, Currency: cur},
			Total:        money.Money{Amount: d.Price.Total, Currency: cur},
			ListerPayout: money.Money{Amount: d.Price.ListerPayout, Currency: cur},
		},
		State:     domainbooking.State(d.State),
		OrderID:   d.OrderID,
		TxnID:     d.TxnID,
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
		Version:   d.Version,
	}
	return agg, nil
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
