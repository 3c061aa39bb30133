package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "github.com/dog52841/Rentify-sub001/internal/domain/booking"
	domainpayment "github.com/dog52841/Rentify-sub001/internal/domain/payment"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/money"
)

type PaymentRepository struct {
	col *mongo.Collection
}

func NewPaymentRepository(db *mongo.Database) *PaymentRepository {
	col := db.Collection("agg_payment_order")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "created_at", Value: -1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &PaymentRepository{col: col}
}

func (r *PaymentRepository) ByID(ctx context.Context, id string) (*domainpayment.Order, error) {
	var doc orderDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainpayment.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *PaymentRepository) Save(ctx context.Context, order *domainpayment.Order) error {
	doc := newOrderDocument(order)
	filter := bson.M{"_id": doc.ID, "version": order.Version}
	doc.Version = order.Version + 1
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	order.Version = doc.Version
	return nil
}

func (r *PaymentRepository) ListByBooking(ctx context.Context, id domainbooking.BookingID) ([]*domainpayment.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.M{"booking_id": string(id)}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var out []*domainpayment.Order
	for cursor.Next(ctx) {
		var doc orderDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cursor.Err()
}

type orderDocument struct {
	ID         string `bson:"_id"`
	BookingID  string `bson:"booking_id"`
	ProviderID string `bson:"provider_id"`
	Amount     int64  `bson:"amount"`
	Currency   string `bson:"currency"`
	Status     string `bson:"status"`
	TxnID      string `bson:"txn_id,omitempty"`
	FailReason string `bson:"fail_reason,omitempty"`
	CreatedAt  int64  `bson:"created_at"`
	UpdatedAt  int64  `bson:"updated_at"`
	Version    int64  `bson:"version"`
}

func newOrderDocument(o *domainpayment.Order) orderDocument {
	return orderDocument{
		ID:         o.ID,
		BookingID:  string(o.BookingID),
		ProviderID: o.ProviderID,
		Amount:     o.Amount.Amount,
		Currency:   o.Amount.Currency,
		Status:     string(o.Status),
		TxnID:      o.TxnID,
		FailReason: o.FailReason,
		CreatedAt:  o.CreatedAt.UnixMilli(),
		UpdatedAt:  o.UpdatedAt.UnixMilli(),
		Version:    o.Version,
	}
}

func (d orderDocument) toAggregate() *domainpayment.Order {
	return &domainpayment.Order{
		ID:         d.ID,
		BookingID:  domainbooking.BookingID(d.BookingID),
		ProviderID: d.ProviderID,
		Amount:     money.Money{Amount: d.Amount, Currency: d.Currency},
		Status:     domainpayment.OrderStatus(d.Status),
		TxnID:      d.TxnID,
		FailReason: d.FailReason,
		CreatedAt:  timestampToTime(d.CreatedAt),
		UpdatedAt:  timestampToTime(d.UpdatedAt),
		Version:    d.Version,
	}
}
