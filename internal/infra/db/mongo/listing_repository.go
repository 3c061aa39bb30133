package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlisting "github.com/dog52841/Rentify-sub001/internal/domain/listing"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/money"
)

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection("ref_listing")}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlisting.ListingID) (*domainlisting.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlisting.ErrNotFound
		}
		return nil, err
	}
	return &domainlisting.Listing{
		ID:        domainlisting.ListingID(doc.ID),
		Owner:     domainlisting.OwnerID(doc.OwnerID),
		Title:     doc.Title,
		DailyRate: money.Money{Amount: doc.DailyRate, Currency: doc.Currency},
	}, nil
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlisting.Listing) error {
	doc := listingDocument{
		ID:        string(listing.ID),
		OwnerID:   string(listing.Owner),
		Title:     listing.Title,
		DailyRate: listing.DailyRate.Amount,
		Currency:  listing.DailyRate.Currency,
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

type listingDocument struct {
	ID        string `bson:"_id"`
	OwnerID   string `bson:"owner_id"`
	Title     string `bson:"title"`
	DailyRate int64  `bson:"daily_rate"`
	Currency  string `bson:"currency"`
}
