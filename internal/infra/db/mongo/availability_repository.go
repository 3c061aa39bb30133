package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "github.com/dog52841/Rentify-sub001/internal/domain/availability"
	domainlisting "github.com/dog52841/Rentify-sub001/internal/domain/listing"
)

// AvailabilityRepository persists one document per listing holding the
// blocked day-key set. Writes compare-and-set on the version field, so two
// approvals racing on one calendar cannot both commit.
type AvailabilityRepository struct {
	col *mongo.Collection
}

func NewAvailabilityRepository(db *mongo.Database) *AvailabilityRepository {
	return &AvailabilityRepository{col: db.Collection("agg_calendar")}
}

func (r *AvailabilityRepository) Calendar(ctx context.Context, id domainlisting.ListingID) (*domainavailability.Calendar, error) {
	var doc calendarDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domainavailability.NewCalendar(id), nil
		}
		return nil, err
	}
	return domainavailability.Restore(id, doc.Version, doc.Days), nil
}

func (r *AvailabilityRepository) Save(ctx context.Context, calendar *domainavailability.Calendar) error {
	doc := calendarDocument{
		ID:      string(calendar.ListingID),
		Days:    calendar.Unavailable(),
		Version: calendar.Version + 1,
	}
	filter := bson.M{"_id": doc.ID, "version": calendar.Version}
	if calendar.Version == 0 {
		filter = bson.M{"_id": doc.ID, "version": bson.M{"$in": []int64{0}}}
	}
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
	calendar.Version = doc.Version
	return nil
}

type calendarDocument struct {
	ID      string   `bson:"_id"`
	Days    []string `bson:"days"`
	Version int64    `bson:"version"`
}
