package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PinRepository defines the time-range reads the sweep scheduler needs.
// Both ranges are (after, until]: exclusive lower bound, inclusive upper bound.
type PinRepository interface {
	ListEventsStartingBetween(ctx context.Context, after, until time.Time) ([]models.Pin, error)
	ListDiscussionsExpiringBetween(ctx context.Context, after, until time.Time) ([]models.Pin, error)
}

// MongoPinRepository implements PinRepository for MongoDB
type MongoPinRepository struct {
	collection *mongo.Collection
}

// NewMongoPinRepository creates a new MongoPinRepository
func NewMongoPinRepository(db *mongo.Database) *MongoPinRepository {
	return &MongoPinRepository{collection: db.Collection("pins")}
}

type geoPoint struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"` // [longitude, latitude]
}

type pinDocument struct {
	ID                    primitive.ObjectID   `bson:"_id,omitempty"`
	Type                  string               `bson:"type"`
	Title                 string               `bson:"title"`
	Description           string               `bson:"description,omitempty"`
	CreatorID             primitive.ObjectID   `bson:"creator_id"`
	Location              geoPoint             `bson:"location"`
	ProximityRadiusMeters float64              `bson:"proximity_radius_meters,omitempty"`
	StartDate             *time.Time           `bson:"start_date,omitempty"`
	EndDate               *time.Time           `bson:"end_date,omitempty"`
	ExpiresAt             *time.Time           `bson:"expires_at,omitempty"`
	AttendeeIDs           []primitive.ObjectID `bson:"attendee_ids,omitempty"`
	IsActive              bool                 `bson:"is_active"`
}

// EnsureIndexes creates the indexes backing the sweep range queries
func (r *MongoPinRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "type", Value: 1}, {Key: "is_active", Value: 1}, {Key: "start_date", Value: 1}},
			Options: options.Index().SetName("pins_event_start"),
		},
		{
			Keys:    bson.D{{Key: "type", Value: 1}, {Key: "is_active", Value: 1}, {Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("pins_discussion_expiry"),
		},
	})
	if err != nil {
		return fmt.Errorf("create pin indexes: %w", err)
	}
	return nil
}

// ListEventsStartingBetween returns active events whose start date is in (after, until]
func (r *MongoPinRepository) ListEventsStartingBetween(ctx context.Context, after, until time.Time) ([]models.Pin, error) {
	return r.findActive(ctx, models.PinTypeEvent, "start_date", after, until)
}

// ListDiscussionsExpiringBetween returns active discussions whose expiry is in (after, until]
func (r *MongoPinRepository) ListDiscussionsExpiringBetween(ctx context.Context, after, until time.Time) ([]models.Pin, error) {
	return r.findActive(ctx, models.PinTypeDiscussion, "expires_at", after, until)
}

func (r *MongoPinRepository) findActive(ctx context.Context, pinType models.PinType, field string, after, until time.Time) ([]models.Pin, error) {
	filter := bson.M{
		"type":      string(pinType),
		"is_active": true,
		field:       bson.M{"$gt": after, "$lte": until},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: field, Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("find %s pins by %s: %w", pinType, field, err)
	}
	defer cursor.Close(ctx)

	var docs []pinDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	pins := make([]models.Pin, 0, len(docs))
	for _, doc := range docs {
		pins = append(pins, fromPinDocument(doc))
	}
	return pins, nil
}

func fromPinDocument(doc pinDocument) models.Pin {
	pin := models.Pin{
		ID:                    doc.ID.Hex(),
		Type:                  models.PinType(doc.Type),
		Title:                 doc.Title,
		Description:           doc.Description,
		CreatorID:             doc.CreatorID.Hex(),
		Creator:               &models.User{ID: doc.CreatorID.Hex()},
		ProximityRadiusMeters: doc.ProximityRadiusMeters,
		StartDate:             doc.StartDate,
		EndDate:               doc.EndDate,
		ExpiresAt:             doc.ExpiresAt,
		IsActive:              doc.IsActive,
	}
	if len(doc.Location.Coordinates) == 2 {
		pin.Coordinates = models.Coordinates{
			Longitude: doc.Location.Coordinates[0],
			Latitude:  doc.Location.Coordinates[1],
		}
	}
	for _, id := range doc.AttendeeIDs {
		pin.AttendeeIDs = append(pin.AttendeeIDs, id.Hex())
	}
	return pin
}
