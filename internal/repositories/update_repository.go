package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrInvalidID is returned when an id is not a valid ObjectID hex string
var ErrInvalidID = errors.New("invalid id")

const duplicateKeyCode = 11000

// UpdateRepository defines the persistence operations for update records
type UpdateRepository interface {
	InsertMany(ctx context.Context, updates []models.Update) (InsertResult, error)
	ListByRecipient(ctx context.Context, recipientID string, skip, limit int64) ([]models.Update, error)
	CountByRecipient(ctx context.Context, recipientID string) (int64, error)
}

// RecordFailure describes one record the store refused
type RecordFailure struct {
	Index           int
	RecipientUserID string
	Err             error
}

// InsertResult summarizes an unordered batch insert. Duplicates are records
// rejected by the idempotency index, i.e. already notified.
type InsertResult struct {
	Inserted   int
	Duplicates int
	Failures   []RecordFailure
}

// MongoUpdateRepository implements UpdateRepository for MongoDB
type MongoUpdateRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoUpdateRepository creates a new MongoUpdateRepository
func NewMongoUpdateRepository(db *mongo.Database) *MongoUpdateRepository {
	return &MongoUpdateRepository{collection: db.Collection("updates"), now: time.Now}
}

type updateDocument struct {
	ID              primitive.ObjectID     `bson:"_id,omitempty"`
	RecipientUserID primitive.ObjectID     `bson:"recipient_user_id"`
	SourceUserID    *primitive.ObjectID    `bson:"source_user_id,omitempty"`
	TargetUserIDs   []primitive.ObjectID   `bson:"target_user_ids,omitempty"`
	SourceEntityID  string                 `bson:"source_entity_id,omitempty"`
	WindowLabel     string                 `bson:"window_label,omitempty"`
	Payload         models.PayloadEnvelope `bson:"payload"`
	CreatedAt       time.Time              `bson:"created_at"`
	DeliveredAt     *time.Time             `bson:"delivered_at,omitempty"`
	ReadAt          *time.Time             `bson:"read_at,omitempty"`
}

// EnsureIndexes creates the listing index and the idempotency index used by
// scheduler-driven updates
func (r *MongoUpdateRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "recipient_user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("updates_recipient_recent"),
		},
		{
			Keys: bson.D{
				{Key: "source_entity_id", Value: 1},
				{Key: "window_label", Value: 1},
				{Key: "recipient_user_id", Value: 1},
			},
			Options: options.Index().
				SetName("updates_window_idempotency").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"window_label": bson.M{"$exists": true}}),
		},
	})
	if err != nil {
		return fmt.Errorf("create update indexes: %w", err)
	}
	return nil
}

// InsertMany writes all records in one unordered batch. A record that cannot
// be written never prevents the others from persisting.
func (r *MongoUpdateRepository) InsertMany(ctx context.Context, updates []models.Update) (InsertResult, error) {
	var result InsertResult
	if len(updates) == 0 {
		return result, nil
	}

	now := r.now().UTC()
	docs := make([]interface{}, 0, len(updates))
	positions := make([]int, 0, len(updates))
	for i, u := range updates {
		doc, err := toUpdateDocument(u, now)
		if err != nil {
			result.Failures = append(result.Failures, RecordFailure{Index: i, RecipientUserID: u.RecipientUserID, Err: err})
			continue
		}
		docs = append(docs, doc)
		positions = append(positions, i)
	}
	if len(docs) == 0 {
		return result, nil
	}

	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		result.Inserted = len(docs)
		return result, nil
	}

	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) {
		return result, fmt.Errorf("insert updates: %w", err)
	}
	for _, we := range bwe.WriteErrors {
		index := -1
		if we.Index >= 0 && we.Index < len(positions) {
			index = positions[we.Index]
		}
		if we.Code == duplicateKeyCode {
			result.Duplicates++
			continue
		}
		recipient := ""
		if index >= 0 {
			recipient = updates[index].RecipientUserID
		}
		result.Failures = append(result.Failures, RecordFailure{
			Index:           index,
			RecipientUserID: recipient,
			Err:             fmt.Errorf("write error %d: %s", we.Code, we.Message),
		})
	}
	result.Inserted = len(docs) - len(bwe.WriteErrors)
	if bwe.WriteConcernError != nil {
		return result, fmt.Errorf("insert updates: write concern: %s", bwe.WriteConcernError.Message)
	}
	return result, nil
}

// ListByRecipient returns a recipient's updates, most recent first
func (r *MongoUpdateRepository) ListByRecipient(ctx context.Context, recipientID string, skip, limit int64) ([]models.Update, error) {
	objID, err := primitive.ObjectIDFromHex(recipientID)
	if err != nil {
		return nil, fmt.Errorf("recipient %q: %w", recipientID, ErrInvalidID)
	}

	findOptions := options.Find().
		SetSkip(skip).
		SetLimit(limit).
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"recipient_user_id": objID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []updateDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	updates := make([]models.Update, 0, len(docs))
	for _, doc := range docs {
		u, err := fromUpdateDocument(doc)
		if err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}
	return updates, nil
}

// CountByRecipient counts a recipient's updates
func (r *MongoUpdateRepository) CountByRecipient(ctx context.Context, recipientID string) (int64, error) {
	objID, err := primitive.ObjectIDFromHex(recipientID)
	if err != nil {
		return 0, fmt.Errorf("recipient %q: %w", recipientID, ErrInvalidID)
	}
	return r.collection.CountDocuments(ctx, bson.M{"recipient_user_id": objID})
}

func toUpdateDocument(u models.Update, now time.Time) (updateDocument, error) {
	recipient, err := primitive.ObjectIDFromHex(u.RecipientUserID)
	if err != nil {
		return updateDocument{}, fmt.Errorf("recipient %q: %w", u.RecipientUserID, ErrInvalidID)
	}
	if u.Payload == nil {
		return updateDocument{}, fmt.Errorf("recipient %s: missing payload", u.RecipientUserID)
	}

	doc := updateDocument{
		ID:              primitive.NewObjectID(),
		RecipientUserID: recipient,
		TargetUserIDs:   objectIDs(u.TargetUserIDs),
		SourceEntityID:  u.SourceEntityID,
		WindowLabel:     u.WindowLabel,
		Payload:         models.EnvelopeOf(u.Payload),
		CreatedAt:       now,
		DeliveredAt:     &now,
	}
	if u.SourceUserID != nil {
		if id, err := primitive.ObjectIDFromHex(*u.SourceUserID); err == nil {
			doc.SourceUserID = &id
		}
	}
	return doc, nil
}

func fromUpdateDocument(doc updateDocument) (models.Update, error) {
	payload, err := doc.Payload.Payload()
	if err != nil {
		return models.Update{}, fmt.Errorf("update %s: %w", doc.ID.Hex(), err)
	}
	u := models.Update{
		ID:              doc.ID.Hex(),
		RecipientUserID: doc.RecipientUserID.Hex(),
		SourceEntityID:  doc.SourceEntityID,
		WindowLabel:     doc.WindowLabel,
		Payload:         payload,
		CreatedAt:       doc.CreatedAt,
		DeliveredAt:     doc.DeliveredAt,
		ReadAt:          doc.ReadAt,
	}
	if doc.SourceUserID != nil {
		source := doc.SourceUserID.Hex()
		u.SourceUserID = &source
	}
	for _, id := range doc.TargetUserIDs {
		u.TargetUserIDs = append(u.TargetUserIDs, id.Hex())
	}
	return u, nil
}

// objectIDs converts hex ids, silently dropping the malformed ones
func objectIDs(ids []string) []primitive.ObjectID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if objID, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, objID)
		}
	}
	return out
}
