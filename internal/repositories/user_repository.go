package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PreferenceRepository resolves the "updates" notification preference for a
// batch of users in a single round trip. A nil value means the user never set
// the preference. Stores that know which users exist leave unknown users out
// of the map.
type PreferenceRepository interface {
	GetUpdatePreferences(ctx context.Context, userIDs []string) (map[string]*bool, error)
}

// PreferenceWriter stores a user's "updates" preference. A nil value clears it,
// which counts as opted in.
type PreferenceWriter interface {
	SetUpdatePreference(ctx context.Context, userID string, updates *bool) error
}

// ErrUserNotFound is returned when writing a preference for an unknown user
var ErrUserNotFound = errors.New("user not found")

// MongoUserRepository reads user documents from MongoDB
type MongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new MongoUserRepository
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{collection: db.Collection("users")}
}

type userPreferenceDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	Preferences struct {
		Notifications models.NotificationPreferences `bson:"notifications"`
	} `bson:"preferences"`
}

// GetUpdatePreferences projects only preferences.notifications.updates.
// Results are keyed by the ids as the caller spelled them. Malformed ids
// cannot name an existing user and are skipped.
func (r *MongoUserRepository) GetUpdatePreferences(ctx context.Context, userIDs []string) (map[string]*bool, error) {
	result := make(map[string]*bool, len(userIDs))
	requested, ids := requestedObjectIDs(userIDs)
	if len(ids) == 0 {
		return result, nil
	}

	findOptions := options.Find().SetProjection(bson.M{"preferences.notifications.updates": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("find user preferences: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []userPreferenceDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	for _, doc := range docs {
		for _, id := range requested[doc.ID] {
			result[id] = doc.Preferences.Notifications.Updates
		}
	}
	return result, nil
}

// requestedObjectIDs parses ids and remembers every spelling that mapped to
// each ObjectID, since hex parsing ignores case
func requestedObjectIDs(userIDs []string) (map[primitive.ObjectID][]string, []primitive.ObjectID) {
	requested := make(map[primitive.ObjectID][]string, len(userIDs))
	ids := make([]primitive.ObjectID, 0, len(userIDs))
	for _, id := range userIDs {
		objID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		if _, seen := requested[objID]; !seen {
			ids = append(ids, objID)
		}
		requested[objID] = append(requested[objID], id)
	}
	return requested, ids
}

// SetUpdatePreference sets or clears preferences.notifications.updates
func (r *MongoUserRepository) SetUpdatePreference(ctx context.Context, userID string, updates *bool) error {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("user %q: %w", userID, ErrInvalidID)
	}

	change := bson.M{"$unset": bson.M{"preferences.notifications.updates": ""}}
	if updates != nil {
		change = bson.M{"$set": bson.M{"preferences.notifications.updates": *updates}}
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, change)
	if err != nil {
		return fmt.Errorf("update user preferences: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
