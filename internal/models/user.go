package models

// User is the subset of a user document the fan-out pipeline reads.
// FollowerIDs must already be populated by the caller when the user is a pin
// creator; the pipeline never loads the social graph on its own.
type User struct {
	ID          string   `json:"id" bson:"id" validate:"required"`
	Username    string   `json:"username,omitempty" bson:"username,omitempty"`
	DisplayName string   `json:"display_name,omitempty" bson:"display_name,omitempty"`
	FollowerIDs []string `json:"follower_ids,omitempty" bson:"follower_ids,omitempty"`
}

// Name returns the best human-readable label for the user
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Username != "" {
		return u.Username
	}
	return "Someone"
}

// NotificationPreferences mirrors preferences.notifications on a user document.
// A nil Updates means the user never chose, which counts as opted in.
type NotificationPreferences struct {
	Updates *bool `json:"updates,omitempty" bson:"updates,omitempty"`
}

// Badge is an achievement granted to a user
type Badge struct {
	ID          string `json:"id" validate:"required"`
	Label       string `json:"label" validate:"required"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// FriendRequest is a pending request between two users
type FriendRequest struct {
	ID          string `json:"id" validate:"required"`
	RequesterID string `json:"requester_id" validate:"required"`
	RecipientID string `json:"recipient_id" validate:"required"`
	Message     string `json:"message,omitempty"`
}
