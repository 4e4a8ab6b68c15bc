package models

import (
	"encoding/json"
	"time"
)

// UpdateType is the payload discriminator persisted with every update.
// Values are part of the storage contract and must never be repurposed.
type UpdateType string

const (
	UpdateTypeNewPin                 UpdateType = "new-pin"
	UpdateTypePinUpdate              UpdateType = "pin-update"
	UpdateTypeEventStartingSoon      UpdateType = "event-starting-soon"
	UpdateTypeDiscussionExpiringSoon UpdateType = "discussion-expiring-soon"
	UpdateTypeBookmarkUpdate         UpdateType = "bookmark-update"
	UpdateTypeChatMessage            UpdateType = "chat-message"
	UpdateTypeFriendRequest          UpdateType = "friend-request"
	UpdateTypeBadgeEarned            UpdateType = "badge-earned"
	UpdateTypeSystem                 UpdateType = "system"
)

// Update is one feed entry for one recipient. Payload is a closed sum type
// rendered and stored through PayloadEnvelope.
type Update struct {
	ID              string     `json:"id"`
	RecipientUserID string     `json:"recipient_user_id"`
	SourceUserID    *string    `json:"source_user_id,omitempty"`
	TargetUserIDs   []string   `json:"target_user_ids,omitempty"`
	SourceEntityID  string     `json:"source_entity_id,omitempty"`
	WindowLabel     string     `json:"window_label,omitempty"`
	Payload         Payload    `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	DeliveredAt     *time.Time `json:"delivered_at,omitempty"`
	ReadAt          *time.Time `json:"read_at,omitempty"`
}

// MarshalJSON renders the payload through its envelope so readers see the
// same shape that is stored
func (u Update) MarshalJSON() ([]byte, error) {
	type plain Update
	var env *PayloadEnvelope
	if u.Payload != nil {
		e := EnvelopeOf(u.Payload)
		env = &e
	}
	return json.Marshal(struct {
		plain
		Payload *PayloadEnvelope `json:"payload,omitempty"`
	}{plain: plain(u), Payload: env})
}

// RelatedEntity is a lookup key pointing at something the update mentions.
// It never implies ownership.
type RelatedEntity struct {
	ID      string `json:"id" bson:"id" validate:"required"`
	Type    string `json:"type" bson:"type" validate:"required"`
	Label   string `json:"label,omitempty" bson:"label,omitempty"`
	Summary string `json:"summary,omitempty" bson:"summary,omitempty"`
}
