package models

import "time"

// PinType distinguishes the two pin flavours
type PinType string

const (
	PinTypeEvent      PinType = "event"
	PinTypeDiscussion PinType = "discussion"
)

// Coordinates is a WGS84 point
type Coordinates struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// Pin is a location pin as handed to the fan-out pipeline by its callers
type Pin struct {
	ID                    string      `json:"id" validate:"required"`
	Type                  PinType     `json:"type" validate:"oneof=event discussion"`
	Title                 string      `json:"title" validate:"required"`
	Description           string      `json:"description,omitempty"`
	CreatorID             string      `json:"creator_id"`
	Creator               *User       `json:"creator,omitempty"`
	Coordinates           Coordinates `json:"coordinates"`
	ProximityRadiusMeters float64     `json:"proximity_radius_meters,omitempty"`
	StartDate             *time.Time  `json:"start_date,omitempty"`
	EndDate               *time.Time  `json:"end_date,omitempty"`
	ExpiresAt             *time.Time  `json:"expires_at,omitempty"`
	AttendeeIDs           []string    `json:"attendee_ids,omitempty"`
	IsActive              bool        `json:"is_active"`
}

// IsEvent reports whether the pin is an event
func (p Pin) IsEvent() bool {
	return p.Type == PinTypeEvent
}

// CreatorName returns the creator's display label when the creator was populated
func (p Pin) CreatorName() string {
	if p.Creator == nil {
		return User{}.Name()
	}
	return p.Creator.Name()
}

// PinPreview is the denormalized snapshot embedded in pin-bearing payloads.
// It is captured at fan-out time and never refreshed afterwards.
type PinPreview struct {
	ID                    string      `json:"id" bson:"id" validate:"required"`
	Type                  PinType     `json:"type" bson:"type" validate:"oneof=event discussion"`
	Title                 string      `json:"title" bson:"title"`
	Coordinates           Coordinates `json:"coordinates" bson:"coordinates"`
	ProximityRadiusMeters float64     `json:"proximity_radius_meters,omitempty" bson:"proximity_radius_meters,omitempty"`
	StartDate             *time.Time  `json:"start_date,omitempty" bson:"start_date,omitempty"`
	EndDate               *time.Time  `json:"end_date,omitempty" bson:"end_date,omitempty"`
	ExpiresAt             *time.Time  `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
}

// PinPreviewOf snapshots a pin
func PinPreviewOf(p Pin) PinPreview {
	return PinPreview{
		ID:                    p.ID,
		Type:                  p.Type,
		Title:                 p.Title,
		Coordinates:           p.Coordinates,
		ProximityRadiusMeters: p.ProximityRadiusMeters,
		StartDate:             copyTime(p.StartDate),
		EndDate:               copyTime(p.EndDate),
		ExpiresAt:             copyTime(p.ExpiresAt),
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Reply is a reply posted on a pin, optionally in response to another reply
type Reply struct {
	ID            string `json:"id" validate:"required"`
	PinID         string `json:"pin_id"`
	AuthorID      string `json:"author_id" validate:"required"`
	Message       string `json:"message"`
	ParentReplyID string `json:"parent_reply_id,omitempty"`
}
