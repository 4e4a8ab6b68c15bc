package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Payload is the closed set of update bodies. Only the types in this file
// implement it.
type Payload interface {
	Type() UpdateType
	Contents() Content
	Metadata() map[string]any
	isPayload()
}

// PinPayload is implemented by the variants that embed a pin snapshot
type PinPayload interface {
	Payload
	PinSnapshot() PinPreview
}

// Content holds the fields shared by every variant
type Content struct {
	Title           string          `json:"title" validate:"required,max=200"`
	Body            string          `json:"body,omitempty" validate:"max=280"`
	RelatedEntities []RelatedEntity `json:"related_entities,omitempty" validate:"dive"`
}

// Contents returns the shared fields
func (c Content) Contents() Content { return c }

// PinUpdateSubtype says what changed on the pin
type PinUpdateSubtype string

const (
	PinUpdateReply            PinUpdateSubtype = "reply"
	PinUpdateAttendanceChange PinUpdateSubtype = "attendance-change"
)

type NewPinPayload struct {
	Content
	Pin         PinPreview
	CreatorName string
}

func (NewPinPayload) Type() UpdateType          { return UpdateTypeNewPin }
func (p NewPinPayload) PinSnapshot() PinPreview { return p.Pin }
func (NewPinPayload) isPayload()                {}
func (p NewPinPayload) Metadata() map[string]any {
	return map[string]any{"pin_type": string(p.Pin.Type), "creator_name": p.CreatorName}
}

type PinUpdatePayload struct {
	Content
	Subtype       PinUpdateSubtype `validate:"oneof=reply attendance-change"`
	Pin           PinPreview
	ActorName     string
	ReplyID       string
	ParentReplyID string
	Attending     bool
}

func (PinUpdatePayload) Type() UpdateType          { return UpdateTypePinUpdate }
func (p PinUpdatePayload) PinSnapshot() PinPreview { return p.Pin }
func (PinUpdatePayload) isPayload()                {}
func (p PinUpdatePayload) Metadata() map[string]any {
	m := map[string]any{"subtype": string(p.Subtype), "actor_name": p.ActorName}
	switch p.Subtype {
	case PinUpdateReply:
		m["reply_id"] = p.ReplyID
		if p.ParentReplyID != "" {
			m["parent_reply_id"] = p.ParentReplyID
		}
	case PinUpdateAttendanceChange:
		m["attending"] = p.Attending
	}
	return m
}

type EventStartingSoonPayload struct {
	Content
	Pin         PinPreview
	WindowLabel string  `validate:"required"`
	WindowHours float64 `validate:"gt=0"`
}

func (EventStartingSoonPayload) Type() UpdateType          { return UpdateTypeEventStartingSoon }
func (p EventStartingSoonPayload) PinSnapshot() PinPreview { return p.Pin }
func (EventStartingSoonPayload) isPayload()                {}
func (p EventStartingSoonPayload) Metadata() map[string]any {
	return map[string]any{"window": p.WindowLabel, "window_hours": p.WindowHours}
}

type DiscussionExpiringSoonPayload struct {
	Content
	Pin         PinPreview
	WindowLabel string  `validate:"required"`
	WindowHours float64 `validate:"gt=0"`
}

func (DiscussionExpiringSoonPayload) Type() UpdateType          { return UpdateTypeDiscussionExpiringSoon }
func (p DiscussionExpiringSoonPayload) PinSnapshot() PinPreview { return p.Pin }
func (DiscussionExpiringSoonPayload) isPayload()                {}
func (p DiscussionExpiringSoonPayload) Metadata() map[string]any {
	return map[string]any{"window": p.WindowLabel, "window_hours": p.WindowHours}
}

type BookmarkUpdatePayload struct {
	Content
	Pin            PinPreview
	BookmarkerName string
}

func (BookmarkUpdatePayload) Type() UpdateType          { return UpdateTypeBookmarkUpdate }
func (p BookmarkUpdatePayload) PinSnapshot() PinPreview { return p.Pin }
func (BookmarkUpdatePayload) isPayload()                {}
func (p BookmarkUpdatePayload) Metadata() map[string]any {
	return map[string]any{"bookmarker_name": p.BookmarkerName}
}

type ChatMessagePayload struct {
	Content
	RoomID     string `validate:"required"`
	RoomName   string
	MessageID  string `validate:"required"`
	AuthorName string
}

func (ChatMessagePayload) Type() UpdateType { return UpdateTypeChatMessage }
func (ChatMessagePayload) isPayload()       {}
func (p ChatMessagePayload) Metadata() map[string]any {
	return map[string]any{
		"room_id":     p.RoomID,
		"room_name":   p.RoomName,
		"message_id":  p.MessageID,
		"author_name": p.AuthorName,
	}
}

type FriendRequestPayload struct {
	Content
	RequestID     string `validate:"required"`
	RequesterName string
}

func (FriendRequestPayload) Type() UpdateType { return UpdateTypeFriendRequest }
func (FriendRequestPayload) isPayload()       {}
func (p FriendRequestPayload) Metadata() map[string]any {
	return map[string]any{"request_id": p.RequestID, "requester_name": p.RequesterName}
}

type BadgeEarnedPayload struct {
	Content
	BadgeID    string `validate:"required"`
	BadgeLabel string
}

func (BadgeEarnedPayload) Type() UpdateType { return UpdateTypeBadgeEarned }
func (BadgeEarnedPayload) isPayload()       {}
func (p BadgeEarnedPayload) Metadata() map[string]any {
	return map[string]any{"badge_id": p.BadgeID, "badge_label": p.BadgeLabel}
}

type SystemPayload struct {
	Content
	Category string
}

func (SystemPayload) Type() UpdateType { return UpdateTypeSystem }
func (SystemPayload) isPayload()       {}
func (p SystemPayload) Metadata() map[string]any {
	if p.Category == "" {
		return nil
	}
	return map[string]any{"category": p.Category}
}

var validate = validator.New()

// ValidatePayload checks the required fields of a built payload
func ValidatePayload(p Payload) error {
	if p == nil {
		return fmt.Errorf("payload is nil")
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid %s payload: %w", p.Type(), err)
	}
	return nil
}
