package models

import "fmt"

// PayloadEnvelope is the flat stored and rendered shape of a payload:
// a type discriminator, the shared content, kind-specific metadata and the
// optional pin snapshot.
type PayloadEnvelope struct {
	Type            UpdateType      `json:"type" bson:"type"`
	Title           string          `json:"title" bson:"title"`
	Body            string          `json:"body,omitempty" bson:"body,omitempty"`
	Metadata        map[string]any  `json:"metadata,omitempty" bson:"metadata,omitempty"`
	RelatedEntities []RelatedEntity `json:"related_entities,omitempty" bson:"related_entities,omitempty"`
	Pin             *PinPreview     `json:"pin,omitempty" bson:"pin,omitempty"`
}

// EnvelopeOf flattens a payload
func EnvelopeOf(p Payload) PayloadEnvelope {
	c := p.Contents()
	env := PayloadEnvelope{
		Type:            p.Type(),
		Title:           c.Title,
		Body:            c.Body,
		Metadata:        p.Metadata(),
		RelatedEntities: c.RelatedEntities,
	}
	if pp, ok := p.(PinPayload); ok {
		pin := pp.PinSnapshot()
		env.Pin = &pin
	}
	return env
}

// Payload rebuilds the concrete variant named by the envelope's type
func (e PayloadEnvelope) Payload() (Payload, error) {
	c := Content{Title: e.Title, Body: e.Body, RelatedEntities: e.RelatedEntities}
	m := e.Metadata
	var pin PinPreview
	if e.Pin != nil {
		pin = *e.Pin
	}

	switch e.Type {
	case UpdateTypeNewPin:
		return NewPinPayload{Content: c, Pin: pin, CreatorName: metaString(m, "creator_name")}, nil
	case UpdateTypePinUpdate:
		return PinUpdatePayload{
			Content:       c,
			Subtype:       PinUpdateSubtype(metaString(m, "subtype")),
			Pin:           pin,
			ActorName:     metaString(m, "actor_name"),
			ReplyID:       metaString(m, "reply_id"),
			ParentReplyID: metaString(m, "parent_reply_id"),
			Attending:     metaBool(m, "attending"),
		}, nil
	case UpdateTypeEventStartingSoon:
		return EventStartingSoonPayload{
			Content:     c,
			Pin:         pin,
			WindowLabel: metaString(m, "window"),
			WindowHours: metaFloat(m, "window_hours"),
		}, nil
	case UpdateTypeDiscussionExpiringSoon:
		return DiscussionExpiringSoonPayload{
			Content:     c,
			Pin:         pin,
			WindowLabel: metaString(m, "window"),
			WindowHours: metaFloat(m, "window_hours"),
		}, nil
	case UpdateTypeBookmarkUpdate:
		return BookmarkUpdatePayload{Content: c, Pin: pin, BookmarkerName: metaString(m, "bookmarker_name")}, nil
	case UpdateTypeChatMessage:
		return ChatMessagePayload{
			Content:    c,
			RoomID:     metaString(m, "room_id"),
			RoomName:   metaString(m, "room_name"),
			MessageID:  metaString(m, "message_id"),
			AuthorName: metaString(m, "author_name"),
		}, nil
	case UpdateTypeFriendRequest:
		return FriendRequestPayload{Content: c, RequestID: metaString(m, "request_id"), RequesterName: metaString(m, "requester_name")}, nil
	case UpdateTypeBadgeEarned:
		return BadgeEarnedPayload{Content: c, BadgeID: metaString(m, "badge_id"), BadgeLabel: metaString(m, "badge_label")}, nil
	case UpdateTypeSystem:
		return SystemPayload{Content: c, Category: metaString(m, "category")}, nil
	}
	return nil, fmt.Errorf("unknown update type %q", e.Type)
}

func metaString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func metaBool(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

// BSON decodes small numbers as int32/int64, so accept any numeric kind
func metaFloat(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
