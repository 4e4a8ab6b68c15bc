package handlers

import (
	"net/http"
	"testing"

	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/models"
	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/validators"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	kinds []string
	pins  []models.Pin
	badge *string
}

func (s *recordingSink) PinCreated(pin models.Pin) {
	s.kinds = append(s.kinds, "pin-created")
	s.pins = append(s.pins, pin)
}

func (s *recordingSink) Reply(pin models.Pin, _ models.Reply, _ models.User, parent *models.Reply) {
	s.kinds = append(s.kinds, "reply")
	s.pins = append(s.pins, pin)
}

func (s *recordingSink) AttendanceChange(models.Pin, models.User, bool) {
	s.kinds = append(s.kinds, "attendance")
}

func (s *recordingSink) BookmarkCreated(models.Pin, models.User) {
	s.kinds = append(s.kinds, "bookmark")
}

func (s *recordingSink) ChatMessage(models.ChatRoom, models.ChatMessage, models.User) {
	s.kinds = append(s.kinds, "chat-message")
}

func (s *recordingSink) BadgeEarned(_ string, _ models.Badge, source *string) {
	s.kinds = append(s.kinds, "badge-earned")
	s.badge = source
}

func (s *recordingSink) FriendRequest(models.FriendRequest, models.User) {
	s.kinds = append(s.kinds, "friend-request")
}

func newEventEcho(sink EventSink) *echo.Echo {
	e := echo.New()
	e.Validator = validators.NewValidator()
	NewEventHandler(sink).RegisterEventRoutes(e.Group("/api/v1"))
	return e
}

const eventPinJSON = `{"id":"p1","type":"event","title":"Jazz","creator_id":"u","creator":{"id":"u","display_name":"Uma","follower_ids":["f1"]}}`

func TestEventIntakeQueuesEachKind(t *testing.T) {
	sink := &recordingSink{}
	e := newEventEcho(sink)

	requests := []struct {
		path string
		body string
	}{
		{"/api/v1/events/pin-created", `{"pin":` + eventPinJSON + `}`},
		{"/api/v1/events/reply", `{"pin":` + eventPinJSON + `,"reply":{"id":"r1","author_id":"a","message":"hi"},"author":{"id":"a"}}`},
		{"/api/v1/events/attendance", `{"pin":` + eventPinJSON + `,"attendee":{"id":"a"},"attending":true}`},
		{"/api/v1/events/bookmark", `{"pin":` + eventPinJSON + `,"bookmarker":{"id":"a"}}`},
		{"/api/v1/events/chat-message", `{"room":{"id":"room"},"message":{"id":"m","author_id":"a","message":"yo"},"author":{"id":"a"}}`},
		{"/api/v1/events/badge-earned", `{"user_id":"u","badge":{"id":"b","label":"Explorer"},"source_user_id":"admin"}`},
		{"/api/v1/events/friend-request", `{"request":{"id":"fr","requester_id":"a","recipient_id":"b"},"requester":{"id":"a"}}`},
	}
	for _, r := range requests {
		rec := serve(e, http.MethodPost, r.path, r.body)
		assert.Equal(t, http.StatusAccepted, rec.Code, r.path)
	}

	assert.Equal(t, []string{"pin-created", "reply", "attendance", "bookmark", "chat-message", "badge-earned", "friend-request"}, sink.kinds)
	require.NotEmpty(t, sink.pins)
	require.NotNil(t, sink.pins[0].Creator)
	assert.Equal(t, []string{"f1"}, sink.pins[0].Creator.FollowerIDs)
	require.NotNil(t, sink.badge)
	assert.Equal(t, "admin", *sink.badge)
}

func TestEventIntakeRejectsIncompleteEvents(t *testing.T) {
	sink := &recordingSink{}
	e := newEventEcho(sink)

	cases := []struct {
		name string
		path string
		body string
	}{
		{"pin without creator", "/api/v1/events/pin-created", `{"pin":{"id":"p1","type":"event","title":"Jazz","creator_id":"u"}}`},
		{"pin of unknown type", "/api/v1/events/pin-created", `{"pin":{"id":"p1","type":"party","title":"Jazz","creator":{"id":"u"}}}`},
		{"reply without id", "/api/v1/events/reply", `{"pin":` + eventPinJSON + `,"reply":{"author_id":"a"},"author":{"id":"a"}}`},
		{"badge without user", "/api/v1/events/badge-earned", `{"badge":{"id":"b","label":"Explorer"}}`},
		{"friend request without recipient", "/api/v1/events/friend-request", `{"request":{"id":"fr","requester_id":"a"},"requester":{"id":"a"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(e, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Empty(t, sink.kinds)
}
