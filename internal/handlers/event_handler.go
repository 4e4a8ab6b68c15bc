package handlers

import (
	"net/http"

	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/models"
	"github.com/labstack/echo/v4"
)

// EventSink accepts domain events for fan-out. *updates.Dispatcher
// implements it; every method returns without waiting for the writes.
type EventSink interface {
	PinCreated(pin models.Pin)
	Reply(pin models.Pin, reply models.Reply, author models.User, parent *models.Reply)
	AttendanceChange(pin models.Pin, attendee models.User, attending bool)
	BookmarkCreated(pin models.Pin, bookmarker models.User)
	ChatMessage(room models.ChatRoom, message models.ChatMessage, author models.User)
	BadgeEarned(userID string, badge models.Badge, sourceUserID *string)
	FriendRequest(request models.FriendRequest, requester models.User)
}

// EventHandler lets the rest of the platform report domain events over HTTP
type EventHandler struct {
	sink EventSink
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(sink EventSink) *EventHandler {
	return &EventHandler{sink: sink}
}

// RegisterEventRoutes registers event intake routes
func (h *EventHandler) RegisterEventRoutes(g *echo.Group) {
	g.POST("/events/pin-created", h.PinCreated)
	g.POST("/events/reply", h.Reply)
	g.POST("/events/attendance", h.AttendanceChange)
	g.POST("/events/bookmark", h.BookmarkCreated)
	g.POST("/events/chat-message", h.ChatMessage)
	g.POST("/events/badge-earned", h.BadgeEarned)
	g.POST("/events/friend-request", h.FriendRequest)
}

type PinCreatedRequest struct {
	Pin models.Pin `json:"pin"`
}

type ReplyRequest struct {
	Pin         models.Pin    `json:"pin"`
	Reply       models.Reply  `json:"reply"`
	Author      models.User   `json:"author"`
	ParentReply *models.Reply `json:"parent_reply,omitempty"`
}

type AttendanceRequest struct {
	Pin       models.Pin  `json:"pin"`
	Attendee  models.User `json:"attendee"`
	Attending bool        `json:"attending"`
}

type BookmarkRequest struct {
	Pin        models.Pin  `json:"pin"`
	Bookmarker models.User `json:"bookmarker"`
}

type ChatMessageRequest struct {
	Room    models.ChatRoom    `json:"room"`
	Message models.ChatMessage `json:"message"`
	Author  models.User        `json:"author"`
}

type BadgeEarnedRequest struct {
	UserID       string       `json:"user_id" validate:"required"`
	Badge        models.Badge `json:"badge"`
	SourceUserID *string      `json:"source_user_id,omitempty"`
}

type FriendRequestRequest struct {
	Request   models.FriendRequest `json:"request"`
	Requester models.User          `json:"requester"`
}

func (h *EventHandler) PinCreated(c echo.Context) error {
	var req PinCreatedRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Pin.Creator == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "pin.creator is required")
	}
	h.sink.PinCreated(req.Pin)
	return accepted(c)
}

func (h *EventHandler) Reply(c echo.Context) error {
	var req ReplyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	h.sink.Reply(req.Pin, req.Reply, req.Author, req.ParentReply)
	return accepted(c)
}

func (h *EventHandler) AttendanceChange(c echo.Context) error {
	var req AttendanceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	h.sink.AttendanceChange(req.Pin, req.Attendee, req.Attending)
	return accepted(c)
}

func (h *EventHandler) BookmarkCreated(c echo.Context) error {
	var req BookmarkRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	h.sink.BookmarkCreated(req.Pin, req.Bookmarker)
	return accepted(c)
}

func (h *EventHandler) ChatMessage(c echo.Context) error {
	var req ChatMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	h.sink.ChatMessage(req.Room, req.Message, req.Author)
	return accepted(c)
}

func (h *EventHandler) BadgeEarned(c echo.Context) error {
	var req BadgeEarnedRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	h.sink.BadgeEarned(req.UserID, req.Badge, req.SourceUserID)
	return accepted(c)
}

func (h *EventHandler) FriendRequest(c echo.Context) error {
	var req FriendRequestRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	h.sink.FriendRequest(req.Request, req.Requester)
	return accepted(c)
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	return c.Validate(req)
}

func accepted(c echo.Context) error {
	return c.JSON(http.StatusAccepted, echo.Map{
		"success": true,
		"message": "Event queued",
	})
}
