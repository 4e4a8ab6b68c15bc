package updates

import (
	"context"
	"fmt"
	"time"

	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/models"
	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/repositories"
	"go.uber.org/zap"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultBodyMaxLength = 160
	discussionWindow     = 24 * time.Hour

	// match the validate tags on models.Content
	maxTitleLength = 200
	maxBodyLength  = 280
)

// Options tunes an Engine
type Options struct {
	// Timeout bounds one fan-out call end to end
	Timeout       time.Duration
	BodyMaxLength int
}

// Outcome summarizes one fan-out call. It exists for logging and tests;
// triggering code must not branch on it.
type Outcome struct {
	Kind       models.UpdateType
	Candidates int
	Recipients int
	Inserted   int
	Duplicates int
	Failed     int
	Abandoned  bool
}

// Engine turns domain events into per-recipient update records. None of its
// methods fail from the caller's point of view: every error is logged and
// swallowed.
type Engine struct {
	updates repositories.UpdateRepository
	filter  *PreferenceFilter
	logger  *zap.Logger
	timeout time.Duration
	bodyMax int
}

// NewEngine creates a new Engine
func NewEngine(updates repositories.UpdateRepository, preferences repositories.PreferenceRepository, logger *zap.Logger, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.BodyMaxLength <= 0 {
		opts.BodyMaxLength = defaultBodyMaxLength
	}
	if opts.BodyMaxLength > maxBodyLength {
		opts.BodyMaxLength = maxBodyLength
	}
	return &Engine{
		updates: updates,
		filter:  NewPreferenceFilter(preferences),
		logger:  logger,
		timeout: opts.Timeout,
		bodyMax: opts.BodyMaxLength,
	}
}

// delivery is everything needed to write one event's records
type delivery struct {
	payload        models.Payload
	sourceUserID   *string
	candidates     []string
	sourceEntityID string
	windowLabel    string
}

// PinCreated notifies the creator's followers and the creator
func (e *Engine) PinCreated(ctx context.Context, pin models.Pin) Outcome {
	if pin.Creator == nil {
		return e.abandon(models.UpdateTypeNewPin, "resolve recipients", fmt.Errorf("pin %s: creator not populated", pin.ID))
	}
	creator := pin.CreatorName()
	return e.deliver(ctx, delivery{
		payload: models.NewPinPayload{
			Content: models.Content{
				Title:           headline("%s posted a new %s: %s", creator, pinKindLabel(pin), pin.Title),
				Body:            truncate(pin.Description, e.bodyMax),
				RelatedEntities: []models.RelatedEntity{pinEntity(pin), userEntity(creatorID(pin), creator)},
			},
			Pin:         models.PinPreviewOf(pin),
			CreatorName: creator,
		},
		sourceUserID: optional(creatorID(pin)),
		candidates:   pinCreatedRecipients(pin),
	})
}

// Reply notifies the pin creator, the parent reply author and, for events,
// the attendees
func (e *Engine) Reply(ctx context.Context, pin models.Pin, reply models.Reply, author models.User, parent *models.Reply) Outcome {
	related := []models.RelatedEntity{
		pinEntity(pin),
		{ID: reply.ID, Type: "reply", Summary: truncate(reply.Message, e.bodyMax)},
		userEntity(author.ID, author.Name()),
	}
	if parent != nil {
		related = append(related, models.RelatedEntity{ID: parent.ID, Type: "reply", Summary: truncate(parent.Message, e.bodyMax)})
	}

	payload := models.PinUpdatePayload{
		Content: models.Content{
			Title:           headline("%s replied to %s", author.Name(), pin.Title),
			Body:            truncate(reply.Message, e.bodyMax),
			RelatedEntities: related,
		},
		Subtype:   models.PinUpdateReply,
		Pin:       models.PinPreviewOf(pin),
		ActorName: author.Name(),
		ReplyID:   reply.ID,
	}
	if parent != nil {
		payload.ParentReplyID = parent.ID
	}

	return e.deliver(ctx, delivery{
		payload:      payload,
		sourceUserID: optional(author.ID),
		candidates:   replyRecipients(pin, author.ID, parent),
	})
}

// AttendanceChange notifies the pin creator that someone joined or left
func (e *Engine) AttendanceChange(ctx context.Context, pin models.Pin, attendee models.User, attending bool) Outcome {
	verb := "is attending"
	if !attending {
		verb = "is no longer attending"
	}
	return e.deliver(ctx, delivery{
		payload: models.PinUpdatePayload{
			Content: models.Content{
				Title:           headline("%s %s %s", attendee.Name(), verb, pin.Title),
				RelatedEntities: []models.RelatedEntity{pinEntity(pin), userEntity(attendee.ID, attendee.Name())},
			},
			Subtype:   models.PinUpdateAttendanceChange,
			Pin:       models.PinPreviewOf(pin),
			ActorName: attendee.Name(),
			Attending: attending,
		},
		sourceUserID: optional(attendee.ID),
		candidates:   creatorOnlyRecipients(pin, attendee.ID),
	})
}

// BookmarkCreated notifies the pin creator; bookmarking your own pin is a no-op
func (e *Engine) BookmarkCreated(ctx context.Context, pin models.Pin, bookmarker models.User) Outcome {
	return e.deliver(ctx, delivery{
		payload: models.BookmarkUpdatePayload{
			Content: models.Content{
				Title:           headline("%s bookmarked %s", bookmarker.Name(), pin.Title),
				RelatedEntities: []models.RelatedEntity{pinEntity(pin), userEntity(bookmarker.ID, bookmarker.Name())},
			},
			Pin:            models.PinPreviewOf(pin),
			BookmarkerName: bookmarker.Name(),
		},
		sourceUserID: optional(bookmarker.ID),
		candidates:   creatorOnlyRecipients(pin, bookmarker.ID),
	})
}

// ChatMessage notifies everyone in the room except the author
func (e *Engine) ChatMessage(ctx context.Context, room models.ChatRoom, message models.ChatMessage, author models.User) Outcome {
	return e.deliver(ctx, delivery{
		payload: models.ChatMessagePayload{
			Content: models.Content{
				Title: headline("New message in %s", room.Name),
				Body:  truncate(fmt.Sprintf("%s: %s", author.Name(), message.Message), e.bodyMax),
				RelatedEntities: []models.RelatedEntity{
					{ID: room.ID, Type: "chat-room", Label: room.Name},
					{ID: message.ID, Type: "chat-message", Summary: truncate(message.Message, e.bodyMax)},
					userEntity(author.ID, author.Name()),
				},
			},
			RoomID:     room.ID,
			RoomName:   room.Name,
			MessageID:  message.ID,
			AuthorName: author.Name(),
		},
		sourceUserID: optional(author.ID),
		candidates:   chatRecipients(room, author.ID),
	})
}

// BadgeEarned notifies the awarded user. Without an explicit source the award
// counts as self-caused.
func (e *Engine) BadgeEarned(ctx context.Context, userID string, badge models.Badge, sourceUserID *string) Outcome {
	if sourceUserID == nil {
		sourceUserID = optional(userID)
	}
	return e.deliver(ctx, delivery{
		payload: models.BadgeEarnedPayload{
			Content: models.Content{
				Title:           headline("You earned the %s badge", badge.Label),
				Body:            truncate(badge.Description, e.bodyMax),
				RelatedEntities: []models.RelatedEntity{{ID: badge.ID, Type: "badge", Label: badge.Label}},
			},
			BadgeID:    badge.ID,
			BadgeLabel: badge.Label,
		},
		sourceUserID: sourceUserID,
		candidates:   newRecipientSet("").add(userID).list(),
	})
}

// FriendRequest notifies the user who received the request
func (e *Engine) FriendRequest(ctx context.Context, request models.FriendRequest, requester models.User) Outcome {
	return e.deliver(ctx, delivery{
		payload: models.FriendRequestPayload{
			Content: models.Content{
				Title:           headline("%s sent you a friend request", requester.Name()),
				Body:            truncate(request.Message, e.bodyMax),
				RelatedEntities: []models.RelatedEntity{userEntity(requester.ID, requester.Name())},
			},
			RequestID:     request.ID,
			RequesterName: requester.Name(),
		},
		sourceUserID: optional(request.RequesterID),
		candidates:   newRecipientSet(request.RequesterID).add(request.RecipientID).list(),
	})
}

// System writes an operator announcement to the given users
func (e *Engine) System(ctx context.Context, recipientIDs []string, title, body, category string) Outcome {
	return e.deliver(ctx, delivery{
		payload: models.SystemPayload{
			Content:  models.Content{Title: truncate(title, maxTitleLength), Body: truncate(body, e.bodyMax)},
			Category: category,
		},
		candidates: newRecipientSet("").add(recipientIDs...).list(),
	})
}

// EventStartingSoon reminds an event's creator and attendees. The record is
// keyed by (event, window, recipient) so a repeated sweep writes nothing new.
func (e *Engine) EventStartingSoon(ctx context.Context, pin models.Pin, windowHours float64) Outcome {
	window := hoursToDuration(windowHours)
	label := windowLabel(window)
	return e.deliver(ctx, delivery{
		payload: models.EventStartingSoonPayload{
			Content: models.Content{
				Title:           headline("%s starts in %s", pin.Title, describeWindow(window)),
				Body:            truncate(pin.Description, e.bodyMax),
				RelatedEntities: []models.RelatedEntity{pinEntity(pin)},
			},
			Pin:         models.PinPreviewOf(pin),
			WindowLabel: label,
			WindowHours: windowHours,
		},
		candidates:     interestedParties(pin),
		sourceEntityID: pin.ID,
		windowLabel:    label,
	})
}

// DiscussionExpiringSoon warns a discussion's creator and participants a day
// before it expires
func (e *Engine) DiscussionExpiringSoon(ctx context.Context, pin models.Pin) Outcome {
	label := windowLabel(discussionWindow)
	return e.deliver(ctx, delivery{
		payload: models.DiscussionExpiringSoonPayload{
			Content: models.Content{
				Title:           headline("%s expires in %s", pin.Title, describeWindow(discussionWindow)),
				Body:            truncate(pin.Description, e.bodyMax),
				RelatedEntities: []models.RelatedEntity{pinEntity(pin)},
			},
			Pin:         models.PinPreviewOf(pin),
			WindowLabel: label,
			WindowHours: discussionWindow.Hours(),
		},
		candidates:     interestedParties(pin),
		sourceEntityID: pin.ID,
		windowLabel:    label,
	})
}

func (e *Engine) deliver(ctx context.Context, d delivery) (out Outcome) {
	out.Kind = d.payload.Type()
	log := e.logger.With(zap.String("kind", string(out.Kind)))

	defer func() {
		if r := recover(); r != nil {
			log.Error("fan-out panicked", zap.Any("panic", r))
			out.Abandoned = true
		}
	}()

	if err := models.ValidatePayload(d.payload); err != nil {
		log.Error("fan-out abandoned: invalid payload", zap.Error(err))
		out.Abandoned = true
		return out
	}

	out.Candidates = len(d.candidates)
	if out.Candidates == 0 {
		return out
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	recipients, err := e.filter.Allowed(ctx, d.candidates)
	if err != nil {
		log.Error("fan-out abandoned: preference lookup failed", zap.Int("candidates", out.Candidates), zap.Error(err))
		out.Abandoned = true
		return out
	}
	out.Recipients = len(recipients)
	if out.Recipients == 0 {
		return out
	}

	records := make([]models.Update, 0, len(recipients))
	for _, id := range recipients {
		records = append(records, models.Update{
			RecipientUserID: id,
			SourceUserID:    d.sourceUserID,
			TargetUserIDs:   recipients,
			SourceEntityID:  d.sourceEntityID,
			WindowLabel:     d.windowLabel,
			Payload:         d.payload,
		})
	}

	result, err := e.updates.InsertMany(ctx, records)
	out.Inserted = result.Inserted
	out.Duplicates = result.Duplicates
	out.Failed = len(result.Failures)
	if err != nil {
		log.Error("insert updates failed", zap.Int("recipients", out.Recipients), zap.Int("inserted", out.Inserted), zap.Error(err))
	}
	for _, f := range result.Failures {
		log.Warn("update record rejected", zap.Int("index", f.Index), zap.String("recipient_user_id", f.RecipientUserID), zap.Error(f.Err))
	}

	log.Debug("fan-out complete",
		zap.Int("candidates", out.Candidates),
		zap.Int("recipients", out.Recipients),
		zap.Int("inserted", out.Inserted),
		zap.Int("duplicates", out.Duplicates),
		zap.Int("failed", out.Failed),
	)
	return out
}

func (e *Engine) abandon(kind models.UpdateType, stage string, err error) Outcome {
	e.logger.Error("fan-out abandoned: "+stage, zap.String("kind", string(kind)), zap.Error(err))
	return Outcome{Kind: kind, Abandoned: true}
}
