package updates

import "github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/models"

// recipientSet is an insertion-ordered set of user ids with an optional
// excluded actor
type recipientSet struct {
	exclude string
	seen    map[string]struct{}
	ids     []string
}

func newRecipientSet(exclude string) *recipientSet {
	return &recipientSet{exclude: exclude, seen: make(map[string]struct{})}
}

func (s *recipientSet) add(ids ...string) *recipientSet {
	for _, id := range ids {
		if id == "" || (s.exclude != "" && id == s.exclude) {
			continue
		}
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
	return s
}

func (s *recipientSet) list() []string {
	return s.ids
}

func creatorID(pin models.Pin) string {
	if pin.CreatorID != "" {
		return pin.CreatorID
	}
	if pin.Creator != nil {
		return pin.Creator.ID
	}
	return ""
}

// The creator is deliberately included so they see their own post in-feed.
func pinCreatedRecipients(pin models.Pin) []string {
	return newRecipientSet("").
		add(pin.Creator.FollowerIDs...).
		add(creatorID(pin)).
		list()
}

func replyRecipients(pin models.Pin, authorID string, parent *models.Reply) []string {
	set := newRecipientSet(authorID).add(creatorID(pin))
	if parent != nil {
		set.add(parent.AuthorID)
	}
	if pin.IsEvent() {
		set.add(pin.AttendeeIDs...)
	}
	return set.list()
}

// Attendance changes and bookmarks only reach the pin creator, never the actor.
func creatorOnlyRecipients(pin models.Pin, actorID string) []string {
	return newRecipientSet(actorID).add(creatorID(pin)).list()
}

func chatRecipients(room models.ChatRoom, authorID string) []string {
	return newRecipientSet(authorID).
		add(room.ParticipantIDs...).
		add(room.ModeratorIDs...).
		add(room.OwnerID).
		list()
}

func interestedParties(pin models.Pin) []string {
	return newRecipientSet("").add(creatorID(pin)).add(pin.AttendeeIDs...).list()
}
