package models

// ChatRoom is a proximity chat room
type ChatRoom struct {
	ID             string   `json:"id" validate:"required"`
	Name           string   `json:"name"`
	OwnerID        string   `json:"owner_id"`
	ParticipantIDs []string `json:"participant_ids,omitempty"`
	ModeratorIDs   []string `json:"moderator_ids,omitempty"`
}

// ChatMessage is a message sent in a chat room
type ChatMessage struct {
	ID       string `json:"id" validate:"required"`
	RoomID   string `json:"room_id"`
	AuthorID string `json:"author_id" validate:"required"`
	Message  string `json:"message"`
}
