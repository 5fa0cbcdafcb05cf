// Package event defines the notifications fanned out to broadcast rooms.
// Events are notifications only: persistence stays the source of truth.
package event

import (
	"ephemeral-chat/domain/chat"

	"github.com/google/uuid"
)

type Name string

const (
	NewMessageName      Name = "new_message"
	MessageRecalledName Name = "message_recalled"
	TypingName          Name = "typing"
	MessageReadName     Name = "message_read"
)

type DomainEvent interface {
	EventName() Name
	RoomKey() chat.RoomKey
}

// MessagePosted is emitted once a message has been persisted.
type MessagePosted struct {
	Conversation chat.Ref
	Message      chat.ExpandedMessage
}

func (e MessagePosted) EventName() Name       { return NewMessageName }
func (e MessagePosted) RoomKey() chat.RoomKey { return e.Conversation.RoomKey() }

type MessageRecalled struct {
	Conversation chat.Ref
	MessageID    uuid.UUID
}

func (e MessageRecalled) EventName() Name       { return MessageRecalledName }
func (e MessageRecalled) RoomKey() chat.RoomKey { return e.Conversation.RoomKey() }

// Typing is relayed from one client to the rest of the room.
// UserID is empty for connections that never authenticated.
type Typing struct {
	Conversation chat.Ref
	UserID       string
	Typing       bool
}

func (e Typing) EventName() Name       { return TypingName }
func (e Typing) RoomKey() chat.RoomKey { return e.Conversation.RoomKey() }

type MessageRead struct {
	Conversation chat.Ref
	MessageID    string
	UserID       string
}

func (e MessageRead) EventName() Name       { return MessageReadName }
func (e MessageRead) RoomKey() chat.RoomKey { return e.Conversation.RoomKey() }

// Envelope is what travels from publishers to the fanout worker.
// ExceptClient is skipped during delivery, used to relay to "everyone but me".
type Envelope struct {
	Event        DomainEvent
	ExceptClient string
}
