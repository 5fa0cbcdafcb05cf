package chat

import (
	"ephemeral-chat/errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindText  Kind = "text"
	KindPhoto Kind = "photo"
	KindVideo Kind = "video"
)

// KindFromMIME maps an uploaded file type to a message kind.
// Only images and videos can be attached.
func KindFromMIME(mime string) (Kind, error) {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return KindPhoto, nil
	case strings.HasPrefix(mime, "video/"):
		return KindVideo, nil
	default:
		return "", fmt.Errorf("%w: %s", errors.ErrUnsupportedMedia, mime)
	}
}

// Message is a stored chat message.
// Once recalled, Content stays empty for the rest of its life.
type Message struct {
	ID           uuid.UUID
	Conversation Ref
	SenderID     string
	Content      string // text, or a blob reference for photo and video
	Kind         Kind
	CreatedAt    time.Time
	ExpiresAt    *time.Time
	Recalled     bool
	ReadBy       []string
	DeletedFor   []string
}

func (m *Message) Recall() {
	m.Recalled = true
	m.Content = ""
}

func (m Message) IsActive() bool {
	return !m.Recalled
}

// ExpiredAt reports whether the message has a committed expiry at or before now.
func (m Message) ExpiredAt(now time.Time) bool {
	return m.ExpiresAt != nil && !m.ExpiresAt.After(now)
}

// ExpandedMessage is a message with its sender identity resolved.
type ExpandedMessage struct {
	Message
	Sender User
}
