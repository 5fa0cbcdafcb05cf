package chat

import "time"

type Attachment struct {
	FileName string `json:"fileName"`
	Data     []byte `json:"data"`
}

type Sender struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversationId"`
	Sender         Sender     `json:"sender"`
	Content        string     `json:"content"`
	Kind           string     `json:"kind"`
	CreatedAt      time.Time  `json:"createdAt"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	Recalled       bool       `json:"recalled"`
	ReadBy         []string   `json:"readBy,omitempty"`
}

type SendDirectRequest struct {
	RecipientID string      `json:"recipientId"`
	Content     string      `json:"content,omitempty"`
	Attachment  *Attachment `json:"attachment,omitempty"`
}

type SendGroupRequest struct {
	GroupID    string      `json:"groupId"`
	Content    string      `json:"content,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

type SendResponse struct {
	ConversationID string  `json:"conversationId"`
	Message        Message `json:"message"`
}

type GetDirectMessagesRequest struct {
	OtherUserID string `json:"otherUserId"`
	Page        int    `json:"page,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

type GetGroupMessagesRequest struct {
	GroupID string `json:"groupId"`
	Page    int    `json:"page,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

type MessagesPage struct {
	ConversationID string    `json:"conversationId"`
	Page           int       `json:"page"`
	Limit          int       `json:"limit"`
	Total          int       `json:"total"`
	Messages       []Message `json:"messages"`
}

type RecallRequest struct {
	MessageID string `json:"messageId"`
}

type RecallResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
}

// SetDisappearingRequest targets either a one-to-one conversation or a group.
type SetDisappearingRequest struct {
	ConversationID string `json:"conversationId,omitempty"`
	GroupID        string `json:"groupId,omitempty"`
	Enabled        bool   `json:"enabled"`
	Seconds        int    `json:"seconds,omitempty"`
}

type Policy struct {
	ConversationID string `json:"conversationId"`
	Enabled        bool   `json:"disappearingEnabled"`
	Seconds        int    `json:"disappearAfterSeconds"`
}

type CreateGroupRequest struct {
	Name         string      `json:"name"`
	Participants []string    `json:"participants,omitempty"`
	Avatar       *Attachment `json:"avatar,omitempty"`
}

type Group struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	AdminID      string   `json:"adminId"`
	Participants []string `json:"participants"`
	AvatarRef    string   `json:"avatar,omitempty"`
	Policy       Policy   `json:"policy"`
}

type AddMemberRequest struct {
	GroupID  string `json:"groupId"`
	MemberID string `json:"memberId"`
}

type AddMemberResponse struct {
	Success bool `json:"success"`
}

type ListRequest struct{}

type Conversation struct {
	ID           string   `json:"id"`
	Participants []string `json:"participants"`
	Policy       Policy   `json:"policy"`
	LastMessage  *Message `json:"lastMessage,omitempty"`
}

type ConversationList struct {
	Conversations []Conversation `json:"conversations"`
}

type GroupList struct {
	Groups []Group `json:"groups"`
}

// Channel frame types sent by clients.
const (
	FrameAuthenticate     = "authenticate"
	FrameJoinConversation = "join_conversation"
	FrameJoinGroup        = "join_group"
	FrameLeaveGroup       = "leave_group"
	FrameTyping           = "typing"
	FrameMarkRead         = "mark_read"
)

// ClientFrame is one event sent by a client on the Channel stream.
type ClientFrame struct {
	Type           string `json:"type"`
	UserID         string `json:"userId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	GroupID        string `json:"groupId,omitempty"`
	MessageID      string `json:"messageId,omitempty"`
	Typing         bool   `json:"typing,omitempty"`
}

// ServerFrame is one room event pushed to a client on the Channel stream.
type ServerFrame struct {
	Event          string   `json:"event"`
	Room           string   `json:"room"`
	ConversationID string   `json:"conversationId,omitempty"`
	GroupID        string   `json:"groupId,omitempty"`
	MessageID      string   `json:"messageId,omitempty"`
	UserID         string   `json:"userId,omitempty"`
	Typing         bool     `json:"typing,omitempty"`
	Message        *Message `json:"message,omitempty"`
}
