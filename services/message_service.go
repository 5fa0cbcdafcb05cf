package services

import (
	"context"
	"ephemeral-chat/contract"
	"ephemeral-chat/domain/chat"
	"ephemeral-chat/domain/event"
	"ephemeral-chat/errors"
	"ephemeral-chat/infrastructure/storage"
	"ephemeral-chat/observability"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMessageService interface {
	SendDirect(ctx context.Context, cmd chat.SendDirectCommand) (chat.Ref, chat.ExpandedMessage, error)
	SendGroup(ctx context.Context, cmd chat.SendGroupCommand) (chat.Ref, chat.ExpandedMessage, error)
	GetDirectMessages(ctx context.Context, cmd chat.GetDirectMessagesCommand) (ConversationPage, error)
	GetGroupMessages(ctx context.Context, cmd chat.GetGroupMessagesCommand) (ConversationPage, error)
	Recall(ctx context.Context, cmd chat.RecallCommand) (RecallResult, error)
}

// ConversationPage is one window of a conversation with senders resolved.
type ConversationPage struct {
	Conversation chat.Ref
	Page         int
	Limit        int
	Total        int
	Messages     []chat.ExpandedMessage
}

type RecallResult struct {
	Success   bool
	MessageID uuid.UUID
}

// MessageService drives the message lifecycle: membership gate, expiry
// stamping, persistence and notification. Broadcasting happens after the
// write and its outcome never changes the result returned to the caller.
type MessageService struct {
	log           *slog.Logger
	messages      storage.IMessageRepository
	conversations storage.IConversationRepository
	users         storage.IUserRepository
	blobs         contract.BlobStore
	broadcaster   contract.Broadcaster
	metrics       *observability.Metrics
	now           func() time.Time
}

func NewMessageService(
	log *slog.Logger,
	messages storage.IMessageRepository,
	conversations storage.IConversationRepository,
	users storage.IUserRepository,
	blobs contract.BlobStore,
	broadcaster contract.Broadcaster,
	metrics *observability.Metrics,
) *MessageService {
	return &MessageService{
		log:           log,
		messages:      messages,
		conversations: conversations,
		users:         users,
		blobs:         blobs,
		broadcaster:   broadcaster,
		metrics:       metrics,
		now:           time.Now,
	}
}

func (s *MessageService) SendDirect(ctx context.Context, cmd chat.SendDirectCommand) (chat.Ref, chat.ExpandedMessage, error) {
	if err := chat.Validate(cmd); err != nil {
		return chat.Ref{}, chat.ExpandedMessage{}, err
	}
	conversation, _, err := s.conversations.ResolveOrCreate(cmd.SenderID, cmd.RecipientID, s.now())
	if err != nil {
		return chat.Ref{}, chat.ExpandedMessage{}, err
	}
	message, err := s.send(ctx, conversation, cmd.SenderID, cmd.Content, cmd.Attachment)
	return conversation.Ref(), message, err
}

func (s *MessageService) SendGroup(ctx context.Context, cmd chat.SendGroupCommand) (chat.Ref, chat.ExpandedMessage, error) {
	if err := chat.Validate(cmd); err != nil {
		return chat.Ref{}, chat.ExpandedMessage{}, err
	}
	group, err := s.conversations.GetGroup(uuid.MustParse(cmd.GroupID))
	if err != nil {
		return chat.Ref{}, chat.ExpandedMessage{}, err
	}
	if !group.IsMember(cmd.SenderID) {
		return chat.Ref{}, chat.ExpandedMessage{}, errors.ErrNotGroupMember
	}
	message, err := s.send(ctx, group, cmd.SenderID, cmd.Content, cmd.Attachment)
	return group.Ref(), message, err
}

func (s *MessageService) send(ctx context.Context, conversation chat.Conversation, senderID, content string, attachment *chat.Attachment) (chat.ExpandedMessage, error) {
	content, kind, err := s.resolveContent(ctx, content, attachment)
	if err != nil {
		return chat.ExpandedMessage{}, err
	}

	now := s.now().UTC()
	message, err := s.messages.Append(chat.Message{
		ID:           uuid.New(),
		Conversation: conversation.Ref(),
		SenderID:     senderID,
		Content:      content,
		Kind:         kind,
		CreatedAt:    now,
		ExpiresAt:    conversation.Policy().StampExpiry(now),
	})
	if err != nil {
		return chat.ExpandedMessage{}, err
	}
	s.metrics.MessagesSent.WithLabelValues(string(message.Conversation.Kind), string(message.Kind)).Inc()

	expanded := s.expand([]chat.Message{message})[0]
	s.broadcaster.Publish(event.MessagePosted{Conversation: message.Conversation, Message: expanded})
	return expanded, nil
}

// resolveContent stores an attachment when present and infers the message kind.
func (s *MessageService) resolveContent(ctx context.Context, content string, attachment *chat.Attachment) (string, chat.Kind, error) {
	if attachment == nil {
		if strings.TrimSpace(content) == "" {
			return "", "", errors.ErrEmptyMessage
		}
		return content, chat.KindText, nil
	}
	if err := chat.Validate(attachment); err != nil {
		return "", "", err
	}
	ref, err := s.blobs.Put(ctx, attachment.FileName, attachment.Data)
	if err != nil {
		return "", "", err
	}
	kind, err := chat.KindFromMIME(ref.MIME)
	if err != nil {
		return "", "", err
	}
	return ref.Ref, kind, nil
}

func (s *MessageService) GetDirectMessages(_ context.Context, cmd chat.GetDirectMessagesCommand) (ConversationPage, error) {
	if err := chat.Validate(cmd); err != nil {
		return ConversationPage{}, err
	}
	conversation, _, err := s.conversations.ResolveOrCreate(cmd.UserID, cmd.OtherID, s.now())
	if err != nil {
		return ConversationPage{}, err
	}
	return s.page(conversation.Ref(), cmd.PageRequest)
}

func (s *MessageService) GetGroupMessages(_ context.Context, cmd chat.GetGroupMessagesCommand) (ConversationPage, error) {
	if err := chat.Validate(cmd); err != nil {
		return ConversationPage{}, err
	}
	group, err := s.conversations.GetGroup(uuid.MustParse(cmd.GroupID))
	if err != nil {
		return ConversationPage{}, err
	}
	if !group.IsMember(cmd.UserID) {
		return ConversationPage{}, errors.ErrNotGroupMember
	}
	return s.page(group.Ref(), cmd.PageRequest)
}

// page loads the active messages of a conversation and cuts one window.
// Ids left behind by the cleanup sweep simply resolve to nothing.
func (s *MessageService) page(ref chat.Ref, request chat.PageRequest) (ConversationPage, error) {
	ids, err := s.messages.ListConversationMessageIDs(ref.ID)
	if err != nil {
		return ConversationPage{}, err
	}
	active, err := s.messages.FindActiveByIDs(ids)
	if err != nil {
		return ConversationPage{}, err
	}
	page := chat.Paginate(active, request)
	return ConversationPage{
		Conversation: ref,
		Page:         page.Page,
		Limit:        page.Limit,
		Total:        page.Total,
		Messages:     s.expand(page.Messages),
	}, nil
}

// Recall takes a message back on behalf of its sender, or of the admin in a group.
func (s *MessageService) Recall(_ context.Context, cmd chat.RecallCommand) (RecallResult, error) {
	if err := chat.Validate(cmd); err != nil {
		return RecallResult{}, err
	}
	id := uuid.MustParse(cmd.MessageID)

	message, err := s.messages.FindByID(id)
	if err != nil {
		return RecallResult{}, err
	}
	if message.Recalled {
		return RecallResult{}, fmt.Errorf("%w: %s was already recalled", errors.ErrMessageNotFound, id)
	}
	conversation, err := s.conversations.Get(message.Conversation)
	if err != nil {
		return RecallResult{}, err
	}
	if err = requireParticipant(conversation, cmd.RequesterID); err != nil {
		return RecallResult{}, err
	}
	if !conversation.CanRecall(cmd.RequesterID, message.SenderID) {
		return RecallResult{}, fmt.Errorf("%w: %s may not recall %s", errors.ErrPermissionDenied, cmd.RequesterID, id)
	}
	if _, err = s.messages.Recall(id); err != nil {
		return RecallResult{}, err
	}
	s.metrics.MessagesRecalled.Inc()
	s.log.Debug("Message recalled", "message_id", id, "conversation_id", message.Conversation.ID)

	s.broadcaster.Publish(event.MessageRecalled{Conversation: message.Conversation, MessageID: id})
	return RecallResult{Success: true, MessageID: id}, nil
}

// expand resolves every sender of messages in one batch lookup.
// Unknown senders keep their id with an empty profile.
func (s *MessageService) expand(messages []chat.Message) []chat.ExpandedMessage {
	senderIDs := lo.Map(messages, func(m chat.Message, _ int) string { return m.SenderID })
	users, err := s.users.GetUsers(senderIDs)
	if err != nil {
		s.log.Warn("Unable to expand senders", "error", err)
	}
	return lo.Map(messages, func(m chat.Message, _ int) chat.ExpandedMessage {
		sender, ok := users[m.SenderID]
		if !ok {
			sender = chat.User{ID: m.SenderID}
		}
		return chat.ExpandedMessage{Message: m, Sender: sender}
	})
}
