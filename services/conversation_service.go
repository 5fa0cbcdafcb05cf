package services

import (
	"context"
	"ephemeral-chat/domain/chat"
	"ephemeral-chat/errors"
	"ephemeral-chat/infrastructure/storage"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

type IConversationService interface {
	Resolve(ctx context.Context, a, b string) (chat.OneToOne, error)
	ListConversations(ctx context.Context, userID string) ([]ConversationSummary, error)
	SetDisappearing(ctx context.Context, cmd chat.SetDisappearingCommand) (chat.Policy, error)
}

// ConversationSummary is one entry of a user's inbox.
type ConversationSummary struct {
	Conversation chat.OneToOne
	LastMessage  *chat.ExpandedMessage
}

// LastActivity is the time of the latest active message, or the last change
// of the conversation itself when it has none.
func (s ConversationSummary) LastActivity() time.Time {
	if s.LastMessage != nil {
		return s.LastMessage.CreatedAt
	}
	return s.Conversation.UpdatedAt
}

// requireParticipant rejects a user outside the conversation before any
// kind-specific rule applies.
func requireParticipant(c chat.Conversation, userID string) error {
	if c.IsMember(userID) {
		return nil
	}
	if c.Ref().Kind == chat.GroupKind {
		return fmt.Errorf("%w: %s in %s", errors.ErrNotGroupMember, userID, c.Ref())
	}
	return fmt.Errorf("%w: %s in %s", errors.ErrNotParticipant, userID, c.Ref())
}

type ConversationService struct {
	log           *slog.Logger
	conversations storage.IConversationRepository
	messages      storage.IMessageRepository
	users         storage.IUserRepository
	now           func() time.Time
}

func NewConversationService(
	log *slog.Logger,
	conversations storage.IConversationRepository,
	messages storage.IMessageRepository,
	users storage.IUserRepository,
) *ConversationService {
	return &ConversationService{
		log:           log,
		conversations: conversations,
		messages:      messages,
		users:         users,
		now:           time.Now,
	}
}

// Resolve returns the one-to-one conversation of a pair, creating it lazily.
func (s *ConversationService) Resolve(_ context.Context, a, b string) (chat.OneToOne, error) {
	conversation, created, err := s.conversations.ResolveOrCreate(a, b, s.now())
	if err != nil {
		return chat.OneToOne{}, err
	}
	if created {
		s.log.Info("Conversation created", "conversation_id", conversation.ConversationID)
	}
	return conversation, nil
}

// ListConversations returns the one-to-one conversations of userID, each with
// its most recent active message, most recently active first.
func (s *ConversationService) ListConversations(_ context.Context, userID string) ([]ConversationSummary, error) {
	if err := chat.ValidateUserID(userID); err != nil {
		return nil, err
	}
	conversations, err := s.conversations.ListForUser(userID, chat.OneToOneKind)
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	var senderIDs []string
	for _, c := range conversations {
		direct, ok := c.(chat.OneToOne)
		if !ok {
			continue
		}
		last, err := s.messages.LastActive(direct.ConversationID)
		if err != nil {
			return nil, err
		}
		summary := ConversationSummary{Conversation: direct}
		if last != nil {
			summary.LastMessage = &chat.ExpandedMessage{Message: *last, Sender: chat.User{ID: last.SenderID}}
			senderIDs = append(senderIDs, last.SenderID)
		}
		summaries = append(summaries, summary)
	}

	users, err := s.users.GetUsers(senderIDs)
	if err != nil {
		s.log.Warn("Unable to expand senders", "error", err)
	}
	for _, summary := range summaries {
		if summary.LastMessage == nil {
			continue
		}
		if sender, ok := users[summary.LastMessage.SenderID]; ok {
			summary.LastMessage.Sender = sender
		}
	}
	slices.SortStableFunc(summaries, func(a, b ConversationSummary) int {
		return b.LastActivity().Compare(a.LastActivity())
	})
	return summaries, nil
}

// SetDisappearing changes the policy applied to messages sent from now on.
// Messages already sent keep their expiry.
func (s *ConversationService) SetDisappearing(_ context.Context, cmd chat.SetDisappearingCommand) (chat.Policy, error) {
	if err := chat.Validate(cmd); err != nil {
		return chat.Policy{}, err
	}
	policy := chat.NewPolicy(cmd.Enabled, cmd.Seconds)
	conversation, err := s.conversations.UpdatePolicy(cmd.Conversation, s.now(), func(c chat.Conversation) (chat.Policy, error) {
		if err := requireParticipant(c, cmd.RequesterID); err != nil {
			return chat.Policy{}, err
		}
		if !c.CanChangePolicy(cmd.RequesterID) {
			return chat.Policy{}, fmt.Errorf("%w: %s may not change the policy of %s", errors.ErrPermissionDenied, cmd.RequesterID, cmd.Conversation)
		}
		return policy, nil
	})
	if err != nil {
		return chat.Policy{}, err
	}
	s.log.Info("Disappearing policy changed",
		"conversation_id", cmd.Conversation.ID,
		"enabled", policy.Enabled,
		"seconds", policy.AfterSeconds)
	return conversation.Policy(), nil
}
