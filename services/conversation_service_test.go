package services

import (
	"context"
	"ephemeral-chat/domain/chat"
	"ephemeral-chat/errors"
	"ephemeral-chat/mocks"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestConversationService_SetDisappearing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	conversations := mocks.NewMockIConversationRepository(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	svc := NewConversationService(log, conversations, mocks.NewMockIMessageRepository(ctrl), mocks.NewMockIUserRepository(ctrl))

	admin, member := uuid.NewString(), uuid.NewString()
	group, err := chat.NewGroup("team", admin, []string{member}, time.Now())
	require.NoError(t, err)

	// applyMutation runs the mutate callback the way the repository would
	applyMutation := func(c chat.Conversation) func(chat.Ref, time.Time, func(chat.Conversation) (chat.Policy, error)) (chat.Conversation, error) {
		return func(_ chat.Ref, _ time.Time, mutate func(chat.Conversation) (chat.Policy, error)) (chat.Conversation, error) {
			policy, err := mutate(c)
			if err != nil {
				return nil, err
			}
			switch conversation := c.(type) {
			case chat.Group:
				conversation.Disappearing = policy
				return conversation, nil
			case chat.OneToOne:
				conversation.Disappearing = policy
				return conversation, nil
			}
			return c, nil
		}
	}

	t.Run("should deny a group member who is not the admin", func(t *testing.T) {
		req := require.New(t)
		conversations.EXPECT().UpdatePolicy(group.Ref(), gomock.Any(), gomock.Any()).DoAndReturn(applyMutation(group))

		_, err := svc.SetDisappearing(context.Background(), chat.SetDisappearingCommand{
			Conversation: group.Ref(),
			RequesterID:  member,
			Enabled:      true,
			Seconds:      10,
		})

		req.ErrorIs(err, errors.ErrPermissionDenied)
	})

	t.Run("should deny someone outside the group", func(t *testing.T) {
		req := require.New(t)
		conversations.EXPECT().UpdatePolicy(group.Ref(), gomock.Any(), gomock.Any()).DoAndReturn(applyMutation(group))

		_, err := svc.SetDisappearing(context.Background(), chat.SetDisappearingCommand{
			Conversation: group.Ref(),
			RequesterID:  uuid.NewString(),
			Enabled:      true,
		})

		req.ErrorIs(err, errors.ErrNotGroupMember)
		req.ErrorIs(err, errors.ErrPermissionDenied)
	})

	t.Run("should deny someone outside a one-to-one conversation", func(t *testing.T) {
		req := require.New(t)
		direct, err := chat.NewOneToOne(admin, member, time.Now())
		req.NoError(err)
		conversations.EXPECT().UpdatePolicy(direct.Ref(), gomock.Any(), gomock.Any()).DoAndReturn(applyMutation(direct))

		_, err = svc.SetDisappearing(context.Background(), chat.SetDisappearingCommand{
			Conversation: direct.Ref(),
			RequesterID:  uuid.NewString(),
			Enabled:      true,
		})

		req.ErrorIs(err, errors.ErrNotParticipant)
		req.ErrorIs(err, errors.ErrPermissionDenied)
	})

	t.Run("should let either participant of a one-to-one conversation change the policy", func(t *testing.T) {
		req := require.New(t)
		direct, err := chat.NewOneToOne(admin, member, time.Now())
		req.NoError(err)
		conversations.EXPECT().UpdatePolicy(direct.Ref(), gomock.Any(), gomock.Any()).DoAndReturn(applyMutation(direct))

		policy, err := svc.SetDisappearing(context.Background(), chat.SetDisappearingCommand{
			Conversation: direct.Ref(),
			RequesterID:  member,
			Enabled:      true,
			Seconds:      5,
		})

		req.NoError(err)
		req.Equal(chat.Policy{Enabled: true, AfterSeconds: 5}, policy)
	})

	t.Run("should fall back to the default duration", func(t *testing.T) {
		req := require.New(t)
		conversations.EXPECT().UpdatePolicy(group.Ref(), gomock.Any(), gomock.Any()).DoAndReturn(applyMutation(group))

		policy, err := svc.SetDisappearing(context.Background(), chat.SetDisappearingCommand{
			Conversation: group.Ref(),
			RequesterID:  admin,
			Enabled:      true,
		})

		req.NoError(err)
		req.Equal(chat.Policy{Enabled: true, AfterSeconds: chat.DefaultDisappearAfterSeconds}, policy)
	})

	t.Run("should zero the duration when disabled", func(t *testing.T) {
		req := require.New(t)
		conversations.EXPECT().UpdatePolicy(group.Ref(), gomock.Any(), gomock.Any()).DoAndReturn(applyMutation(group))

		policy, err := svc.SetDisappearing(context.Background(), chat.SetDisappearingCommand{
			Conversation: group.Ref(),
			RequesterID:  admin,
			Enabled:      false,
			Seconds:      60,
		})

		req.NoError(err)
		req.Equal(chat.Policy{}, policy)
	})

	t.Run("should report an unknown conversation", func(t *testing.T) {
		req := require.New(t)
		ref := chat.Ref{Kind: chat.OneToOneKind, ID: uuid.New()}
		conversations.EXPECT().UpdatePolicy(ref, gomock.Any(), gomock.Any()).Return(nil, errors.ErrConversationNotFound)

		_, err := svc.SetDisappearing(context.Background(), chat.SetDisappearingCommand{Conversation: ref, RequesterID: admin, Enabled: true})

		req.ErrorIs(err, errors.ErrConversationNotFound)
	})
}

func TestConversationService_ListConversations(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	messages := f.messageService()
	svc := NewConversationService(f.log, f.conversations, f.messages, f.users)
	ctx := context.Background()

	alice, bob, carol := uuid.NewString(), uuid.NewString(), uuid.NewString()
	req.NoError(f.users.SaveUser(chat.User{ID: bob, Username: "bob"}))

	// Given alice talks with bob and has an empty conversation with carol
	_, _, err := messages.SendDirect(ctx, chat.SendDirectCommand{SenderID: alice, RecipientID: bob, Content: "first"})
	req.NoError(err)
	_, last, err := messages.SendDirect(ctx, chat.SendDirectCommand{SenderID: bob, RecipientID: alice, Content: "second"})
	req.NoError(err)
	_, err = svc.Resolve(ctx, alice, carol)
	req.NoError(err)

	// When alice lists her conversations
	summaries, err := svc.ListConversations(ctx, alice)

	// Then both show up with the latest message where there is one
	req.NoError(err)
	req.Len(summaries, 2)
	byOther := make(map[string]ConversationSummary)
	for _, s := range summaries {
		byOther[s.Conversation.Other(alice)] = s
	}
	req.NotNil(byOther[bob].LastMessage)
	req.Equal(last.ID, byOther[bob].LastMessage.ID)
	req.Equal("bob", byOther[bob].LastMessage.Sender.Username)
	req.Nil(byOther[carol].LastMessage)

	// And an invalid user id is rejected
	_, err = svc.ListConversations(ctx, "alice")
	req.ErrorIs(err, errors.ErrInvalidParticipant)
}

func TestConversationService_ListConversationsMostRecentFirst(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	messages := f.messageService()
	svc := NewConversationService(f.log, f.conversations, f.messages, f.users)
	ctx := context.Background()

	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := start
	messages.now = func() time.Time { return clock }
	svc.now = messages.now

	alice := uuid.NewString()
	first, second, silent, fourth := uuid.NewString(), uuid.NewString(), uuid.NewString(), uuid.NewString()

	// Given alice writes to several peers one after the other
	clock = start.Add(1 * time.Second)
	_, _, err := messages.SendDirect(ctx, chat.SendDirectCommand{SenderID: alice, RecipientID: first, Content: "one"})
	req.NoError(err)
	clock = start.Add(2 * time.Second)
	_, _, err = messages.SendDirect(ctx, chat.SendDirectCommand{SenderID: alice, RecipientID: second, Content: "two"})
	req.NoError(err)
	// And opens a conversation without writing in it
	clock = start.Add(3 * time.Second)
	_, err = svc.Resolve(ctx, alice, silent)
	req.NoError(err)
	clock = start.Add(4 * time.Second)
	_, _, err = messages.SendDirect(ctx, chat.SendDirectCommand{SenderID: alice, RecipientID: fourth, Content: "four"})
	req.NoError(err)
	// And the first peer answers last
	clock = start.Add(5 * time.Second)
	_, _, err = messages.SendDirect(ctx, chat.SendDirectCommand{SenderID: first, RecipientID: alice, Content: "back"})
	req.NoError(err)

	// When alice lists her conversations
	summaries, err := svc.ListConversations(ctx, alice)
	req.NoError(err)

	// Then the most recently active conversation comes first
	others := make([]string, 0, len(summaries))
	for _, s := range summaries {
		others = append(others, s.Conversation.Other(alice))
	}
	req.Equal([]string{first, fourth, silent, second}, others)
	req.Equal(start.Add(5*time.Second), summaries[0].LastActivity())
	req.Equal(start.Add(3*time.Second), summaries[2].LastActivity())
}

func TestConversationService_Resolve(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	svc := NewConversationService(f.log, f.conversations, f.messages, f.users)

	a, b := uuid.NewString(), uuid.NewString()

	// Given the pair resolved from both sides
	first, err := svc.Resolve(context.Background(), a, b)
	req.NoError(err)
	second, err := svc.Resolve(context.Background(), b, a)
	req.NoError(err)

	// Then the same conversation is returned
	req.Equal(first.ConversationID, second.ConversationID)

	// And a self conversation is refused
	_, err = svc.Resolve(context.Background(), a, a)
	req.ErrorIs(err, errors.ErrInvalidParticipant)
}
