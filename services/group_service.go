package services

import (
	"context"
	"ephemeral-chat/contract"
	"ephemeral-chat/domain/chat"
	"ephemeral-chat/infrastructure/storage"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IGroupService interface {
	Create(ctx context.Context, cmd chat.CreateGroupCommand) (chat.Group, error)
	AddMember(ctx context.Context, cmd chat.AddMemberCommand) (chat.Group, error)
	ListGroups(ctx context.Context, userID string) ([]chat.Group, error)
}

type GroupService struct {
	log           *slog.Logger
	conversations storage.IConversationRepository
	blobs         contract.BlobStore
	now           func() time.Time
}

func NewGroupService(log *slog.Logger, conversations storage.IConversationRepository, blobs contract.BlobStore) *GroupService {
	return &GroupService{log: log, conversations: conversations, blobs: blobs, now: time.Now}
}

// Create makes the requester the admin of a new group.
// The optional avatar goes through the blob store like any attachment.
func (s *GroupService) Create(ctx context.Context, cmd chat.CreateGroupCommand) (chat.Group, error) {
	if err := chat.Validate(cmd); err != nil {
		return chat.Group{}, err
	}
	group, err := chat.NewGroup(cmd.Name, cmd.AdminID, cmd.Participants, s.now().UTC())
	if err != nil {
		return chat.Group{}, err
	}
	if cmd.Avatar != nil {
		if err = chat.Validate(cmd.Avatar); err != nil {
			return chat.Group{}, err
		}
		ref, err := s.blobs.Put(ctx, cmd.Avatar.FileName, cmd.Avatar.Data)
		if err != nil {
			return chat.Group{}, err
		}
		group.AvatarRef = ref.Ref
	}
	if err = s.conversations.CreateGroup(group); err != nil {
		return chat.Group{}, err
	}
	s.log.Info("Group created", "group_id", group.GroupID, "members", len(group.Members))
	return group, nil
}

// AddMember is admin only. Adding someone already in the group changes nothing.
func (s *GroupService) AddMember(_ context.Context, cmd chat.AddMemberCommand) (chat.Group, error) {
	if err := chat.Validate(cmd); err != nil {
		return chat.Group{}, err
	}
	var added bool
	group, err := s.conversations.UpdateGroup(uuid.MustParse(cmd.GroupID), s.now(), func(g *chat.Group) (bool, error) {
		var err error
		added, err = g.AddMember(cmd.RequesterID, cmd.MemberID)
		return added, err
	})
	if err != nil {
		return chat.Group{}, err
	}
	if added {
		s.log.Info("Member added", "group_id", group.GroupID, "member_id", cmd.MemberID)
	}
	return group, nil
}

func (s *GroupService) ListGroups(_ context.Context, userID string) ([]chat.Group, error) {
	if err := chat.ValidateUserID(userID); err != nil {
		return nil, err
	}
	conversations, err := s.conversations.ListForUser(userID, chat.GroupKind)
	if err != nil {
		return nil, err
	}
	return lo.FilterMap(conversations, func(c chat.Conversation, _ int) (chat.Group, bool) {
		g, ok := c.(chat.Group)
		return g, ok
	}), nil
}
