package services

import (
	"context"
	"ephemeral-chat/contract"
	"ephemeral-chat/domain/chat"
	"ephemeral-chat/errors"
	"ephemeral-chat/mocks"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestGroupService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	conversations := mocks.NewMockIConversationRepository(ctrl)
	blobs := mocks.NewMockBlobStore(ctrl)
	svc := NewGroupService(logs.GetLoggerFromLevel(slog.LevelDebug), conversations, blobs)
	admin, member := uuid.NewString(), uuid.NewString()

	t.Run("should include the admin once among the members", func(t *testing.T) {
		req := require.New(t)
		conversations.EXPECT().CreateGroup(gomock.Any()).Return(nil)

		group, err := svc.Create(context.Background(), chat.CreateGroupCommand{
			Name:         "team",
			AdminID:      admin,
			Participants: []string{member, admin, member},
		})

		req.NoError(err)
		req.Equal(admin, group.AdminID)
		req.ElementsMatch([]string{admin, member}, group.Members)
		req.False(group.Policy().Enabled)
	})

	t.Run("should store the avatar through the blob store", func(t *testing.T) {
		req := require.New(t)
		blobs.EXPECT().Put(gomock.Any(), "team.png", pngHeader).Return(contract.BlobRef{Ref: "/uploads/team.png", MIME: "image/png"}, nil)
		conversations.EXPECT().CreateGroup(gomock.Any()).Return(nil)

		group, err := svc.Create(context.Background(), chat.CreateGroupCommand{
			Name:    "team",
			AdminID: admin,
			Avatar:  &chat.Attachment{FileName: "team.png", Data: pngHeader},
		})

		req.NoError(err)
		req.Equal("/uploads/team.png", group.AvatarRef)
	})

	t.Run("should reject a nameless group", func(t *testing.T) {
		req := require.New(t)
		conversations.EXPECT().CreateGroup(gomock.Any()).Times(0)

		_, err := svc.Create(context.Background(), chat.CreateGroupCommand{AdminID: admin})

		req.ErrorIs(err, errors.ErrValidation)
	})
}

func TestGroupService_AddMember(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	svc := NewGroupService(f.log, f.conversations, f.blobs)
	ctx := context.Background()

	admin, member, newcomer := uuid.NewString(), uuid.NewString(), uuid.NewString()
	group, err := svc.Create(ctx, chat.CreateGroupCommand{Name: "team", AdminID: admin, Participants: []string{member}})
	req.NoError(err)
	groupID := group.GroupID.String()

	// Given a member who is not the admin
	_, err = svc.AddMember(ctx, chat.AddMemberCommand{GroupID: groupID, RequesterID: member, MemberID: newcomer})

	// Then adding someone is refused
	req.ErrorIs(err, errors.ErrPermissionDenied)

	// When the admin adds the newcomer twice
	updated, err := svc.AddMember(ctx, chat.AddMemberCommand{GroupID: groupID, RequesterID: admin, MemberID: newcomer})
	req.NoError(err)
	again, err := svc.AddMember(ctx, chat.AddMemberCommand{GroupID: groupID, RequesterID: admin, MemberID: newcomer})
	req.NoError(err)

	// Then the newcomer appears exactly once
	req.ElementsMatch([]string{admin, member, newcomer}, updated.Members)
	req.ElementsMatch(updated.Members, again.Members)

	// And the group shows up in the newcomer's list
	groups, err := svc.ListGroups(ctx, newcomer)
	req.NoError(err)
	req.Len(groups, 1)
	req.Equal(group.GroupID, groups[0].GroupID)

	// And an unknown group is reported
	_, err = svc.AddMember(ctx, chat.AddMemberCommand{GroupID: uuid.NewString(), RequesterID: admin, MemberID: newcomer})
	req.ErrorIs(err, errors.ErrConversationNotFound)
}
