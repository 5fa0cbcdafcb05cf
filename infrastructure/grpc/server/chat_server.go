package server

import (
	"context"
	"ephemeral-chat/auth"
	"ephemeral-chat/contract"
	"ephemeral-chat/domain/chat"
	"ephemeral-chat/errors"
	pb "ephemeral-chat/proto/chat"
	"ephemeral-chat/services"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type ChatServer struct {
	pb.UnimplementedChatServiceServer
	log                  *slog.Logger
	messages             services.IMessageService
	conversations        services.IConversationService
	groups               services.IGroupService
	hub                  contract.IHub
	connectionBufferSize int
	typingRate           rate.Limit
	typingBurst          int
}

func NewChatServer(
	log *slog.Logger,
	messages services.IMessageService,
	conversations services.IConversationService,
	groups services.IGroupService,
	hub contract.IHub,
	connectionBufferSize int,
	typingRatePerSecond float64,
	typingBurst int,
) *ChatServer {
	return &ChatServer{
		log:                  log,
		messages:             messages,
		conversations:        conversations,
		groups:               groups,
		hub:                  hub,
		connectionBufferSize: connectionBufferSize,
		typingRate:           rate.Limit(typingRatePerSecond),
		typingBurst:          typingBurst,
	}
}

// callerID returns the user injected by the unary interceptor.
func callerID(ctx context.Context) (string, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "authentication required")
	}
	return userID, nil
}

// SendDirectMessage persists the message then notifies the conversation room.
// The sender receives the message in the response and, when joined, on its channel too.
func (s *ChatServer) SendDirectMessage(ctx context.Context, req *pb.SendDirectRequest) (*pb.SendResponse, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	ref, message, err := s.messages.SendDirect(ctx, chat.SendDirectCommand{
		SenderID:    userID,
		RecipientID: req.RecipientID,
		Content:     req.Content,
		Attachment:  toAttachment(req.Attachment),
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &pb.SendResponse{ConversationID: ref.ID.String(), Message: toMessage(message)}, nil
}

func (s *ChatServer) SendGroupMessage(ctx context.Context, req *pb.SendGroupRequest) (*pb.SendResponse, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	ref, message, err := s.messages.SendGroup(ctx, chat.SendGroupCommand{
		GroupID:    req.GroupID,
		SenderID:   userID,
		Content:    req.Content,
		Attachment: toAttachment(req.Attachment),
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &pb.SendResponse{ConversationID: ref.ID.String(), Message: toMessage(message)}, nil
}

func (s *ChatServer) GetDirectMessages(ctx context.Context, req *pb.GetDirectMessagesRequest) (*pb.MessagesPage, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	page, err := s.messages.GetDirectMessages(ctx, chat.GetDirectMessagesCommand{
		UserID:      userID,
		OtherID:     req.OtherUserID,
		PageRequest: chat.PageRequest{Page: req.Page, Limit: req.Limit},
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return toMessagesPage(page), nil
}

func (s *ChatServer) GetGroupMessages(ctx context.Context, req *pb.GetGroupMessagesRequest) (*pb.MessagesPage, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	page, err := s.messages.GetGroupMessages(ctx, chat.GetGroupMessagesCommand{
		GroupID:     req.GroupID,
		UserID:      userID,
		PageRequest: chat.PageRequest{Page: req.Page, Limit: req.Limit},
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return toMessagesPage(page), nil
}

func (s *ChatServer) RecallMessage(ctx context.Context, req *pb.RecallRequest) (*pb.RecallResponse, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	result, err := s.messages.Recall(ctx, chat.RecallCommand{MessageID: req.MessageID, RequesterID: userID})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &pb.RecallResponse{Success: result.Success, MessageID: result.MessageID.String()}, nil
}

// SetDisappearing targets exactly one of a one-to-one conversation or a group.
func (s *ChatServer) SetDisappearing(ctx context.Context, req *pb.SetDisappearingRequest) (*pb.Policy, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	ref, err := toRef(req.ConversationID, req.GroupID)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	policy, err := s.conversations.SetDisappearing(ctx, chat.SetDisappearingCommand{
		Conversation: ref,
		RequesterID:  userID,
		Enabled:      req.Enabled,
		Seconds:      req.Seconds,
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return lo.ToPtr(toPolicy(ref.ID, policy)), nil
}

func (s *ChatServer) CreateGroup(ctx context.Context, req *pb.CreateGroupRequest) (*pb.Group, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	group, err := s.groups.Create(ctx, chat.CreateGroupCommand{
		Name:         req.Name,
		AdminID:      userID,
		Participants: req.Participants,
		Avatar:       toAttachment(req.Avatar),
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return lo.ToPtr(toGroup(group)), nil
}

func (s *ChatServer) AddGroupMember(ctx context.Context, req *pb.AddMemberRequest) (*pb.AddMemberResponse, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	_, err = s.groups.AddMember(ctx, chat.AddMemberCommand{GroupID: req.GroupID, RequesterID: userID, MemberID: req.MemberID})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &pb.AddMemberResponse{Success: true}, nil
}

func (s *ChatServer) ListConversations(ctx context.Context, _ *pb.ListRequest) (*pb.ConversationList, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	summaries, err := s.conversations.ListConversations(ctx, userID)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &pb.ConversationList{
		Conversations: lo.Map(summaries, func(item services.ConversationSummary, _ int) pb.Conversation {
			conversation := pb.Conversation{
				ID:           item.Conversation.ConversationID.String(),
				Participants: item.Conversation.Participants(),
				Policy:       toPolicy(item.Conversation.ConversationID, item.Conversation.Policy()),
			}
			if item.LastMessage != nil {
				conversation.LastMessage = lo.ToPtr(toMessage(*item.LastMessage))
			}
			return conversation
		}),
	}, nil
}

func (s *ChatServer) ListGroups(ctx context.Context, _ *pb.ListRequest) (*pb.GroupList, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := s.groups.ListGroups(ctx, userID)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &pb.GroupList{Groups: lo.Map(groups, func(g chat.Group, _ int) pb.Group { return toGroup(g) })}, nil
}

// toRef reads a conversation reference given as either a conversation id or a group id.
func toRef(conversationID, groupID string) (chat.Ref, error) {
	switch {
	case conversationID != "" && groupID != "":
		return chat.Ref{}, fmt.Errorf("%w: conversationId and groupId are exclusive", errors.ErrValidation)
	case conversationID != "":
		id, err := uuid.Parse(conversationID)
		if err != nil {
			return chat.Ref{}, fmt.Errorf("%w: malformed conversation id", errors.ErrValidation)
		}
		return chat.Ref{Kind: chat.OneToOneKind, ID: id}, nil
	case groupID != "":
		id, err := uuid.Parse(groupID)
		if err != nil {
			return chat.Ref{}, fmt.Errorf("%w: malformed group id", errors.ErrValidation)
		}
		return chat.Ref{Kind: chat.GroupKind, ID: id}, nil
	default:
		return chat.Ref{}, fmt.Errorf("%w: conversationId or groupId is required", errors.ErrValidation)
	}
}

func toAttachment(a *pb.Attachment) *chat.Attachment {
	if a == nil {
		return nil
	}
	return &chat.Attachment{FileName: a.FileName, Data: a.Data}
}

func toMessage(m chat.ExpandedMessage) pb.Message {
	return pb.Message{
		ID:             m.ID.String(),
		ConversationID: m.Conversation.ID.String(),
		Sender:         pb.Sender{ID: m.Sender.ID, Username: m.Sender.Username, Avatar: m.Sender.Avatar},
		Content:        m.Content,
		Kind:           string(m.Kind),
		CreatedAt:      m.CreatedAt,
		ExpiresAt:      m.ExpiresAt,
		Recalled:       m.Recalled,
		ReadBy:         m.ReadBy,
	}
}

func toMessagesPage(page services.ConversationPage) *pb.MessagesPage {
	return &pb.MessagesPage{
		ConversationID: page.Conversation.ID.String(),
		Page:           page.Page,
		Limit:          page.Limit,
		Total:          page.Total,
		Messages:       lo.Map(page.Messages, func(m chat.ExpandedMessage, _ int) pb.Message { return toMessage(m) }),
	}
}

func toPolicy(conversationID uuid.UUID, policy chat.Policy) pb.Policy {
	return pb.Policy{ConversationID: conversationID.String(), Enabled: policy.Enabled, Seconds: policy.AfterSeconds}
}

func toGroup(g chat.Group) pb.Group {
	return pb.Group{
		ID:           g.GroupID.String(),
		Name:         g.Name,
		AdminID:      g.AdminID,
		Participants: g.Members,
		AvatarRef:    g.AvatarRef,
		Policy:       toPolicy(g.GroupID, g.Policy()),
	}
}
