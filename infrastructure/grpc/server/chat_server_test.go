package server

import (
	"context"
	"ephemeral-chat/auth"
	"ephemeral-chat/domain/chat"
	"ephemeral-chat/infrastructure/blob"
	"ephemeral-chat/infrastructure/storage"
	"ephemeral-chat/observability"
	pb "ephemeral-chat/proto/chat"
	"ephemeral-chat/runtime"
	"ephemeral-chat/runtime/workers"
	"ephemeral-chat/services"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const testSecret = "test-secret"

type testEnv struct {
	client        *pb.ChatServiceClient
	hub           *runtime.Hub
	authenticator *auth.JWTAuthenticator
}

func startServer(t *testing.T) testEnv {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	req.NoError(err)
	store, err := blob.NewLocalStore(log, t.TempDir(), blob.DefaultMaxBytes)
	req.NoError(err)

	metrics := observability.NopMetrics()
	hub := runtime.NewHub(log, metrics, 100)
	messages := storage.NewMessageRepository(db, log)
	conversations := storage.NewConversationRepository(db, log)
	users := storage.NewUserRepository(db, log)
	authenticator := auth.NewJWTAuthenticator(testSecret)

	chatServer := NewChatServer(log,
		services.NewMessageService(log, messages, conversations, users, store, hub, metrics),
		services.NewConversationService(log, conversations, messages, users),
		services.NewGroupService(log, conversations, store),
		hub, 10, 100, 100)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = workers.NewEventFanout(log, hub, metrics, time.Second).Run(ctx) }()

	listener := bufconn.Listen(1024 * 1024)
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(auth.UnaryInterceptor(authenticator)),
		grpc.StreamInterceptor(auth.StreamInterceptor(authenticator)),
	)
	pb.RegisterChatServiceServer(grpcServer, chatServer)
	go func() { _ = grpcServer.Serve(listener) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		pb.WithJSONCodec(),
	)
	req.NoError(err)

	t.Cleanup(func() {
		_ = conn.Close()
		grpcServer.Stop()
		cancel()
		_ = db.Close()
	})
	return testEnv{client: pb.NewChatServiceClient(conn), hub: hub, authenticator: authenticator}
}

func (e testEnv) as(t *testing.T, userID string) context.Context {
	token, err := e.authenticator.GenerateToken(userID, time.Hour)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func TestChatServer_RequiresToken(t *testing.T) {
	req := require.New(t)
	env := startServer(t)

	// When a unary call carries no token
	_, err := env.client.ListGroups(context.Background(), &pb.ListRequest{})

	// Then it is rejected
	req.Equal(codes.Unauthenticated, status.Code(err))
}

func TestChatServer_DirectMessaging(t *testing.T) {
	req := require.New(t)
	env := startServer(t)
	alice, bob := uuid.NewString(), uuid.NewString()
	aliceCtx, bobCtx := env.as(t, alice), env.as(t, bob)

	// Given bob opens the empty conversation with alice and joins its room
	page, err := env.client.GetDirectMessages(bobCtx, &pb.GetDirectMessagesRequest{OtherUserID: alice})
	req.NoError(err)
	req.Zero(page.Total)
	conversationID := page.ConversationID

	streamCtx, cancel := context.WithCancel(bobCtx)
	defer cancel()
	stream, err := env.client.Channel(streamCtx)
	req.NoError(err)
	req.NoError(stream.Send(&pb.ClientFrame{Type: pb.FrameJoinConversation, ConversationID: conversationID}))
	req.Eventually(func() bool {
		return len(env.hub.Members(chat.RoomKey(conversationID))) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// When alice sends a message
	sent, err := env.client.SendDirectMessage(aliceCtx, &pb.SendDirectRequest{RecipientID: bob, Content: "hi"})
	req.NoError(err)
	req.Equal(conversationID, sent.ConversationID)
	req.Equal(alice, sent.Message.Sender.ID)

	// Then bob receives it on his channel
	frame, err := stream.Recv()
	req.NoError(err)
	req.Equal("new_message", frame.Event)
	req.Equal(conversationID, frame.ConversationID)
	req.NotNil(frame.Message)
	req.Equal("hi", frame.Message.Content)

	// And bob may not recall it
	_, err = env.client.RecallMessage(bobCtx, &pb.RecallRequest{MessageID: sent.Message.ID})
	req.Equal(codes.PermissionDenied, status.Code(err))

	// When alice recalls it
	recalled, err := env.client.RecallMessage(aliceCtx, &pb.RecallRequest{MessageID: sent.Message.ID})
	req.NoError(err)
	req.True(recalled.Success)

	// Then bob is notified and the message is gone from the history
	frame, err = stream.Recv()
	req.NoError(err)
	req.Equal("message_recalled", frame.Event)
	req.Equal(sent.Message.ID, frame.MessageID)

	page, err = env.client.GetDirectMessages(aliceCtx, &pb.GetDirectMessagesRequest{OtherUserID: bob})
	req.NoError(err)
	req.Zero(page.Total)

	// And a second recall reports it as not found
	_, err = env.client.RecallMessage(aliceCtx, &pb.RecallRequest{MessageID: sent.Message.ID})
	req.Equal(codes.NotFound, status.Code(err))
}

func TestChatServer_GroupsAndTyping(t *testing.T) {
	req := require.New(t)
	env := startServer(t)
	admin, member := uuid.NewString(), uuid.NewString()
	adminCtx, memberCtx := env.as(t, admin), env.as(t, member)

	// Given a group with one member besides the admin
	group, err := env.client.CreateGroup(adminCtx, &pb.CreateGroupRequest{Name: "team", Participants: []string{member}})
	req.NoError(err)
	req.ElementsMatch([]string{admin, member}, group.Participants)

	// And only the admin may change its policy
	_, err = env.client.SetDisappearing(memberCtx, &pb.SetDisappearingRequest{GroupID: group.ID, Enabled: true, Seconds: 10})
	req.Equal(codes.PermissionDenied, status.Code(err))
	policy, err := env.client.SetDisappearing(adminCtx, &pb.SetDisappearingRequest{GroupID: group.ID, Enabled: true, Seconds: -3})
	req.NoError(err)
	req.Equal(pb.Policy{ConversationID: group.ID, Enabled: true, Seconds: 1}, *policy)

	// And both have joined the group room
	room := chat.GroupRoomKey(uuid.MustParse(group.ID))
	adminCtx, cancelAdmin := context.WithCancel(adminCtx)
	defer cancelAdmin()
	memberCtx, cancelMember := context.WithCancel(memberCtx)
	defer cancelMember()
	adminStream, err := env.client.Channel(adminCtx)
	req.NoError(err)
	memberStream, err := env.client.Channel(memberCtx)
	req.NoError(err)
	req.NoError(adminStream.Send(&pb.ClientFrame{Type: pb.FrameJoinGroup, GroupID: group.ID}))
	req.NoError(memberStream.Send(&pb.ClientFrame{Type: pb.FrameJoinGroup, GroupID: group.ID}))
	req.Eventually(func() bool { return len(env.hub.Members(room)) == 2 }, 2*time.Second, 10*time.Millisecond)

	// When the member starts typing
	req.NoError(memberStream.Send(&pb.ClientFrame{Type: pb.FrameTyping, GroupID: group.ID, Typing: true}))

	// Then the admin sees it attributed to the member
	frame, err := adminStream.Recv()
	req.NoError(err)
	req.Equal("typing", frame.Event)
	req.Equal(group.ID, frame.GroupID)
	req.Equal(member, frame.UserID)
	req.True(frame.Typing)

	// When the member posts under the one second policy
	sent, err := env.client.SendGroupMessage(memberCtx, &pb.SendGroupRequest{GroupID: group.ID, Content: "brb"})
	req.NoError(err)
	req.NotNil(sent.Message.ExpiresAt)

	// Then both members are notified
	frame, err = memberStream.Recv()
	req.NoError(err)
	req.Equal("new_message", frame.Event)
	frame, err = adminStream.Recv()
	req.NoError(err)
	req.Equal("new_message", frame.Event)
	req.Equal(sent.Message.ID, frame.MessageID)

	// And an outsider cannot read the group
	_, err = env.client.GetGroupMessages(env.as(t, uuid.NewString()), &pb.GetGroupMessagesRequest{GroupID: group.ID})
	req.Equal(codes.PermissionDenied, status.Code(err))

	// And the group is listed for the member
	groups, err := env.client.ListGroups(memberCtx, &pb.ListRequest{})
	req.NoError(err)
	req.Len(groups.Groups, 1)
}
