package chat

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "chat.ChatService"

const (
	ChatService_SendDirectMessage_FullMethodName = "/" + ServiceName + "/SendDirectMessage"
	ChatService_SendGroupMessage_FullMethodName  = "/" + ServiceName + "/SendGroupMessage"
	ChatService_GetDirectMessages_FullMethodName = "/" + ServiceName + "/GetDirectMessages"
	ChatService_GetGroupMessages_FullMethodName  = "/" + ServiceName + "/GetGroupMessages"
	ChatService_RecallMessage_FullMethodName     = "/" + ServiceName + "/RecallMessage"
	ChatService_SetDisappearing_FullMethodName   = "/" + ServiceName + "/SetDisappearing"
	ChatService_CreateGroup_FullMethodName       = "/" + ServiceName + "/CreateGroup"
	ChatService_AddGroupMember_FullMethodName    = "/" + ServiceName + "/AddGroupMember"
	ChatService_ListConversations_FullMethodName = "/" + ServiceName + "/ListConversations"
	ChatService_ListGroups_FullMethodName        = "/" + ServiceName + "/ListGroups"
	ChatService_Channel_FullMethodName           = "/" + ServiceName + "/Channel"
)

// ChatServiceServer is the server API for the chat service.
// Every unary call acts on behalf of the authenticated caller.
type ChatServiceServer interface {
	SendDirectMessage(context.Context, *SendDirectRequest) (*SendResponse, error)
	SendGroupMessage(context.Context, *SendGroupRequest) (*SendResponse, error)
	GetDirectMessages(context.Context, *GetDirectMessagesRequest) (*MessagesPage, error)
	GetGroupMessages(context.Context, *GetGroupMessagesRequest) (*MessagesPage, error)
	RecallMessage(context.Context, *RecallRequest) (*RecallResponse, error)
	SetDisappearing(context.Context, *SetDisappearingRequest) (*Policy, error)
	CreateGroup(context.Context, *CreateGroupRequest) (*Group, error)
	AddGroupMember(context.Context, *AddMemberRequest) (*AddMemberResponse, error)
	ListConversations(context.Context, *ListRequest) (*ConversationList, error)
	ListGroups(context.Context, *ListRequest) (*GroupList, error)
	Channel(ChatService_ChannelServer) error
}

// UnimplementedChatServiceServer can be embedded to stay forward compatible.
type UnimplementedChatServiceServer struct{}

func (UnimplementedChatServiceServer) SendDirectMessage(context.Context, *SendDirectRequest) (*SendResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SendDirectMessage not implemented")
}
func (UnimplementedChatServiceServer) SendGroupMessage(context.Context, *SendGroupRequest) (*SendResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SendGroupMessage not implemented")
}
func (UnimplementedChatServiceServer) GetDirectMessages(context.Context, *GetDirectMessagesRequest) (*MessagesPage, error) {
	return nil, status.Error(codes.Unimplemented, "method GetDirectMessages not implemented")
}
func (UnimplementedChatServiceServer) GetGroupMessages(context.Context, *GetGroupMessagesRequest) (*MessagesPage, error) {
	return nil, status.Error(codes.Unimplemented, "method GetGroupMessages not implemented")
}
func (UnimplementedChatServiceServer) RecallMessage(context.Context, *RecallRequest) (*RecallResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RecallMessage not implemented")
}
func (UnimplementedChatServiceServer) SetDisappearing(context.Context, *SetDisappearingRequest) (*Policy, error) {
	return nil, status.Error(codes.Unimplemented, "method SetDisappearing not implemented")
}
func (UnimplementedChatServiceServer) CreateGroup(context.Context, *CreateGroupRequest) (*Group, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateGroup not implemented")
}
func (UnimplementedChatServiceServer) AddGroupMember(context.Context, *AddMemberRequest) (*AddMemberResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method AddGroupMember not implemented")
}
func (UnimplementedChatServiceServer) ListConversations(context.Context, *ListRequest) (*ConversationList, error) {
	return nil, status.Error(codes.Unimplemented, "method ListConversations not implemented")
}
func (UnimplementedChatServiceServer) ListGroups(context.Context, *ListRequest) (*GroupList, error) {
	return nil, status.Error(codes.Unimplemented, "method ListGroups not implemented")
}
func (UnimplementedChatServiceServer) Channel(ChatService_ChannelServer) error {
	return status.Error(codes.Unimplemented, "method Channel not implemented")
}

// ChatService_ChannelServer is the server side of the bidirectional event stream.
type ChatService_ChannelServer interface {
	Send(*ServerFrame) error
	Recv() (*ClientFrame, error)
	grpc.ServerStream
}

type chatServiceChannelServer struct {
	grpc.ServerStream
}

func (x *chatServiceChannelServer) Send(m *ServerFrame) error {
	return x.ServerStream.SendMsg(m)
}

func (x *chatServiceChannelServer) Recv() (*ClientFrame, error) {
	m := new(ClientFrame)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func channelHandler(srv any, stream grpc.ServerStream) error {
	return srv.(ChatServiceServer).Channel(&chatServiceChannelServer{stream})
}

// unary builds the method descriptor of one request/response call.
func unary[Req, Resp any](name string, call func(ChatServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ChatServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ChatServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var ChatService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("SendDirectMessage", ChatServiceServer.SendDirectMessage),
		unary("SendGroupMessage", ChatServiceServer.SendGroupMessage),
		unary("GetDirectMessages", ChatServiceServer.GetDirectMessages),
		unary("GetGroupMessages", ChatServiceServer.GetGroupMessages),
		unary("RecallMessage", ChatServiceServer.RecallMessage),
		unary("SetDisappearing", ChatServiceServer.SetDisappearing),
		unary("CreateGroup", ChatServiceServer.CreateGroup),
		unary("AddGroupMember", ChatServiceServer.AddGroupMember),
		unary("ListConversations", ChatServiceServer.ListConversations),
		unary("ListGroups", ChatServiceServer.ListGroups),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Channel",
			Handler:       channelHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "proto/chat",
}

func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ChatService_ServiceDesc, srv)
}

// ChatServiceClient is the typed client of the chat service.
// The connection must be dialed with WithJSONCodec.
type ChatServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewChatServiceClient(cc grpc.ClientConnInterface) *ChatServiceClient {
	return &ChatServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ChatServiceClient) SendDirectMessage(ctx context.Context, in *SendDirectRequest, opts ...grpc.CallOption) (*SendResponse, error) {
	return invoke[SendResponse](ctx, c.cc, ChatService_SendDirectMessage_FullMethodName, in, opts)
}

func (c *ChatServiceClient) SendGroupMessage(ctx context.Context, in *SendGroupRequest, opts ...grpc.CallOption) (*SendResponse, error) {
	return invoke[SendResponse](ctx, c.cc, ChatService_SendGroupMessage_FullMethodName, in, opts)
}

func (c *ChatServiceClient) GetDirectMessages(ctx context.Context, in *GetDirectMessagesRequest, opts ...grpc.CallOption) (*MessagesPage, error) {
	return invoke[MessagesPage](ctx, c.cc, ChatService_GetDirectMessages_FullMethodName, in, opts)
}

func (c *ChatServiceClient) GetGroupMessages(ctx context.Context, in *GetGroupMessagesRequest, opts ...grpc.CallOption) (*MessagesPage, error) {
	return invoke[MessagesPage](ctx, c.cc, ChatService_GetGroupMessages_FullMethodName, in, opts)
}

func (c *ChatServiceClient) RecallMessage(ctx context.Context, in *RecallRequest, opts ...grpc.CallOption) (*RecallResponse, error) {
	return invoke[RecallResponse](ctx, c.cc, ChatService_RecallMessage_FullMethodName, in, opts)
}

func (c *ChatServiceClient) SetDisappearing(ctx context.Context, in *SetDisappearingRequest, opts ...grpc.CallOption) (*Policy, error) {
	return invoke[Policy](ctx, c.cc, ChatService_SetDisappearing_FullMethodName, in, opts)
}

func (c *ChatServiceClient) CreateGroup(ctx context.Context, in *CreateGroupRequest, opts ...grpc.CallOption) (*Group, error) {
	return invoke[Group](ctx, c.cc, ChatService_CreateGroup_FullMethodName, in, opts)
}

func (c *ChatServiceClient) AddGroupMember(ctx context.Context, in *AddMemberRequest, opts ...grpc.CallOption) (*AddMemberResponse, error) {
	return invoke[AddMemberResponse](ctx, c.cc, ChatService_AddGroupMember_FullMethodName, in, opts)
}

func (c *ChatServiceClient) ListConversations(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ConversationList, error) {
	return invoke[ConversationList](ctx, c.cc, ChatService_ListConversations_FullMethodName, in, opts)
}

func (c *ChatServiceClient) ListGroups(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*GroupList, error) {
	return invoke[GroupList](ctx, c.cc, ChatService_ListGroups_FullMethodName, in, opts)
}

// ChatService_ChannelClient is the client side of the bidirectional event stream.
type ChatService_ChannelClient interface {
	Send(*ClientFrame) error
	Recv() (*ServerFrame, error)
	grpc.ClientStream
}

type chatServiceChannelClient struct {
	grpc.ClientStream
}

func (x *chatServiceChannelClient) Send(m *ClientFrame) error {
	return x.ClientStream.SendMsg(m)
}

func (x *chatServiceChannelClient) Recv() (*ServerFrame, error) {
	m := new(ServerFrame)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *ChatServiceClient) Channel(ctx context.Context, opts ...grpc.CallOption) (ChatService_ChannelClient, error) {
	stream, err := c.cc.NewStream(ctx, &ChatService_ServiceDesc.Streams[0], ChatService_Channel_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	return &chatServiceChannelClient{stream}, nil
}
