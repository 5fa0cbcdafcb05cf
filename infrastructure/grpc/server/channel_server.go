package server

import (
	"ephemeral-chat/auth"
	"ephemeral-chat/domain/chat"
	"ephemeral-chat/domain/event"
	"ephemeral-chat/errors"
	pb "ephemeral-chat/proto/chat"
	"ephemeral-chat/sink"
	"io"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Channel is the real-time connection of one client.
// It registers a dedicated sink in the hub and blocks until the client goes away.
// Cleanup is deferred so the hub never keeps a sink for a dead stream.
func (s *ChatServer) Channel(stream pb.ChatService_ChannelServer) error {
	ctx := stream.Context()
	clientID := uuid.NewString()
	grpcSink := sink.NewGrpcSink(s.connectionBufferSize)

	s.hub.Connect(clientID, grpcSink)
	defer s.hub.Disconnect(clientID)
	if userID, ok := auth.UserIDFromContext(ctx); ok {
		s.hub.Authenticate(clientID, userID)
	}
	s.log.Debug("Client connected", "client_id", clientID)

	received := make(chan error, 1)
	go func() {
		received <- s.receive(stream, clientID, rate.NewLimiter(s.typingRate, s.typingBurst))
	}()

	for {
		select {
		case <-ctx.Done():
			s.log.Debug("Client disconnected", "client_id", clientID)
			return nil
		case err := <-received:
			if errors.Is(err, io.EOF) {
				s.log.Debug("Client closed its channel", "client_id", clientID)
				return nil
			}
			return err
		case evt := <-grpcSink.Events():
			if err := stream.Send(toServerFrame(evt)); err != nil {
				s.log.Error("failed to push event to stream",
					"client_id", clientID,
					"event", evt.EventName(),
					"error", err)
				return err
			}
		}
	}
}

// receive handles client frames until the stream ends.
// Malformed frames are ignored so a buggy client cannot tear down its own channel.
func (s *ChatServer) receive(stream pb.ChatService_ChannelServer, clientID string, typing *rate.Limiter) error {
	for {
		frame, err := stream.Recv()
		if err != nil {
			return err
		}
		s.handleFrame(clientID, frame, typing)
	}
}

func (s *ChatServer) handleFrame(clientID string, frame *pb.ClientFrame, typing *rate.Limiter) {
	switch frame.Type {
	case pb.FrameAuthenticate:
		s.authenticate(clientID, frame.UserID)
	case pb.FrameJoinConversation:
		if ref, ok := s.frameRef(clientID, frame.ConversationID, ""); ok {
			s.hub.Join(clientID, ref.RoomKey())
		}
	case pb.FrameJoinGroup:
		if ref, ok := s.frameRef(clientID, "", frame.GroupID); ok {
			s.hub.Join(clientID, ref.RoomKey())
		}
	case pb.FrameLeaveGroup:
		if ref, ok := s.frameRef(clientID, "", frame.GroupID); ok {
			s.hub.Leave(clientID, ref.RoomKey())
		}
	case pb.FrameTyping:
		ref, ok := s.frameRef(clientID, frame.ConversationID, frame.GroupID)
		if !ok {
			return
		}
		if !typing.Allow() {
			s.log.Debug("Typing event throttled", "client_id", clientID)
			return
		}
		s.hub.Relay(clientID, event.Typing{Conversation: ref, UserID: s.hub.UserOf(clientID), Typing: frame.Typing})
	case pb.FrameMarkRead:
		ref, ok := s.frameRef(clientID, frame.ConversationID, frame.GroupID)
		if !ok {
			return
		}
		s.hub.Relay(clientID, event.MessageRead{Conversation: ref, MessageID: frame.MessageID, UserID: s.hub.UserOf(clientID)})
	default:
		s.log.Debug("Unknown frame ignored", "client_id", clientID, "type", frame.Type)
	}
}

// authenticate binds userID to the connection. A connection opened with a token
// keeps the identity of its token.
func (s *ChatServer) authenticate(clientID, userID string) {
	if current := s.hub.UserOf(clientID); current != "" {
		if current != userID {
			s.log.Warn("Authenticate frame does not match the token identity", "client_id", clientID)
		}
		return
	}
	if err := chat.ValidateUserID(userID); err != nil {
		s.log.Debug("Authenticate frame ignored", "client_id", clientID, "error", err)
		return
	}
	s.hub.Authenticate(clientID, userID)
}

func (s *ChatServer) frameRef(clientID, conversationID, groupID string) (chat.Ref, bool) {
	ref, err := toRef(conversationID, groupID)
	if err != nil {
		s.log.Debug("Frame ignored", "client_id", clientID, "error", err)
		return chat.Ref{}, false
	}
	return ref, true
}

func toServerFrame(evt event.DomainEvent) *pb.ServerFrame {
	frame := &pb.ServerFrame{Event: string(evt.EventName()), Room: string(evt.RoomKey())}
	var ref chat.Ref
	switch e := evt.(type) {
	case event.MessagePosted:
		ref = e.Conversation
		message := toMessage(e.Message)
		frame.Message = &message
		frame.MessageID = message.ID
	case event.MessageRecalled:
		ref = e.Conversation
		frame.MessageID = e.MessageID.String()
	case event.Typing:
		ref = e.Conversation
		frame.UserID = e.UserID
		frame.Typing = e.Typing
	case event.MessageRead:
		ref = e.Conversation
		frame.MessageID = e.MessageID
		frame.UserID = e.UserID
	}
	if ref.Kind == chat.GroupKind {
		frame.GroupID = ref.ID.String()
	} else {
		frame.ConversationID = ref.ID.String()
	}
	return frame
}
