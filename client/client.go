package main

import (
	"context"
	"ephemeral-chat/auth"
	pb "ephemeral-chat/proto/chat"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
// A client without USER_ID listens anonymously.
type Config struct {
	ServerAddress  string        `env:"CHAT_SERVER_ADDR,default=localhost:8080"`
	JWTSecret      string        `env:"JWT_SECRET"`
	TokenDuration  time.Duration `env:"AUTH_TOKEN_DURATION,default=1h"`
	UserID         string        `env:"USER_ID"`
	ConversationID string        `env:"CONVERSATION_ID"`
	GroupID        string        `env:"GROUP_ID"`
	LogLevel       string        `env:"LOG_LEVEL,required=true"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run joins the configured rooms and prints every event until Ctrl+C.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if config.ConversationID == "" && config.GroupID == "" {
		return exitConfig, fmt.Errorf("config error: CONVERSATION_ID or GROUP_ID is required")
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.UserID != "" {
		token, err := auth.NewJWTAuthenticator(config.JWTSecret).GenerateToken(config.UserID, config.TokenDuration)
		if err != nil {
			return exitConfig, fmt.Errorf("token error: %w", err)
		}
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	}

	// 3. Establish connection to the chat server.
	conn, err := grpc.NewClient(config.ServerAddress,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		pb.WithJSONCodec(),
	)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	// 4. Open the channel and join the rooms.
	stream, err := pb.NewChatServiceClient(conn).Channel(ctx)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open stream: %w", err)
	}
	if config.ConversationID != "" {
		if err = stream.Send(&pb.ClientFrame{Type: pb.FrameJoinConversation, ConversationID: config.ConversationID}); err != nil {
			return exitRuntime, err
		}
	}
	if config.GroupID != "" {
		if err = stream.Send(&pb.ClientFrame{Type: pb.FrameJoinGroup, GroupID: config.GroupID}); err != nil {
			return exitRuntime, err
		}
	}
	log.Info(fmt.Sprintf(">>> Connected to %s (Ctrl+C to quit)...", config.ServerAddress))

	// 5. Event reception loop.
	for {
		frame, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Stopping client...")
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("stream error: %w", err)
		}
		fmt.Println(render(frame))
	}
}

func render(frame *pb.ServerFrame) string {
	at := color.Gray.Render(time.Now().Format(time.TimeOnly))
	switch frame.Event {
	case "new_message":
		line := fmt.Sprintf("[%s] %s: %s", at, color.Cyan.Render(senderName(frame.Message)), frame.Message.Content)
		if frame.Message.ExpiresAt != nil {
			line += color.Yellow.Sprintf(" (disappears at %s)", frame.Message.ExpiresAt.Local().Format(time.TimeOnly))
		}
		return line
	case "message_recalled":
		return fmt.Sprintf("[%s] %s", at, color.Red.Sprintf("message %s was recalled", frame.MessageID))
	case "typing":
		if !frame.Typing {
			return fmt.Sprintf("[%s] %s", at, color.Gray.Sprintf("%s stopped typing", orAnonymous(frame.UserID)))
		}
		return fmt.Sprintf("[%s] %s", at, color.Gray.Sprintf("%s is typing...", orAnonymous(frame.UserID)))
	case "message_read":
		return fmt.Sprintf("[%s] %s", at, color.Green.Sprintf("%s read %s", orAnonymous(frame.UserID), frame.MessageID))
	default:
		return fmt.Sprintf("[%s] %s", at, frame.Event)
	}
}

func senderName(m *pb.Message) string {
	if m == nil {
		return "?"
	}
	if m.Sender.Username != "" {
		return m.Sender.Username
	}
	return m.Sender.ID
}

func orAnonymous(userID string) string {
	if userID == "" {
		return "someone"
	}
	return userID
}
