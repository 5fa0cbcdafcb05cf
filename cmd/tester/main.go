package main

import (
	"context"
	"ephemeral-chat/auth"
	pb "ephemeral-chat/proto/chat"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Config of the scripted scenario.
type Config struct {
	ServerAddr      string        `envconfig:"SERVER_ADDR" default:"localhost:8080"`
	JWTSecret       string        `envconfig:"JWT_SECRET" required:"true"`
	TokenDuration   time.Duration `envconfig:"AUTH_TOKEN_DURATION" default:"1h"`
	DisappearAfter  int           `envconfig:"DISAPPEAR_AFTER_SECONDS" default:"5"`
	WaitForCleanup  time.Duration `envconfig:"WAIT_FOR_CLEANUP" default:"70s"`
	SkipCleanupWait bool          `envconfig:"SKIP_CLEANUP_WAIT" default:"false"`
}

// main plays a two-user conversation against a running server:
// send, read, recall, then a disappearing message swept by the cleanup task.
func main() {
	config, err := loadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	conn, err := grpc.NewClient(config.ServerAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		pb.WithJSONCodec(),
	)
	if err != nil {
		log.Fatalf("Unable to connect: %v", err)
	}
	defer conn.Close()

	client := pb.NewChatServiceClient(conn)
	authenticator := auth.NewJWTAuthenticator(config.JWTSecret)
	alice, bob := uuid.NewString(), uuid.NewString()
	asAlice, err := as(authenticator, alice, config.TokenDuration)
	check(err)
	asBob, err := as(authenticator, bob, config.TokenDuration)
	check(err)

	step("1. alice says hi to bob")
	sent, err := client.SendDirectMessage(asAlice, &pb.SendDirectRequest{RecipientID: bob, Content: "hi"})
	check(err)
	fmt.Printf("conversation %s, message %s\n", sent.ConversationID, sent.Message.ID)

	step("2. bob reads the conversation")
	page, err := client.GetDirectMessages(asBob, &pb.GetDirectMessagesRequest{OtherUserID: alice})
	check(err)
	expect(page.Total == 1, "bob sees %d message(s)", page.Total)

	step("3. alice recalls her message")
	_, err = client.RecallMessage(asAlice, &pb.RecallRequest{MessageID: sent.Message.ID})
	check(err)
	page, err = client.GetDirectMessages(asBob, &pb.GetDirectMessagesRequest{OtherUserID: alice})
	check(err)
	expect(page.Total == 0, "bob sees %d message(s) after the recall", page.Total)

	step(fmt.Sprintf("4. bob turns disappearing messages on (%ds)", config.DisappearAfter))
	policy, err := client.SetDisappearing(asBob, &pb.SetDisappearingRequest{
		ConversationID: sent.ConversationID,
		Enabled:        true,
		Seconds:        config.DisappearAfter,
	})
	check(err)
	expect(policy.Enabled, "policy enabled=%t seconds=%d", policy.Enabled, policy.Seconds)

	ephemeral, err := client.SendDirectMessage(asAlice, &pb.SendDirectRequest{RecipientID: bob, Content: "this message will self destruct"})
	check(err)
	expect(ephemeral.Message.ExpiresAt != nil, "message expires at %v", ephemeral.Message.ExpiresAt)

	if config.SkipCleanupWait {
		color.Yellow.Println("Cleanup wait skipped")
		return
	}
	step(fmt.Sprintf("5. waiting %s for the cleanup sweep", config.WaitForCleanup))
	time.Sleep(config.WaitForCleanup)
	page, err = client.GetDirectMessages(asBob, &pb.GetDirectMessagesRequest{OtherUserID: alice})
	check(err)
	expect(page.Total == 0, "bob sees %d message(s) after the sweep", page.Total)

	color.Green.Println("Scenario completed")
}

func loadConfig() (Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return Config{}, err
	}
	if config.TokenDuration <= 0 {
		return Config{}, fmt.Errorf("AUTH_TOKEN_DURATION must be positive, got %s", config.TokenDuration)
	}
	return config, nil
}

// as returns a context carrying a bearer token of userID valid for ttl.
func as(authenticator *auth.JWTAuthenticator, userID string, ttl time.Duration) (context.Context, error) {
	token, err := authenticator.GenerateToken(userID, ttl)
	if err != nil {
		return nil, err
	}
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token), nil
}

func step(title string) {
	fmt.Println(color.New(color.BgBlack, color.FgGreen).Render("  ====== " + title + " ======"))
}

func check(err error) {
	if err != nil {
		log.Fatal(color.Red.Sprintf("Unexpected error: %v", err))
	}
}

func expect(ok bool, format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if !ok {
		log.Fatal(color.Red.Sprintf("FAILED: %s", line))
	}
	color.Green.Println("OK: " + line)
}
