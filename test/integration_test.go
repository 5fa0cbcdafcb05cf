package test

import (
	"context"
	"ephemeral-chat/domain/chat"
	"ephemeral-chat/domain/event"
	"ephemeral-chat/infrastructure/blob"
	"ephemeral-chat/infrastructure/storage"
	"ephemeral-chat/mocks"
	"ephemeral-chat/observability"
	"ephemeral-chat/runtime"
	"ephemeral-chat/runtime/workers"
	"ephemeral-chat/services"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func Test_Scenario(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	// Reduced to 16 Mo for testing
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)

	// 1. Create channel to wait for a signal at the end of process
	done := make(chan string, 1)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	blobs, err := blob.NewLocalStore(log, t.TempDir(), blob.DefaultMaxBytes)
	req.NoError(err)

	messageRepository := storage.NewMessageRepository(db, log)
	conversationRepository := storage.NewConversationRepository(db, log)
	userRepository := storage.NewUserRepository(db, log)
	hub := runtime.NewHub(log, metrics, 100)

	messageService := services.NewMessageService(log, messageRepository, conversationRepository, userRepository, blobs, hub, metrics)
	conversationService := services.NewConversationService(log, conversationRepository, messageRepository, userRepository)
	cleanupService := services.NewCleanupService(log, messageRepository, metrics)

	supervisor := workers.NewSupervisor(log, 200*time.Millisecond)
	supervisor.Add(workers.NewEventFanout(log, hub, metrics, time.Second))
	cleanupTask := workers.NewPeriodicTask("cleanup_sweep", log, workers.IntervalSchedule{Every: 100 * time.Millisecond},
		func(ctx context.Context, now time.Time) error {
			_, err := cleanupService.Sweep(ctx, now)
			return err
		})

	alice, bob := uuid.NewString(), uuid.NewString()
	direct, err := conversationService.Resolve(ctx, alice, bob)
	req.NoError(err)

	ctrl := gomock.NewController(t)
	mockEventSink := mocks.NewMockEventSink(ctrl)
	mockEventSink.EXPECT().
		Consume(gomock.Any(), gomock.AssignableToTypeOf(event.MessagePosted{})).
		Do(func(_ context.Context, evt event.DomainEvent) {
			done <- evt.(event.MessagePosted).Message.Content // Signaling a message has been received
		}).
		Return(nil).
		Times(1)
	hub.Connect("bob-device", mockEventSink)
	hub.Authenticate("bob-device", bob)
	hub.Join("bob-device", direct.Ref().RoomKey())

	go supervisor.Run(ctx)
	cleanupTask.Start(ctx)

	// Clean everything at the end of the test
	t.Cleanup(func() {
		supervisor.Stop()
		cleanupTask.Stop()
		_ = db.Close()
	})

	// 2. Bob switches disappearing messages on with the shortest delay
	policy, err := conversationService.SetDisappearing(ctx, chat.SetDisappearingCommand{
		Conversation: direct.Ref(),
		RequesterID:  bob,
		Enabled:      true,
		Seconds:      1,
	})
	req.NoError(err)
	req.True(policy.Enabled)

	// 3. Alice sends, bob's device receives it through the fanout
	_, sent, err := messageService.SendDirect(ctx, chat.SendDirectCommand{SenderID: alice, RecipientID: bob, Content: "self destruct"})
	req.NoError(err)
	req.NotNil(sent.ExpiresAt)

	select {
	case content := <-done:
		req.Equal("self destruct", content)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout: bob never received the message")
	}

	// 4. The periodic sweep removes it once expired
	req.Eventually(func() bool {
		return testutil.ToFloat64(metrics.MessagesExpired) == 1
	}, 5*time.Second, 100*time.Millisecond)
	page, err := messageService.GetDirectMessages(ctx, chat.GetDirectMessagesCommand{UserID: bob, OtherID: alice})
	req.NoError(err)
	req.Zero(page.Total)

	_, err = messageRepository.FindByID(sent.ID)
	req.Error(err)
}
