package workers

import (
	"context"
	"ephemeral-chat/contract"
	"ephemeral-chat/domain/chat"
	"ephemeral-chat/domain/event"
	"ephemeral-chat/mocks"
	"ephemeral-chat/observability"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func recalledEvent() event.MessageRecalled {
	return event.MessageRecalled{
		Conversation: chat.Ref{Kind: chat.GroupKind, ID: uuid.New()},
		MessageID:    uuid.New(),
	}
}

func TestEventFanout_Fanout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockDirectory := mocks.NewMockIRoomDirectory(ctrl)
	mockSink := mocks.NewMockEventSink(ctrl)
	metrics := observability.NopMetrics()

	fanout := NewEventFanout(log, mockDirectory, metrics, 10*time.Second)
	envelope := event.Envelope{Event: recalledEvent()}

	// Given two sinks joined to the room
	mockDirectory.EXPECT().Recipients(envelope).Return([]contract.EventSink{mockSink, mockSink}).Times(1)
	var count atomic.Int32
	mockSink.EXPECT().Consume(gomock.Any(), envelope.Event).
		DoAndReturn(func(ctx context.Context, evt event.DomainEvent) error {
			count.Add(1)
			return nil
		}).
		Times(2)

	// When the event is fanned out
	fanout.Fanout(context.Background(), envelope)

	// Then every sink received it
	req.Equal(int32(2), count.Load())
	req.Zero(testutil.ToFloat64(metrics.BroadcastDropped))
}

func TestEventFanout_SinkTimeout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockDirectory := mocks.NewMockIRoomDirectory(ctrl)
	slowSink := mocks.NewMockEventSink(ctrl)
	fastSink := mocks.NewMockEventSink(ctrl)
	metrics := observability.NopMetrics()

	sinkTimeout := 20 * time.Millisecond
	fanout := NewEventFanout(log, mockDirectory, metrics, sinkTimeout)
	envelope := event.Envelope{Event: recalledEvent()}

	// Given a sink that never returns before its deadline
	mockDirectory.EXPECT().Recipients(envelope).Return([]contract.EventSink{slowSink, fastSink})
	slowSink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, evt event.DomainEvent) error {
			<-ctx.Done()
			return ctx.Err()
		})
	fastSink.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil)

	// When fanning out
	start := time.Now()
	fanout.Fanout(context.Background(), envelope)

	// Then the slow sink is abandoned after the timeout and counted as dropped
	req.Less(time.Since(start), time.Second)
	req.Equal(float64(1), testutil.ToFloat64(metrics.BroadcastDropped))
}

func TestEventFanout_RunDrainsQueue(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockDirectory := mocks.NewMockIRoomDirectory(ctrl)
	mockSink := mocks.NewMockEventSink(ctrl)

	queue := make(chan event.Envelope, 1)
	envelope := event.Envelope{Event: recalledEvent(), ExceptClient: "c1"}
	queue <- envelope
	delivered := make(chan struct{})

	mockDirectory.EXPECT().Queue().Return((<-chan event.Envelope)(queue))
	mockDirectory.EXPECT().Recipients(envelope).Return([]contract.EventSink{mockSink})
	mockSink.EXPECT().Consume(gomock.Any(), envelope.Event).
		DoAndReturn(func(ctx context.Context, evt event.DomainEvent) error {
			close(delivered)
			return nil
		})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- NewEventFanout(log, mockDirectory, observability.NopMetrics(), time.Second).Run(ctx) }()

	select {
	case <-delivered:
	case <-time.After(time.Second):
		req.Fail("event was not delivered")
	}
	cancel()
	req.NoError(<-done)
}
