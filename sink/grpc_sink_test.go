package sink

import (
	"context"
	"ephemeral-chat/domain/chat"
	"ephemeral-chat/domain/event"
	"ephemeral-chat/errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGrpcSink_Consume(t *testing.T) {
	req := require.New(t)
	s := NewGrpcSink(1)
	evt := event.Typing{Conversation: chat.Ref{Kind: chat.OneToOneKind, ID: uuid.New()}, Typing: true}

	// Given a free slot the event is buffered
	req.NoError(s.Consume(context.Background(), evt))

	// When the buffer is full the next event is rejected
	req.ErrorIs(s.Consume(context.Background(), evt), errors.ErrSinkFull)

	// And an expired context is reported as such
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req.ErrorIs(s.Consume(ctx, evt), context.Canceled)

	req.Equal(evt, <-s.Events())
}
