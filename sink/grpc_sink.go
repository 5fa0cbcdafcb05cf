package sink

import (
	"context"
	"ephemeral-chat/contract"
	"ephemeral-chat/domain/event"
	"ephemeral-chat/errors"
)

// GrpcSink buffers the events of one connected client until its stream
// handler writes them out.
type GrpcSink struct {
	events chan event.DomainEvent
}

var _ contract.EventSink = (*GrpcSink)(nil)

func NewGrpcSink(bufferSize int) *GrpcSink {
	return &GrpcSink{events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by the fanout worker. A full buffer drops the event
// rather than stalling delivery to the rest of the room.
func (s *GrpcSink) Consume(ctx context.Context, e event.DomainEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.events <- e:
		return nil
	default:
		return errors.ErrSinkFull
	}
}

func (s *GrpcSink) Events() <-chan event.DomainEvent {
	return s.events
}
