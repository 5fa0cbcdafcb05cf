package workers

import (
	"context"
	"ephemeral-chat/contract"
	"ephemeral-chat/domain/event"
	"ephemeral-chat/observability"
	"log/slog"
	"sync"
	"time"
)

// EventFanout drains the hub queue and delivers each event to the sinks
// joined to its room.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// ordering, durability, or retries. A slow sink is abandoned after
// sinkTimeout and never blocks the others.
type EventFanout struct {
	log         *slog.Logger
	directory   contract.IRoomDirectory
	metrics     *observability.Metrics
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, directory contract.IRoomDirectory, metrics *observability.Metrics, sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{log: log, directory: directory, metrics: metrics, sinkTimeout: sinkTimeout}
}

func (w *EventFanout) Name() string { return "event_fanout" }

func (w *EventFanout) Run(ctx context.Context) error {
	queue := w.directory.Queue()
	for {
		select {
		case envelope := <-queue:
			w.Fanout(ctx, envelope)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fanout")
			return nil
		}
	}
}

// Fanout delivers one event to every recipient concurrently and waits for
// all of them, each bounded by the sink timeout.
func (w *EventFanout) Fanout(ctx context.Context, envelope event.Envelope) {
	sinks := w.directory.Recipients(envelope)
	if len(sinks) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, sink := range sinks {
		wg.Add(1)
		go func(sink contract.EventSink) {
			defer wg.Done()
			sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
			defer cancel()
			if err := sink.Consume(sinkCtx, envelope.Event); err != nil {
				w.metrics.BroadcastDropped.Inc()
				w.log.Debug("Event not delivered",
					"event", envelope.Event.EventName(),
					"room", envelope.Event.RoomKey(),
					"error", err)
			}
		}(sink)
	}
	wg.Wait()
}
