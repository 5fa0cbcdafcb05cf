//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"ephemeral-chat/domain/chat"
	"ephemeral-chat/domain/event"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	if named, ok := w.(interface{ Name() string }); ok {
		return named.Name()
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the delivery end of one connected client.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Broadcaster is what request handlers use to notify rooms.
// Publishing never fails the caller: it reports whether the event was queued.
type Broadcaster interface {
	Publish(evt event.DomainEvent) bool
}

// IRoomDirectory is the side of the hub read by the fanout worker.
type IRoomDirectory interface {
	Queue() <-chan event.Envelope
	Recipients(envelope event.Envelope) []EventSink
}

// IHub maps rooms to connected clients.
type IHub interface {
	Broadcaster
	Connect(clientID string, sink EventSink)
	Disconnect(clientID string)
	Authenticate(clientID, userID string)
	UserOf(clientID string) string
	Join(clientID string, room chat.RoomKey)
	Leave(clientID string, room chat.RoomKey)
	Relay(fromClientID string, evt event.DomainEvent) bool
}

// BlobRef is a retrievable reference to an uploaded file.
type BlobRef struct {
	Ref  string
	MIME string
}

// BlobStore keeps uploaded files outside the message store.
type BlobStore interface {
	Put(ctx context.Context, fileName string, data []byte) (BlobRef, error)
}

// Authenticator turns a bearer token into a user id.
type Authenticator interface {
	Authenticate(token string) (string, error)
}
