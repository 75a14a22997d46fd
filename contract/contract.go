//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-board/domain"
	"chat-board/domain/event"
	"chat-board/protocol"
	"context"
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
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

type IRegistry interface {
	Subscribe(sessionID string, sink EventSink)
	Unsubscribe(sessionID string) bool
	GetSinks() map[string]EventSink
	Len() int
}

// IBoard is the broadcast hub seen by a session.
type IBoard interface {
	Snapshot() []domain.Message
	Join(ctx context.Context, sessionID, name string, sink EventSink)
	Post(ctx context.Context, message domain.Message)
	Leave(ctx context.Context, sessionID, name string)
}

// IBoardStats is the read-only view used by health reporting and gauges.
type IBoardStats interface {
	Members() int
	Len() int
}

// IAssistant never fails: errors are turned into a fixed reply.
type IAssistant interface {
	Suggest(ctx context.Context, history []domain.Message, prompt string) string
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type ICensor interface {
	Censor(text string) (string, []string)
}

// IConnectionHandler runs one session over an accepted transport until it closes.
type IConnectionHandler interface {
	Serve(ctx context.Context, conn protocol.Conn) error
}
