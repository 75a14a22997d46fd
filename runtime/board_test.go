package runtime

import (
	"chat-board/domain"
	"chat-board/domain/event"
	"chat-board/errors"
	"chat-board/mocks"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// recordingSink keeps the length of every snapshot it receives.
type recordingSink struct {
	mu      sync.Mutex
	lengths []int
	last    []domain.Message
	fail    error
	closed  bool
}

func (s *recordingSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	evt := e.(event.BoardUpdated)
	s.lengths = append(s.lengths, len(evt.Messages))
	s.last = evt.Messages
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) state() ([]int, []domain.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.lengths...), s.last, s.closed
}

func newTestBoard(backlog ...domain.Message) *Board {
	return NewBoard(slog.Default(), domain.NewTranscript(backlog), NewRegistry(), time.Second)
}

func TestBoard_Join_PersistsBeforeBroadcast(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	disk := mocks.NewMockEventSink(ctrl)
	session := mocks.NewMockEventSink(ctrl)
	board := newTestBoard()
	board.Add(disk)

	isJoin := gomock.Cond(func(e any) bool {
		evt, ok := e.(event.BoardUpdated)
		return ok && len(evt.Messages) == 1 && evt.Messages[0].Body == domain.Notice{Content: "Alice has joined."}
	})

	// Given the disk sink must see the update before the session
	gomock.InOrder(
		disk.EXPECT().Consume(gomock.Any(), isJoin).Return(nil),
		session.EXPECT().Consume(gomock.Any(), isJoin).Return(nil),
	)

	// When Alice joins
	board.Join(context.Background(), "s1", "Alice", session)

	// Then she is a member and the transcript holds her notice
	req.Equal(1, board.Members())
	req.Equal(1, board.Len())
}

func TestBoard_PermanentSinkFailureDoesNotStopBroadcast(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	disk := mocks.NewMockEventSink(ctrl)
	disk.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(fmt.Errorf("disk full")).AnyTimes()
	board := newTestBoard()
	board.Add(disk)
	alice := &recordingSink{}

	board.Join(context.Background(), "s1", "Alice", alice)
	board.Post(context.Background(), domain.NewTextMessage("Alice", "still here", time.Now()))

	lengths, _, _ := alice.state()
	req.Equal([]int{1, 2}, lengths)
}

func TestBoard_FailingSessionSinkIsEvicted(t *testing.T) {
	req := require.New(t)
	board := newTestBoard()
	ctx := context.Background()
	alice := &recordingSink{}
	bob := &recordingSink{}

	// Given two members
	board.Join(ctx, "alice", "Alice", alice)
	board.Join(ctx, "bob", "Bob", bob)

	// When Bob's queue starts failing
	bob.mu.Lock()
	bob.fail = errors.ErrSinkFull
	bob.mu.Unlock()
	board.Post(ctx, domain.NewTextMessage("Alice", "hello", time.Now()))

	// Then Bob is evicted and closed while Alice still gets the update
	req.Equal(1, board.Members())
	_, _, closed := bob.state()
	req.True(closed)
	lengths, last, _ := alice.state()
	req.Equal([]int{1, 2, 3}, lengths)
	req.Equal("Alice", last[2].Author)

	// And Bob's departure is still recorded when his session tears down
	board.Leave(ctx, "bob", "Bob")
	snapshot := board.Snapshot()
	req.Equal(domain.Notice{Content: "Bob has left."}, snapshot[len(snapshot)-1].Body)
	// And only Alice remains, receiving that notice
	req.Equal(1, board.Members())
	lengths, _, _ = alice.state()
	req.Equal([]int{1, 2, 3, 4}, lengths)

	board.Leave(ctx, "alice", "Alice")
	req.Zero(board.Members())
}

func TestBoard_BroadcastConvergence(t *testing.T) {
	req := require.New(t)
	backlog := []domain.Message{domain.NewTextMessage("Zed", "old", time.Now())}
	board := newTestBoard(backlog...)
	ctx := context.Background()

	// Given three members already joined
	sinks := []*recordingSink{{}, {}, {}}
	for i, s := range sinks {
		board.Join(ctx, fmt.Sprintf("s%d", i), fmt.Sprintf("user%d", i), s)
	}
	joined := board.Len()

	// When M messages are posted concurrently
	const m = 100
	var wg sync.WaitGroup
	for i := 0; i < m; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			board.Post(ctx, domain.NewTextMessage("user0", fmt.Sprintf("msg %d", i), time.Now()))
		}(i)
	}
	wg.Wait()

	// Then every member's latest snapshot holds all messages
	// And no member ever received a shorter snapshot after a longer one
	for _, s := range sinks {
		lengths, last, _ := s.state()
		req.Len(last, joined+m)
		req.IsNonDecreasing(lengths)
	}
	req.Equal(len(backlog)+len(sinks)+m, board.Len())
}
