package sink

import (
	"chat-board/domain"
	"chat-board/domain/event"
	"chat-board/mocks"
	"context"
	goerrors "errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestDiskSink_PersistsSnapshot(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	messages := []domain.Message{domain.JoinedNotice("Alice", time.Now())}

	// Given a repository expecting the full snapshot
	repository.EXPECT().Persist(messages).Return(nil).Times(1)
	diskSink := NewDiskSink(repository, slog.Default())

	// When the board publishes an update
	err := diskSink.Consume(context.Background(), event.BoardUpdated{Messages: messages})

	// Then it is persisted
	req.NoError(err)
}

func TestDiskSink_ReturnsPersistError(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	diskFull := goerrors.New("no space left on device")
	repository.EXPECT().Persist(gomock.Any()).Return(diskFull)

	err := NewDiskSink(repository, slog.Default()).Consume(context.Background(), event.BoardUpdated{})

	req.ErrorIs(err, diskFull)
}
