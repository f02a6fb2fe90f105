package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestParseUserID(t *testing.T) {
	tests := []struct {
		name    string
		marker  string
		want    int64
		wantErr bool
	}{
		{
			name:   "plain marker",
			marker: "[ID: 12345]",
			want:   12345,
		},
		{
			name:   "marker inside forwarded text",
			marker: "📨 Сообщение от Иван (@ivan) [ID: 987654321]:\n\nЗдравствуйте!",
			want:   987654321,
		},
		{
			name:   "no space after colon",
			marker: "[ID:42]",
			want:   42,
		},
		{
			name:   "first marker wins",
			marker: "[ID: 1] и еще [ID: 2]",
			want:   1,
		},
		{
			name:    "missing marker",
			marker:  "просто текст без ссылки",
			wantErr: true,
		},
		{
			name:    "non numeric id",
			marker:  "[ID: abc]",
			wantErr: true,
		},
		{
			name:    "unclosed bracket",
			marker:  "[ID: 123",
			wantErr: true,
		},
		{
			name:    "empty",
			marker:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUserID(tt.marker)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedReference)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReplyRelay_Relay(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	t.Run("Delivered", func(t *testing.T) {
		repo := new(mockUserRepo)
		notifier := new(mockNotifier)

		notifier.On("SendText", int64(555), "ответ").Return(nil).Once()
		repo.On("AppendMessage", ctx, int64(555), "ответ", true).Return(nil).Once()

		relay := NewReplyRelay(repo, notifier, testAdminID, &logger)
		target, err := relay.Relay(ctx, testAdminID, "текст [ID: 555]", "ответ")
		require.NoError(t, err)
		assert.Equal(t, int64(555), target)
		repo.AssertExpectations(t)
	})

	t.Run("NotAdmin", func(t *testing.T) {
		repo := new(mockUserRepo)
		notifier := new(mockNotifier)

		relay := NewReplyRelay(repo, notifier, testAdminID, &logger)
		_, err := relay.Relay(ctx, 999, "[ID: 555]", "ответ")
		assert.ErrorIs(t, err, ErrNotAdmin)
		notifier.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything)
	})

	t.Run("MalformedReference", func(t *testing.T) {
		repo := new(mockUserRepo)
		notifier := new(mockNotifier)

		relay := NewReplyRelay(repo, notifier, testAdminID, &logger)
		_, err := relay.Relay(ctx, testAdminID, "сообщение без маркера", "ответ")
		assert.ErrorIs(t, err, ErrMalformedReference)
		notifier.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything)
	})

	t.Run("DeliveryFailure", func(t *testing.T) {
		repo := new(mockUserRepo)
		notifier := new(mockNotifier)

		notifier.On("SendText", int64(555), "ответ").Return(errors.New("forbidden: bot was blocked")).Once()

		relay := NewReplyRelay(repo, notifier, testAdminID, &logger)
		_, err := relay.Relay(ctx, testAdminID, "[ID: 555]", "ответ")
		assert.ErrorIs(t, err, ErrDeliveryFailed)
		// Журнал отражает только доставленные ответы.
		repo.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
