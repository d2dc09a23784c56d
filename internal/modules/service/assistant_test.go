package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ucu-innovators/hub/internal/modules/policy"
)

type MockReplier struct {
	mock.Mock
}

func (m *MockReplier) Reply(ctx context.Context, message string) (string, error) {
	args := m.Called(ctx, message)
	return args.String(0), args.Error(1)
}

func TestAssistantService_Chat(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		message string
		setup   func(*MockReplier)
		want    string
		wantErr error
	}{
		{
			name:    "reply is passed through",
			message: "  How do I submit?  ",
			setup: func(m *MockReplier) {
				m.On("Reply", ctx, "How do I submit?").Return("Open the submit page.", nil)
			},
			want: "Open the submit page.",
		},
		{
			name:    "empty message",
			message: " \n ",
			setup:   func(*MockReplier) {},
			wantErr: ErrValidation,
		},
		{
			name:    "too long",
			message: strings.Repeat("a", maxAssistantMessage+1),
			setup:   func(*MockReplier) {},
			wantErr: ErrValidation,
		},
		{
			name:    "provider failure",
			message: "hello",
			setup: func(m *MockReplier) {
				m.On("Reply", ctx, "hello").Return("", errors.New("upstream 502"))
			},
			wantErr: ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &MockReplier{}
			tt.setup(backend)
			svc := NewAssistantService(backend, policy.NewGate(), nil)

			got, err := svc.Chat(ctx, nil, tt.message)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			backend.AssertExpectations(t)
		})
	}
}

func TestAssistantService_NotConfigured(t *testing.T) {
	svc := NewAssistantService(nil, policy.NewGate(), nil)
	_, err := svc.Chat(context.Background(), nil, "hello")
	assert.ErrorIs(t, err, ErrUnavailable)
}
