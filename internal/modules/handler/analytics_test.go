package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/ucu-innovators/hub/internal/modules/analytics"
	"github.com/ucu-innovators/hub/internal/modules/model"
	"github.com/ucu-innovators/hub/internal/modules/policy"
	"github.com/ucu-innovators/hub/internal/modules/service"
)

type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) Summary(ctx context.Context, p *policy.Principal) (*analytics.Summary, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.Summary), args.Error(1)
}

type MockAssistantService struct {
	mock.Mock
}

func (m *MockAssistantService) Chat(ctx context.Context, p *policy.Principal, message string) (string, error) {
	args := m.Called(ctx, p, message)
	return args.String(0), args.Error(1)
}

func TestAnalyticsHandler_GetAnalytics(t *testing.T) {
	sup := uuid.New()
	student := uuid.New()

	svc := &MockAnalyticsService{}
	svc.On("Summary", mock.Anything, principalWith(sup)).
		Return(&analytics.Summary{Total: 6, ApprovalRate: analytics.ApprovalRate{Approved: 3, Pending: 2, Rejected: 1}, GeneratedAt: time.Now()}, nil)
	svc.On("Summary", mock.Anything, principalWith(student)).Return(nil, service.ErrForbidden)

	h := NewAnalyticsHandler(svc)
	r := setupRouter()
	r.GET("/analytics", h.GetAnalytics)

	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/analytics", tokenFor(t, sup, model.RoleSupervisor), nil).Code)
	assert.Equal(t, http.StatusForbidden, doJSON(r, http.MethodGet, "/analytics", tokenFor(t, student, model.RoleStudent), nil).Code)
	svc.AssertExpectations(t)
}

func TestAssistantHandler_Chat(t *testing.T) {
	tests := []struct {
		name           string
		message        string
		reply          string
		err            error
		expectedStatus int
	}{
		{name: "reply", message: "hi", reply: "hello", expectedStatus: http.StatusOK},
		{name: "empty", message: "", err: service.ErrValidation, expectedStatus: http.StatusBadRequest},
		{name: "provider down", message: "hi", err: errors.Join(service.ErrUnavailable, errors.New("502")), expectedStatus: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockAssistantService{}
			svc.On("Chat", mock.Anything, (*policy.Principal)(nil), tt.message).Return(tt.reply, tt.err)

			h := NewAssistantHandler(svc)
			r := setupRouter()
			r.POST("/assistant/chat", h.Chat)

			w := doJSON(r, http.MethodPost, "/assistant/chat", "", ChatReq{Message: tt.message})
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.err == nil {
				assert.Contains(t, w.Body.String(), `"response":"hello"`)
			}
			svc.AssertExpectations(t)
		})
	}
}
