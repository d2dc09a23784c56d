package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ucu-innovators/hub/internal/modules/policy"
	"go.uber.org/zap"
)

const maxAssistantMessage = 4000

// Replier answers a single free-text message. It holds no state between calls.
type Replier interface {
	Reply(ctx context.Context, message string) (string, error)
}

type AssistantService interface {
	Chat(ctx context.Context, p *policy.Principal, message string) (string, error)
}

type assistantService struct {
	backend Replier
	gate    *policy.Gate
	log     *zap.Logger
}

// NewAssistantService wraps backend; a nil backend makes every call unavailable.
func NewAssistantService(backend Replier, gate *policy.Gate, log *zap.Logger) AssistantService {
	if log == nil {
		log = zap.NewNop()
	}
	return &assistantService{backend: backend, gate: gate, log: log}
}

func (s *assistantService) Chat(ctx context.Context, p *policy.Principal, message string) (string, error) {
	if err := fromPolicy(s.gate.Authorize(ctx, p, policy.ActionUseAssistant, nil)); err != nil {
		return "", err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return "", validationErr("message must not be empty")
	}
	if utf8.RuneCountInString(message) > maxAssistantMessage {
		return "", validationErr("message is longer than %d characters", maxAssistantMessage)
	}
	if s.backend == nil {
		return "", fmt.Errorf("%w: assistant is not configured", ErrUnavailable)
	}

	reply, err := s.backend.Reply(ctx, message)
	if err != nil {
		s.log.Warn("assistant reply failed", zap.Error(err))
		return "", fmt.Errorf("%w: assistant: %v", ErrUnavailable, err)
	}
	return reply, nil
}
