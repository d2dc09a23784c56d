package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ucu-innovators/hub/internal/modules/model"
	"go.uber.org/zap"
)

const (
	EventProjectSubmitted = "project.submitted"
	EventProjectUpdated   = "project.updated"
	EventProjectReviewed  = "project.reviewed"
	EventCommentPosted    = "comment.posted"
)

// ProjectEvent is published on every lifecycle change.
type ProjectEvent struct {
	Type       string              `json:"type"`
	ProjectID  uuid.UUID           `json:"project_id"`
	ActorID    uuid.UUID           `json:"actor_id"`
	OwnerID    uuid.UUID           `json:"owner_id"`
	Title      string              `json:"title"`
	Status     model.ProjectStatus `json:"status"`
	Comment    string              `json:"comment,omitempty"`
	OccurredAt time.Time           `json:"occurred_at"`
}

// eventSink publishes lifecycle events and invalidates derived data. Failures
// are logged and never fail the request that caused them.
type eventSink struct {
	pub         EventPublisher
	exchange    string
	routingKeys map[string]string
	invalidator Invalidator
	log         *zap.Logger
}

func (e *eventSink) changed(ctx context.Context, ev ProjectEvent) {
	if e.invalidator != nil {
		if err := e.invalidator.Bump(ctx); err != nil {
			e.log.Warn("invalidate analytics", zap.Error(err))
		}
	}
	if e.pub == nil {
		return
	}
	key := e.routingKeys[ev.Type]
	if key == "" {
		key = ev.Type
	}
	if err := e.pub.PublishJSON(ctx, e.exchange, key, ev); err != nil {
		e.log.Warn("publish project event",
			zap.String("type", ev.Type),
			zap.String("project_id", ev.ProjectID.String()),
			zap.Error(err))
	}
}
