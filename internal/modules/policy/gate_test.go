package policy

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/ucu-innovators/hub/internal/modules/model"
)

func principal(role model.Role) *Principal {
	return &Principal{ID: uuid.New(), Role: role}
}

func TestGate_SubmitProject_OnlyStudents(t *testing.T) {
	g := NewGate()
	ctx := context.Background()

	for _, role := range model.Roles {
		t.Run(string(role), func(t *testing.T) {
			err := g.Authorize(ctx, principal(role), ActionSubmitProject, nil)
			if role == model.RoleStudent {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}

	assert.ErrorIs(t, g.Authorize(ctx, nil, ActionSubmitProject, nil), ErrUnauthenticated)
}

func TestGate_ReviewProject(t *testing.T) {
	g := NewGate()
	ctx := context.Background()
	reviewer := uuid.New()
	comments := "done"

	pending := &model.Project{ID: uuid.New(), Status: model.StatusPending}
	approved := &model.Project{ID: uuid.New(), Status: model.StatusApproved, ReviewerID: &reviewer, ReviewComments: &comments}

	tests := []struct {
		name     string
		who      *Principal
		resource any
		wantErr  error
	}{
		{name: "supervisor on pending", who: principal(model.RoleSupervisor), resource: pending},
		{name: "admin on pending", who: principal(model.RoleAdmin), resource: pending},
		{name: "student on pending", who: principal(model.RoleStudent), resource: pending, wantErr: ErrForbidden},
		{name: "anonymous on pending", who: nil, resource: pending, wantErr: ErrUnauthenticated},
		{name: "supervisor on decided", who: principal(model.RoleSupervisor), resource: approved, wantErr: ErrStateConflict},
		{name: "student on decided", who: principal(model.RoleStudent), resource: approved, wantErr: ErrForbidden},
		{name: "missing resource", who: principal(model.RoleAdmin), resource: nil, wantErr: ErrForbidden},
		{name: "wrong resource type", who: principal(model.RoleAdmin), resource: "project", wantErr: ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Authorize(ctx, tt.who, ActionReviewProject, tt.resource)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestGate_PublicAndAuthenticatedActions(t *testing.T) {
	g := NewGate()
	ctx := context.Background()

	for _, a := range []Action{ActionViewProject, ActionListProjects, ActionUseAssistant} {
		assert.True(t, g.Can(ctx, nil, a, nil), a)
		for _, role := range model.Roles {
			assert.True(t, g.Can(ctx, principal(role), a, nil), a)
		}
	}

	for _, a := range []Action{ActionPostComment, ActionViewProfile} {
		assert.ErrorIs(t, g.Authorize(ctx, nil, a, nil), ErrUnauthenticated, a)
		assert.ErrorIs(t, g.Authorize(ctx, &Principal{}, a, nil), ErrUnauthenticated, a)
		for _, role := range model.Roles {
			assert.True(t, g.Can(ctx, principal(role), a, nil), a)
		}
	}
}

func TestGate_ViewAnalytics(t *testing.T) {
	g := NewGate()
	ctx := context.Background()

	assert.ErrorIs(t, g.Authorize(ctx, principal(model.RoleStudent), ActionViewAnalytics, nil), ErrForbidden)
	assert.NoError(t, g.Authorize(ctx, principal(model.RoleSupervisor), ActionViewAnalytics, nil))
	assert.NoError(t, g.Authorize(ctx, principal(model.RoleAdmin), ActionViewAnalytics, nil))
	assert.ErrorIs(t, g.Authorize(ctx, nil, ActionViewAnalytics, nil), ErrUnauthenticated)
}

func TestGate_EditProfile_SelfOnly(t *testing.T) {
	g := NewGate()
	ctx := context.Background()

	for _, role := range model.Roles {
		me := principal(role)
		assert.NoError(t, g.Authorize(ctx, me, ActionEditProfile, me.ID))
		assert.NoError(t, g.Authorize(ctx, me, ActionEditProfile, &model.User{ID: me.ID}))
		assert.ErrorIs(t, g.Authorize(ctx, me, ActionEditProfile, uuid.New()), ErrForbidden)
		assert.ErrorIs(t, g.Authorize(ctx, me, ActionEditProfile, &model.User{ID: uuid.New()}), ErrForbidden)
		assert.ErrorIs(t, g.Authorize(ctx, me, ActionEditProfile, "someone"), ErrForbidden)
	}
}

func TestGate_EditProject_OwnerWhilePending(t *testing.T) {
	g := NewGate()
	ctx := context.Background()
	owner := principal(model.RoleStudent)
	reviewer := uuid.New()
	comments := ""

	pending := &model.Project{SubmitterID: owner.ID, Status: model.StatusPending}
	rejected := &model.Project{SubmitterID: owner.ID, Status: model.StatusRejected, ReviewerID: &reviewer, ReviewComments: &comments}

	assert.NoError(t, g.Authorize(ctx, owner, ActionEditProject, pending))
	assert.ErrorIs(t, g.Authorize(ctx, owner, ActionEditProject, rejected), ErrStateConflict)
	assert.ErrorIs(t, g.Authorize(ctx, principal(model.RoleStudent), ActionEditProject, pending), ErrForbidden)
	assert.ErrorIs(t, g.Authorize(ctx, principal(model.RoleAdmin), ActionEditProject, pending), ErrForbidden)
}

func TestGate_EveryActionHasRule(t *testing.T) {
	g := NewGate()
	for _, a := range Actions {
		assert.NotErrorIs(t, g.Authorize(context.Background(), principal(model.RoleAdmin), a, &model.Project{}), ErrNoRule, a)
	}
	assert.ErrorIs(t, g.Authorize(context.Background(), principal(model.RoleAdmin), Action("delete_everything"), nil), ErrNoRule)
}

func TestGate_Register_Overrides(t *testing.T) {
	g := NewGate()
	g.Register(ActionViewProject, func(context.Context, *Principal, any) error { return ErrForbidden })
	assert.False(t, g.Can(context.Background(), nil, ActionViewProject, nil))
}
