package policy

import (
	"context"

	"github.com/google/uuid"
	"github.com/ucu-innovators/hub/internal/modules/model"
)

func registerDefaults(g *Gate) {
	g.Register(ActionViewProject, allowAnyone)
	g.Register(ActionListProjects, allowAnyone)
	g.Register(ActionUseAssistant, allowAnyone)
	g.Register(ActionPostComment, requireAuthenticated)
	g.Register(ActionViewProfile, requireAuthenticated)
	g.Register(ActionSubmitProject, requireRole(model.RoleStudent))
	g.Register(ActionViewAnalytics, requireRole(model.RoleSupervisor, model.RoleAdmin))
	g.Register(ActionReviewProject, reviewRule)
	g.Register(ActionEditProject, ownerWhilePendingRule)
	g.Register(ActionEditProfile, selfRule)
}

func allowAnyone(context.Context, *Principal, any) error { return nil }

func requireAuthenticated(_ context.Context, p *Principal, _ any) error {
	if !p.Authenticated() {
		return ErrUnauthenticated
	}
	return nil
}

func requireRole(roles ...model.Role) Rule {
	return func(ctx context.Context, p *Principal, resource any) error {
		if err := requireAuthenticated(ctx, p, resource); err != nil {
			return err
		}
		for _, r := range roles {
			if p.Role == r {
				return nil
			}
		}
		return ErrForbidden
	}
}

var reviewers = requireRole(model.RoleSupervisor, model.RoleAdmin)

func reviewRule(ctx context.Context, p *Principal, resource any) error {
	if err := reviewers(ctx, p, resource); err != nil {
		return err
	}
	project, ok := resource.(*model.Project)
	if !ok || project == nil {
		return ErrForbidden
	}
	if project.Status != model.StatusPending {
		return ErrStateConflict
	}
	return nil
}

func ownerWhilePendingRule(ctx context.Context, p *Principal, resource any) error {
	if err := requireAuthenticated(ctx, p, resource); err != nil {
		return err
	}
	project, ok := resource.(*model.Project)
	if !ok || project == nil {
		return ErrForbidden
	}
	if project.GetOwnerID() != p.ID {
		return ErrForbidden
	}
	if project.Status != model.StatusPending {
		return ErrStateConflict
	}
	return nil
}

// selfRule accepts the target as a user id or a user record.
func selfRule(ctx context.Context, p *Principal, resource any) error {
	if err := requireAuthenticated(ctx, p, resource); err != nil {
		return err
	}
	var target uuid.UUID
	switch r := resource.(type) {
	case uuid.UUID:
		target = r
	case *model.User:
		if r == nil {
			return ErrForbidden
		}
		target = r.ID
	default:
		return ErrForbidden
	}
	if target != p.ID {
		return ErrForbidden
	}
	return nil
}
