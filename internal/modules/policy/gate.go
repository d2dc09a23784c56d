// Package policy is the single place where roles are compared. Every mutating
// intent is checked here before the store is touched.
//
// A nil *Principal is an anonymous caller. Rules never mutate anything.
package policy

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/ucu-innovators/hub/internal/modules/model"
)

// Principal is the caller identity passed explicitly into every operation.
type Principal struct {
	ID   uuid.UUID
	Role model.Role
}

func (p *Principal) Authenticated() bool {
	return p != nil && p.ID != uuid.Nil && p.Role.Valid()
}

// Sentinel errors returned by Gate.Authorize.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("forbidden")
	ErrNoRule          = errors.New("no rule defined for action")
)

// ErrStateConflict means the caller may act on this kind of resource but not in its current state.
var ErrStateConflict = errors.New("resource is not in a state that allows this action")

// Rule decides a single action. It returns nil to allow.
type Rule func(ctx context.Context, p *Principal, resource any) error

// Gate maps actions to rules.
type Gate struct {
	rules map[Action]Rule
}

// NewGate returns a gate with the default rule set registered.
func NewGate() *Gate {
	g := &Gate{rules: make(map[Action]Rule)}
	registerDefaults(g)
	return g
}

// Register adds or replaces the rule for an action.
func (g *Gate) Register(a Action, r Rule) {
	g.rules[a] = r
}

// Authorize returns nil when p may perform a on resource.
func (g *Gate) Authorize(ctx context.Context, p *Principal, a Action, resource any) error {
	r, ok := g.rules[a]
	if !ok {
		return ErrNoRule
	}
	return r(ctx, p, resource)
}

// Can is Authorize as a bool.
func (g *Gate) Can(ctx context.Context, p *Principal, a Action, resource any) bool {
	return g.Authorize(ctx, p, a, resource) == nil
}
