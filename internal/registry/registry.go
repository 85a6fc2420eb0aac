// Package registry holds the per-kind attach handlers. The engine resolves a
// kind from the catalog and hands the freshly created instance to the handler
// registered under that kind's name; what the handler does (register a
// webhook endpoint, schedule a timer) is outside the engine.
package registry

import (
	"context"

	"github.com/AREA-equipe/app/internal/domain"
)

type ActionHandler interface {
	OnAttach(ctx context.Context, kind domain.ActionKind, instance domain.ActionInstance) error
}

type ReactionHandler interface {
	OnAttach(ctx context.Context, kind domain.ReactionKind, instance domain.ReactionInstance) error
}

type ActionHandlerFunc func(ctx context.Context, kind domain.ActionKind, instance domain.ActionInstance) error

func (f ActionHandlerFunc) OnAttach(ctx context.Context, kind domain.ActionKind, instance domain.ActionInstance) error {
	return f(ctx, kind, instance)
}

type ReactionHandlerFunc func(ctx context.Context, kind domain.ReactionKind, instance domain.ReactionInstance) error

func (f ReactionHandlerFunc) OnAttach(ctx context.Context, kind domain.ReactionKind, instance domain.ReactionInstance) error {
	return f(ctx, kind, instance)
}

type HandlerRegistry struct {
	actions   map[string]ActionHandler
	reactions map[string]ReactionHandler
}

func New() *HandlerRegistry {
	return &HandlerRegistry{
		actions:   make(map[string]ActionHandler),
		reactions: make(map[string]ReactionHandler),
	}
}

func (r *HandlerRegistry) RegisterAction(kindName string, h ActionHandler) {
	r.actions[kindName] = h
}

func (r *HandlerRegistry) RegisterReaction(kindName string, h ReactionHandler) {
	r.reactions[kindName] = h
}

// AttachAction runs the handler for the kind, if one is registered. Kinds
// without a handler attach without side effects.
func (r *HandlerRegistry) AttachAction(ctx context.Context, kind domain.ActionKind, instance domain.ActionInstance) error {
	h, ok := r.actions[kind.Name]
	if !ok {
		return nil
	}
	return h.OnAttach(ctx, kind, instance)
}

func (r *HandlerRegistry) AttachReaction(ctx context.Context, kind domain.ReactionKind, instance domain.ReactionInstance) error {
	h, ok := r.reactions[kind.Name]
	if !ok {
		return nil
	}
	return h.OnAttach(ctx, kind, instance)
}
