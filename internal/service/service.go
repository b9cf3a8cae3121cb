package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"restopos/backend/internal/domain"
	"restopos/backend/internal/session"
	"restopos/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Service is the order engine and the administration operations around it.
// It is the only writer of orders, counters and stock; every read-modify-write
// runs under mu.
type Service struct {
	repo     store.Repository
	sessions session.Store
	location *time.Location
	tokenTTL time.Duration
	now      func() time.Time

	mu sync.Mutex
}

type Options struct {
	// Location is the zone of report hours, days and presets.
	Location *time.Location
	// TokenTTL bounds how long a revoked access token is remembered.
	TokenTTL time.Duration
}

func New(repo store.Repository, sessions session.Store, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 12 * time.Hour
	}
	return &Service{
		repo:     repo,
		sessions: sessions,
		location: opts.Location,
		tokenTTL: opts.TokenTTL,
		now:      time.Now,
	}
}

// ResolveActor refreshes a token's actor from the user directory. The live
// role decides the permissions, so a demotion applies on the next request and
// a deleted user is signed out.
func (s *Service) ResolveActor(ctx context.Context, actor domain.Actor) (domain.Actor, error) {
	user, err := s.findUser(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Actor{}, ErrUnknownUser
		}
		return domain.Actor{}, err
	}
	actor.Name = user.Name
	actor.Username = user.Username
	actor.Role = user.Role
	if actor.Permissions, err = s.PermissionsFor(ctx, user.Role); err != nil {
		return domain.Actor{}, err
	}
	return actor, nil
}

// PermissionsFor derives the capability set of a role from the current settings.
func (s *Service) PermissionsFor(ctx context.Context, role domain.Role) (domain.Permissions, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	return domain.PermissionsFor(role, settings.ManagerPermissions), nil
}

func (s *Service) require(ctx context.Context, capability domain.Capability) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || !actor.Permissions.Has(capability) {
		return domain.Actor{}, fmt.Errorf("%w: %s required", ErrForbidden, capability)
	}
	return actor, nil
}

// requireDay must run under s.mu so the day cannot end between the check and
// the write that follows it.
func (s *Service) requireDay(ctx context.Context) error {
	day, err := s.sessions.GetDaySession(ctx)
	if err != nil {
		return err
	}
	if day == nil {
		return ErrDayNotStarted
	}
	return nil
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}
	log.Printf("[audit] actor=%s role=%s action=%s entity=%s/%s %s", actor.Username, actor.Role, action, entityType, entityID, detail)
}
