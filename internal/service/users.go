package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"restopos/backend/internal/domain"
	"restopos/backend/internal/store"
	"restopos/backend/internal/xid"
)

var pinPattern = regexp.MustCompile(`^[0-9]{4,6}$`)

func (s *Service) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	if _, err := s.require(ctx, domain.CapManageUsers); err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserAccount, len(users))
	for i, u := range users {
		out[i] = u.Public()
	}
	return out, nil
}

func (s *Service) CreateUser(ctx context.Context, req domain.UserRequest) (domain.UserAccount, error) {
	actor, err := s.require(ctx, domain.CapManageUsers)
	if err != nil {
		return domain.UserAccount{}, err
	}
	user, err := normalizeUser(req)
	if err != nil {
		return domain.UserAccount{}, err
	}
	if err := guardAdminRole(actor, user.Role); err != nil {
		return domain.UserAccount{}, err
	}
	if !pinPattern.MatchString(req.PIN) {
		return domain.UserAccount{}, invalid("PIN must be 4 to 6 digits")
	}
	hash, err := hashPIN(req.PIN)
	if err != nil {
		return domain.UserAccount{}, err
	}
	user.ID = xid.New("user")
	user.PIN = hash

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return domain.UserAccount{}, err
	}
	s.logAudit(ctx, "user_create", "user", user.ID, fmt.Sprintf("username=%s,role=%s", user.Username, user.Role))
	return user.Public(), nil
}

// UpdateUser edits name, username and role. The PIN changes only when req
// carries one.
func (s *Service) UpdateUser(ctx context.Context, id string, req domain.UserRequest) (domain.UserAccount, error) {
	actor, err := s.require(ctx, domain.CapManageUsers)
	if err != nil {
		return domain.UserAccount{}, err
	}
	existing, err := s.findUser(ctx, id)
	if err != nil {
		return domain.UserAccount{}, err
	}
	user, err := normalizeUser(req)
	if err != nil {
		return domain.UserAccount{}, err
	}
	if err := guardAdminRole(actor, existing.Role); err != nil {
		return domain.UserAccount{}, err
	}
	if err := guardAdminRole(actor, user.Role); err != nil {
		return domain.UserAccount{}, err
	}
	user.ID = id
	user.PIN = existing.PIN
	if req.PIN != "" {
		if !pinPattern.MatchString(req.PIN) {
			return domain.UserAccount{}, invalid("PIN must be 4 to 6 digits")
		}
		if user.PIN, err = hashPIN(req.PIN); err != nil {
			return domain.UserAccount{}, err
		}
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return domain.UserAccount{}, err
	}
	s.logAudit(ctx, "user_update", "user", id, fmt.Sprintf("username=%s,role=%s,pin_changed=%t", user.Username, user.Role, req.PIN != ""))
	return user.Public(), nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	actor, err := s.require(ctx, domain.CapManageUsers)
	if err != nil {
		return err
	}
	if actor.UserID == id {
		return ErrSelfDelete
	}
	existing, err := s.findUser(ctx, id)
	if err != nil {
		return err
	}
	if err := guardAdminRole(actor, existing.Role); err != nil {
		return err
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "user_delete", "user", id, "username="+existing.Username)
	return nil
}

// ResetPIN sets a user's PIN back to the factory PIN.
func (s *Service) ResetPIN(ctx context.Context, id string) (domain.UserAccount, error) {
	actor, err := s.require(ctx, domain.CapManageUsers)
	if err != nil {
		return domain.UserAccount{}, err
	}
	user, err := s.findUser(ctx, id)
	if err != nil {
		return domain.UserAccount{}, err
	}
	if err := guardAdminRole(actor, user.Role); err != nil {
		return domain.UserAccount{}, err
	}
	if user.PIN, err = hashPIN(store.DefaultResetPIN); err != nil {
		return domain.UserAccount{}, err
	}
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return domain.UserAccount{}, err
	}
	s.logAudit(ctx, "user_pin_reset", "user", id, "username="+user.Username)
	return user.Public(), nil
}

func (s *Service) findUser(ctx context.Context, id string) (domain.UserAccount, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return domain.UserAccount{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.UserAccount{}, fmt.Errorf("user %s: %w", id, store.ErrNotFound)
}

func normalizeUser(req domain.UserRequest) (domain.UserAccount, error) {
	user := domain.UserAccount{
		Name:     strings.TrimSpace(req.Name),
		Username: strings.ToLower(strings.TrimSpace(req.Username)),
		Role:     req.Role,
	}
	if user.Name == "" || user.Username == "" {
		return domain.UserAccount{}, invalid("name and username are required")
	}
	if strings.ContainsAny(user.Username, " \t") {
		return domain.UserAccount{}, invalid("username must not contain spaces")
	}
	if !user.Role.Valid() {
		return domain.UserAccount{}, invalid("unknown role %q", req.Role)
	}
	return user, nil
}

// guardAdminRole keeps non-admins from creating, changing or removing admin
// accounts.
func guardAdminRole(actor domain.Actor, role domain.Role) error {
	if role == domain.RoleAdmin && actor.Role != domain.RoleAdmin {
		return fmt.Errorf("%w: only an admin can manage admin accounts", ErrForbidden)
	}
	return nil
}

func hashPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(hash), nil
}
