package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"restopos/backend/internal/domain"
	"restopos/backend/internal/xid"
)

var errInvalidCredentials = errors.New("invalid username or PIN")

type AuthManager struct {
	secret    []byte
	tokenTTL  time.Duration
	userStore UserStore
	now       func() time.Time
}

type UserStore interface {
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUser(ctx context.Context, user domain.UserAccount) error
}

type posCustomClaims struct {
	jwtlib.RegisteredClaims
	UserID string      `json:"uid"`
	Name   string      `json:"name"`
	Role   domain.Role `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, userStore UserStore) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &AuthManager{
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		userStore: userStore,
		now:       time.Now,
	}
}

func (a *AuthManager) TokenTTL() time.Duration {
	return a.tokenTTL
}

// Login checks a username and PIN. A PIN stored in plain text (older snapshots)
// is accepted once and replaced by its bcrypt hash.
func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.UserAccount, string, time.Time, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	pin := strings.TrimSpace(req.PIN)
	if username == "" || pin == "" {
		return domain.UserAccount{}, "", time.Time{}, errInvalidCredentials
	}

	users, err := a.userStore.ListUsers(ctx)
	if err != nil {
		return domain.UserAccount{}, "", time.Time{}, err
	}
	var user *domain.UserAccount
	for i := range users {
		if strings.EqualFold(users[i].Username, username) {
			user = &users[i]
			break
		}
	}
	if user == nil {
		return domain.UserAccount{}, "", time.Time{}, errInvalidCredentials
	}

	if isPINHash(user.PIN) {
		if bcrypt.CompareHashAndPassword([]byte(user.PIN), []byte(pin)) != nil {
			return domain.UserAccount{}, "", time.Time{}, errInvalidCredentials
		}
	} else {
		if user.PIN == "" || subtle.ConstantTimeCompare([]byte(user.PIN), []byte(pin)) != 1 {
			return domain.UserAccount{}, "", time.Time{}, errInvalidCredentials
		}
		if hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost); err == nil {
			upgraded := *user
			upgraded.PIN = string(hashed)
			if err := a.userStore.UpdateUser(ctx, upgraded); err != nil {
				log.Printf("[auth] WARN: could not upgrade PIN of %s: %v", user.Username, err)
			}
		}
	}

	expiresAt := a.now().UTC().Add(a.tokenTTL)
	token, err := a.sign(*user, expiresAt)
	if err != nil {
		return domain.UserAccount{}, "", time.Time{}, err
	}
	return user.Public(), token, expiresAt, nil
}

// ParseToken validates a bearer token. The returned actor has no permissions
// yet; they depend on the settings at request time.
func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &posCustomClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer("restopos"), jwtlib.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" || claims.ID == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	if !claims.Role.Valid() {
		return domain.Actor{}, errors.New("invalid token role")
	}
	return domain.Actor{
		UserID:   claims.UserID,
		Username: sub,
		Name:     claims.Name,
		Role:     claims.Role,
		TokenID:  claims.ID,
	}, nil
}

func (a *AuthManager) sign(user domain.UserAccount, expiresAt time.Time) (string, error) {
	claims := posCustomClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        xid.New("tok"),
			Subject:   user.Username,
			IssuedAt:  jwtlib.NewNumericDate(a.now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "restopos",
		},
		UserID: user.ID,
		Name:   user.Name,
		Role:   user.Role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func isPINHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
