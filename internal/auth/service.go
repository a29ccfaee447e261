package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrSessionRevoked     = errors.New("session revoked")
)

const minPasswordLen = 8

// Service implements the session lifecycle: sign-up, password sign-in,
// refresh rotation, and sign-out. Tokens come from Manager; refresh
// sessions live in the SessionStore so revocation is effective immediately.
type Service struct {
	users    UserRepository
	sessions SessionStore
	tokens   *Manager

	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(users UserRepository, sessions SessionStore, tokens *Manager) *Service {
	return &Service{users: users, sessions: sessions, tokens: tokens, clock: time.Now}
}

func (s *Service) SignUp(ctx context.Context, email, password string) (User, TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, TokenPair{}, ErrInvalidArgument
	}
	if len(password) < minPasswordLen {
		return User{}, TokenPair{}, ErrInvalidArgument
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, TokenPair{}, err
	}

	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.clock().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return User{}, TokenPair{}, err
	}

	pair, err := s.openSession(ctx, u)
	if err != nil {
		return User{}, TokenPair{}, err
	}
	return u, pair, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (User, TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return User{}, TokenPair{}, ErrInvalidCredentials
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, TokenPair{}, ErrInvalidCredentials
		}
		return User{}, TokenPair{}, err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return User{}, TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.openSession(ctx, u)
	if err != nil {
		return User{}, TokenPair{}, err
	}
	return u, pair, nil
}

// Refresh rotates a refresh token: the presented JTI is revoked and a new
// pair is issued. A token outside the session store (signed out, already
// rotated) is rejected.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	now := s.clock()
	claims, err := s.tokens.Verify(refreshToken, TokenTypeRefresh, now)
	if err != nil {
		return TokenPair{}, ErrSessionRevoked
	}

	ok, err := s.sessions.Valid(ctx, claims.UserID, claims.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if !ok {
		return TokenPair{}, ErrSessionRevoked
	}
	if err := s.sessions.Revoke(ctx, claims.UserID, claims.ID); err != nil {
		return TokenPair{}, err
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return TokenPair{}, err
	}
	return s.openSession(ctx, u)
}

func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.Verify(refreshToken, TokenTypeRefresh, s.clock())
	if err != nil {
		// Expired or malformed tokens carry no live session to revoke.
		return nil
	}
	return s.sessions.Revoke(ctx, claims.UserID, claims.ID)
}

// CurrentUser resolves the authenticated identity from request context.
func (s *Service) CurrentUser(ctx context.Context) (User, error) {
	uid, err := UserID(ctx)
	if err != nil {
		return User{}, err
	}
	return s.users.GetByID(ctx, uid)
}

func (s *Service) openSession(ctx context.Context, u User) (TokenPair, error) {
	pair, err := s.tokens.IssuePair(s.clock(), u.ID, u.Email)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.sessions.Save(ctx, u.ID, pair.RefreshJTI, s.tokens.RefreshTTL()); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}
