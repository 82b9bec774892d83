package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jaekwang-park/taskscribe/internal/model"
	"github.com/jaekwang-park/taskscribe/internal/repository"
	"github.com/jaekwang-park/taskscribe/internal/session"
)

// TokenIssuer mints session tokens for an authenticated identity.
type TokenIssuer interface {
	Issue(id session.Identity) (string, time.Time, error)
}

// AuthService handles registration and credential checks.
type AuthService struct {
	users  repository.UserRepository
	issuer TokenIssuer
	cost   int
	// dummyHash is compared against when the email is unknown so both
	// failure paths pay for one bcrypt verification.
	dummyHash []byte
}

// NewAuthService creates a new AuthService hashing with the given bcrypt cost.
func NewAuthService(users repository.UserRepository, issuer TokenIssuer, cost int) (*AuthService, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("taskscribe-unknown-user"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to derive dummy hash: %w", err)
	}
	return &AuthService{users: users, issuer: issuer, cost: cost, dummyHash: dummy}, nil
}

// --- Input/Output types ---

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,maxbytes=72"`
	Name     string `json:"name" validate:"required,min=2"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResult struct {
	User  model.UserSummary `json:"user"`
	Token string            `json:"token"`
}

// --- Service methods ---

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	if err := validateStruct(input); err != nil {
		return AuthResult{}, err
	}

	_, err := s.users.GetByEmail(ctx, input.Email)
	switch {
	case err == nil:
		return AuthResult{}, ErrDuplicateEmail
	case !errors.Is(err, repository.ErrNotFound):
		return AuthResult{}, fmt.Errorf("failed to look up email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, model.User{
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: string(hash),
	})
	if err != nil {
		// Lost a race with a concurrent registration for the same email.
		if errors.Is(err, repository.ErrDuplicate) {
			return AuthResult{}, ErrDuplicateEmail
		}
		return AuthResult{}, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issue(user)
}

// Login verifies credentials. Unknown email and wrong password both return
// ErrInvalidCredentials after one bcrypt comparison.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	if err := validateStruct(input); err != nil {
		return AuthResult{}, err
	}

	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, fmt.Errorf("failed to look up user: %w", err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(input.Password))
		return AuthResult{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	return s.issue(user)
}

// Me returns the account behind an authenticated user id.
func (s *AuthService) Me(ctx context.Context, userID string) (model.UserSummary, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.UserSummary{}, ErrUnauthenticated
		}
		return model.UserSummary{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user.Summary(), nil
}

func (s *AuthService) issue(user model.User) (AuthResult, error) {
	token, _, err := s.issuer.Issue(session.Identity{UserID: user.ID, Email: user.Email})
	if err != nil {
		return AuthResult{}, fmt.Errorf("failed to issue token: %w", err)
	}
	return AuthResult{User: user.Summary(), Token: token}, nil
}
