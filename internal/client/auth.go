package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jaekwang-park/taskscribe/internal/model"
)

// Auth owns the client identity. Every identity change refreshes the store.
type Auth struct {
	api      *APIClient
	store    *Store
	sessions SessionStore

	mu   sync.RWMutex
	user *model.UserSummary
}

func NewAuth(api *APIClient, store *Store, sessions SessionStore) *Auth {
	return &Auth{api: api, store: store, sessions: sessions}
}

// Register creates the account and then logs in with the same credentials.
func (a *Auth) Register(ctx context.Context, name, email, password string) (model.UserSummary, error) {
	if _, err := a.api.Register(ctx, RegisterRequest{Email: email, Password: password, Name: name}); err != nil {
		return model.UserSummary{}, err
	}
	return a.Login(ctx, email, password)
}

// Login persists the session and loads the user's tasks. The session is kept
// even when the task refresh fails.
func (a *Auth) Login(ctx context.Context, email, password string) (model.UserSummary, error) {
	res, err := a.api.Login(ctx, LoginRequest{Email: email, Password: password})
	if err != nil {
		return model.UserSummary{}, err
	}
	if err := a.sessions.Save(Session{Token: res.Token, User: res.User}); err != nil {
		return model.UserSummary{}, fmt.Errorf("failed to save session: %w", err)
	}
	a.setIdentity(res.Token, &res.User)

	if err := a.store.Refresh(ctx); err != nil {
		return res.User, fmt.Errorf("failed to load tasks: %w", err)
	}
	return res.User, nil
}

// Logout clears the stored session and the local todos.
func (a *Auth) Logout() error {
	a.setIdentity("", nil)
	a.store.Clear()
	if err := a.sessions.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Restore resumes a stored session. A session the server no longer accepts
// is cleared and reported as ErrNotAuthenticated.
func (a *Auth) Restore(ctx context.Context) (model.UserSummary, error) {
	sess, err := a.sessions.Load()
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return model.UserSummary{}, ErrNotAuthenticated
		}
		return model.UserSummary{}, fmt.Errorf("failed to load session: %w", err)
	}
	a.setIdentity(sess.Token, &sess.User)

	if err := a.store.Refresh(ctx); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			if logoutErr := a.Logout(); logoutErr != nil {
				return model.UserSummary{}, logoutErr
			}
			return model.UserSummary{}, ErrNotAuthenticated
		}
		return sess.User, fmt.Errorf("failed to load tasks: %w", err)
	}
	return sess.User, nil
}

// CurrentUser returns the logged-in user, if any.
func (a *Auth) CurrentUser() (model.UserSummary, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return model.UserSummary{}, false
	}
	return *a.user, true
}

func (a *Auth) setIdentity(token string, user *model.UserSummary) {
	a.mu.Lock()
	a.user = user
	a.mu.Unlock()
	a.api.SetToken(token)
}
