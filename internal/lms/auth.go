package lms

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/zarlcorp/zroster/internal/api"
	"github.com/zarlcorp/zroster/internal/session"
)

// ErrNoToken is returned when a login succeeds without a token in the response.
var ErrNoToken = errors.New("login response has no token")

// Auth handles login state against the backend.
type Auth struct {
	c *api.Client
	s *session.Session
}

type loginResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

// Login exchanges credentials for a token and stores it in the session.
func (a *Auth) Login(ctx context.Context, username, password string) (User, error) {
	var resp loginResponse
	err := a.c.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   map[string]string{"username": username, "password": password},
		Public: true,
	}, &resp)
	if err != nil {
		return User{}, fmt.Errorf("login: %w", err)
	}

	token := resp.Token
	if token == "" {
		token = resp.AccessToken
	}
	if token == "" {
		return User{}, fmt.Errorf("login: %w", ErrNoToken)
	}

	if err := a.s.SetToken(token); err != nil {
		return User{}, fmt.Errorf("login: %w", err)
	}
	return resp.User, nil
}

// Me returns the logged-in user. A 401 means the stored token is no longer
// valid and it is cleared.
func (a *Auth) Me(ctx context.Context) (User, error) {
	u, err := one[User](ctx, a.c, api.Request{Path: "/auth/me"})
	if err != nil {
		err = fmt.Errorf("me: %w", err)
		if api.IsStatus(err, http.StatusUnauthorized) {
			if clearErr := a.s.Clear(); clearErr != nil {
				err = errors.Join(err, clearErr)
			}
		}
		return User{}, err
	}
	return u, nil
}

// Logout tells the backend to drop the token and always forgets it locally.
// The backend call is best effort.
func (a *Auth) Logout(ctx context.Context) error {
	if a.s.LoggedIn() {
		_ = a.c.Do(ctx, api.Request{Method: http.MethodPost, Path: "/auth/logout"}, nil)
	}
	if err := a.s.Clear(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
