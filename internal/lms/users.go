package lms

import (
	"context"
	"fmt"
	"net/http"

	"github.com/zarlcorp/zroster/internal/api"
)

// Users manages accounts.
type Users struct {
	c *api.Client
}

// List returns users matching f. The backend may answer with a bare array
// or a {"data": [...]} envelope.
func (u *Users) List(ctx context.Context, f UserFilter) ([]User, error) {
	users, err := api.List[User](ctx, u.c, api.Request{
		Path:  "/users",
		Query: map[string]any{"role": string(f.Role), "search": f.Search},
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Create validates nu and creates the account.
func (u *Users) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := Validate(nu); err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}

	created, err := one[User](ctx, u.c, api.Request{Method: http.MethodPost, Path: "/users", Body: nu})
	if err != nil {
		return User{}, fmt.Errorf("create user %s: %w", nu.Username, err)
	}
	return created, nil
}

// Delete removes the account with the given ID.
func (u *Users) Delete(ctx context.Context, id string) error {
	if err := u.c.Do(ctx, api.Request{Method: http.MethodDelete, Path: path("users", id)}, nil); err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	return nil
}

// Students returns every student account. Their identifiers and usernames
// seed identifier allocation.
func (u *Users) Students(ctx context.Context) ([]User, error) {
	return u.List(ctx, UserFilter{Role: RoleStudent})
}
