package lms

import (
	"context"
	"fmt"
	"net/http"

	"github.com/zarlcorp/zroster/internal/api"
)

// Classes manages classes and their student lists.
type Classes struct {
	c *api.Client
}

func (cl *Classes) List(ctx context.Context, f ClassFilter) ([]Class, error) {
	classes, err := api.List[Class](ctx, cl.c, api.Request{
		Path:  "/classes",
		Query: map[string]any{"course_id": f.CourseID},
	})
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

func (cl *Classes) Create(ctx context.Context, nc NewClass) (Class, error) {
	if err := Validate(nc); err != nil {
		return Class{}, fmt.Errorf("create class: %w", err)
	}

	created, err := one[Class](ctx, cl.c, api.Request{Method: http.MethodPost, Path: "/classes", Body: nc})
	if err != nil {
		return Class{}, fmt.Errorf("create class %s: %w", nc.Name, err)
	}
	return created, nil
}

// Enroll adds students to a class.
func (cl *Classes) Enroll(ctx context.Context, classID string, studentIDs []string) error {
	if len(studentIDs) == 0 {
		return nil
	}

	err := cl.c.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   path("classes", classID, "students"),
		Body:   map[string][]string{"student_ids": studentIDs},
	}, nil)
	if err != nil {
		return fmt.Errorf("enroll into %s: %w", classID, err)
	}
	return nil
}

// Enrollments returns the students of a class.
func (cl *Classes) Enrollments(ctx context.Context, classID string) ([]User, error) {
	users, err := api.List[User](ctx, cl.c, api.Request{Path: path("classes", classID, "students")})
	if err != nil {
		return nil, fmt.Errorf("list enrollments %s: %w", classID, err)
	}
	return users, nil
}
