package lms

import (
	"context"
	"fmt"
	"net/http"

	"github.com/zarlcorp/zroster/internal/api"
)

// Courses manages course templates.
type Courses struct {
	c *api.Client
}

func (cs *Courses) List(ctx context.Context) ([]Course, error) {
	courses, err := api.List[Course](ctx, cs.c, api.Request{Path: "/courses"})
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

func (cs *Courses) Create(ctx context.Context, nc NewCourse) (Course, error) {
	if err := Validate(nc); err != nil {
		return Course{}, fmt.Errorf("create course: %w", err)
	}

	created, err := one[Course](ctx, cs.c, api.Request{Method: http.MethodPost, Path: "/courses", Body: nc})
	if err != nil {
		return Course{}, fmt.Errorf("create course %s: %w", nc.Code, err)
	}
	return created, nil
}

func (cs *Courses) Delete(ctx context.Context, id string) error {
	if err := cs.c.Do(ctx, api.Request{Method: http.MethodDelete, Path: path("courses", id)}, nil); err != nil {
		return fmt.Errorf("delete course %s: %w", id, err)
	}
	return nil
}
