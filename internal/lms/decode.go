package lms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/zarlcorp/zroster/internal/api"
)

// one sends req and decodes a single object, accepting either the object
// itself or {"data": {...}}.
func one[T any](ctx context.Context, c *api.Client, req api.Request) (T, error) {
	var zero T

	raw, err := c.Raw(ctx, req)
	if err != nil {
		return zero, err
	}
	if raw == nil {
		return zero, nil
	}

	var wrapped struct {
		Data json.RawMessage `json:"data"`
	}
	if json.Unmarshal(raw, &wrapped) == nil {
		if d := bytes.TrimSpace(wrapped.Data); len(d) > 0 && d[0] == '{' {
			raw = d
		}
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, fmt.Errorf("decode response: %w", err)
	}
	return v, nil
}
