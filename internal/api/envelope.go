package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Shape names how a list response was wrapped.
type Shape int

const (
	ShapeEmpty    Shape = iota // null or missing body
	ShapeArray                 // bare JSON array
	ShapeEnvelope              // {"data": [...]}
)

func (s Shape) String() string {
	switch s {
	case ShapeArray:
		return "array"
	case ShapeEnvelope:
		return "envelope"
	}
	return "empty"
}

// Envelope is a list response after normalisation.
type Envelope struct {
	Shape Shape
	Items json.RawMessage // always a JSON array, "[]" when empty
}

// Unwrap normalises raw into an Envelope. Anything other than null, an
// array, or an object with an array (or null) "data" field is an error.
func Unwrap(raw json.RawMessage) (Envelope, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Envelope{Shape: ShapeEmpty, Items: json.RawMessage("[]")}, nil
	}

	switch trimmed[0] {
	case '[':
		return Envelope{Shape: ShapeArray, Items: json.RawMessage(trimmed)}, nil
	case '{':
		var wrapped struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return Envelope{}, fmt.Errorf("unwrap list: %w", err)
		}
		data := bytes.TrimSpace(wrapped.Data)
		if len(data) == 0 || bytes.Equal(data, []byte("null")) {
			return Envelope{Shape: ShapeEnvelope, Items: json.RawMessage("[]")}, nil
		}
		if data[0] != '[' {
			return Envelope{}, fmt.Errorf("unwrap list: data is not an array")
		}
		return Envelope{Shape: ShapeEnvelope, Items: json.RawMessage(data)}, nil
	}

	return Envelope{}, fmt.Errorf("unwrap list: unexpected json %q", firstByte(trimmed))
}

// DecodeList decodes a list response that may be a bare array or wrapped in
// a {"data": [...]} envelope.
func DecodeList[T any](raw json.RawMessage) ([]T, error) {
	env, err := Unwrap(raw)
	if err != nil {
		return nil, err
	}

	items := []T{}
	if err := json.Unmarshal(env.Items, &items); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return items, nil
}

// List sends req and decodes the response with DecodeList.
func List[T any](ctx context.Context, c *Client, req Request) ([]T, error) {
	raw, err := c.Raw(ctx, req)
	if err != nil {
		return nil, err
	}
	return DecodeList[T](raw)
}

func firstByte(b []byte) string {
	return string(b[:1])
}
