package api

import (
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"
)

// Request describes one call to the backend.
type Request struct {
	Method string // defaults to GET
	Path   string
	Body   any
	Query  map[string]any
	Header http.Header

	// Public skips the Authorization header.
	Public bool

	// Token overrides the token from the client's TokenSource.
	Token string
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

// joinURL joins base and path with exactly one slash at the seam.
func joinURL(base, path string) string {
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// encodeQuery renders q as an encoded query string. Nil values, nil pointers
// and empty strings are left out entirely.
func encodeQuery(q map[string]any) string {
	if len(q) == 0 {
		return ""
	}

	vals := url.Values{}
	for k, v := range q {
		s, ok := queryValue(v)
		if !ok {
			continue
		}
		vals.Set(k, s)
	}

	return vals.Encode()
}

func queryValue(v any) (string, bool) {
	if v == nil {
		return "", false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false
		}
		v = rv.Elem().Interface()
	}

	s := fmt.Sprint(v)
	if s == "" {
		return "", false
	}
	return s, true
}
