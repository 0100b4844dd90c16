// Package lms wraps the LMS REST resources used by zroster.
package lms

import (
	"net/url"

	"github.com/zarlcorp/zroster/internal/api"
	"github.com/zarlcorp/zroster/internal/session"
)

// LMS groups the resource clients that share one gateway and session.
type LMS struct {
	Auth    *Auth
	Users   *Users
	Courses *Courses
	Classes *Classes
}

// New wires the resource clients to c. s receives the token on login.
func New(c *api.Client, s *session.Session) *LMS {
	return &LMS{
		Auth:    &Auth{c: c, s: s},
		Users:   &Users{c: c},
		Courses: &Courses{c: c},
		Classes: &Classes{c: c},
	}
}

func path(parts ...string) string {
	p := ""
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}
