// Package sandbox is an in-memory LMS backend for local development and
// tests. It serves the endpoints zroster talks to, with both list envelope
// shapes the real backend uses.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/zarlcorp/zroster/internal/lms"
	"go.uber.org/zap"
)

// Default superadmin credentials seeded into every sandbox.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
)

// Server is a sandbox backend.
type Server struct {
	store *memStore
	log   *zap.Logger
	admin lms.NewUser
	now   func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithAdmin replaces the seeded superadmin credentials.
func WithAdmin(username, password string) Option {
	return func(s *Server) {
		s.admin.Username = username
		s.admin.Password = password
	}
}

// WithClock overrides the clock used for created_at timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a sandbox with a single superadmin account.
func New(opts ...Option) (*Server, error) {
	s := &Server{
		log: zap.NewNop(),
		admin: lms.NewUser{
			Name:     "Super Admin",
			Username: DefaultAdminUsername,
			Password: DefaultAdminPassword,
			Role:     lms.RoleSuperadmin,
		},
		now: time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	s.store = newMemStore(s.now)
	if _, err := s.store.addUser(s.admin); err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}
	return s, nil
}

// Seed creates a user directly, bypassing auth. Used to prepare fixtures.
func (s *Server) Seed(nu lms.NewUser) (lms.User, error) {
	if err := lms.Validate(nu); err != nil {
		return lms.User{}, err
	}
	return s.store.addUser(nu)
}

// Handler returns the HTTP handler serving the API under /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(requestLogging(s.log))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/auth/me", s.handleMe)
			r.Post("/auth/logout", s.handleLogout)

			r.Get("/users", s.handleListUsers)
			r.Post("/users", s.handleCreateUser)
			r.Delete("/users/{id}", s.handleDeleteUser)

			r.Get("/courses", s.handleListCourses)
			r.Post("/courses", s.handleCreateCourse)
			r.Delete("/courses/{id}", s.handleDeleteCourse)

			r.Get("/classes", s.handleListClasses)
			r.Post("/classes", s.handleCreateClass)
			r.Get("/classes/{id}/students", s.handleListEnrolled)
			r.Post("/classes/{id}/students", s.handleEnroll)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("sandbox listening", zap.String("addr", ln.Addr().String()))
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// requestLogging logs one line per request.
func requestLogging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
			)
		})
	}
}
