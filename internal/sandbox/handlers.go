package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/zarlcorp/zroster/internal/lms"
	"go.uber.org/zap"
)

type ctxKey struct{}

type authed struct {
	user  lms.User
	token string
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		u, ok := s.store.userByToken(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, authed{user: u, token: token})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func current(r *http.Request) authed {
	a, _ := r.Context().Value(ctxKey{}).(authed)
	return a
}

// requireSuperadmin answers 403 and returns false unless the caller is a
// superadmin.
func requireSuperadmin(w http.ResponseWriter, r *http.Request) bool {
	if current(r).user.Role != lms.RoleSuperadmin {
		writeError(w, http.StatusForbidden, "Forbidden")
		return false
	}
	return true
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, u, err := s.store.login(req.Username, req.Password)
	if err != nil {
		s.log.Warn("login failed", zap.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": u})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"data": current(r).user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.store.logout(current(r).token)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users := s.store.listUsers(lms.Role(q.Get("role")), q.Get("search"))
	writeJSON(w, http.StatusOK, map[string]any{"data": users, "total": len(users)})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if !requireSuperadmin(w, r) {
		return
	}

	var nu lms.NewUser
	if !decodeValid(w, r, &nu) {
		return
	}

	u, err := s.store.addUser(nu)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if !requireSuperadmin(w, r) {
		return
	}
	s.writeDeleted(w, s.store.deleteUser(chi.URLParam(r, "id")))
}

func (s *Server) handleListCourses(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.listCourses())
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	if !requireSuperadmin(w, r) {
		return
	}

	var nc lms.NewCourse
	if !decodeValid(w, r, &nc) {
		return
	}
	writeJSON(w, http.StatusCreated, s.store.addCourse(nc))
}

func (s *Server) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	if !requireSuperadmin(w, r) {
		return
	}
	s.writeDeleted(w, s.store.deleteCourse(chi.URLParam(r, "id")))
}

func (s *Server) handleListClasses(w http.ResponseWriter, r *http.Request) {
	classes := s.store.listClasses(r.URL.Query().Get("course_id"))
	writeJSON(w, http.StatusOK, map[string]any{"data": classes})
}

func (s *Server) handleCreateClass(w http.ResponseWriter, r *http.Request) {
	if !requireSuperadmin(w, r) {
		return
	}

	var nc lms.NewClass
	if !decodeValid(w, r, &nc) {
		return
	}

	c, err := s.store.addClass(nc)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": c})
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	if !requireSuperadmin(w, r) {
		return
	}

	var req struct {
		StudentIDs []string `json:"student_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.store.enroll(chi.URLParam(r, "id"), req.StudentIDs)
	switch {
	case errors.Is(err, errNotFound):
		writeError(w, http.StatusNotFound, "class not found")
	case err != nil:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleListEnrolled(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.enrolled(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "class not found")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) writeDeleted(w http.ResponseWriter, err error) {
	if errors.Is(err, errNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeValid decodes the body into v and validates it, answering 400 or
// 422 on failure.
func decodeValid(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	if err := lms.Validate(v); err != nil {
		var verr *lms.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"message": "validation failed",
				"errors":  verr.Fields,
			})
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
