package sandbox

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zarlcorp/zroster/internal/lms"
)

var (
	errNotFound   = errors.New("not found")
	errTaken      = errors.New("username already taken")
	errNoCourse   = errors.New("course does not exist")
	errBadLogin   = errors.New("invalid username or password")
	errNotStudent = errors.New("only students can be enrolled")
)

type account struct {
	lms.User
	password string
}

// memStore is the in-memory backend state.
type memStore struct {
	mu          sync.RWMutex
	users       []account
	courses     []lms.Course
	classes     []lms.Class
	tokens      map[string]string   // token -> user ID
	enrollments map[string][]string // class ID -> student IDs
	now         func() time.Time
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{
		tokens:      make(map[string]string),
		enrollments: make(map[string][]string),
		now:         now,
	}
}

func (s *memStore) addUser(nu lms.NewUser) (lms.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.users {
		if strings.EqualFold(a.Username, nu.Username) {
			return lms.User{}, errTaken
		}
	}

	u := lms.User{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(nu.Name),
		Username:   nu.Username,
		Identifier: nu.Identifier,
		Email:      nu.Email,
		Role:       nu.Role,
		CreatedAt:  s.now().UTC(),
	}
	s.users = append(s.users, account{User: u, password: nu.Password})
	return u, nil
}

func (s *memStore) login(username, password string) (string, lms.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.users {
		if a.Username == username && a.password == password {
			tok := uuid.NewString()
			s.tokens[tok] = a.ID
			return tok, a.User, nil
		}
	}
	return "", lms.User{}, errBadLogin
}

func (s *memStore) logout(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

func (s *memStore) userByToken(token string) (lms.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.tokens[token]
	if !ok {
		return lms.User{}, false
	}
	for _, a := range s.users {
		if a.ID == id {
			return a.User, true
		}
	}
	return lms.User{}, false
}

func (s *memStore) listUsers(role lms.Role, search string) []lms.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search = strings.ToLower(search)
	out := []lms.User{}
	for _, a := range s.users {
		if role != "" && a.Role != role {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(a.Name), search) &&
			!strings.Contains(strings.ToLower(a.Username), search) &&
			!strings.Contains(a.Identifier, search) {
			continue
		}
		out = append(out, a.User)
	}
	return out
}

func (s *memStore) deleteUser(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.users, func(a account) bool { return a.ID == id })
	if i < 0 {
		return errNotFound
	}
	s.users = slices.Delete(s.users, i, i+1)

	for tok, uid := range s.tokens {
		if uid == id {
			delete(s.tokens, tok)
		}
	}
	for cid, ids := range s.enrollments {
		s.enrollments[cid] = slices.DeleteFunc(ids, func(sid string) bool { return sid == id })
	}
	return nil
}

func (s *memStore) addCourse(nc lms.NewCourse) lms.Course {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := lms.Course{
		ID:          uuid.NewString(),
		Code:        strings.TrimSpace(nc.Code),
		Name:        strings.TrimSpace(nc.Name),
		Description: nc.Description,
	}
	s.courses = append(s.courses, c)
	return c
}

func (s *memStore) listCourses() []lms.Course {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]lms.Course{}, s.courses...)
}

func (s *memStore) deleteCourse(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.courses, func(c lms.Course) bool { return c.ID == id })
	if i < 0 {
		return errNotFound
	}
	s.courses = slices.Delete(s.courses, i, i+1)
	return nil
}

func (s *memStore) addClass(nc lms.NewClass) (lms.Class, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.ContainsFunc(s.courses, func(c lms.Course) bool { return c.ID == nc.CourseID }) {
		return lms.Class{}, errNoCourse
	}

	c := lms.Class{
		ID:         uuid.NewString(),
		CourseID:   nc.CourseID,
		Name:       strings.TrimSpace(nc.Name),
		LecturerID: nc.LecturerID,
		Semester:   nc.Semester,
	}
	s.classes = append(s.classes, c)
	return c, nil
}

func (s *memStore) listClasses(courseID string) []lms.Class {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []lms.Class{}
	for _, c := range s.classes {
		if courseID == "" || c.CourseID == courseID {
			out = append(out, c)
		}
	}
	return out
}

func (s *memStore) enroll(classID string, studentIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.ContainsFunc(s.classes, func(c lms.Class) bool { return c.ID == classID }) {
		return errNotFound
	}

	for _, id := range studentIDs {
		i := slices.IndexFunc(s.users, func(a account) bool { return a.ID == id })
		if i < 0 || s.users[i].Role != lms.RoleStudent {
			return errNotStudent
		}
	}

	current := s.enrollments[classID]
	for _, id := range studentIDs {
		if !slices.Contains(current, id) {
			current = append(current, id)
		}
	}
	s.enrollments[classID] = current
	return nil
}

func (s *memStore) enrolled(classID string) ([]lms.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !slices.ContainsFunc(s.classes, func(c lms.Class) bool { return c.ID == classID }) {
		return nil, errNotFound
	}

	out := []lms.User{}
	for _, id := range s.enrollments[classID] {
		for _, a := range s.users {
			if a.ID == id {
				out = append(out, a.User)
			}
		}
	}
	return out, nil
}
