package lms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Role is an LMS account role.
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleLecturer   Role = "dosen"
	RoleStudent    Role = "mahasiswa"
)

var roles = []Role{RoleSuperadmin, RoleLecturer, RoleStudent}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range roles {
		if r == known {
			return true
		}
	}
	return false
}

func roleNames() []string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return names
}

// ID is an identifier the backend may send as a JSON string or number.
// Numbers are kept in their literal decimal form.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: want string or number, got %s", b)
	}
	*id = ID(n.String())
	return nil
}

// User is an account as the backend reports it.
type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Username   string    `json:"username"`
	Identifier string    `json:"identifier,omitempty"`
	Email      string    `json:"email,omitempty"`
	Role       Role      `json:"role"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
}

func (u *User) UnmarshalJSON(b []byte) error {
	type plain User
	aux := struct {
		*plain
		ID         ID `json:"id"`
		Identifier ID `json:"identifier"`
	}{plain: (*plain)(u)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	u.ID, u.Identifier = string(aux.ID), string(aux.Identifier)
	return nil
}

// NewUser is the payload for creating an account.
type NewUser struct {
	Name       string `json:"name" validate:"notblank"`
	Username   string `json:"username" validate:"required,alphanum"`
	Identifier string `json:"identifier,omitempty" validate:"omitempty,numeric"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Password   string `json:"password" validate:"required,min=4"`
	Role       Role   `json:"role" validate:"role"`
}

// UserFilter narrows a user listing. Empty fields are not sent.
type UserFilter struct {
	Role   Role
	Search string
}

// Course is a course template.
type Course struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (c *Course) UnmarshalJSON(b []byte) error {
	type plain Course
	aux := struct {
		*plain
		ID ID `json:"id"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	c.ID = string(aux.ID)
	return nil
}

// NewCourse is the payload for creating a course.
type NewCourse struct {
	Code        string `json:"code" validate:"notblank"`
	Name        string `json:"name" validate:"notblank"`
	Description string `json:"description,omitempty"`
}

// Class is a running instance of a course.
type Class struct {
	ID         string `json:"id"`
	CourseID   string `json:"course_id"`
	Name       string `json:"name"`
	LecturerID string `json:"lecturer_id,omitempty"`
	Semester   string `json:"semester,omitempty"`
}

func (c *Class) UnmarshalJSON(b []byte) error {
	type plain Class
	aux := struct {
		*plain
		ID         ID `json:"id"`
		CourseID   ID `json:"course_id"`
		LecturerID ID `json:"lecturer_id"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	c.ID, c.CourseID, c.LecturerID = string(aux.ID), string(aux.CourseID), string(aux.LecturerID)
	return nil
}

// NewClass is the payload for creating a class.
type NewClass struct {
	CourseID   string `json:"course_id" validate:"required"`
	Name       string `json:"name" validate:"notblank"`
	LecturerID string `json:"lecturer_id,omitempty"`
	Semester   string `json:"semester,omitempty"`
}

// ClassFilter narrows a class listing.
type ClassFilter struct {
	CourseID string
}
