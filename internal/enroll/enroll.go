// Package enroll turns a list of names into student accounts: it allocates
// identifiers against what the backend already has, creates each account
// best effort, and optionally enrolls the new students into a class.
package enroll

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zarlcorp/zroster/internal/identity"
	"github.com/zarlcorp/zroster/internal/lms"
)

// ErrNothingToGenerate is returned when no names survive allocation.
var ErrNothingToGenerate = errors.New("nothing to generate")

// Directory lists existing student accounts.
type Directory interface {
	Students(ctx context.Context) ([]lms.User, error)
}

// Creator creates accounts.
type Creator interface {
	Create(ctx context.Context, nu lms.NewUser) (lms.User, error)
}

// Enroller adds students to a class.
type Enroller interface {
	Enroll(ctx context.Context, classID string, studentIDs []string) error
}

// Workflow plans and applies student batches.
type Workflow struct {
	dir     Directory
	users   Creator
	classes Enroller
	gen     *identity.Generator
}

// New creates a workflow. classes may be nil when no class enrollment is
// ever requested.
func New(dir Directory, users Creator, classes Enroller, gen *identity.Generator) *Workflow {
	return &Workflow{dir: dir, users: users, classes: classes, gen: gen}
}

// Request describes a batch to plan.
type Request struct {
	Names   []string
	Date    time.Time // zero means today
	ClassID string    // optional
}

// Plan is an allocated batch ready to be applied.
type Plan struct {
	Date       time.Time
	ClassID    string
	Start      int // first sequence considered
	Existing   int // students already on the backend
	Identities []identity.Identity
}

// Steps returns human-readable descriptions of what Apply will do.
// Used to populate the confirmation view.
func (p Plan) Steps() []string {
	steps := []string{
		fmt.Sprintf("create %d student accounts for %s", len(p.Identities), p.Date.Format("2006-01-02")),
	}
	if p.ClassID != "" {
		steps = append(steps, fmt.Sprintf("enroll them into class %s", p.ClassID))
	}
	return steps
}

// Plan allocates identities for req.Names. The sequence starts after the
// highest one already used on the backend for that date.
func (w *Workflow) Plan(ctx context.Context, req Request) (Plan, error) {
	date := req.Date
	if date.IsZero() {
		date = w.gen.Today()
	}

	students, err := w.dir.Students(ctx)
	if err != nil {
		return Plan{}, fmt.Errorf("plan: %w", err)
	}

	existing := make([]string, 0, len(students)*2)
	for _, s := range students {
		existing = append(existing, s.Identifier, s.Username)
	}

	ids, err := w.gen.Batch(req.Names, date, existing)
	if err != nil {
		return Plan{}, fmt.Errorf("plan: %w", err)
	}
	if len(ids) == 0 {
		return Plan{}, ErrNothingToGenerate
	}

	return Plan{
		Date:       date,
		ClassID:    req.ClassID,
		Start:      identity.NextSequence(existing, date),
		Existing:   len(students),
		Identities: ids,
	}, nil
}

// Row records the outcome of creating one account.
type Row struct {
	Identity identity.Identity
	UserID   string
	Err      error
}

// StepStatus records the outcome of one non-account step.
type StepStatus struct {
	Description string
	Err         error
}

// Result summarizes an applied plan.
type Result struct {
	Date  time.Time
	Rows  []Row
	Steps []StepStatus
}

// HasErrors returns true if any account or step failed.
func (r Result) HasErrors() bool {
	for _, row := range r.Rows {
		if row.Err != nil {
			return true
		}
	}
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Created returns the identities whose accounts exist on the backend.
func (r Result) Created() []identity.Identity {
	var out []identity.Identity
	for _, row := range r.Rows {
		if row.Err == nil {
			out = append(out, row.Identity)
		}
	}
	return out
}

// Failed returns the rows that could not be created.
func (r Result) Failed() []Row {
	var out []Row
	for _, row := range r.Rows {
		if row.Err != nil {
			out = append(out, row)
		}
	}
	return out
}

// Summary returns a human-readable summary of the result.
func (r Result) Summary() string {
	var b strings.Builder

	created := len(r.Created())
	if r.HasErrors() {
		fmt.Fprintf(&b, "created %d/%d students (with errors)", created, len(r.Rows))
	} else {
		fmt.Fprintf(&b, "created %d students", created)
	}

	for _, row := range r.Failed() {
		fmt.Fprintf(&b, "\n- %s %s: %v", row.Identity.Identifier, row.Identity.Name, row.Err)
	}

	for _, s := range r.Steps {
		if s.Err != nil {
			fmt.Fprintf(&b, "\n- %s: %v", s.Description, s.Err)
		} else {
			fmt.Fprintf(&b, "\n- %s", s.Description)
		}
	}

	return b.String()
}

// Apply creates every planned account. It is best effort: a failed account
// does not stop the rest. Once ctx is done the remaining rows fail with its
// error. Class enrollment runs last and only for created accounts.
func (w *Workflow) Apply(ctx context.Context, p Plan) Result {
	result := Result{Date: p.Date}

	var userIDs []string
	for _, id := range p.Identities {
		row := Row{Identity: id}

		if err := ctx.Err(); err != nil {
			row.Err = err
			result.Rows = append(result.Rows, row)
			continue
		}

		u, err := w.users.Create(ctx, lms.NewUser{
			Name:       id.Name,
			Username:   id.Username,
			Identifier: id.Identifier,
			Password:   id.Password,
			Role:       lms.RoleStudent,
		})
		if err != nil {
			row.Err = err
		} else {
			row.UserID = u.ID
			userIDs = append(userIDs, u.ID)
		}
		result.Rows = append(result.Rows, row)
	}

	if p.ClassID != "" {
		result.enroll(ctx, w.classes, p.ClassID, userIDs)
	}

	return result
}

func (r *Result) enroll(ctx context.Context, classes Enroller, classID string, ids []string) {
	if len(ids) == 0 {
		r.Steps = append(r.Steps, StepStatus{
			Description: fmt.Sprintf("no students to enroll into class %s", classID),
		})
		return
	}

	if classes == nil {
		r.Steps = append(r.Steps, StepStatus{
			Description: fmt.Sprintf("enroll into class %s", classID),
			Err:         errors.New("class enrollment not configured"),
		})
		return
	}

	if err := classes.Enroll(ctx, classID, ids); err != nil {
		r.Steps = append(r.Steps, StepStatus{
			Description: fmt.Sprintf("enroll %d students into class %s", len(ids), classID),
			Err:         err,
		})
		return
	}

	r.Steps = append(r.Steps, StepStatus{
		Description: fmt.Sprintf("enrolled %d students into class %s", len(ids), classID),
	})
}
