package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/zarlcorp/zroster/internal/lms"
)

func (r *Runner) cmdLogin(ctx context.Context, args []string) error {
	fs := newFlagSet(r, "login")
	username := fs.String("u", "", "username")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if *username == "" {
		fs.Usage()
		return ErrUsage
	}

	pass, err := r.Secret("password: ")
	if err != nil {
		return err
	}
	if pass == "" {
		return errors.New("password cannot be empty")
	}

	l, _, err := r.connect()
	if err != nil {
		return err
	}

	u, err := l.Auth.Login(ctx, *username, pass)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.Stdout, "logged in as %s (%s)\n", orDash(u.Name), u.Role)
	return nil
}

func (r *Runner) cmdLogout(ctx context.Context) error {
	l, _, err := r.connect()
	if err != nil {
		return err
	}
	if err := l.Auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(r.Stdout, "logged out")
	return nil
}

func (r *Runner) cmdWhoami(ctx context.Context) error {
	l, err := r.connectAuthed()
	if err != nil {
		return err
	}

	u, err := l.Auth.Me(ctx)
	if err != nil {
		return unauthorized(err)
	}

	fmt.Fprintf(r.Stdout, "  name:     %s\n", orDash(u.Name))
	fmt.Fprintf(r.Stdout, "  username: %s\n", u.Username)
	fmt.Fprintf(r.Stdout, "  role:     %s\n", u.Role)
	return nil
}

func (r *Runner) cmdUsers(ctx context.Context, args []string) error {
	if len(args) > 0 && args[0] == "delete" {
		return r.cmdUsersDelete(ctx, args[1:])
	}

	fs := newFlagSet(r, "users")
	role := fs.String("role", "", "filter by role (superadmin, dosen, mahasiswa)")
	search := fs.String("search", "", "filter by name, username or identifier")
	asJSON := fs.Bool("json", false, "print JSON")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if *role != "" && !lms.Role(*role).Valid() {
		return fmt.Errorf("unknown role %q", *role)
	}

	l, err := r.connectAuthed()
	if err != nil {
		return err
	}

	users, err := l.Users.List(ctx, lms.UserFilter{Role: lms.Role(*role), Search: *search})
	if err != nil {
		return unauthorized(err)
	}

	if *asJSON {
		return printJSON(r.Stdout, users)
	}
	if len(users) == 0 {
		fmt.Fprintln(r.Stdout, "no users")
		return nil
	}

	tw := tabwriter.NewWriter(r.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  USERNAME\tNAME\tROLE\tIDENTIFIER")
	for _, u := range users {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", u.Username, orDash(u.Name), u.Role, orDash(u.Identifier))
	}
	return tw.Flush()
}

func (r *Runner) cmdCourses(ctx context.Context, args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "create":
			return r.cmdCoursesCreate(ctx, args[1:])
		case "delete":
			return r.cmdCoursesDelete(ctx, args[1:])
		}
	}

	fs := newFlagSet(r, "courses")
	asJSON := fs.Bool("json", false, "print JSON")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	l, err := r.connectAuthed()
	if err != nil {
		return err
	}

	courses, err := l.Courses.List(ctx)
	if err != nil {
		return unauthorized(err)
	}

	if *asJSON {
		return printJSON(r.Stdout, courses)
	}
	if len(courses) == 0 {
		fmt.Fprintln(r.Stdout, "no courses")
		return nil
	}

	tw := tabwriter.NewWriter(r.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  ID\tCODE\tNAME")
	for _, c := range courses {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", c.ID, c.Code, c.Name)
	}
	return tw.Flush()
}

func (r *Runner) cmdClasses(ctx context.Context, args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "create":
			return r.cmdClassesCreate(ctx, args[1:])
		case "students":
			return r.cmdClassStudents(ctx, args[1:])
		}
	}

	fs := newFlagSet(r, "classes")
	course := fs.String("course", "", "filter by course ID")
	asJSON := fs.Bool("json", false, "print JSON")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	l, err := r.connectAuthed()
	if err != nil {
		return err
	}

	classes, err := l.Classes.List(ctx, lms.ClassFilter{CourseID: *course})
	if err != nil {
		return unauthorized(err)
	}

	if *asJSON {
		return printJSON(r.Stdout, classes)
	}
	if len(classes) == 0 {
		fmt.Fprintln(r.Stdout, "no classes")
		return nil
	}

	tw := tabwriter.NewWriter(r.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  ID\tNAME\tCOURSE\tSEMESTER")
	for _, c := range classes {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", c.ID, c.Name, c.CourseID, orDash(c.Semester))
	}
	return tw.Flush()
}

func (r *Runner) cmdUsersDelete(ctx context.Context, args []string) error {
	id, err := r.singleArg("users delete", "USER_ID", args)
	if err != nil {
		return err
	}

	l, err := r.connectAuthed()
	if err != nil {
		return err
	}
	if err := l.Users.Delete(ctx, id); err != nil {
		return unauthorized(err)
	}

	fmt.Fprintf(r.Stdout, "deleted user %s\n", id)
	return nil
}

func (r *Runner) cmdCoursesCreate(ctx context.Context, args []string) error {
	fs := newFlagSet(r, "courses create")
	code := fs.String("code", "", "course code")
	name := fs.String("name", "", "course name")
	desc := fs.String("description", "", "description")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	l, err := r.connectAuthed()
	if err != nil {
		return err
	}

	c, err := l.Courses.Create(ctx, lms.NewCourse{Code: *code, Name: *name, Description: *desc})
	if err != nil {
		return unauthorized(err)
	}

	fmt.Fprintf(r.Stdout, "created course %s (%s)\n", c.ID, c.Code)
	return nil
}

func (r *Runner) cmdCoursesDelete(ctx context.Context, args []string) error {
	id, err := r.singleArg("courses delete", "COURSE_ID", args)
	if err != nil {
		return err
	}

	l, err := r.connectAuthed()
	if err != nil {
		return err
	}
	if err := l.Courses.Delete(ctx, id); err != nil {
		return unauthorized(err)
	}

	fmt.Fprintf(r.Stdout, "deleted course %s\n", id)
	return nil
}

func (r *Runner) cmdClassesCreate(ctx context.Context, args []string) error {
	fs := newFlagSet(r, "classes create")
	course := fs.String("course", "", "course ID")
	name := fs.String("name", "", "class name")
	lecturer := fs.String("lecturer", "", "lecturer user ID")
	semester := fs.String("semester", "", "semester label")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	l, err := r.connectAuthed()
	if err != nil {
		return err
	}

	c, err := l.Classes.Create(ctx, lms.NewClass{
		CourseID:   *course,
		Name:       *name,
		LecturerID: *lecturer,
		Semester:   *semester,
	})
	if err != nil {
		return unauthorized(err)
	}

	fmt.Fprintf(r.Stdout, "created class %s (%s)\n", c.ID, c.Name)
	return nil
}

func (r *Runner) cmdClassStudents(ctx context.Context, args []string) error {
	fs := newFlagSet(r, "classes students")
	asJSON := fs.Bool("json", false, "print JSON")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		fmt.Fprintln(r.Stderr, "usage: zroster classes students CLASS_ID [-json]")
		return ErrUsage
	}

	l, err := r.connectAuthed()
	if err != nil {
		return err
	}

	students, err := l.Classes.Enrollments(ctx, pos[0])
	if err != nil {
		return unauthorized(err)
	}

	if *asJSON {
		return printJSON(r.Stdout, students)
	}
	if len(students) == 0 {
		fmt.Fprintln(r.Stdout, "no students")
		return nil
	}

	tw := tabwriter.NewWriter(r.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  USERNAME\tNAME\tIDENTIFIER")
	for _, u := range students {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", u.Username, orDash(u.Name), orDash(u.Identifier))
	}
	return tw.Flush()
}

// singleArg parses a command that takes exactly one positional argument.
func (r *Runner) singleArg(name, arg string, args []string) (string, error) {
	fs := newFlagSet(r, name)
	pos, err := parseArgs(fs, args)
	if err != nil {
		return "", err
	}
	if len(pos) != 1 {
		fmt.Fprintf(r.Stderr, "usage: zroster %s %s\n", name, arg)
		return "", ErrUsage
	}
	return pos[0], nil
}
