package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zarlcorp/zroster/internal/api"
	"github.com/zarlcorp/zroster/internal/enroll"
	"github.com/zarlcorp/zroster/internal/lms"
	"github.com/zarlcorp/zroster/internal/sandbox"
	"github.com/zarlcorp/zroster/internal/tui"
)

// helpers

type testEnv struct {
	sb      *sandbox.Server
	url     string
	dataDir string
	stdin   string
	secrets []string
	review  tui.Decision
	reviews int
	stdout  bytes.Buffer
	stderr  bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	sb, err := sandbox.New()
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(sb.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{
		sb:      sb,
		url:     srv.URL + "/api",
		dataDir: t.TempDir(),
		review:  tui.Confirmed,
	}
}

func (e *testEnv) runner() *Runner {
	r := &Runner{
		Config:  Config{APIURL: e.url, DataDir: e.dataDir},
		Version: "test",
		Stdin:   strings.NewReader(e.stdin),
		Stdout:  &e.stdout,
		Stderr:  &e.stderr,
		Log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now: func() time.Time {
			return time.Date(2025, 3, 7, 10, 30, 0, 0, time.UTC)
		},
	}
	r.Secret = func(string) (string, error) {
		if len(e.secrets) == 0 {
			return "", errors.New("no more secrets")
		}
		s := e.secrets[0]
		e.secrets = e.secrets[1:]
		return s, nil
	}
	r.Review = func(context.Context, tui.Model) (tui.Decision, error) {
		e.reviews++
		return e.review, nil
	}
	return r
}

func (e *testEnv) run(t *testing.T, args ...string) error {
	t.Helper()
	e.stdout.Reset()
	e.stderr.Reset()
	return e.runner().Run(context.Background(), args)
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	e.secrets = append(e.secrets, sandbox.DefaultAdminPassword)
	if err := e.run(t, "login", "-u", sandbox.DefaultAdminUsername); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func writeNames(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "names.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// tests

func TestVersion(t *testing.T) {
	e := newTestEnv(t)
	if err := e.run(t, "version"); err != nil {
		t.Fatal(err)
	}
	if e.stdout.String() != "zroster test\n" {
		t.Errorf("version: got %q", e.stdout.String())
	}
}

func TestUsage(t *testing.T) {
	e := newTestEnv(t)

	if err := e.run(t); !errors.Is(err, ErrUsage) {
		t.Errorf("no args: got %v, want ErrUsage", err)
	}
	if !strings.Contains(e.stderr.String(), "usage: zroster") {
		t.Error("usage should be printed")
	}

	if err := e.run(t, "frobnicate"); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("unknown command: got %v", err)
	}

	if err := e.run(t, "login"); !errors.Is(err, ErrUsage) {
		t.Errorf("login without -u: got %v, want ErrUsage", err)
	}
}

func TestLoginWhoamiLogout(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	if !strings.Contains(e.stdout.String(), "logged in as Super Admin (superadmin)") {
		t.Errorf("login output: %q", e.stdout.String())
	}
	if _, err := os.Stat(filepath.Join(e.dataDir, "token")); err != nil {
		t.Errorf("token file: %v", err)
	}

	if err := e.run(t, "whoami"); err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if !strings.Contains(e.stdout.String(), "username: admin") {
		t.Errorf("whoami output: %q", e.stdout.String())
	}

	if err := e.run(t, "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := e.run(t, "whoami"); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("whoami after logout: got %v, want ErrNotLoggedIn", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	e := newTestEnv(t)
	e.secrets = []string{"wrong"}

	err := e.run(t, "login", "-u", "admin")
	if err == nil || !strings.Contains(err.Error(), "invalid username or password") {
		t.Errorf("err: got %v", err)
	}
}

func TestStaleTokenReportsNotLoggedIn(t *testing.T) {
	e := newTestEnv(t)
	if err := os.WriteFile(filepath.Join(e.dataDir, "token"), []byte("stale"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := e.run(t, "users"); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("err: got %v, want ErrNotLoggedIn", err)
	}
}

func TestListCommands(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	if _, err := e.sb.Seed(lms.NewUser{Name: "Pak Budi", Username: "budi", Password: "budi1234", Role: lms.RoleLecturer}); err != nil {
		t.Fatal(err)
	}

	if err := e.run(t, "users", "-role", "dosen"); err != nil {
		t.Fatalf("users: %v", err)
	}
	out := e.stdout.String()
	if !strings.Contains(out, "budi") || strings.Contains(out, "admin") {
		t.Errorf("users -role dosen: %q", out)
	}

	if err := e.run(t, "users", "--json"); err != nil {
		t.Fatalf("users --json: %v", err)
	}
	if !strings.HasPrefix(e.stdout.String(), "[") {
		t.Errorf("json output: %q", e.stdout.String())
	}

	if err := e.run(t, "users", "-role", "wizard"); err == nil {
		t.Error("unknown role should fail")
	}

	if err := e.run(t, "courses"); err != nil {
		t.Fatalf("courses: %v", err)
	}
	if e.stdout.String() != "no courses\n" {
		t.Errorf("courses: %q", e.stdout.String())
	}

	if err := e.run(t, "classes", "-course", "x"); err != nil {
		t.Fatalf("classes: %v", err)
	}
	if e.stdout.String() != "no classes\n" {
		t.Errorf("classes: %q", e.stdout.String())
	}
}

func TestImportExportHistory(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	names := writeNames(t, "nama\nUdin Saputra\n\nSiti Aminah\nUdin Saputra\n")
	out := filepath.Join(t.TempDir(), "out.csv")

	// first vault use asks for a new password twice
	e.secrets = []string{"master", "master"}
	if err := e.run(t, "students", "import", names, "-date", "2025-03-07", "-out", out, "-yes"); err != nil {
		t.Fatalf("import: %v\n%s", err, e.stderr.String())
	}
	if e.reviews != 0 {
		t.Error("-yes should skip the review")
	}
	if !strings.Contains(e.stderr.String(), "created 3 students") {
		t.Errorf("summary: %q", e.stderr.String())
	}

	sheet, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	want := "name,username,identifier,password\n" +
		"Udin Saputra,20250307001,20250307001,udinsap001\n" +
		"Siti Aminah,20250307002,20250307002,sitiami002\n" +
		"Udin Saputra,20250307003,20250307003,udinsap003\n"
	if string(sheet) != want {
		t.Errorf("sheet:\ngot  %q\nwant %q", sheet, want)
	}
	if info, err := os.Stat(out); err == nil && info.Mode().Perm() != 0o600 {
		t.Errorf("sheet mode: got %v, want 0600", info.Mode().Perm())
	}

	// a second import the same day continues the sequence
	e.secrets = []string{"master"}
	if err := e.run(t, "students", "import", writeNames(t, "Budi\n"), "-date", "2025-03-07", "-yes"); err != nil {
		t.Fatalf("second import: %v", err)
	}
	if !strings.Contains(e.stdout.String(), "Budi,20250307004,20250307004,budi004") {
		t.Errorf("second sheet: %q", e.stdout.String())
	}

	e.secrets = []string{"master"}
	if err := e.run(t, "students", "history"); err != nil {
		t.Fatalf("history: %v", err)
	}
	if got := strings.Count(e.stdout.String(), "2025-03-07 10:30"); got != 2 {
		t.Errorf("history rows: got %d\n%s", got, e.stdout.String())
	}

	e.secrets = []string{"master"}
	if err := e.run(t, "students", "history", "-json"); err != nil {
		t.Fatal(err)
	}
	id := batchIDWithRows(t, e.stdout.String(), 3)

	e.secrets = []string{"master"}
	if err := e.run(t, "students", "export", id); err != nil {
		t.Fatalf("export: %v", err)
	}
	if e.stdout.String() != want {
		t.Errorf("export:\ngot  %q\nwant %q", e.stdout.String(), want)
	}

	e.secrets = []string{"wrong"}
	if err := e.run(t, "students", "history"); err == nil {
		t.Error("wrong master password should fail")
	}
}

func TestImportReviewCancelled(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)
	e.review = tui.Cancelled

	if err := e.run(t, "students", "import", writeNames(t, "Udin\n")); err != nil {
		t.Fatalf("import: %v", err)
	}
	if e.reviews != 1 {
		t.Errorf("reviews: got %d, want 1", e.reviews)
	}
	if !strings.Contains(e.stderr.String(), "cancelled") {
		t.Errorf("stderr: %q", e.stderr.String())
	}

	students, err := e.runnerLMS(t).Users.Students(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(students) != 0 {
		t.Errorf("students created despite cancel: %d", len(students))
	}
}

func TestImportDryRun(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	if err := e.run(t, "students", "import", "-dry-run", "-date", "2025-03-07", writeNames(t, "Al\n")); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !strings.Contains(e.stdout.String(), "Al,20250307001,20250307001,al001") {
		t.Errorf("stdout: %q", e.stdout.String())
	}
	if !strings.Contains(e.stderr.String(), "would create 1 student accounts for 2025-03-07") {
		t.Errorf("stderr: %q", e.stderr.String())
	}

	students, err := e.runnerLMS(t).Users.Students(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(students) != 0 {
		t.Errorf("dry run created %d students", len(students))
	}
}

func TestImportNothingToGenerate(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	err := e.run(t, "students", "import", writeNames(t, "name\n\n  \n"), "-yes")
	if !errors.Is(err, enroll.ErrNothingToGenerate) {
		t.Errorf("err: got %v, want ErrNothingToGenerate", err)
	}
}

func TestImportNeedsLogin(t *testing.T) {
	e := newTestEnv(t)

	err := e.run(t, "students", "import", writeNames(t, "Udin\n"), "-yes")
	if !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("err: got %v, want ErrNotLoggedIn", err)
	}
}

func TestImportBadDate(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	err := e.run(t, "students", "import", writeNames(t, "Udin\n"), "-date", "07/03/2025")
	if err == nil || !strings.Contains(err.Error(), "invalid -date") {
		t.Errorf("err: got %v", err)
	}
}

func TestImportFromStdin(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)
	e.stdin = "nama\nUdin Saputra\n"
	e.secrets = []string{"master", "master"}

	if err := e.run(t, "students", "import", "-", "-date", "2025-03-07", "-yes"); err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(e.stdout.String(), "Udin Saputra,20250307001,20250307001,udinsap001") {
		t.Errorf("sheet: %q", e.stdout.String())
	}
}

func TestImportFromStdinNeedsYes(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)
	e.stdin = "Udin\n"

	err := e.run(t, "students", "import", "-")
	if !errors.Is(err, ErrReviewNeedsTerminal) {
		t.Fatalf("err: got %v, want ErrReviewNeedsTerminal", err)
	}
	if e.reviews != 0 {
		t.Errorf("review must not run: %d", e.reviews)
	}

	students, err := e.runnerLMS(t).Users.Students(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(students) != 0 {
		t.Errorf("students created: %d", len(students))
	}
}

func TestCourseAndClassCommands(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)
	l := e.runnerLMS(t)
	ctx := context.Background()

	if err := e.run(t, "courses", "create", "-code", "IF101", "-name", "Algoritma"); err != nil {
		t.Fatalf("courses create: %v", err)
	}
	if !strings.HasPrefix(e.stdout.String(), "created course ") {
		t.Errorf("stdout: %q", e.stdout.String())
	}

	courses, err := l.Courses.List(ctx)
	if err != nil || len(courses) != 1 {
		t.Fatalf("courses: %v %+v", err, courses)
	}
	courseID := courses[0].ID

	if err := e.run(t, "courses", "create", "-code", "IF102"); err == nil {
		t.Error("course without a name should fail validation")
	}

	if err := e.run(t, "classes", "create", "-course", courseID, "-name", "IF101-A", "-semester", "2025/1"); err != nil {
		t.Fatalf("classes create: %v", err)
	}
	classes, err := l.Classes.List(ctx, lms.ClassFilter{CourseID: courseID})
	if err != nil || len(classes) != 1 {
		t.Fatalf("classes: %v %+v", err, classes)
	}
	classID := classes[0].ID

	if err := e.run(t, "classes", "students", classID); err != nil {
		t.Fatalf("classes students: %v", err)
	}
	if e.stdout.String() != "no students\n" {
		t.Errorf("empty class: %q", e.stdout.String())
	}

	e.secrets = []string{"master", "master"}
	if err := e.run(t, "students", "import", writeNames(t, "Udin\n"), "-date", "2025-03-07", "-class", classID, "-yes"); err != nil {
		t.Fatalf("import into class: %v", err)
	}

	if err := e.run(t, "classes", "students", classID); err != nil {
		t.Fatalf("classes students: %v", err)
	}
	if !strings.Contains(e.stdout.String(), "20250307001") {
		t.Errorf("enrolled: %q", e.stdout.String())
	}

	if err := e.run(t, "courses", "delete", courseID); err != nil {
		t.Fatalf("courses delete: %v", err)
	}
	if e.stdout.String() != "deleted course "+courseID+"\n" {
		t.Errorf("stdout: %q", e.stdout.String())
	}

	if err := e.run(t, "courses", "delete"); !errors.Is(err, ErrUsage) {
		t.Errorf("delete without id: got %v, want ErrUsage", err)
	}
}

func TestUsersDelete(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	u, err := e.sb.Seed(lms.NewUser{Name: "Pak Budi", Username: "budi", Password: "budi1234", Role: lms.RoleLecturer})
	if err != nil {
		t.Fatal(err)
	}

	if err := e.run(t, "users", "delete", u.ID); err != nil {
		t.Fatalf("users delete: %v", err)
	}
	if e.stdout.String() != "deleted user "+u.ID+"\n" {
		t.Errorf("stdout: %q", e.stdout.String())
	}

	if err := e.run(t, "users", "-role", "dosen"); err != nil {
		t.Fatal(err)
	}
	if e.stdout.String() != "no users\n" {
		t.Errorf("after delete: %q", e.stdout.String())
	}

	if err := e.run(t, "users", "delete", u.ID); !api.IsStatus(err, http.StatusNotFound) {
		t.Errorf("second delete: got %v, want 404", err)
	}
}

func TestParseArgsInterspersed(t *testing.T) {
	fs := flag.NewFlagSet("x", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	yes := fs.Bool("yes", false, "")
	out := fs.String("out", "", "")

	pos, err := parseArgs(fs, []string{"a.csv", "-yes", "b", "-out", "o.csv"})
	if err != nil {
		t.Fatal(err)
	}
	if len(pos) != 2 || pos[0] != "a.csv" || pos[1] != "b" {
		t.Errorf("positional: got %q", pos)
	}
	if !*yes || *out != "o.csv" {
		t.Errorf("flags: yes=%v out=%q", *yes, *out)
	}

	if _, err := parseArgs(fs, []string{"-nope"}); !errors.Is(err, ErrUsage) {
		t.Errorf("unknown flag: got %v, want ErrUsage", err)
	}
}

func TestReadPassword(t *testing.T) {
	orig := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = orig })

	readPasswordFunc = func(int) ([]byte, error) { return []byte("s3cret"), nil }

	var w bytes.Buffer
	got, err := ReadPassword("password: ", &w)
	if err != nil {
		t.Fatal(err)
	}
	if got != "s3cret" {
		t.Errorf("got %q", got)
	}
	if w.String() != "password: \n" {
		t.Errorf("prompt: got %q", w.String())
	}

	readPasswordFunc = func(int) ([]byte, error) { return nil, errors.New("not a terminal") }
	if _, err := ReadPassword("password: ", &w); err == nil {
		t.Error("expected error")
	}
}

func TestNewPasswordMismatch(t *testing.T) {
	e := newTestEnv(t)
	e.secrets = []string{"one", "two"}

	if err := e.run(t, "students", "history"); err == nil || !strings.Contains(err.Error(), "do not match") {
		t.Errorf("err: got %v", err)
	}
}

// runnerLMS returns an LMS client sharing the runner's stored session.
func (e *testEnv) runnerLMS(t *testing.T) *lms.LMS {
	t.Helper()
	l, err := e.runner().connectAuthed()
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func batchIDWithRows(t *testing.T, js string, rows int) string {
	t.Helper()
	var batches []struct {
		ID   string `json:"id"`
		Rows []any  `json:"rows"`
	}
	if err := jsonUnmarshal(js, &batches); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	for _, b := range batches {
		if len(b.Rows) == rows {
			return b.ID
		}
	}
	t.Fatalf("no batch with %d rows in %s", rows, js)
	return ""
}

func jsonUnmarshal(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}
