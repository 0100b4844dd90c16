// Package cli implements zroster's command-line subcommands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/zarlcorp/core/pkg/zcrypto"
	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/zroster/internal/api"
	"github.com/zarlcorp/zroster/internal/lms"
	"github.com/zarlcorp/zroster/internal/session"
	"github.com/zarlcorp/zroster/internal/tui"
	"github.com/zarlcorp/zroster/internal/vault"
	"golang.org/x/term"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	// ErrUsage is returned after usage text has been printed.
	ErrUsage = errors.New("invalid usage")

	// ErrNotLoggedIn is returned by commands that need a session.
	ErrNotLoggedIn = errors.New("not logged in, run zroster login")
)

const usage = `usage: zroster [-api URL] <command> [flags]

commands:
  version                           print the version
  login -u USER                     log in and store the token
  logout                            forget the stored token
  whoami                            show the logged-in user
  users [-role R] [-search S]       list users
  users delete USER_ID              delete a user
  courses                           list courses
  courses create -code C -name N    create a course
  courses delete COURSE_ID          delete a course
  classes [-course ID]              list classes
  classes create -course ID -name N create a class
  classes students CLASS_ID         list the students of a class
  students import FILE [flags]      create student accounts from a CSV of names (- for stdin)
  students history                  list saved batches
  students export BATCH_ID          write a saved batch as CSV
  sandbox [-addr ADDR]              run an in-memory LMS backend
`

// Runner executes commands against one configuration.
type Runner struct {
	Config  Config
	Version string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Log    *slog.Logger

	// Now is the clock for batch timestamps and default dates.
	Now func() time.Time

	// Secret reads a password without echo.
	Secret func(prompt string) (string, error)

	// Review shows a batch and returns the user's decision.
	Review func(ctx context.Context, m tui.Model) (tui.Decision, error)
}

// New returns a runner wired to the process's terminal.
func New(cfg Config, version string) *Runner {
	r := &Runner{
		Config:  cfg,
		Version: version,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Log:     slog.Default(),
		Now:     time.Now,
	}
	r.Secret = func(prompt string) (string, error) {
		return ReadPassword(prompt, r.Stderr)
	}
	r.Review = func(ctx context.Context, m tui.Model) (tui.Decision, error) {
		return tui.Run(ctx, m, r.Stdin, r.Stderr)
	}
	return r
}

// Run parses args (without the program name) and runs the command.
func (r *Runner) Run(ctx context.Context, args []string) error {
	global := flag.NewFlagSet("zroster", flag.ContinueOnError)
	global.SetOutput(r.Stderr)
	apiURL := global.String("api", "", "LMS API base URL (overrides ZROSTER_API_URL)")
	global.Usage = func() { fmt.Fprint(r.Stderr, usage) }

	if err := global.Parse(args); err != nil {
		return ErrUsage
	}
	if *apiURL != "" {
		r.Config.APIURL = *apiURL
	}

	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return ErrUsage
	}

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "version":
		fmt.Fprintf(r.Stdout, "zroster %s\n", r.Version)
		return nil
	case "login":
		return r.cmdLogin(ctx, cmdArgs)
	case "logout":
		return r.cmdLogout(ctx)
	case "whoami":
		return r.cmdWhoami(ctx)
	case "users":
		return r.cmdUsers(ctx, cmdArgs)
	case "courses":
		return r.cmdCourses(ctx, cmdArgs)
	case "classes":
		return r.cmdClasses(ctx, cmdArgs)
	case "students":
		return r.cmdStudents(ctx, cmdArgs)
	case "sandbox":
		return r.cmdSandbox(ctx, cmdArgs)
	case "help":
		global.Usage()
		return nil
	}

	fmt.Fprint(r.Stderr, usage)
	return fmt.Errorf("unknown command %q", cmd)
}

// ReadPassword prompts for a password on w and reads it without echo.
func ReadPassword(prompt string, w io.Writer) (string, error) {
	fmt.Fprint(w, prompt)
	b, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

// readNewPassword prompts for a new password with confirmation.
func (r *Runner) readNewPassword() (string, error) {
	pass, err := r.Secret("new master password: ")
	if err != nil {
		return "", err
	}
	confirm, err := r.Secret("confirm password: ")
	if err != nil {
		return "", err
	}
	if pass != confirm {
		return "", fmt.Errorf("passwords do not match")
	}
	if pass == "" {
		return "", fmt.Errorf("master password cannot be empty")
	}
	return pass, nil
}

func (r *Runner) dataFS() (zfilesystem.ReadWriteFileFS, error) {
	return osFS(r.Config.DataDir)
}

func osFS(dir string) (zfilesystem.ReadWriteFileFS, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return zfilesystem.NewOSFileSystem(dir), nil
}

// connect opens the stored session and the LMS client.
func (r *Runner) connect() (*lms.LMS, *session.Session, error) {
	fsys, err := r.dataFS()
	if err != nil {
		return nil, nil, err
	}

	sess, err := session.Open(fsys)
	if err != nil {
		return nil, nil, err
	}

	c := api.NewClient(r.Config.APIURL,
		api.WithTokenSource(sess),
		api.WithLogger(r.Log),
	)
	return lms.New(c, sess), sess, nil
}

// connectAuthed is connect for commands that need a logged-in user.
func (r *Runner) connectAuthed() (*lms.LMS, error) {
	l, sess, err := r.connect()
	if err != nil {
		return nil, err
	}
	if !sess.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	return l, nil
}

// openVault prompts for the master password and opens the batch vault,
// creating it on first use.
func (r *Runner) openVault() (*vault.Vault, error) {
	fsys, err := osFS(filepath.Join(r.Config.DataDir, "vault"))
	if err != nil {
		return nil, err
	}

	var pass string
	if vault.Exists(fsys) {
		pass, err = r.Secret("master password: ")
	} else {
		pass, err = r.readNewPassword()
	}
	if err != nil {
		return nil, err
	}

	key := []byte(pass)
	defer zcrypto.Erase(key)

	return vault.Open(fsys, key)
}

// unauthorized rewrites a 401 into ErrNotLoggedIn.
func unauthorized(err error) error {
	if api.IsStatus(err, http.StatusUnauthorized) {
		return fmt.Errorf("%w (%v)", ErrNotLoggedIn, err)
	}
	return err
}

// parseArgs parses fs allowing flags after positional arguments.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, ErrUsage
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func newFlagSet(r *Runner, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(r.Stderr)
	return fs
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
