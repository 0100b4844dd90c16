package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/zarlcorp/zroster/internal/enroll"
	"github.com/zarlcorp/zroster/internal/identity"
	"github.com/zarlcorp/zroster/internal/roster"
	"github.com/zarlcorp/zroster/internal/tui"
	"github.com/zarlcorp/zroster/internal/vault"
)

const dateFlagLayout = "2006-01-02"

// ErrReviewNeedsTerminal is returned when names come from stdin, which
// leaves no input for the review screen.
var ErrReviewNeedsTerminal = errors.New("review needs a terminal, pass --yes")

func (r *Runner) cmdStudents(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(r.Stderr, "usage: zroster students <import|history|export> ...")
		return ErrUsage
	}

	switch args[0] {
	case "import":
		return r.cmdImport(ctx, args[1:])
	case "history":
		return r.cmdHistory(args[1:])
	case "export":
		return r.cmdExport(args[1:])
	}

	fmt.Fprintln(r.Stderr, "usage: zroster students <import|history|export> ...")
	return fmt.Errorf("unknown students command %q", args[0])
}

func (r *Runner) cmdImport(ctx context.Context, args []string) error {
	fs := newFlagSet(r, "students import")
	dateStr := fs.String("date", "", "reference date YYYY-MM-DD (default today)")
	out := fs.String("out", "", "write the credential sheet here (default stdout)")
	classID := fs.String("class", "", "enroll created students into this class")
	yes := fs.Bool("yes", false, "skip the review screen")
	dryRun := fs.Bool("dry-run", false, "allocate and print without creating accounts")
	noSave := fs.Bool("no-save", false, "do not record the batch in the vault")

	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		fmt.Fprintln(r.Stderr, "usage: zroster students import FILE [-date YYYY-MM-DD] [-out FILE] [-class ID] [-yes] [-dry-run] [-no-save]")
		return ErrUsage
	}

	if pos[0] == "-" && !*yes && !*dryRun {
		return ErrReviewNeedsTerminal
	}

	var date time.Time
	if *dateStr != "" {
		date, err = time.ParseInLocation(dateFlagLayout, *dateStr, time.Local)
		if err != nil {
			return fmt.Errorf("invalid -date %q: want YYYY-MM-DD", *dateStr)
		}
	}

	names, err := r.readNames(pos[0])
	if err != nil {
		return err
	}

	l, err := r.connectAuthed()
	if err != nil {
		return err
	}

	gen := identity.New(identity.WithClock(r.Now))
	wf := enroll.New(l.Users, l.Users, l.Classes, gen)

	plan, err := wf.Plan(ctx, enroll.Request{Names: names, Date: date, ClassID: *classID})
	if err != nil {
		return unauthorized(err)
	}

	r.Log.Debug("planned batch",
		"date", plan.Date.Format(dateFlagLayout),
		"start", plan.Start,
		"existing", plan.Existing,
		"count", len(plan.Identities),
	)

	if *dryRun {
		for _, step := range plan.Steps() {
			fmt.Fprintf(r.Stderr, "would %s\n", step)
		}
		return r.writeSheet(*out, plan.Identities)
	}

	if !*yes {
		decision, err := r.Review(ctx, tui.New("Import Students", plan.Steps(), plan.Identities))
		if err != nil {
			return err
		}
		if decision != tui.Confirmed {
			fmt.Fprintln(r.Stderr, "cancelled")
			return nil
		}
	}

	res := wf.Apply(ctx, plan)
	fmt.Fprintln(r.Stderr, res.Summary())

	created := res.Created()
	if len(created) > 0 {
		if err := r.writeSheet(*out, created); err != nil {
			return err
		}
	}

	if !*noSave && len(res.Rows) > 0 {
		if err := r.saveBatch(plan, res); err != nil {
			// accounts exist already; losing the history is not fatal
			fmt.Fprintf(r.Stderr, "warning: batch not saved: %v\n", err)
		}
	}

	if res.HasErrors() {
		return fmt.Errorf("%d of %d students failed", len(res.Failed()), len(res.Rows))
	}
	return nil
}

func (r *Runner) saveBatch(plan enroll.Plan, res enroll.Result) error {
	v, err := r.openVault()
	if err != nil {
		return err
	}
	defer v.Close()

	b := vault.NewBatch(plan.Date, res.Created(), r.Now())
	b.ClassID = plan.ClassID
	for _, row := range res.Failed() {
		b.Failed = append(b.Failed, vault.Failure{Identity: row.Identity, Error: row.Err.Error()})
	}

	if err := v.Save(b); err != nil {
		return err
	}
	fmt.Fprintf(r.Stderr, "saved batch %s\n", b.ID)
	return nil
}

func (r *Runner) cmdHistory(args []string) error {
	fs := newFlagSet(r, "students history")
	asJSON := fs.Bool("json", false, "print JSON")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	v, err := r.openVault()
	if err != nil {
		return err
	}
	defer v.Close()

	batches, err := v.List()
	if err != nil {
		return err
	}

	if *asJSON {
		return printJSON(r.Stdout, batches)
	}
	if len(batches) == 0 {
		fmt.Fprintln(r.Stdout, "no saved batches")
		return nil
	}

	tw := tabwriter.NewWriter(r.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  ID\tDATE\tCREATED\tSTUDENTS\tFAILED")
	for _, b := range batches {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%d\t%d\n",
			b.ID,
			b.Date.Format(dateFlagLayout),
			b.CreatedAt.Format("2006-01-02 15:04"),
			len(b.Rows),
			len(b.Failed),
		)
	}
	return tw.Flush()
}

func (r *Runner) cmdExport(args []string) error {
	fs := newFlagSet(r, "students export")
	out := fs.String("out", "", "write the credential sheet here (default stdout)")

	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		fmt.Fprintln(r.Stderr, "usage: zroster students export BATCH_ID [-out FILE]")
		return ErrUsage
	}

	v, err := r.openVault()
	if err != nil {
		return err
	}
	defer v.Close()

	b, err := v.Get(pos[0])
	if err != nil {
		return fmt.Errorf("export %s: %w", pos[0], err)
	}
	return r.writeSheet(*out, b.Rows)
}

// readNames reads the names sheet at path, or r.Stdin when path is "-".
func (r *Runner) readNames(path string) ([]string, error) {
	var rd io.Reader
	if path == "-" {
		rd = r.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open names: %w", err)
		}
		defer f.Close()
		rd = f
	}
	return roster.ReadNames(rd)
}

// writeSheet writes ids to path, or to stdout when path is empty. Files are
// created 0600 since the sheet holds initial passwords.
func (r *Runner) writeSheet(path string, ids []identity.Identity) error {
	if path == "" {
		return roster.WriteSheet(r.Stdout, ids)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := roster.WriteSheet(f, ids); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close sheet: %w", err)
	}
	fmt.Fprintf(r.Stderr, "wrote %d rows to %s\n", len(ids), path)
	return nil
}
