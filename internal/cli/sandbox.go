package cli

import (
	"context"
	"fmt"

	"github.com/zarlcorp/zroster/internal/sandbox"
	"go.uber.org/zap"
)

func (r *Runner) cmdSandbox(ctx context.Context, args []string) error {
	fs := newFlagSet(r, "sandbox")
	addr := fs.String("addr", "localhost:8000", "listen address")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("sandbox logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	sb, err := sandbox.New(sandbox.WithLogger(log))
	if err != nil {
		return err
	}

	fmt.Fprintf(r.Stderr, "sandbox on http://%s/api (login %s / %s)\n",
		*addr, sandbox.DefaultAdminUsername, sandbox.DefaultAdminPassword)
	return sb.ListenAndServe(ctx, *addr)
}
