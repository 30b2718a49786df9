package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nhle/notiglow/internal/source"
	"github.com/nhle/notiglow/internal/theme"
	"github.com/nhle/notiglow/internal/watch"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the notification database is readable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), rootOpts, cmd.OutOrStdout())
		},
	}
}

func runCheck(ctx context.Context, opts *RootOptions, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, parseLevel(cfg.Log.Level, opts.Verbose))

	rt, err := openRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	fmt.Fprintf(w, "database: %s\n", sourceLabel(cfg.Source.Path))

	if !rt.monitor.CanAccess() {
		fmt.Fprintf(w, "access:   %s\n", theme.AccessStyle(false).Render("denied"))
		fmt.Fprintln(w, "grant Full Disk Access to your terminal and retry")
		return WrapExitError(ExitNoAccess, "database not readable", nil)
	}
	fmt.Fprintf(w, "access:   %s\n", theme.AccessStyle(true).Render("ok"))

	if fp := watch.ReadFingerprint(cfg.Source.Path); !fp.Max().IsZero() {
		fmt.Fprintf(w, "modified: %s\n", humanize.Time(fp.Max()))
	}

	maxID, ok, err := rt.reader.MaxID(ctx)
	if err != nil {
		if source.IsAccessError(err) {
			return WrapExitError(ExitNoAccess, "database not readable", err)
		}
		return WrapExitError(ExitFailure, "query failed", err)
	}
	if ok {
		fmt.Fprintf(w, "latest:   record %s\n", humanize.Comma(maxID))
	} else {
		fmt.Fprintln(w, "latest:   no records")
	}

	ids, err := rt.reader.FetchKnownSourceIDs(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "query failed", err)
	}
	fmt.Fprintf(w, "apps:     %d registered\n", len(ids))
	return nil
}
