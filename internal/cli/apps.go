package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nhle/notiglow/internal/model"
	"github.com/nhle/notiglow/internal/theme"
)

// NewAppsCommand creates the apps command group.
func NewAppsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apps",
		Short: "List and configure per-application glow colors",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List known applications and their colors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(rootOpts, func(rt *runtime) error {
				return listApps(contextOf(cmd), rt, cmd.OutOrStdout())
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "configure [bundle-id]",
		Short: "Enable, disable or recolor an application",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var bundleID string
			if len(args) == 1 {
				bundleID = args[0]
			}
			return withRuntime(rootOpts, func(rt *runtime) error {
				return configureApp(contextOf(cmd), rt, bundleID)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset <bundle-id>",
		Short: "Forget the stored preference for an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(rootOpts, func(rt *runtime) error {
				if err := rt.store.DeletePreference(contextOf(cmd), args[0]); err != nil {
					return WrapExitError(ExitFailure, "failed to reset preference", err)
				}
				return nil
			})
		},
	})

	return cmd
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func withRuntime(opts *RootOptions, fn func(rt *runtime) error) error {
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
	return fn(rt)
}

// refreshKnownApps merges the identifiers registered in the notification
// database into the store. An unreadable database is logged and skipped.
func refreshKnownApps(ctx context.Context, rt *runtime) {
	ids, err := rt.reader.FetchKnownSourceIDs(ctx)
	if err != nil {
		rt.logger.Warn("could not read registered apps", "error", err)
		return
	}
	if err := rt.store.RecordKnownApps(ctx, ids, time.Now()); err != nil {
		rt.logger.Warn("could not record apps", "error", err)
	}
}

func listApps(ctx context.Context, rt *runtime, w io.Writer) error {
	refreshKnownApps(ctx, rt)

	apps, err := rt.store.GetKnownApps(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list apps", err)
	}
	if len(apps) == 0 {
		fmt.Fprintln(w, "no applications known yet")
		return nil
	}

	for _, a := range apps {
		cfg := rt.resolver.Lookup(ctx, a.BundleID)
		state := "on "
		if !cfg.Enabled {
			state = "off"
		}
		fmt.Fprintf(w, "%s %s %s  %s %s\n",
			theme.SwatchStyle(cfg.Color).Render(""),
			cfg.Color.Hex(),
			state,
			a.BundleID,
			theme.DimmedStyle.Render("seen "+humanize.Time(a.LastSeenAt)),
		)
	}
	return nil
}

func configureApp(ctx context.Context, rt *runtime, bundleID string) error {
	if bundleID == "" {
		refreshKnownApps(ctx, rt)
		apps, err := rt.store.GetKnownApps(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to list apps", err)
		}
		if len(apps) == 0 {
			return WrapExitError(ExitCommandError, "no applications known yet, pass a bundle id", nil)
		}

		options := make([]huh.Option[string], len(apps))
		for i, a := range apps {
			options[i] = huh.NewOption(a.BundleID, a.BundleID)
		}
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Application").
					Options(options...).
					Value(&bundleID),
			),
		).Run()
		if err != nil {
			return formError(err)
		}
	}

	current := rt.resolver.Lookup(ctx, bundleID)
	enabled := current.Enabled
	color := current.Color.Hex()

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Glow for "+bundleID+"?").
				Value(&enabled),
			huh.NewInput().
				Title("Color").
				Placeholder("#RRGGBB").
				Value(&color).
				Validate(func(s string) error {
					_, err := model.ParseRGB(s)
					return err
				}),
		),
	).Run()
	if err != nil {
		return formError(err)
	}

	pref := model.AppPreference{
		BundleID:  bundleID,
		Enabled:   enabled,
		Color:     color,
		UpdatedAt: time.Now(),
	}
	if err := rt.store.UpsertPreference(ctx, pref); err != nil {
		return WrapExitError(ExitFailure, "failed to save preference", err)
	}
	rt.logger.Info("preference saved", "app", bundleID, "enabled", enabled, "color", color)
	return nil
}

func formError(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return nil
	}
	return WrapExitError(ExitFailure, "form failed", err)
}
