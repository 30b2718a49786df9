package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/notiglow/internal/model"
)

// Exit codes.
const (
	ExitFailure      = 1
	ExitCommandError = 2
	ExitNoAccess     = 3
)

// ExitError carries a specific process exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError builds an ExitError around err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
}

// loadConfig reads the configured YAML file.
func (o *RootOptions) loadConfig() (*model.Config, error) {
	cfg, err := model.LoadConfig(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// NewRootCommand creates the root command for the notiglow CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "notiglow",
		Short: "Glow in the colors of your unread notifications",
		Long: `notiglow watches the macOS Notification Center database and shows
a pulsing band in the colors of the applications whose notifications are
still present. Reading the database requires Full Disk Access.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", model.DefaultConfigPath(), "path to config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewAppsCommand(opts))

	return cmd
}
