// Package cli is the storefront command line: one cobra command per user
// action, each run against a freshly restored session.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/storefront/internal/app"
	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var ValidFormats = []string{FormatText, FormatJSON, FormatYAML}

type RootOptions struct {
	Format string
	// Open builds the application for one command. Tests replace it.
	Open func(ctx context.Context) (*app.App, error)
}

func openFromEnv(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	l := logging.New(os.Stderr, cfg.LogLevel).With("service", cfg.ServiceName)
	return app.New(logging.IntoContext(ctx, l), cfg)
}

func NewRootCommand(opts *RootOptions) *cobra.Command {
	if opts.Open == nil {
		opts.Open = openFromEnv
	}

	cmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Storefront client",
		Long:          "Browse the catalog, manage the cart and place orders against the store backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.Format, "format", FormatText, "output format (text|json|yaml)")

	cmd.AddCommand(
		newLoginCommand(opts),
		newRegisterCommand(opts),
		newLogoutCommand(opts),
		newWhoamiCommand(opts),
		newProfileCommand(opts),
		newPasswordCommand(opts),
		newCartCommand(opts),
		newCatalogCommand(opts),
		newWishlistCommand(opts),
		newCheckoutCommand(opts),
		newOrdersCommand(opts),
		newAdminCommand(opts),
		newServeCommand(opts),
	)
	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand(&RootOptions{})
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCommandError
	}
	if exitErr.Code != ExitFailure {
		fmt.Fprintf(stderr, "Error: %v\n", exitErr)
	}
	return exitErr.Code
}

// env is what a command body works with.
type env struct {
	ctx context.Context
	app *app.App
	out *OutputFormatter
}

func (o *RootOptions) run(cmd *cobra.Command, fn func(e *env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := o.Open(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "startup failed", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.Logger.Warn("close_error", "error", err)
		}
	}()

	ctx = logging.IntoContext(ctx, a.Logger)
	a.Session.Restore(ctx)
	return fn(&env{
		ctx: ctx,
		app: a,
		out: &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()},
	})
}

func (e *env) ok(data any, render func(io.Writer) error) error {
	return e.out.Success(data, e.app.Notices.Drain(), render)
}

// fail reports err and returns an ExitFailure, which Execute does not print
// again.
func (e *env) fail(err error, message func(error) string) error {
	msg := message(err)
	if msg == "" {
		msg = err.Error()
	}
	if werr := e.out.Error(errorCode(err), msg, e.app.Notices.Drain()); werr != nil {
		return werr
	}
	return WrapExitError(ExitFailure, msg, err)
}
