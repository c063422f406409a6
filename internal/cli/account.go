package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/session"
)

func argID(v, name string) (int64, error) {
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, "invalid "+name+" "+strconv.Quote(v))
	}
	return id, nil
}

func newLoginCommand(opts *RootOptions) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(e *env) error {
				if err := e.app.Session.Login(e.ctx, email, password); err != nil {
					return e.fail(err, session.UserMessage)
				}
				snap := e.app.Session.Snapshot()
				return e.ok(snap, line("Sesión iniciada como %s", email))
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newRegisterCommand(opts *RootOptions) *cobra.Command {
	var req session.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(e *env) error {
				if err := e.app.Session.Register(e.ctx, req); err != nil {
					return e.fail(err, session.UserMessage)
				}
				snap := e.app.Session.Snapshot()
				return e.ok(snap, line("Cuenta creada para %s", req.Email))
			})
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "full name")
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&req.Password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the persisted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(e *env) error {
				e.app.Session.Logout(e.ctx)
				return e.ok(e.app.Session.Snapshot(), line("Sesión cerrada"))
			})
		},
	}
}

func newWhoamiCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session and header counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(e *env) error {
				snap := e.app.Session.Snapshot()
				h := e.app.Header(e.ctx)
				data := map[string]any{"session": snap, "header": h}
				return e.ok(data, renderSession(snap, h))
			})
		},
	}
}

func newProfileCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the signed-in profile",
	}

	var name, email, phone string
	update := &cobra.Command{
		Use:   "update",
		Short: "Change profile fields; only the flags given are sent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch models.ProfilePatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("email") {
				patch.Email = &email
			}
			if cmd.Flags().Changed("phone") {
				patch.Phone = &phone
			}
			if patch.Empty() {
				return NewExitError(ExitCommandError, "nothing to update: pass --name, --email or --phone")
			}
			return opts.run(cmd, func(e *env) error {
				if err := e.app.Session.UpdateProfile(e.ctx, patch); err != nil {
					return e.fail(err, session.UserMessage)
				}
				return e.ok(e.app.Session.Snapshot().User, line("Perfil actualizado"))
			})
		},
	}
	update.Flags().StringVar(&name, "name", "", "full name")
	update.Flags().StringVar(&email, "email", "", "email")
	update.Flags().StringVar(&phone, "phone", "", "phone number")

	cmd.AddCommand(update)
	return cmd
}

func newPasswordCommand(opts *RootOptions) *cobra.Command {
	var current, next, confirm string
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change the account password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(e *env) error {
				if err := e.app.Session.ChangePassword(e.ctx, current, next, confirm); err != nil {
					return e.fail(err, session.UserMessage)
				}
				return e.ok(nil, line("Contraseña actualizada"))
			})
		},
	}
	cmd.Flags().StringVar(&current, "current", "", "current password")
	cmd.Flags().StringVar(&next, "new", "", "new password")
	cmd.Flags().StringVar(&confirm, "confirm", "", "new password again")
	_ = cmd.MarkFlagRequired("current")
	_ = cmd.MarkFlagRequired("new")
	_ = cmd.MarkFlagRequired("confirm")
	return cmd
}
