package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/pkg/middleware/requestlog"
)

func newServeCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local JSON API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(e *env) error {
				return serve(e, serveAddr(cmd, e.app.Config))
			})
		},
	}
	cmd.Flags().String("host", "", "listen host (default SERVER_HOST, loopback)")
	cmd.Flags().Int("port", 0, "listen port (default SERVER_PORT)")
	return cmd
}

// serveAddr prefers explicit flags over the config and falls back to
// loopback when no host is set anywhere.
func serveAddr(cmd *cobra.Command, cfg *config.Config) string {
	host, port := cfg.ServerHost, cfg.ServerPort
	if cmd.Flags().Changed("host") {
		host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		port, _ = cmd.Flags().GetInt("port")
	}
	if host == "" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func serve(e *env, addr string) error {
	l := e.app.Logger.With("svc", "serve")

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true
	router.Pre(middleware.RemoveTrailingSlash())
	router.Use(middleware.Recover(), requestlog.Middleware(e.app.Logger))
	httpserver.Register(router, &httpserver.Deps{App: e.app})

	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitCommandError, "http server", err)
		}
		return nil
	case <-e.ctx.Done():
	}

	l.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return WrapExitError(ExitCommandError, "shutdown", err)
	}
	l.Info("stopped")
	return nil
}
