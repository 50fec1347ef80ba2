package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"accelrt/internal/httpapi"
	"accelrt/internal/plugin/manager"
	"accelrt/internal/registry"
	"accelrt/internal/status"
)

const shutdownTimeout = 5 * time.Second

// onListening is called with the bound address once the server accepts
// connections. Tests use it to learn the port of ":0".
var onListening = func(net.Addr) {}

func buildServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Discover and load plugins, then serve diagnostics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.DiagAddr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (defaults diag_addr)")
	return cmd
}

func (a *app) serve(ctx context.Context, addr string) error {
	mgr := manager.New(manager.Config{
		Roots:       a.cfg.PluginRoots,
		Scanner:     registry.NewScanner(a.locator()),
		Loader:      a.library(),
		LogFailures: a.cfg.ShouldLogLoadFailures(),
		Logger:      a.log,
	})
	defer func() {
		if err := mgr.Close(); err != nil {
			a.log.Error().Err(err).Msg("closing plugins")
		}
	}()

	found, err := mgr.Discover()
	if err != nil {
		return err
	}
	loaded, err := mgr.LoadAll()
	if err != nil {
		// Keep serving so /plugins shows why nothing loaded.
		a.log.Warn().Err(err).Msg("no plugin loaded")
	}
	a.log.Info().Int("discovered", len(found)).Int("loaded", loaded).Msg("plugins ready")

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return status.Wrap(status.InvalidArgument, "cli.serve", err, "listen on %s", addr)
	}
	srv := &http.Server{
		Handler:           httpapi.NewMux(mgr, httpapi.Options{Registerer: a.reg, Gatherer: a.reg, Logger: a.log}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	a.log.Info().Str("addr", ln.Addr().String()).Msg("diagnostics listening")
	onListening(ln.Addr())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	// Graceful shutdown (Ctrl+C / SIGTERM)
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		a.log.Error().Err(err).Msg("graceful shutdown")
	}
	return nil
}
