package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/msto63/condparse/internal/condparse/handler"
	"github.com/msto63/condparse/internal/condparse/server"
	"github.com/msto63/condparse/internal/condparse/service"
	"github.com/msto63/condparse/pkg/core/config"
	cperrors "github.com/msto63/condparse/pkg/core/errors"
	"github.com/msto63/condparse/pkg/core/logging"
	"github.com/msto63/condparse/pkg/core/version"
)

type serveFlags struct {
	host     string
	grpcPort int
	httpPort int
	watch    bool
}

func newServeCmd(opts *options) *cobra.Command {
	f := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Startet den gRPC- und HTTP/WebSocket-Server",
		Long: `Startet condparse als Dienst.

Endpunkte:
  gRPC  condparse.v1.ConditionParser/Parse und /Rules (default :9310)
  HTTP  POST /api/v1/parse, GET /api/v1/rules, GET /api/v1/stats,
        GET /healthz, WebSocket /ws (default :8310)

Mit --watch wird die Config-Datei überwacht: Log-Level und
parser.max_input_length werden ohne Neustart übernommen.

Der Server wird mit SIGINT/SIGTERM sauber beendet.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts, f)
		},
	}

	cmd.Flags().StringVar(&f.host, "host", "", "Host/Interface (default aus Config)")
	cmd.Flags().IntVar(&f.grpcPort, "grpc-port", 0, "gRPC-Port (default aus Config)")
	cmd.Flags().IntVar(&f.httpPort, "http-port", 0, "HTTP-Port (default aus Config)")
	cmd.Flags().BoolVar(&f.watch, "watch", false, "Config-Datei überwachen und Änderungen live übernehmen")
	return cmd
}

func runServe(cmd *cobra.Command, opts *options, f *serveFlags) error {
	cfg := opts.cfg
	loaded := cfg.Server
	if f.host != "" {
		cfg.Server.Host = f.host
	}
	if f.grpcPort != 0 {
		cfg.Server.GRPCPort = f.grpcPort
	}
	if f.httpPort != 0 {
		cfg.Server.HTTPPort = f.httpPort
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New("condparse-server")

	svc, err := opts.newService("condparse-service")
	if err != nil {
		return err
	}
	defer svc.Close()

	grpcSrv := server.New(server.Config{
		Host:             cfg.Server.Host,
		Port:             cfg.Server.GRPCPort,
		EnableReflection: cfg.Server.EnableReflection,
	}, svc, logger)

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddress(),
		Handler:      handler.NewHandler(svc, grpcSrv.HealthRegistry(), logging.New("condparse-http")),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := grpcSrv.StartAsync(); err != nil {
		return cperrors.Wrap(err, "gRPC-Server konnte nicht gestartet werden").
			WithCode(cperrors.CodeUnavailable)
	}

	if f.watch {
		w, err := config.Watch(ctx, opts.configPath(), func(next *config.Config) {
			reloadConfig(opts, svc, loaded, next, logger)
		})
		if err != nil {
			grpcSrv.Stop(context.Background())
			return err
		}
		defer w.Close()
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- cperrors.Wrap(err, "HTTP-Server fehlgeschlagen").WithCode(cperrors.CodeUnavailable)
		}
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "condparse v%s (%s)\n", version.Version, cfg.General.Environment)
	fmt.Fprintf(out, "  gRPC: %s\n", grpcSrv.Address())
	fmt.Fprintf(out, "  HTTP: http://%s (WebSocket /ws, Health /healthz)\n", httpSrv.Addr)
	fmt.Fprintln(out, "Ctrl+C zum Beenden")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errCh:
		logger.Error("Server failed", "error", runErr)
	case runErr = <-grpcSrv.Err():
		logger.Error("Server failed", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	grpcSrv.Stop(shutdownCtx)

	stats := svc.Stats()
	logger.Info("Server stopped", "requests", stats.Requests, "failures", stats.Failures)
	return runErr
}

// reloadConfig applies the settings that can change at runtime. Listener
// settings only take effect after a restart.
func reloadConfig(opts *options, svc *service.Service, loaded config.ServerConfig, next *config.Config, logger *logging.Logger) {
	opts.applyLogging(next)

	if err := svc.SetMaxInputLength(next.Parser.MaxInputLength); err != nil {
		logger.Warn("Parser limit not applied", "error", err)
	}
	if next.Server != loaded {
		logger.Warn("Server settings changed; restart required to apply them")
	}
}
