package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/directory/internal/directory/handlers"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the gRPC health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, d, err := a.buildService(true)
			if err != nil {
				return err
			}
			defer d.close()

			dependencies := map[string]handlers.Pinger{"database": d.repo}
			if d.redis != nil {
				dependencies["redis"] = d.redis
			}
			if a.cfg.JWTSecret == "" {
				a.logger.Warn("JWT_SECRET is empty, write routes are not authenticated")
			}

			router := handlers.NewRouter(svc, handlers.RouterConfig{
				JWTSecret:    a.cfg.JWTSecret,
				Dependencies: dependencies,
			}, a.logger)

			server := handlers.NewServer(a.cfg.GRPCPort, a.cfg.HTTPPort, a.logger)
			server.RegisterHTTPHandler(router)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			return waitForShutdown(server, errCh, a.logger)
		},
	}
}

// waitForShutdown blocks until an interrupt or SIGTERM is received or a
// server fails, then shuts down servers.
func waitForShutdown(server *handlers.Server, errCh <-chan error, logger *zap.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case sig := <-stop:
		logger.Info("Received signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed", zap.Error(err))
			server.Stop()
			return err
		}
	}

	server.Stop()
	logger.Info("Servers stopped properly")
	return nil
}
