package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harun/agentcore/internal/tracing"
	"github.com/harun/agentcore/pkg/gateway"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve turns over HTTP",
	Long: `Start the gateway. It serves POST /v1/turn (buffered JSON),
POST /v1/turn/stream (server-sent events), GET /v1/ws (websocket),
GET /v1/tools, /metrics and /healthz until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rt, err := newRuntime(cfg, cmd.ErrOrStderr(), true)
	if err != nil {
		return err
	}
	defer rt.Close()

	logger := rt.logger("gateway")

	if err := tracing.InitOpenTelemetry(tracing.OTelOptions{ServiceName: "agentcore", ServiceVersion: GetVersion()}); err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize tracing")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.ShutdownOpenTelemetry(ctx)
	}()

	server, err := gateway.NewServer(gateway.Config{
		Host:         cfg.Gateway.Host,
		Port:         cfg.Gateway.Port,
		SharedSecret: cfg.Gateway.SharedSecret,
		Runner:       rt.runner,
		Tools:        rt.tools,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}

	if err := server.Start(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Gateway listening on %s\n", server.Addr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	return server.Stop()
}
