package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/facial-recognition/internal/config"
	"github.com/kozaktomas/facial-recognition/internal/events"
	"github.com/kozaktomas/facial-recognition/internal/metrics"
	"github.com/kozaktomas/facial-recognition/internal/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the facial recognition HTTP API.
Endpoints live under /api/v1/facial (enroll, recognize, verify); health is
reported on /api/v1/health and Prometheus metrics on /metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

// applyServeFlags lets explicit flags override the loaded web configuration.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		if port, err := cmd.Flags().GetInt("port"); err == nil && port > 0 {
			cfg.Web.Port = port
		}
	}
	if cmd.Flags().Changed("host") {
		cfg.Web.Host = mustGetString(cmd, "host")
	}
}

// newPublisher connects to RabbitMQ when configured. Failure to connect is not fatal.
func newPublisher(cfg *config.RabbitMQConfig, logger zerolog.Logger) events.Publisher {
	if cfg.URL == "" {
		return events.Nop{}
	}
	pub, err := events.NewAMQPPublisher(cfg.URL, cfg.Queue)
	if err != nil {
		logger.Warn().Err(err).Msg("RabbitMQ unavailable, enrollment events disabled")
		return events.Nop{}
	}
	logger.Info().Str("queue", cfg.Queue).Msg("Publishing enrollment events")
	return pub
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	applyServeFlags(cmd, a.cfg)

	publisher := newPublisher(&a.cfg.RabbitMQ, a.logger)
	defer publisher.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	server := web.NewServer(a.cfg, web.Dependencies{
		Service:   a.service,
		Store:     a.store,
		Publisher: publisher,
		Metrics:   metrics.New(reg),
		Gatherer:  reg,
		Logger:    a.logger,
	})

	return serveUntilDone(ctx, server, a.logger)
}

// httpServer is the lifecycle of web.Server used by serveUntilDone.
type httpServer interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// serveUntilDone runs the server until ctx is cancelled. It returns only after
// Shutdown has finished draining in-flight requests.
func serveUntilDone(ctx context.Context, server httpServer, logger zerolog.Logger) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Error during shutdown")
		}
	}()

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	<-done
	return nil
}
