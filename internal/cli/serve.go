package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ragfence/ragfence/internal/abuse"
	"github.com/ragfence/ragfence/internal/answer"
	"github.com/ragfence/ragfence/internal/audit"
	"github.com/ragfence/ragfence/internal/config"
	"github.com/ragfence/ragfence/internal/gate"
	"github.com/ragfence/ragfence/internal/logging"
	"github.com/ragfence/ragfence/internal/server"
	"github.com/ragfence/ragfence/internal/telemetry"
)

var addrFlag string

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		Run:   runServe,
	}
	cmd.Flags().StringVar(&addrFlag, "addr", "", "HTTP listen address (overrides config)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}

	logger := logging.New(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Protocol: cfg.Telemetry.Protocol,
		Service:  "ragfence",
		Version:  Version,
	})
	if err != nil {
		exitErr("init telemetry", err)
	}

	validator, err := gate.NewValidator(cfg.Gate)
	if err != nil {
		exitErr("build validator", err)
	}

	monitor := abuse.NewMonitor(cfg.Abuse, abuse.WithLogger(logger))

	sinks, err := audit.BuildSinks(cfg.Audit.Sinks)
	if err != nil {
		exitErr("build audit sinks", err)
	}
	emitter := audit.NewEmitter(audit.EmitterConfig{
		QueueSize:       cfg.Audit.QueueSize,
		Workers:         cfg.Audit.Workers,
		ShutdownTimeout: cfg.Audit.ShutdownTimeout,
	}, sinks, logger)

	retriever, generator := buildAnswerers(cfg.Answer)

	srv := server.New(validator, monitor, emitter, retriever, generator, tel, logger)

	serverCfg := cfg.Server
	if addrFlag != "" {
		serverCfg.Addr = addrFlag
	}

	logger.Info().Str("addr", serverCfg.Addr).Str("answer_mode", cfg.Answer.Mode).Msg("starting ragfence")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx, serverCfg)
	})

	err = g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	emitter.Close(closeCtx)
	tel.Shutdown(closeCtx)

	if err != nil {
		exitErr("server", err)
	}
	logger.Info().Msg("ragfence stopped")
}

func buildAnswerers(cfg config.AnswerConfig) (answer.Retriever, answer.Generator) {
	mock := answer.NewMock()
	if cfg.Mode == "http" {
		return mock, answer.NewHTTPGenerator(cfg.Endpoint, cfg.Timeout)
	}
	return mock, mock
}
