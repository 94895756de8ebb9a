package main

import (
	"context"
	"errors"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	slogctx "github.com/veqryn/slog-context"

	goSession "github.com/MrEthical07/goSession"
	natssink "github.com/MrEthical07/goSession/auditsink/nats"
	"github.com/MrEthical07/goSession/internal/config"
	"github.com/MrEthical07/goSession/internal/server"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the session HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	if err := initLogger(cfg.Log); err != nil {
		return err
	}

	engineCfg, err := cfg.Engine()
	if err != nil {
		return oops.In("main").Wrapf(err, "Failed to build the engine config")
	}
	for _, w := range engineCfg.Lint() {
		if w.Severity == goSession.LintInfo {
			slogctx.Info(ctx, "config lint", "code", w.Code, "message", w.Message)
			continue
		}
		slogctx.Warn(ctx, "config lint", "code", w.Code, "severity", w.Severity.String(), "message", w.Message)
	}

	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return oops.In("main").Wrapf(err, "Failed to open the session store")
	}
	defer closeStore()

	sink, closeSink, err := auditSink(ctx, cfg.Audit)
	if err != nil {
		return oops.In("main").Wrapf(err, "Failed to start the audit sink")
	}
	defer closeSink()

	builder := goSession.New().WithConfig(engineCfg).WithStore(store)
	if sink != nil {
		builder = builder.WithAuditSink(sink)
	}
	engine, err := builder.Build()
	if err != nil {
		return oops.In("main").Wrapf(err, "Failed to build the engine")
	}
	defer engine.Close()

	slogctx.Info(ctx, "starting sessiond",
		"store", cfg.Store.Kind,
		"signing_method", engineCfg.JWT.SigningMethod,
		"anti_csrf", string(engineCfg.AntiCSRF.Mode),
		"revocation", engineCfg.Revocation.Mode.String(),
	)

	return server.New(cfg.Server, engine).Run(ctx)
}

// auditSink combines the configured sinks. It returns a nil sink when
// none is configured.
func auditSink(ctx context.Context, cfg config.Audit) (goSession.AuditSink, func(), error) {
	if !cfg.Enabled {
		return nil, func() {}, nil
	}

	var (
		sinks   goSession.MultiSink
		closers []func() error
	)
	if cfg.Stdout {
		sinks = append(sinks, goSession.NewJSONWriterSink(os.Stdout))
	}
	if cfg.NATS.URL != "" {
		natsCfg := natssink.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		if cfg.NATS.SubjectPrefix != "" {
			natsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix
		}
		sink, err := natssink.Connect(ctx, natsCfg)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, sink)
		closers = append(closers, sink.Close)
	}

	closeAll := func() {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		if err := errors.Join(errs...); err != nil {
			slogctx.Warn(ctx, "closing audit sinks", "error", err)
		}
	}
	if len(sinks) == 0 {
		return nil, closeAll, nil
	}
	return sinks, closeAll, nil
}
