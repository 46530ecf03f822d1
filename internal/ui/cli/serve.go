// # internal/ui/cli/serve.go
package cli

import (
	"context"
	"log/slog"

	coreapp "nekoscript/internal/core/app"
	"nekoscript/internal/core/config"
	"nekoscript/internal/shared/observability"
	"nekoscript/internal/transport/httpapi"
)

func cmdServe(ctx context.Context, s *session, args []string) error {
	fs := newFlagSet("serve", s.stderr)
	addr := fs.String("addr", "", "Listen address (default: server.address)")
	if _, err := parseInterspersed(fs, args); err != nil {
		return err
	}
	if *addr != "" {
		s.cfg.Server.Address = *addr
	}

	shutdown, err := initTracing(ctx, s.cfg.Observability)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	return s.withService(ctx, func(svc *coreapp.Service) error {
		srv, err := httpapi.New(ctx, svc, s.cfg.Server)
		if err != nil {
			return err
		}

		if s.cfgPath != "" {
			w := config.NewWatcher(s.cfgPath, func(next *config.Config) {
				applyReload(svc, srv, next)
			})
			if err := w.Start(ctx); err != nil {
				slog.Warn("config hot-reload unavailable", "path", s.cfgPath, "error", err)
			} else {
				defer w.Stop()
			}
		}

		s.console.Success("API nekoScript sur http://%s", s.cfg.Server.Address)
		return srv.Start(ctx)
	})
}

// reloadable is the part of the server that follows config changes.
type reloadable interface {
	SetRateLimit(rate float64, burst int)
}

// applyReload applies the settings that can change without a restart.
func applyReload(svc *coreapp.Service, srv reloadable, next *config.Config) {
	svc.SetTraceBodies(next.Interpret.TraceBodies)
	srv.SetRateLimit(next.Server.RateLimit, next.Server.RateBurst)
	slog.Info("configuration reloaded",
		"trace_bodies", next.Interpret.TraceBodies,
		"rate_limit", next.Server.RateLimit,
		"rate_burst", next.Server.RateBurst)
}

func initTracing(ctx context.Context, cfg config.Observability) (observability.ShutdownFunc, error) {
	if !cfg.Enabled || !cfg.EnableTracing {
		return func(context.Context) error { return nil }, nil
	}
	return observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    true,
	})
}
