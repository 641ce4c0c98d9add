package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/vango-dev/vango-mixed/internal/config"
	"github.com/vango-dev/vango-mixed/pkg/bridge"
	"github.com/vango-dev/vango-mixed/pkg/callback"
	"github.com/vango-dev/vango-mixed/pkg/middleware"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
	"github.com/vango-dev/vango-mixed/pkg/startsignal"
	"github.com/vango-dev/vango-mixed/pkg/transport"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host components owned by this runtime",
		Long: `Accept peer runtimes over WebSocket and host every component the
authority table assigns to the configured runtime.

Each hosted component is a stand-in that logs the parameters it receives,
which makes serve useful for exercising a peer's proxies end to end.

Endpoints:
  • <transport.path>  WebSocket endpoint for the peer runtime
  • /metrics          Prometheus metrics (when metrics.enabled)
  • /healthz          liveness and connection count

Examples:
  vango-mixed serve
  vango-mixed serve --listen :8080 --log-level debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Transport.Listen = listen
			}
			logger, err := flags.logger()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, newCmdDeps(cfg, logger))
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Address to listen on (default from "+config.ConfigFileName+")")

	return cmd
}

// cmdDeps are the collaborators serve and probe are built from.
type cmdDeps struct {
	logger  *slog.Logger
	redis   startsignal.RedisClient
	closers []func() error
}

func newCmdDeps(cfg *config.Config, logger *slog.Logger) *cmdDeps {
	deps := &cmdDeps{logger: logger}
	if addr := cfg.StartSignal.Redis.Addr; addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		deps.redis = client
		deps.closers = append(deps.closers, client.Close)
	}
	return deps
}

func (d *cmdDeps) close() {
	for _, closeFn := range d.closers {
		closeFn()
	}
}

// serving is a configured but not yet listening serve instance.
type serving struct {
	server  *transport.Server
	router  chi.Router
	owned   []mixed.Marker
	signals *startsignal.Signals
}

func newServing(ctx context.Context, cfg *config.Config, deps *cmdDeps) (*serving, error) {
	logger := deps.logger
	local := cfg.RuntimeID()

	resolver, err := resolve(ctx, cfg, nil)
	if err != nil {
		return nil, err
	}
	sv := &serving{owned: resolver.Table().OwnedBy(local)}

	regOpts := []callback.Option{callback.WithLogger(logger)}
	tcfg := transport.DefaultConfig()
	tcfg.Logger = logger
	tcfg.Starts = bridge.NewStarts()
	if origins := cfg.Transport.AllowedOrigins; len(origins) > 0 {
		tcfg.CheckOrigin = func(r *http.Request) bool {
			return slices.Contains(origins, r.Header.Get("Origin"))
		}
	}
	if cfg.Metrics.Enabled {
		// Registers the collectors behind the Record* functions.
		_ = middleware.Prometheus(middleware.WithNamespace(cfg.Metrics.Namespace))
		regOpts = append(regOpts, callback.WithObserver(middleware.RecordCallbackInvocation))
		tcfg.WrapPeer = func(inv bridge.Invoker) bridge.Invoker {
			return middleware.PrometheusInvoker(middleware.TraceInvoker(inv,
				middleware.WithTracerName(cfg.Tracing.TracerName)))
		}
	}
	registry := callback.NewRegistry(regOpts...)

	if deps.redis != nil {
		sv.signals = startsignal.New(deps.redis, cfg.StartSignal.Redis.Scope,
			startsignal.WithPrefix(cfg.StartSignal.Redis.Prefix),
			startsignal.WithLogger(logger))
	}

	sv.server = transport.NewServer(local, func(peer mixed.RuntimeID) *bridge.Host {
		host := bridge.NewHost(local, registry, bridge.WithHostLogger(logger))
		for _, marker := range sv.owned {
			host.Register(marker, standIn(marker, logger))
		}
		return host
	}, tcfg)

	sv.server.OnConnect(func(c *transport.Conn) {
		middleware.RecordConnectionOpen()
		go func() {
			<-c.Done()
			middleware.RecordConnectionClose()
		}()
		if sv.signals != nil {
			if err := sv.signals.Started(ctx, c.Peer()); err != nil {
				logger.Warn("start signal not recorded", "peer", c.Peer().String(), "error", err)
			}
		}
	})

	sv.router = newServeRouter(cfg, sv.server)
	return sv, nil
}

func runServe(ctx context.Context, cfg *config.Config, deps *cmdDeps) error {
	defer deps.close()

	logger := deps.logger
	local := cfg.RuntimeID()

	sv, err := newServing(ctx, cfg, deps)
	if err != nil {
		return err
	}
	if sv.signals != nil {
		if err := sv.signals.Started(ctx, local); err != nil {
			return err
		}
		defer sv.signals.Stopped(context.Background(), local)
	}

	httpServer := &http.Server{
		Addr:              cfg.Transport.Listen,
		Handler:           sv.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	printBanner()
	success("Serving %d component(s) as %s on %s%s", len(sv.owned), local, cfg.Transport.Listen, cfg.Transport.Path)
	for _, marker := range sv.owned {
		info("%s", marker)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sv.server.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newServeRouter(cfg *config.Config, srv *transport.Server) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Mount("/", srv.Routes(cfg.Transport.Path))
	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":      "ok",
			"runtime":     cfg.Runtime,
			"connections": srv.Len(),
		})
	})
	return r
}
