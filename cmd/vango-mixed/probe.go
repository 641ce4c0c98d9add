package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vango-mixed/internal/config"
	"github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/bridge"
	"github.com/vango-dev/vango-mixed/pkg/callback"
	"github.com/vango-dev/vango-mixed/pkg/middleware"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
	"github.com/vango-dev/vango-mixed/pkg/proxy"
	"github.com/vango-dev/vango-mixed/pkg/startsignal"
	"github.com/vango-dev/vango-mixed/pkg/transport"
	"github.com/vango-dev/vango-mixed/pkg/vdom"
)

type probeOptions struct {
	url       string
	marker    string
	params    []string
	updates   []string
	callbacks []string
	hold      time.Duration
}

func probeCmd(flags *globalFlags) *cobra.Command {
	opts := &probeOptions{}

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Attach a component in the peer runtime and drive it",
		Long: `Connect to a peer started with "vango-mixed serve", attach one root
component through a proxy and walk it through its lifecycle:
add, optional parameter update, callback invocations, dispose.

Parameter values are parsed as integers, floats or booleans when they
look like one and are sent as strings otherwise.

Examples:
  vango-mixed probe --marker app.Counter --param start=3
  vango-mixed probe --marker app.Counter --param start=3 --update start=4
  vango-mixed probe --marker app.Button --callback onClick --hold 30s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			logger, err := flags.logger()
			if err != nil {
				return err
			}
			if opts.url == "" {
				opts.url = cfg.Transport.URL
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runProbe(ctx, cfg, opts, newCmdDeps(cfg, logger))
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "WebSocket URL of the peer (default from "+config.ConfigFileName+")")
	cmd.Flags().StringVarP(&opts.marker, "marker", "m", "", "Marker of the component to attach")
	cmd.Flags().StringArrayVarP(&opts.params, "param", "p", nil, "Initial parameter as name=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.updates, "update", nil, "Parameter applied in a second update as name=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.callbacks, "callback", nil, "Callback parameter that prints its invocations (repeatable)")
	cmd.Flags().DurationVar(&opts.hold, "hold", 0, "How long to keep the component attached before disposing it")
	cmd.MarkFlagRequired("marker")

	return cmd
}

func runProbe(ctx context.Context, cfg *config.Config, opts *probeOptions, deps *cmdDeps) error {
	defer deps.close()

	if opts.url == "" {
		return errors.New("E280").
			WithDetail("no peer URL").
			WithSuggestion("Pass --url or set transport.url")
	}

	logger := deps.logger

	local := cfg.RuntimeID()
	marker := mixed.Marker(opts.marker)

	regOpts := []callback.Option{callback.WithLogger(logger)}
	if cfg.Metrics.Enabled {
		regOpts = append(regOpts, callback.WithObserver(middleware.RecordCallbackInvocation))
	}
	registry := callback.NewRegistry(regOpts...)
	host := bridge.NewHost(local, registry, bridge.WithHostLogger(logger))

	resolver, err := resolve(ctx, cfg, host)
	if err != nil {
		return err
	}
	target, err := probeTarget(resolver, marker)
	if err != nil {
		return err
	}

	params, err := parseParams(opts.params)
	if err != nil {
		return err
	}
	for _, name := range opts.callbacks {
		params[name] = printingCallback(name)
	}

	tcfg := transport.DefaultConfig()
	tcfg.Logger = logger
	tcfg.Starts = bridge.NewStarts()

	conn, err := transport.Dial(ctx, opts.url, local, host, tcfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	success("Connected to %s runtime (%s)", conn.Peer(), conn.ID())

	tracing := []middleware.OTelOption{middleware.WithTracerName(cfg.Tracing.TracerName)}
	var route bridge.Invoker = conn
	mws := []middleware.Middleware{middleware.OpenTelemetry(tracing...)}
	if cfg.Metrics.Enabled {
		route = middleware.PrometheusInvoker(route)
		mws = append(mws, middleware.Prometheus(middleware.WithNamespace(cfg.Metrics.Namespace)))
	}
	remote := bridge.NewRemote(probeStarts(cfg, deps, tcfg.Starts),
		bridge.WithLogger(logger),
		bridge.WithStartTimeout(cfg.StartTimeout()),
		bridge.WithRoute(target, middleware.TraceInvoker(route, tracing...)))

	p := proxy.New(marker, target, middleware.Chain(remote, mws...), proxy.Options{
		Registry:    registry,
		Logger:      logger,
		CallTimeout: cfg.CallTimeout(),
		OnError: func(marker mixed.Marker, err error) {
			warn("%s: %v", marker, err)
		},
	})

	gen := vdom.NewHIDGenerator()
	p.Attach(proxy.RenderFunc(func(node *vdom.VNode) {
		vdom.Mount(node, gen)
	}))

	if err := p.SetParameters(ctx, params); err != nil {
		return err
	}
	if err := p.OnAfterRender(ctx); err != nil {
		return err
	}
	if err := p.Settled(ctx); err != nil {
		return err
	}
	success("Attached %s in %s as %s (%d parameter(s))", marker, target, p.Container(), len(params))

	if len(opts.updates) > 0 {
		updates, err := parseParams(opts.updates)
		if err != nil {
			return err
		}
		for name, v := range updates {
			params[name] = v
		}
		if err := p.SetParameters(ctx, params); err != nil {
			return err
		}
		if err := p.Settled(ctx); err != nil {
			return err
		}
		success("Updated %s", strings.Join(updates.Names(), ", "))
	}

	if opts.hold > 0 {
		info("Holding for %s", opts.hold)
		select {
		case <-time.After(opts.hold):
		case <-ctx.Done():
		case <-conn.Done():
			warn("Peer disconnected")
		}
	}

	timeout := cfg.CallTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	disposeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := p.Dispose(disposeCtx); err != nil {
		return err
	}
	success("Disposed %s", marker)
	return nil
}

// probeStarts returns the start signals Add waits on: the handshake of
// this connection, or a start recorded in Redis by any serving process.
func probeStarts(cfg *config.Config, deps *cmdDeps, handshake *bridge.Starts) bridge.StartSignals {
	if deps.redis == nil {
		return handshake
	}
	return bridge.AnyStarts{
		handshake,
		startsignal.New(deps.redis, cfg.StartSignal.Redis.Scope,
			startsignal.WithPrefix(cfg.StartSignal.Redis.Prefix),
			startsignal.WithLogger(deps.logger)),
	}
}

// probeTarget returns the runtime marker must be added to. Undeclared
// markers are sent to the peer.
func probeTarget(resolver *mixed.Resolver, marker mixed.Marker) (mixed.RuntimeID, error) {
	res := resolver.Resolve(marker)
	switch {
	case !res.Declared:
		warn("%s has no authority declaration, sending it to %s", marker, resolver.Current().Other())
		return resolver.Current().Other(), nil
	case res.Local:
		return mixed.RuntimeUnknown, errors.New("E280").
			WithDetailf("%s is owned by %s, the local runtime", marker, res.Owner).
			WithSuggestion("Probe from the other runtime, or change runtime in " + config.ConfigFileName)
	default:
		return res.Owner, nil
	}
}

// parseParams parses name=value pairs.
func parseParams(pairs []string) (mixed.Parameters, error) {
	params := make(mixed.Parameters, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, errors.New("E280").
				WithDetailf("parameter %q", pair).
				WithSuggestion("Use name=value")
		}
		params[name] = mixed.Plain(parseValue(raw))
	}
	return params, nil
}

func parseValue(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

func printingCallback(name string) mixed.Value {
	return mixed.CallbackArg(func(ctx context.Context, arg any) error {
		if arg == nil {
			success("%s()", name)
		} else {
			success("%s(%v)", name, arg)
		}
		return nil
	})
}
