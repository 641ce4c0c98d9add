// Package middleware provides observability decorators for the bridge.
//
// This package includes:
//   - OpenTelemetry tracing of bridge operations
//   - Prometheus metrics for bridge operations, wire calls, callback
//     invocations and peer connections
//
// Decorators wrap a bridge.Bridge and compose with Chain:
//
//	b := middleware.Chain(remote,
//	    middleware.OpenTelemetry(middleware.WithTracerName("my-app")),
//	    middleware.Prometheus(),
//	)
//	act := proxy.NewActivator(resolver, factories, b, proxy.Options{})
//
// Wire-level calls are instrumented by wrapping the Invoker a Remote routes
// through:
//
//	remote.Route(mixed.RuntimeClient, middleware.PrometheusInvoker(conn))
//
// Then expose metrics:
//
//	r.Handle("/metrics", promhttp.Handler())
package middleware
