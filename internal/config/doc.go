// Package config provides configuration parsing for vango-mixed.
//
// The configuration is stored in vango-mixed.yaml at the project root.
// This package handles loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	runtime: server
//	components:
//	  - marker: app.Counter
//	    client: true
//	manifest:
//	  file: components.yaml
//	  s3:
//	    bucket: my-config
//	    key: mixed/components.yaml
//	    region: us-east-1
//	bridge:
//	  startTimeout: 30s
//	  callTimeout: 10s
//	transport:
//	  listen: ":3100"
//	  path: /_mixed/ws
//	  url: ws://localhost:3100/_mixed/ws
//	startSignal:
//	  redis:
//	    addr: localhost:6379
//	    scope: default
//	metrics:
//	  enabled: true
//	  namespace: vango_mixed
//	tracing:
//	  tracerName: vango-mixed
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	defs, err := cfg.Definitions(ctx)
package config
