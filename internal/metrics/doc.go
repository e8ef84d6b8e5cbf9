// Package metrics provides build observability hooks.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check. When metrics are enabled
// the CLI swaps in a PrometheusRecorder and serves its registry over HTTP:
//
//	reg := prom.NewRegistry()
//	b := glace.New(cfg, glace.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//	go metrics.Serve(ctx, cfg.Metrics.Addr, reg)
package metrics
