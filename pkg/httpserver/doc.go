// Package httpserver runs an http.Handler until its context is cancelled and
// then shuts it down gracefully. It also provides the liveness and readiness
// handlers used by dispatchd.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	g.Go(func() error { return srv.Run(ctx, router) })
//
//	r.Get("/healthz", httpserver.LivenessHandler())
//	r.Get("/readyz", httpserver.ReadinessHandler(log,
//		httpserver.Check{Name: "postgres", Probe: pg.Healthcheck(pool)},
//		httpserver.Check{Name: "redis", Probe: redis.Healthcheck(client)},
//	))
package httpserver
