package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rmiatl/leadcall-proxy/internal/handler"
)

type routes struct {
	access  *handler.Access
	proxy   http.Handler
	cache   http.Handler
	ping    http.Handler
	metrics http.Handler
}

func setupRouter(log *slog.Logger, rt routes) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(handler.RequestLogger(log))

	r.With(rt.access.RequireKey).Post("/", rt.proxy.ServeHTTP)
	r.Get("/ping", rt.ping.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(rt.access.RequireAdmin)
		r.Get("/cache/{method}", rt.cache.ServeHTTP)
		r.Get("/metrics", rt.metrics.ServeHTTP)
	})

	return r
}
