package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/fleetline/shiptrack/internal/api/shipmentsapi"
)

type apiOpts struct {
	httpAddr    string
	swaggerPath string

	onListen func(httpAddr string)
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, http.ErrServerClosed)
}

func runAPI(ctx context.Context, opts apiOpts, api *shipmentsapi.API) error {
	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}
	return runAPIServer(ctx, lis, api, opts.swaggerPath)
}

func runAPIServer(ctx context.Context, lis net.Listener, api *shipmentsapi.API, swaggerPath string) error {
	r := chi.NewRouter()

	if swaggerPath != "" {
		if _, err := os.Stat(swaggerPath); err != nil {
			return err
		}
		r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, swaggerPath)
		})
		r.Get("/docs/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger.json"),
		))
	}

	r.Mount("/", api.Router())

	srv := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}
