// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package httpserver adapts a dispatch application to net/http and runs it.
//
// The adapter translates each [http.Request] into the pipeline's request
// form, dispatches it, and streams the resulting body to the client without
// buffering. Alongside the application it mounts the OpenAPI document at
// GET /openapi.json and liveness and readiness probes under /health/.
package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/resinhq/resin"
	"github.com/resinhq/resin/health"
	"github.com/resinhq/resin/openapi"
	"github.com/resinhq/resin/resource"
	"github.com/resinhq/resin/rest"

	"github.com/go-chi/chi/v5"
	"github.com/z5labs/sdk-go/try"
)

// HandlerOptions holds configuration for a handler built by [NewHandler].
type HandlerOptions struct {
	title      string
	version    string
	liveness   health.Monitor
	readiness  health.Monitor
	appOptions []rest.ApplicationOption
}

// HandlerOption configures a handler built by [NewHandler].
type HandlerOption func(*HandlerOptions)

// OpenApi sets the title and version of the served OpenAPI document.
func OpenApi(title, version string) HandlerOption {
	return func(ho *HandlerOptions) {
		ho.title = title
		ho.version = version
	}
}

// Liveness sets the monitor backing GET /health/liveness.
func Liveness(m health.Monitor) HandlerOption {
	return func(ho *HandlerOptions) {
		ho.liveness = m
	}
}

// Readiness sets the monitor backing GET /health/readiness.
func Readiness(m health.Monitor) HandlerOption {
	return func(ho *HandlerOptions) {
		ho.readiness = m
	}
}

// WithApplicationOptions forwards options to the underlying [rest.Application].
func WithApplicationOptions(opts ...rest.ApplicationOption) HandlerOption {
	return func(ho *HandlerOptions) {
		ho.appOptions = append(ho.appOptions, opts...)
	}
}

type alwaysHealthy struct{}

func (alwaysHealthy) Healthy(ctx context.Context) (bool, error) {
	return true, nil
}

// NewHandler builds the [http.Handler] serving the tree rooted at root.
//
// Every request except the OpenAPI document and the health probes is
// dispatched through the application pipeline. The OpenAPI document is
// generated once at construction; a tree which cannot be described fails
// here rather than at request time.
func NewHandler(root *resource.Resource, opts ...HandlerOption) (http.Handler, error) {
	ho := &HandlerOptions{
		liveness:  alwaysHealthy{},
		readiness: alwaysHealthy{},
	}
	for _, opt := range opts {
		opt(ho)
	}

	spec, err := openapi.Generate(ho.title, ho.version, root)
	if err != nil {
		return nil, err
	}

	app := rest.NewApplication(root, ho.appOptions...)
	log := resin.Logger("httpserver")

	mux := chi.NewMux()
	mux.Get("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		enc := json.NewEncoder(w)
		err := enc.Encode(spec)
		if err != nil {
			log.ErrorContext(r.Context(), "failed to encode openapi document", slog.Any("error", err))
		}
	})
	mux.Method(http.MethodGet, "/health/liveness", health.NewHandler(ho.liveness))
	mux.Method(http.MethodGet, "/health/readiness", health.NewHandler(ho.readiness))
	mux.Handle("/*", dispatcher{
		app: app,
		log: log,
	})

	return mux, nil
}

type dispatcher struct {
	app *rest.Application
	log *slog.Logger
}

// ServeHTTP implements the [http.Handler] interface.
func (d dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := &rest.Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header,
	}
	if r.ContentLength != 0 {
		req.Body = rest.ReaderStream(r.Body, r.Header.Get("Content-Type"), r.ContentLength)
	}

	resp := d.app.Handle(r.Context(), req)

	header := w.Header()
	for name, values := range resp.Header {
		header[name] = values
	}
	w.WriteHeader(resp.StatusCode)

	if resp.Body == nil {
		return
	}

	err := copyBody(w, resp.Body)
	if err != nil {
		d.log.ErrorContext(r.Context(), "failed to write response body", slog.Any("error", err))
	}
}

func copyBody(w io.Writer, body rest.Stream) (err error) {
	defer try.Close(&err, body)

	_, err = io.Copy(w, body)
	return err
}
