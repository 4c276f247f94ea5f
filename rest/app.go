// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package rest implements the resource-oriented HTTP dispatch pipeline.
//
// An [Application] maps a request to an operation on a resource tree,
// authorizes it, binds and validates its parameters, invokes it and encodes
// the result into a response. Filters wrap the entire pipeline with
// pre-call, post-call and error-interception semantics.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/resinhq/resin"
	"github.com/resinhq/resin/httperr"
	"github.com/resinhq/resin/resource"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// ApplicationOptions holds configuration for an [Application].
type ApplicationOptions struct {
	filters    []Filter
	challenge  string
	logHandler slog.Handler
}

// ApplicationOption configures an [Application] created by [NewApplication].
type ApplicationOption func(*ApplicationOptions)

// WithFilter appends filters to the chain. Filters run in the order they
// were added on the way in, and in exact reverse order on the way out.
func WithFilter(fs ...Filter) ApplicationOption {
	return func(ao *ApplicationOptions) {
		ao.filters = append(ao.filters, fs...)
	}
}

// WithChallenge sets the default WWW-Authenticate header value attached to
// 401 responses whose error does not carry its own challenge.
func WithChallenge(challenge string) ApplicationOption {
	return func(ao *ApplicationOptions) {
		ao.challenge = challenge
	}
}

// WithLogHandler sets the [slog.Handler] used to log unclassified failures.
func WithLogHandler(h slog.Handler) ApplicationOption {
	return func(ao *ApplicationOptions) {
		ao.logHandler = h
	}
}

// Application is the top level entry point wiring resolution, authorization,
// parameter binding, invocation and encoding into a single request to
// response call.
//
// The resource tree is read-only after construction, so a single Application
// safely serves concurrent requests.
type Application struct {
	root    *resource.Resource
	filters []Filter
	tracer  trace.Tracer
}

// NewApplication constructs an [Application] dispatching to the given root
// resource.
//
// The baseline error filter is always installed as the outermost stage: any
// typed [httperr.Error] reaching it is converted into the matching response,
// and anything else becomes a 500 whose internal detail is logged but never
// written to the client.
func NewApplication(root *resource.Resource, opts ...ApplicationOption) *Application {
	ao := &ApplicationOptions{
		logHandler: resin.LogHandler("rest"),
	}
	for _, opt := range opts {
		opt(ao)
	}

	filters := make([]Filter, 0, len(ao.filters)+1)
	filters = append(filters, NewErrorFilter(ao.logHandler, ao.challenge))
	filters = append(filters, ao.filters...)

	return &Application{
		root:    root,
		filters: filters,
		tracer:  otel.Tracer("github.com/resinhq/resin/rest"),
	}
}

// Handle dispatches a single request. It never panics and always returns a
// well-formed response: failures escaping every filter are mapped through
// the error taxonomy as a final safety net.
func (a *Application) Handle(ctx context.Context, req *Request) *Response {
	c := chain{
		filters:  a.filters,
		terminus: a.serve,
	}

	resp, err := c.handle(ctx, req)
	if err != nil {
		// only reachable if a filter outside the baseline error
		// filter failed; still produce a well-formed response
		return errorResponse(err, "")
	}
	return resp
}

func (a *Application) serve(ctx context.Context, req *Request) (*Response, error) {
	tgt, err := a.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	err = a.authorize(ctx, tgt)
	if err != nil {
		return nil, err
	}

	args, err := a.bind(ctx, req, tgt)
	if err != nil {
		return nil, err
	}

	result, err := a.invoke(ctx, tgt, args)
	if err != nil {
		return nil, err
	}

	return encodeResponse(tgt.op, result)
}

func (a *Application) resolve(ctx context.Context, req *Request) (*target, error) {
	spanCtx, span := a.tracer.Start(ctx, "rest.resolve")
	defer span.End()

	return resolve(spanCtx, a.root, req)
}

func (a *Application) authorize(ctx context.Context, tgt *target) error {
	spanCtx, span := a.tracer.Start(ctx, "rest.authorize")
	defer span.End()

	return resource.Authorize(spanCtx, tgt.resource.EffectiveSecurity(tgt.op))
}

func (a *Application) bind(ctx context.Context, req *Request, tgt *target) (resource.Args, error) {
	_, span := a.tracer.Start(ctx, "rest.bind")
	defer span.End()

	return bindParams(tgt.op, req, tgt.pathArgs)
}

func (a *Application) invoke(ctx context.Context, tgt *target, args resource.Args) (any, error) {
	spanCtx, span := a.tracer.Start(ctx, "rest.invoke")
	defer span.End()

	return tgt.op.Call(spanCtx, args)
}

type errorFilter struct {
	log       *slog.Logger
	challenge string
}

// NewErrorFilter returns the baseline error filter: a post-phase filter
// converting any error reaching it into a response. Typed [httperr.Error]
// values map to their own status; anything else becomes a 500 whose detail
// is logged through h but withheld from the client.
//
// An [Application] always installs one as its outermost filter; additional
// instances may be installed deeper in the chain to convert errors before
// outer filters observe them.
func NewErrorFilter(h slog.Handler, challenge string) Filter {
	return &errorFilter{
		log:       slog.New(h),
		challenge: challenge,
	}
}

// Before implements the [Filter] interface.
func (f *errorFilter) Before(ctx context.Context, req *Request) (context.Context, *Response, error) {
	return ctx, nil, nil
}

// After implements the [Filter] interface.
func (f *errorFilter) After(ctx context.Context, resp *Response, err error) (*Response, error) {
	if err == nil {
		return resp, nil
	}

	var herr *httperr.Error
	if !errors.As(err, &herr) {
		f.log.ErrorContext(ctx, "unhandled error during dispatch", slog.Any("error", err))
	}
	return errorResponse(err, f.challenge), nil
}

func errorResponse(err error, challenge string) *Response {
	status := httperr.StatusOf(err)
	detail := http.StatusText(status)

	var herr *httperr.Error
	if errors.As(err, &herr) {
		if herr.Status != http.StatusInternalServerError && herr.Detail != "" {
			detail = herr.Detail
		}
		if herr.Challenge != "" {
			challenge = herr.Challenge
		}
	}

	body, merr := json.Marshal(struct {
		Error  int    `json:"error"`
		Detail string `json:"detail"`
	}{
		Error:  status,
		Detail: detail,
	})
	if merr != nil {
		body = []byte(`{"error": 500}`)
		status = http.StatusInternalServerError
	}

	resp := NewResponse(status)
	resp.Header.Set("Content-Type", "application/json")
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
	if status == http.StatusUnauthorized && challenge != "" {
		resp.Header.Set("WWW-Authenticate", challenge)
	}
	resp.Body = BytesStream(body, "application/json")
	return resp
}
