// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"

	"github.com/z5labs/sdk-go/try"
)

// Filter is a middleware unit wrapping the dispatch call.
//
// Before runs on the way in, in declaration order. It may enrich the context,
// inspect or replace fields of the request, short-circuit the chain by
// returning a response, or fail by returning an error. Returning a nil
// context keeps the current one.
//
// After runs on the way out, in exact reverse order, and only for filters
// whose Before ran and continued the chain. It receives the outcome produced
// by the inner stages: either a response or an error, never both. After may
// pass the outcome through, replace the response, replace the error, or
// swallow the error by substituting a response.
type Filter interface {
	Before(ctx context.Context, req *Request) (context.Context, *Response, error)
	After(ctx context.Context, resp *Response, err error) (*Response, error)
}

// FilterFunc adapts an ordinary function into a pre-phase only [Filter].
// Returning a non-nil response short-circuits the chain; the post phase
// passes outcomes through untouched.
type FilterFunc func(ctx context.Context, req *Request) (*Response, error)

// Before implements the [Filter] interface.
func (f FilterFunc) Before(ctx context.Context, req *Request) (context.Context, *Response, error) {
	resp, err := f(ctx, req)
	return ctx, resp, err
}

// After implements the [Filter] interface.
func (f FilterFunc) After(ctx context.Context, resp *Response, err error) (*Response, error) {
	return resp, err
}

// chain runs filters around a terminal handler, preserving call order on the
// way in and exact reverse order on the way out. Panics in any stage are
// recovered into errors so that already-entered filters always observe the
// outcome and unwind exactly once.
type chain struct {
	filters  []Filter
	terminus func(ctx context.Context, req *Request) (*Response, error)
}

func (c chain) handle(ctx context.Context, req *Request) (*Response, error) {
	entered := make([]Filter, 0, len(c.filters))

	var resp *Response
	var err error
	for _, f := range c.filters {
		var filterCtx context.Context
		filterCtx, resp, err = before(ctx, f, req)
		if filterCtx != nil {
			ctx = filterCtx
		}
		if resp != nil || err != nil {
			break
		}
		entered = append(entered, f)
	}

	if resp == nil && err == nil {
		resp, err = c.serve(ctx, req)
	}

	for i := len(entered) - 1; i >= 0; i-- {
		resp, err = after(ctx, entered[i], resp, err)
	}
	return resp, err
}

func before(ctx context.Context, f Filter, req *Request) (_ context.Context, _ *Response, err error) {
	defer try.Recover(&err)

	filterCtx, resp, err := f.Before(ctx, req)
	if filterCtx == nil {
		filterCtx = ctx
	}
	return filterCtx, resp, err
}

func after(ctx context.Context, f Filter, resp *Response, err error) (_ *Response, ferr error) {
	defer try.Recover(&ferr)

	return f.After(ctx, resp, err)
}

func (c chain) serve(ctx context.Context, req *Request) (_ *Response, err error) {
	defer try.Recover(&err)

	return c.terminus(ctx, req)
}
