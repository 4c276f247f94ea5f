// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package resource models the dispatch tree: named resources exposing
// operations, fixed children and dynamically indexed children.
//
// The tree is built explicitly at application construction time and is
// read-only afterwards, so it is safely shared across concurrent requests
// without locking. Dynamically indexed children are constructed fresh for
// every resolution and have no lifetime beyond the current request.
package resource

import (
	"context"
	"fmt"

	"github.com/resinhq/resin/codec"
)

// Args holds the decoded parameter values passed to an operation, keyed by
// parameter name.
type Args map[string]any

// String returns the named argument as a string.
func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Int returns the named argument as an int64.
func (a Args) Int(name string) int64 {
	n, _ := a[name].(int64)
	return n
}

// Bool returns the named argument as a bool.
func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

// Func is the invocable behind an operation. The returned value is encoded
// by the response encoder; a nil value produces an empty response.
type Func func(ctx context.Context, args Args) (any, error)

// In identifies where a parameter value is bound from.
type In string

const (
	// InPath binds a parameter from a dynamically indexed path segment.
	InPath In = "path"

	// InQuery binds a parameter from the query string.
	InQuery In = "query"

	// InBody binds a parameter from the whole request body.
	InBody In = "body"

	// InBodyField binds a parameter from a single field of a JSON
	// request body.
	InBodyField In = "body field"
)

// Param declares a single operation parameter.
type Param struct {
	Name     string
	In       In
	Codec    codec.Codec
	Required bool

	// Default is used when an optional parameter is absent from the request.
	Default any
}

// Operation is a named, HTTP method bound unit of behaviour on a resource.
type Operation struct {
	name     string
	method   string
	params   []Param
	returns  codec.Codec
	security []SecurityRequirement
	fn       Func
}

// OperationOption configures an [Operation] created by [NewOperation].
type OperationOption func(*Operation)

// WithParam declares a parameter on the operation. Parameters are bound in
// declaration order within their binding source: path first, then query,
// then body.
func WithParam(p Param) OperationOption {
	return func(op *Operation) {
		op.params = append(op.params, p)
	}
}

// Returns declares the codec used to encode the operation's return value.
// An operation without a return codec produces an empty 204 response.
func Returns(c codec.Codec) OperationOption {
	return func(op *Operation) {
		op.returns = c
	}
}

// WithSecurity declares the operation's security requirements, overriding
// the owning resource's defaults. An empty, non-nil list makes the
// operation open.
func WithSecurity(reqs ...SecurityRequirement) OperationOption {
	return func(op *Operation) {
		op.security = append([]SecurityRequirement{}, reqs...)
	}
}

// NewOperation declares an operation responding to the given HTTP method.
func NewOperation(method, name string, fn Func, opts ...OperationOption) *Operation {
	op := &Operation{
		name:   name,
		method: method,
		fn:     fn,
	}
	for _, opt := range opts {
		opt(op)
	}
	return op
}

// Name reports the operation's name, unique within its resource and method.
func (op *Operation) Name() string {
	return op.name
}

// Method reports the HTTP method the operation responds to.
func (op *Operation) Method() string {
	return op.method
}

// Params reports the declared parameters in declaration order.
func (op *Operation) Params() []Param {
	return op.params
}

// ReturnCodec reports the codec for the operation's return value, or nil if
// the operation returns no body.
func (op *Operation) ReturnCodec() codec.Codec {
	return op.returns
}

// Security reports the operation's own security requirements, or nil if the
// operation defers to its resource's defaults.
func (op *Operation) Security() []SecurityRequirement {
	return op.security
}

// Call invokes the operation.
func (op *Operation) Call(ctx context.Context, args Args) (any, error) {
	return op.fn(ctx, args)
}

// Index exposes dynamically indexed children of a resource. The request path
// segment is decoded through Codec and passed to Resolve, which constructs
// the child resource for that key.
type Index struct {
	// Param names the path parameter bound from the decoded segment.
	Param string

	// Codec decodes the path segment into the key value.
	Codec codec.Codec

	// Resolve constructs the child resource for the decoded key. Returning
	// a nil resource with a nil error reports that no child exists for
	// the key.
	Resolve func(ctx context.Context, key any) (*Resource, error)
}

// Resource is an addressable node in the dispatch tree.
type Resource struct {
	name       string
	operations map[string]*Operation
	children   map[string]*Resource
	index      *Index
	security   []SecurityRequirement
}

// Option configures a [Resource] created by [New].
type Option func(*Resource)

// WithOperation registers an operation on the resource. Registering two
// operations for the same HTTP method panics: the registry is constructed
// once at startup and a duplicate is always a programming error.
func WithOperation(op *Operation) Option {
	return func(r *Resource) {
		if _, ok := r.operations[op.Method()]; ok {
			panic(fmt.Sprintf("resource: %s already has an operation for %s", r.name, op.Method()))
		}
		r.operations[op.Method()] = op
	}
}

// WithChild registers a fixed, named child resource.
func WithChild(child *Resource) Option {
	return func(r *Resource) {
		if _, ok := r.children[child.Name()]; ok {
			panic(fmt.Sprintf("resource: %s already has a child named %s", r.name, child.Name()))
		}
		r.children[child.Name()] = child
	}
}

// WithIndex registers the resource's dynamic indexing capability. A resource
// has at most one index.
func WithIndex(idx Index) Option {
	return func(r *Resource) {
		if r.index != nil {
			panic(fmt.Sprintf("resource: %s already has an index", r.name))
		}
		r.index = &idx
	}
}

// DefaultSecurity declares the security requirements applied to every
// operation on the resource which does not declare its own.
func DefaultSecurity(reqs ...SecurityRequirement) Option {
	return func(r *Resource) {
		r.security = append([]SecurityRequirement{}, reqs...)
	}
}

// New constructs a resource.
func New(name string, opts ...Option) *Resource {
	r := &Resource{
		name:       name,
		operations: make(map[string]*Operation),
		children:   make(map[string]*Resource),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name reports the resource's name.
func (r *Resource) Name() string {
	return r.name
}

// Operation reports the operation registered for the given HTTP method.
func (r *Resource) Operation(method string) (*Operation, bool) {
	op, ok := r.operations[method]
	return op, ok
}

// Operations reports all registered operations, keyed by HTTP method.
func (r *Resource) Operations() map[string]*Operation {
	return r.operations
}

// Child reports the fixed child with the given name.
func (r *Resource) Child(name string) (*Resource, bool) {
	child, ok := r.children[name]
	return child, ok
}

// Children reports all fixed children, keyed by name.
func (r *Resource) Children() map[string]*Resource {
	return r.children
}

// Index reports the resource's dynamic indexing capability, if any.
func (r *Resource) Index() (*Index, bool) {
	return r.index, r.index != nil
}

// EffectiveSecurity reports the security requirements governing the given
// operation: the operation's own requirements if declared, otherwise the
// resource's defaults.
func (r *Resource) EffectiveSecurity(op *Operation) []SecurityRequirement {
	if reqs := op.Security(); reqs != nil {
		return reqs
	}
	return r.security
}
