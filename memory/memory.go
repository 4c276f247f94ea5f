// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package memory provides an in-memory keyed resource.
//
// A store holds values in a mutex guarded map and exposes them as a resource
// tree: GET on the container lists keys, and each key resolves through the
// container's dynamic index to a child supporting GET, PUT and DELETE. It is
// intended for tests, examples and small caches.
package memory

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/resinhq/resin/codec"
	"github.com/resinhq/resin/httperr"
	"github.com/resinhq/resin/resource"
)

// StoreOptions holds configuration for a [Store].
type StoreOptions struct {
	maxSize      int
	entryOptions []resource.Option
}

// StoreOption configures a [Store] created by [NewStore].
type StoreOption func(*StoreOptions)

// MaxSize caps the number of entries the store holds. Putting a new key into
// a full store fails with a 409; replacing an existing key always succeeds.
func MaxSize(n int) StoreOption {
	return func(so *StoreOptions) {
		so.maxSize = n
	}
}

// EntryOptions applies resource options, such as
// [resource.DefaultSecurity], to every resolved entry resource.
func EntryOptions(opts ...resource.Option) StoreOption {
	return func(so *StoreOptions) {
		so.entryOptions = append(so.entryOptions, opts...)
	}
}

// Store is an in-memory keyed value store. It is safe for concurrent use.
type Store struct {
	keyCodec     codec.Codec
	valueCodec   codec.Codec
	maxSize      int
	entryOptions []resource.Option

	mu     sync.RWMutex
	values map[string]any
}

// NewStore constructs an empty store. The key codec converts keys to and from
// their path segment representation; the value codec encodes stored values in
// responses and decodes request bodies.
func NewStore(keyCodec, valueCodec codec.Codec, opts ...StoreOption) *Store {
	so := &StoreOptions{}
	for _, opt := range opts {
		opt(so)
	}

	return &Store{
		keyCodec:     keyCodec,
		valueCodec:   valueCodec,
		maxSize:      so.maxSize,
		entryOptions: so.entryOptions,
		values:       make(map[string]any),
	}
}

// List reports the keys currently held, in unspecified order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys, nil
}

// Get reports the value stored under the given key.
func (s *Store) Get(ctx context.Context, key any) (any, error) {
	k, err := s.keyCodec.EncodeString(key)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[k]
	if !ok {
		return nil, httperr.NotFound("no value stored under key: " + k)
	}
	return v, nil
}

// Put stores a value under the given key, replacing any previous value.
func (s *Store) Put(ctx context.Context, key, value any) error {
	k, err := s.keyCodec.EncodeString(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[k]; !ok && s.maxSize > 0 && len(s.values) >= s.maxSize {
		return httperr.Conflict(fmt.Sprintf("store is full: %d entries", s.maxSize))
	}

	s.values[k] = value
	return nil
}

// Delete removes the value stored under the given key.
func (s *Store) Delete(ctx context.Context, key any) error {
	k, err := s.keyCodec.EncodeString(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[k]; !ok {
		return httperr.NotFound("no value stored under key: " + k)
	}

	delete(s.values, k)
	return nil
}

// Resource exposes the store as a resource: GET on the container lists keys
// and each key resolves to a child supporting GET, PUT and DELETE.
func (s *Store) Resource(name string, opts ...resource.Option) *resource.Resource {
	opts = append(opts,
		resource.WithOperation(resource.NewOperation(
			http.MethodGet,
			"list",
			func(ctx context.Context, args resource.Args) (any, error) {
				return s.List(ctx)
			},
			resource.Returns(codec.JSON([]string{})),
		)),
		resource.WithIndex(resource.Index{
			Param: "key",
			Codec: s.keyCodec,
			Resolve: func(ctx context.Context, key any) (*resource.Resource, error) {
				return s.entry(key), nil
			},
		}),
	)
	return resource.New(name, opts...)
}

func (s *Store) entry(key any) *resource.Resource {
	keyParam := resource.Param{
		Name:     "key",
		In:       resource.InPath,
		Codec:    s.keyCodec,
		Required: true,
	}

	opts := append([]resource.Option{}, s.entryOptions...)
	opts = append(opts,
		resource.WithOperation(resource.NewOperation(
			http.MethodGet,
			"get",
			func(ctx context.Context, args resource.Args) (any, error) {
				return s.Get(ctx, args["key"])
			},
			resource.WithParam(keyParam),
			resource.Returns(s.valueCodec),
		)),
		resource.WithOperation(resource.NewOperation(
			http.MethodPut,
			"put",
			func(ctx context.Context, args resource.Args) (any, error) {
				return nil, s.Put(ctx, args["key"], args["value"])
			},
			resource.WithParam(keyParam),
			resource.WithParam(resource.Param{
				Name:     "value",
				In:       resource.InBody,
				Codec:    s.valueCodec,
				Required: true,
			}),
		)),
		resource.WithOperation(resource.NewOperation(
			http.MethodDelete,
			"delete",
			func(ctx context.Context, args resource.Args) (any, error) {
				return nil, s.Delete(ctx, args["key"])
			},
			resource.WithParam(keyParam),
		)),
	)
	return resource.New(fmt.Sprint(key), opts...)
}
