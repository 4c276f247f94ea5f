// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"context"
	"net/http"
	"testing"

	"github.com/resinhq/resin/codec"
	"github.com/resinhq/resin/httperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(ctx context.Context, args Args) (any, error) {
	return nil, nil
}

func TestNew(t *testing.T) {
	t.Run("registers operations by method", func(t *testing.T) {
		r := New(
			"pets",
			WithOperation(NewOperation(http.MethodGet, "list", noop)),
			WithOperation(NewOperation(http.MethodPost, "create", noop)),
		)

		op, ok := r.Operation(http.MethodGet)
		require.True(t, ok)
		assert.Equal(t, "list", op.Name())

		_, ok = r.Operation(http.MethodDelete)
		assert.False(t, ok)
	})

	t.Run("panics on a duplicate method", func(t *testing.T) {
		assert.Panics(t, func() {
			New(
				"pets",
				WithOperation(NewOperation(http.MethodGet, "list", noop)),
				WithOperation(NewOperation(http.MethodGet, "read", noop)),
			)
		})
	})

	t.Run("panics on a duplicate child", func(t *testing.T) {
		assert.Panics(t, func() {
			New(
				"root",
				WithChild(New("a")),
				WithChild(New("a")),
			)
		})
	})

	t.Run("panics on a second index", func(t *testing.T) {
		idx := Index{
			Param: "id",
			Codec: codec.String(),
			Resolve: func(ctx context.Context, key any) (*Resource, error) {
				return nil, nil
			},
		}

		assert.Panics(t, func() {
			New("root", WithIndex(idx), WithIndex(idx))
		})
	})
}

func TestResource_EffectiveSecurity(t *testing.T) {
	allow := RequirementFunc(func(ctx context.Context) error {
		return nil
	})
	deny := RequirementFunc(func(ctx context.Context) error {
		return httperr.Forbidden("no")
	})

	t.Run("operation requirements override resource defaults", func(t *testing.T) {
		op := NewOperation(http.MethodGet, "read", noop, WithSecurity(deny))
		r := New("pets", WithOperation(op), DefaultSecurity(allow))

		reqs := r.EffectiveSecurity(op)
		require.Len(t, reqs, 1)
		assert.Error(t, reqs[0].Authorize(context.Background()))
	})

	t.Run("operation falls back to resource defaults", func(t *testing.T) {
		op := NewOperation(http.MethodGet, "read", noop)
		r := New("pets", WithOperation(op), DefaultSecurity(allow))

		reqs := r.EffectiveSecurity(op)
		require.Len(t, reqs, 1)
		assert.NoError(t, reqs[0].Authorize(context.Background()))
	})

	t.Run("an explicit empty list makes the operation open", func(t *testing.T) {
		op := NewOperation(http.MethodGet, "read", noop, WithSecurity())
		r := New("pets", WithOperation(op), DefaultSecurity(deny))

		assert.Empty(t, r.EffectiveSecurity(op))
		assert.NotNil(t, r.EffectiveSecurity(op))
	})
}

func TestAuthorize(t *testing.T) {
	unauthorized := RequirementFunc(func(ctx context.Context) error {
		return httperr.Unauthorized("credentials required")
	})
	forbidden := RequirementFunc(func(ctx context.Context) error {
		return httperr.Forbidden("insufficient scope")
	})
	allow := RequirementFunc(func(ctx context.Context) error {
		return nil
	})

	t.Run("zero requirements is open", func(t *testing.T) {
		assert.NoError(t, Authorize(context.Background(), nil))
	})

	t.Run("first success wins", func(t *testing.T) {
		err := Authorize(context.Background(), []SecurityRequirement{unauthorized, allow})
		assert.NoError(t, err)
	})

	t.Run("short circuits on success", func(t *testing.T) {
		called := false
		spy := RequirementFunc(func(ctx context.Context) error {
			called = true
			return nil
		})

		err := Authorize(context.Background(), []SecurityRequirement{allow, spy})
		require.NoError(t, err)
		assert.False(t, called)
	})

	t.Run("all failing surfaces the first failure", func(t *testing.T) {
		err := Authorize(context.Background(), []SecurityRequirement{unauthorized, forbidden})
		assert.Equal(t, http.StatusUnauthorized, httperr.StatusOf(err))

		err = Authorize(context.Background(), []SecurityRequirement{forbidden, unauthorized})
		assert.Equal(t, http.StatusForbidden, httperr.StatusOf(err))
	})
}

func TestArgs(t *testing.T) {
	args := Args{
		"name":  "rex",
		"age":   int64(3),
		"loved": true,
	}

	assert.Equal(t, "rex", args.String("name"))
	assert.Equal(t, int64(3), args.Int("age"))
	assert.True(t, args.Bool("loved"))
	assert.Equal(t, "", args.String("missing"))
}
