// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package security

import (
	"context"
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/resinhq/resin/httperr"
	"github.com/resinhq/resin/rest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basicHeader(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

func TestBasicScheme(t *testing.T) {
	scheme := &BasicScheme{
		Name:  "basic",
		Realm: "notes",
		Authenticate: func(ctx context.Context, username, password string) (string, bool, error) {
			if username == "alice" && password == "opensesame" {
				return "alice", true, nil
			}
			return "", false, nil
		},
	}

	t.Run("will establish an identity", func(t *testing.T) {
		t.Run("if the request carries valid credentials", func(t *testing.T) {
			req := &rest.Request{
				Header: http.Header{
					"Authorization": []string{basicHeader("alice", "opensesame")},
				},
			}

			ctx, resp, err := scheme.Filter().Before(context.Background(), req)
			require.NoError(t, err)
			require.Nil(t, resp)

			id, ok := IdentityFrom(ctx)
			require.True(t, ok)
			assert.Equal(t, "basic", id.Scheme)
			assert.Equal(t, "alice", id.Subject)
		})
	})

	t.Run("will leave the context anonymous", func(t *testing.T) {
		t.Run("if no credentials are present", func(t *testing.T) {
			req := &rest.Request{Header: http.Header{}}

			ctx, resp, err := scheme.Filter().Before(context.Background(), req)
			require.NoError(t, err)
			require.Nil(t, resp)

			_, ok := IdentityFrom(ctx)
			assert.False(t, ok)
		})

		t.Run("if the credentials are invalid", func(t *testing.T) {
			req := &rest.Request{
				Header: http.Header{
					"Authorization": []string{basicHeader("alice", "wrong")},
				},
			}

			ctx, resp, err := scheme.Filter().Before(context.Background(), req)
			require.NoError(t, err)
			require.Nil(t, resp)

			_, ok := IdentityFrom(ctx)
			assert.False(t, ok)
		})

		t.Run("if the header is not valid base64", func(t *testing.T) {
			req := &rest.Request{
				Header: http.Header{
					"Authorization": []string{"Basic ???"},
				},
			}

			ctx, resp, err := scheme.Filter().Before(context.Background(), req)
			require.NoError(t, err)
			require.Nil(t, resp)

			_, ok := IdentityFrom(ctx)
			assert.False(t, ok)
		})
	})

	t.Run("will authorize the requirement", func(t *testing.T) {
		t.Run("if the scheme established the identity", func(t *testing.T) {
			ctx := WithIdentity(context.Background(), Identity{Scheme: "basic", Subject: "alice"})

			err := scheme.Requirement().Authorize(ctx)
			assert.NoError(t, err)
		})
	})

	t.Run("will fail the requirement with a 401 and challenge", func(t *testing.T) {
		t.Run("if the context is anonymous", func(t *testing.T) {
			err := scheme.Requirement().Authorize(context.Background())
			require.Error(t, err)

			var herr *httperr.Error
			require.ErrorAs(t, err, &herr)
			assert.Equal(t, http.StatusUnauthorized, herr.Status)
			assert.Equal(t, `Basic realm="notes"`, herr.Challenge)
		})

		t.Run("if the identity was established by another scheme", func(t *testing.T) {
			ctx := WithIdentity(context.Background(), Identity{Scheme: "api-key", Subject: "bot"})

			err := scheme.Requirement().Authorize(ctx)
			require.Error(t, err)
			assert.Equal(t, http.StatusUnauthorized, httperr.StatusOf(err))
		})
	})
}

func TestHeaderScheme(t *testing.T) {
	scheme := &HeaderScheme{
		Name:   "api-key",
		Header: "X-API-Key",
		Authenticate: func(ctx context.Context, key string) (string, bool, error) {
			if key == "s3cret" {
				return "bot", true, nil
			}
			return "", false, nil
		},
	}

	t.Run("will establish an identity", func(t *testing.T) {
		t.Run("if the request carries a valid key", func(t *testing.T) {
			req := &rest.Request{
				Header: http.Header{"X-Api-Key": []string{"s3cret"}},
			}

			ctx, _, err := scheme.Filter().Before(context.Background(), req)
			require.NoError(t, err)

			id, ok := IdentityFrom(ctx)
			require.True(t, ok)
			assert.Equal(t, "bot", id.Subject)
		})
	})

	t.Run("will leave the context anonymous", func(t *testing.T) {
		t.Run("if the key is invalid", func(t *testing.T) {
			req := &rest.Request{
				Header: http.Header{"X-Api-Key": []string{"wrong"}},
			}

			ctx, _, err := scheme.Filter().Before(context.Background(), req)
			require.NoError(t, err)

			_, ok := IdentityFrom(ctx)
			assert.False(t, ok)
		})
	})

	t.Run("will fail the requirement with a 401", func(t *testing.T) {
		t.Run("if the context is anonymous", func(t *testing.T) {
			err := scheme.Requirement().Authorize(context.Background())
			require.Error(t, err)
			assert.Equal(t, http.StatusUnauthorized, httperr.StatusOf(err))
		})
	})
}

func TestCookieScheme(t *testing.T) {
	scheme := &CookieScheme{
		Name:   "session",
		Cookie: "session",
		Authenticate: func(ctx context.Context, value string) (string, bool, error) {
			if value == "tok-123" {
				return "alice", true, nil
			}
			return "", false, nil
		},
	}

	t.Run("will establish an identity", func(t *testing.T) {
		t.Run("if the request carries a valid cookie", func(t *testing.T) {
			req := &rest.Request{
				Header: http.Header{"Cookie": []string{"session=tok-123"}},
			}

			ctx, _, err := scheme.Filter().Before(context.Background(), req)
			require.NoError(t, err)

			id, ok := IdentityFrom(ctx)
			require.True(t, ok)
			assert.Equal(t, "session", id.Scheme)
			assert.Equal(t, "alice", id.Subject)
		})
	})

	t.Run("will leave the context anonymous", func(t *testing.T) {
		t.Run("if the cookie is absent", func(t *testing.T) {
			req := &rest.Request{Header: http.Header{}}

			ctx, _, err := scheme.Filter().Before(context.Background(), req)
			require.NoError(t, err)

			_, ok := IdentityFrom(ctx)
			assert.False(t, ok)
		})
	})
}
