// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package security provides authentication schemes and security requirements
// for resource operations.
//
// A scheme contributes two pieces: a filter which inspects the incoming
// request for credentials and, when they authenticate, establishes an
// [Identity] in the context; and a requirement which authorizes an operation
// only when an identity established by that scheme is present. Filters never
// fail a request themselves: absent or invalid credentials simply leave the
// context anonymous, and the requirement raises the 401 later so that open
// operations remain reachable without credentials.
package security

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/resinhq/resin/httperr"
	"github.com/resinhq/resin/resource"
	"github.com/resinhq/resin/rest"
)

// Identity describes an authenticated caller.
type Identity struct {
	// Scheme names the security scheme which established the identity.
	Scheme string

	// Subject identifies the caller, e.g. a user id or API key owner.
	Subject string
}

type identityCtxKey struct{}

// WithIdentity returns a context carrying the given identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFrom reports the identity established for the current request.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok
}

// BasicScheme implements HTTP Basic authentication.
type BasicScheme struct {
	// Name names the scheme, e.g. "basic".
	Name string

	// Realm is included in the WWW-Authenticate challenge.
	Realm string

	// Authenticate verifies the supplied credentials. It returns the
	// caller's subject on success and false when the credentials are
	// invalid. It should only return an error on an unrecoverable
	// failure, never for a failed authentication.
	Authenticate func(ctx context.Context, username, password string) (string, bool, error)
}

// Challenge reports the WWW-Authenticate value for the scheme.
func (s *BasicScheme) Challenge() string {
	return fmt.Sprintf("Basic realm=%q", s.Realm)
}

// Filter returns the request filter which establishes an [Identity] when the
// request carries valid Basic credentials.
func (s *BasicScheme) Filter() rest.Filter {
	return identityFilter(func(ctx context.Context, req *rest.Request) (Identity, bool, error) {
		username, password, ok := basicAuth(req.Header.Get("Authorization"))
		if !ok {
			return Identity{}, false, nil
		}

		subject, ok, err := s.Authenticate(ctx, username, password)
		if err != nil || !ok {
			return Identity{}, false, err
		}

		return Identity{Scheme: s.Name, Subject: subject}, true, nil
	})
}

// Requirement returns the security requirement authorizing operations only
// for callers authenticated by this scheme. The failure carries the
// scheme's challenge.
func (s *BasicScheme) Requirement() resource.SecurityRequirement {
	return resource.RequirementFunc(func(ctx context.Context) error {
		id, ok := IdentityFrom(ctx)
		if !ok || id.Scheme != s.Name {
			return httperr.UnauthorizedChallenge("credentials required", s.Challenge())
		}
		return nil
	})
}

func basicAuth(header string) (username, password string, ok bool) {
	const prefix = "Basic "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", "", false
	}

	username, password, ok = strings.Cut(string(decoded), ":")
	return username, password, ok
}

// HeaderScheme implements API key authentication via a request header.
type HeaderScheme struct {
	// Name names the scheme, e.g. "api-key".
	Name string

	// Header is the name of the header carrying the key.
	Header string

	// Authenticate verifies the supplied key. It returns the caller's
	// subject on success and false when the key is invalid.
	Authenticate func(ctx context.Context, key string) (string, bool, error)
}

// Filter returns the request filter which establishes an [Identity] when the
// request carries a valid API key header.
func (s *HeaderScheme) Filter() rest.Filter {
	return identityFilter(func(ctx context.Context, req *rest.Request) (Identity, bool, error) {
		key := req.Header.Get(s.Header)
		if key == "" {
			return Identity{}, false, nil
		}

		subject, ok, err := s.Authenticate(ctx, key)
		if err != nil || !ok {
			return Identity{}, false, err
		}

		return Identity{Scheme: s.Name, Subject: subject}, true, nil
	})
}

// Requirement returns the security requirement authorizing operations only
// for callers authenticated by this scheme.
func (s *HeaderScheme) Requirement() resource.SecurityRequirement {
	return requireScheme(s.Name)
}

// CookieScheme implements API key authentication via a request cookie.
type CookieScheme struct {
	// Name names the scheme, e.g. "session".
	Name string

	// Cookie is the name of the cookie carrying the key.
	Cookie string

	// Authenticate verifies the supplied cookie value. It returns the
	// caller's subject on success and false when the value is invalid.
	Authenticate func(ctx context.Context, value string) (string, bool, error)
}

// Filter returns the request filter which establishes an [Identity] when the
// request carries a valid cookie.
func (s *CookieScheme) Filter() rest.Filter {
	return identityFilter(func(ctx context.Context, req *rest.Request) (Identity, bool, error) {
		cookie, err := req.Cookie(s.Cookie)
		if err != nil {
			return Identity{}, false, nil
		}

		subject, ok, err := s.Authenticate(ctx, cookie.Value)
		if err != nil || !ok {
			return Identity{}, false, err
		}

		return Identity{Scheme: s.Name, Subject: subject}, true, nil
	})
}

// Requirement returns the security requirement authorizing operations only
// for callers authenticated by this scheme.
func (s *CookieScheme) Requirement() resource.SecurityRequirement {
	return requireScheme(s.Name)
}

type identityFilter func(ctx context.Context, req *rest.Request) (Identity, bool, error)

// Before implements the [rest.Filter] interface.
func (f identityFilter) Before(ctx context.Context, req *rest.Request) (context.Context, *rest.Response, error) {
	id, ok, err := f(ctx, req)
	if err != nil {
		return ctx, nil, err
	}
	if !ok {
		return ctx, nil, nil
	}
	return WithIdentity(ctx, id), nil, nil
}

// After implements the [rest.Filter] interface.
func (f identityFilter) After(ctx context.Context, resp *rest.Response, err error) (*rest.Response, error) {
	return resp, err
}

func requireScheme(scheme string) resource.SecurityRequirement {
	return resource.RequirementFunc(func(ctx context.Context) error {
		id, ok := IdentityFrom(ctx)
		if !ok || id.Scheme != scheme {
			return httperr.Unauthorized("credentials required")
		}
		return nil
	})
}
