// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"context"
)

// SecurityRequirement authorizes a single operation call. Request identity
// travels in the context, typically established by a security scheme filter
// earlier in the chain.
//
// Authorize returns nil to grant access. It should return an error with
// status 401 when no valid credentials are established, and 403 when
// credentials are valid but insufficient.
type SecurityRequirement interface {
	Authorize(ctx context.Context) error
}

// RequirementFunc is an adapter to allow the use of ordinary functions as
// [SecurityRequirement]s.
type RequirementFunc func(ctx context.Context) error

// Authorize implements the [SecurityRequirement] interface.
func (f RequirementFunc) Authorize(ctx context.Context) error {
	return f(ctx)
}

// Authorize evaluates an ordered list of security requirements.
//
// Zero requirements means the operation is open. The first requirement to
// succeed grants access and later requirements are not evaluated. If every
// requirement fails, the first requirement's failure is returned and later
// failures are discarded, preserving the failure's kind (401 vs 403).
func Authorize(ctx context.Context, reqs []SecurityRequirement) error {
	var first error
	for _, req := range reqs {
		err := req.Authorize(ctx)
		if err == nil {
			return nil
		}
		if first == nil {
			first = err
		}
	}
	return first
}
