// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"strings"

	"github.com/resinhq/resin/httperr"
	"github.com/resinhq/resin/resource"
)

// target is the outcome of resolving a request path: the terminal resource,
// the operation matching the request method and the path parameter values
// consumed along the way.
type target struct {
	resource *resource.Resource
	op       *resource.Operation
	pathArgs map[string]any
}

// resolve walks the resource tree from root along the request path. For each
// segment a fixed named child is tried first, then the dynamic index: the
// segment is decoded through the index codec (failure is a 400) and the
// decoded key is handed to the index factory. A segment matching neither is
// a 404. The terminal resource must expose an operation for the request
// method or resolution fails with a 405, which is deliberately distinct
// from 404.
//
// An empty path resolves to the root resource itself.
func resolve(ctx context.Context, root *resource.Resource, req *Request) (*target, error) {
	node := root
	pathArgs := make(map[string]any)

	for _, segment := range splitPath(req.Path) {
		if child, ok := node.Child(segment); ok {
			node = child
			continue
		}

		idx, ok := node.Index()
		if !ok {
			return nil, httperr.NotFound("no resource at path: " + req.Path)
		}

		key, err := idx.Codec.DecodeString(segment)
		if err != nil {
			return nil, httperr.BadRequest("invalid path segment %q: %v", segment, err)
		}

		node, err = idx.Resolve(ctx, key)
		if err != nil {
			return nil, err
		}
		if node == nil {
			return nil, httperr.NotFound("no resource at path: " + req.Path)
		}

		pathArgs[idx.Param] = key
	}

	op, ok := node.Operation(req.Method)
	if !ok {
		return nil, httperr.MethodNotAllowed("resource does not support " + req.Method)
	}

	return &target{
		resource: node,
		op:       op,
		pathArgs: pathArgs,
	}, nil
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
