// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"encoding/json"
	"io"

	"github.com/resinhq/resin/httperr"
	"github.com/resinhq/resin/resource"

	"github.com/z5labs/sdk-go/try"
)

// bindParams extracts and decodes the operation's parameters from the
// request, or fails with a 400 naming the first offending parameter.
//
// Binding is deterministic: path parameters first, then query, then body,
// in declaration order within each group. The request itself is never
// mutated, though binding a body parameter consumes the one-shot body
// stream.
func bindParams(op *resource.Operation, req *Request, pathArgs map[string]any) (resource.Args, error) {
	args := make(resource.Args)

	params := op.Params()
	for _, p := range byIn(params, resource.InPath) {
		key, ok := pathArgs[p.Name]
		if !ok {
			if p.Required {
				return nil, httperr.BadRequest("expecting value in path parameter: %s", p.Name)
			}
			setDefault(args, p)
			continue
		}
		args[p.Name] = key
	}

	for _, p := range byIn(params, resource.InQuery) {
		if !req.Query.Has(p.Name) {
			if p.Required {
				return nil, httperr.BadRequest("expecting value in query parameter: %s", p.Name)
			}
			setDefault(args, p)
			continue
		}

		v, err := p.Codec.DecodeString(req.Query.Get(p.Name))
		if err != nil {
			return nil, httperr.BadRequest("invalid query parameter %s: %v", p.Name, err)
		}
		args[p.Name] = v
	}

	return args, bindBody(op, req, args)
}

func bindBody(op *resource.Operation, req *Request, args resource.Args) error {
	whole := byIn(op.Params(), resource.InBody)
	fields := byIn(op.Params(), resource.InBodyField)
	if len(whole) == 0 && len(fields) == 0 {
		return nil
	}

	// A whole-body parameter with no codec binds the raw stream itself,
	// so the operation can consume it without buffering.
	if len(whole) == 1 && len(fields) == 0 && whole[0].Codec == nil {
		if req.Body == nil {
			if whole[0].Required {
				return httperr.BadRequest("expecting value in request body")
			}
			setDefault(args, whole[0])
			return nil
		}
		args[whole[0].Name] = req.Body
		return nil
	}

	body, err := readBody(req)
	if err != nil {
		return err
	}

	if len(body) == 0 {
		for _, p := range append(whole, fields...) {
			if p.Required {
				return httperr.BadRequest("expecting value in request body")
			}
			setDefault(args, p)
		}
		return nil
	}

	for _, p := range whole {
		v, err := p.Codec.Decode(body)
		if err != nil {
			return httperr.BadRequest("invalid request body: %v", err)
		}
		args[p.Name] = v
	}

	if len(fields) == 0 {
		return nil
	}

	var doc map[string]json.RawMessage
	err = json.Unmarshal(body, &doc)
	if err != nil {
		return httperr.BadRequest("malformed request body: expecting a JSON object")
	}

	for _, p := range fields {
		raw, ok := doc[p.Name]
		if !ok {
			if p.Required {
				return httperr.BadRequest("expecting value in body field: %s", p.Name)
			}
			setDefault(args, p)
			continue
		}

		v, err := p.Codec.Decode(raw)
		if err != nil {
			return httperr.BadRequest("invalid body field %s: %v", p.Name, err)
		}
		args[p.Name] = v
	}
	return nil
}

func readBody(req *Request) (_ []byte, err error) {
	if req.Body == nil {
		return nil, nil
	}
	defer try.Close(&err, req.Body)

	return io.ReadAll(req.Body)
}

func byIn(params []resource.Param, in resource.In) []resource.Param {
	var out []resource.Param
	for _, p := range params {
		if p.In == in {
			out = append(out, p)
		}
	}
	return out
}

func setDefault(args resource.Args, p resource.Param) {
	if p.Default == nil {
		return
	}
	args[p.Name] = p.Default
}
