// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"net/http"
	"strconv"

	"github.com/resinhq/resin/httperr"
	"github.com/resinhq/resin/resource"
)

// encodeResponse converts an operation's return value into a response.
//
// A nil result, or an operation without a return codec, produces 204 with no
// body. A [Stream] result is passed through uninterpreted and unbuffered:
// Content-Length is set only when the stream declares a known length,
// otherwise the transport uses chunked transfer. Any other result is encoded
// through the return codec with an exact Content-Length.
//
// An encoding failure on the return value means the operation violated its
// own contract and is reported as a 500, never as a client error.
func encodeResponse(op *resource.Operation, result any) (*Response, error) {
	returns := op.ReturnCodec()
	if returns == nil || result == nil {
		return NewResponse(http.StatusNoContent), nil
	}

	resp := NewResponse(http.StatusOK)

	if stream, ok := result.(Stream); ok {
		resp.Body = stream

		contentType := stream.ContentType()
		if contentType == "" {
			contentType = returns.ContentType()
		}
		resp.Header.Set("Content-Type", contentType)

		if n := stream.ContentLength(); n >= 0 {
			resp.Header.Set("Content-Length", strconv.FormatInt(n, 10))
		}
		return resp, nil
	}

	b, err := returns.Encode(result)
	if err != nil {
		return nil, httperr.Internal("operation returned an unencodable value")
	}

	resp.Body = BytesStream(b, returns.ContentType())
	resp.Header.Set("Content-Type", returns.ContentType())
	resp.Header.Set("Content-Length", strconv.Itoa(len(b)))
	return resp, nil
}
