// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
)

// Stream is a lazy, read-once byte sequence used for request and response
// bodies. A stream's content is not re-readable once consumed.
type Stream interface {
	io.ReadCloser

	// ContentType reports the media type of the stream, or "" if unknown.
	ContentType() string

	// ContentLength reports the number of bytes the stream will yield,
	// or -1 if unknown.
	ContentLength() int64
}

type bytesStream struct {
	reader      *bytes.Reader
	contentType string
}

// BytesStream exposes a byte slice as a [Stream] with a known length.
func BytesStream(b []byte, contentType string) Stream {
	return &bytesStream{
		reader:      bytes.NewReader(b),
		contentType: contentType,
	}
}

func (s *bytesStream) Read(p []byte) (int, error) {
	return s.reader.Read(p)
}

func (s *bytesStream) Close() error {
	return nil
}

func (s *bytesStream) ContentType() string {
	return s.contentType
}

func (s *bytesStream) ContentLength() int64 {
	return s.reader.Size()
}

type readerStream struct {
	reader        io.Reader
	contentType   string
	contentLength int64
}

// ReaderStream exposes an [io.Reader] as a [Stream]. Pass -1 as the content
// length when the number of bytes is not known upfront; the transport adapter
// then uses chunked transfer instead of setting Content-Length.
func ReaderStream(r io.Reader, contentType string, contentLength int64) Stream {
	return &readerStream{
		reader:        r,
		contentType:   contentType,
		contentLength: contentLength,
	}
}

func (s *readerStream) Read(p []byte) (int, error) {
	return s.reader.Read(p)
}

func (s *readerStream) Close() error {
	c, ok := s.reader.(io.Closer)
	if !ok {
		return nil
	}
	return c.Close()
}

func (s *readerStream) ContentType() string {
	return s.contentType
}

func (s *readerStream) ContentLength() int64 {
	return s.contentLength
}

// Request is an HTTP request as consumed by the dispatch pipeline. The
// transport boundary constructs one per call; the pipeline treats it as
// immutable, except that filters may replace its fields between stages.
type Request struct {
	// Method is the HTTP method, in upper case.
	Method string

	// Path is the request path, already resolved relative to the
	// application root.
	Path string

	// Query holds the query string parameters.
	Query url.Values

	// Header holds the request headers, with case-insensitive keys.
	Header http.Header

	// Body is the request body, or nil if there is none.
	Body Stream
}

// Cookie returns the named cookie from the request headers.
func (r *Request) Cookie(name string) (*http.Cookie, error) {
	hr := http.Request{Header: r.Header}
	return hr.Cookie(name)
}

// Response is an HTTP response produced by the dispatch pipeline. It is
// constructed incrementally and becomes immutable once returned from the
// pipeline.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Header holds the response headers, with case-insensitive keys.
	Header http.Header

	// Body is the response body, or nil if there is none.
	Body Stream
}

// NewResponse initializes a [Response] with the given status and an empty
// header map.
func NewResponse(status int) *Response {
	return &Response{
		StatusCode: status,
		Header:     make(http.Header),
	}
}
