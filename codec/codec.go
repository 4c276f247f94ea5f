// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package codec converts typed values to and from their wire representations.
//
// A [Codec] is pure and stateless: the same value always encodes to the same
// representation and decoding is the exact inverse. Codecs are consumed by the
// parameter binder and the response encoder, and are safe for concurrent use.
package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Codec converts between a runtime value and its wire representations.
//
// Encode and Decode operate on the binary (body) representation while
// EncodeString and DecodeString operate on the textual representation used
// for path segments and query parameters.
type Codec interface {
	// ContentType reports the media type of the binary representation.
	ContentType() string

	Encode(v any) ([]byte, error)
	Decode(b []byte) (any, error)

	EncodeString(v any) (string, error)
	DecodeString(s string) (any, error)
}

// Prototyper is implemented by codecs which can report the zero value of the
// type their Decode produces. It is consumed by schema reflection.
type Prototyper interface {
	Prototype() any
}

func typeError(c Codec, v any) error {
	return fmt.Errorf("codec: cannot encode %T as %s", v, c.ContentType())
}

type stringCodec struct{}

// String returns a [Codec] for string values.
func String() Codec {
	return stringCodec{}
}

func (stringCodec) ContentType() string {
	return "text/plain; charset=UTF-8"
}

func (c stringCodec) Encode(v any) ([]byte, error) {
	s, err := c.EncodeString(v)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (stringCodec) Decode(b []byte) (any, error) {
	return string(b), nil
}

func (c stringCodec) EncodeString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", typeError(c, v)
	}
	return s, nil
}

func (stringCodec) DecodeString(s string) (any, error) {
	return s, nil
}

func (stringCodec) Prototype() any {
	return ""
}

type intCodec struct{}

// Int returns a [Codec] for integer values. Decoded values are of type int64.
func Int() Codec {
	return intCodec{}
}

func (intCodec) ContentType() string {
	return "text/plain; charset=UTF-8"
}

func (c intCodec) Encode(v any) ([]byte, error) {
	s, err := c.EncodeString(v)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (c intCodec) Decode(b []byte) (any, error) {
	return c.DecodeString(string(b))
}

func (c intCodec) EncodeString(v any) (string, error) {
	switch n := v.(type) {
	case int:
		return strconv.FormatInt(int64(n), 10), nil
	case int32:
		return strconv.FormatInt(int64(n), 10), nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	}
	return "", typeError(c, v)
}

func (intCodec) DecodeString(s string) (any, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("codec: expecting an integer: %q", s)
	}
	return n, nil
}

func (intCodec) Prototype() any {
	return int64(0)
}

type floatCodec struct{}

// Float returns a [Codec] for floating point values. Decoded values are of type float64.
func Float() Codec {
	return floatCodec{}
}

func (floatCodec) ContentType() string {
	return "text/plain; charset=UTF-8"
}

func (c floatCodec) Encode(v any) ([]byte, error) {
	s, err := c.EncodeString(v)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (c floatCodec) Decode(b []byte) (any, error) {
	return c.DecodeString(string(b))
}

func (c floatCodec) EncodeString(v any) (string, error) {
	switch f := v.(type) {
	case float32:
		return strconv.FormatFloat(float64(f), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case int:
		return strconv.FormatInt(int64(f), 10), nil
	case int64:
		return strconv.FormatInt(f, 10), nil
	}
	return "", typeError(c, v)
}

func (floatCodec) DecodeString(s string) (any, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("codec: expecting a number: %q", s)
	}
	return f, nil
}

func (floatCodec) Prototype() any {
	return float64(0)
}

type boolCodec struct{}

// Bool returns a [Codec] for boolean values.
func Bool() Codec {
	return boolCodec{}
}

func (boolCodec) ContentType() string {
	return "text/plain; charset=UTF-8"
}

func (c boolCodec) Encode(v any) ([]byte, error) {
	s, err := c.EncodeString(v)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (c boolCodec) Decode(b []byte) (any, error) {
	return c.DecodeString(string(b))
}

func (c boolCodec) EncodeString(v any) (string, error) {
	b, ok := v.(bool)
	if !ok {
		return "", typeError(c, v)
	}
	return strconv.FormatBool(b), nil
}

func (boolCodec) DecodeString(s string) (any, error) {
	switch s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return nil, fmt.Errorf("codec: expecting true or false: %q", s)
}

func (boolCodec) Prototype() any {
	return false
}

type bytesCodec struct{}

// Bytes returns a [Codec] for raw byte sequences. The textual representation
// is base64 encoded.
func Bytes() Codec {
	return bytesCodec{}
}

func (bytesCodec) ContentType() string {
	return "application/octet-stream"
}

func (c bytesCodec) Encode(v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, typeError(c, v)
	}
	return b, nil
}

func (bytesCodec) Decode(b []byte) (any, error) {
	return b, nil
}

func (c bytesCodec) EncodeString(v any) (string, error) {
	b, ok := v.([]byte)
	if !ok {
		return "", typeError(c, v)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func (bytesCodec) DecodeString(s string) (any, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("codec: expecting a base64 encoded value")
	}
	return b, nil
}

func (bytesCodec) Prototype() any {
	return []byte(nil)
}

type uuidCodec struct{}

// UUID returns a [Codec] for [uuid.UUID] values.
func UUID() Codec {
	return uuidCodec{}
}

func (uuidCodec) ContentType() string {
	return "text/plain; charset=UTF-8"
}

func (c uuidCodec) Encode(v any) ([]byte, error) {
	s, err := c.EncodeString(v)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (c uuidCodec) Decode(b []byte) (any, error) {
	return c.DecodeString(string(b))
}

func (c uuidCodec) EncodeString(v any) (string, error) {
	id, ok := v.(uuid.UUID)
	if !ok {
		return "", typeError(c, v)
	}
	return id.String(), nil
}

func (uuidCodec) DecodeString(s string) (any, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("codec: expecting a UUID: %q", s)
	}
	return id, nil
}

func (uuidCodec) Prototype() any {
	return uuid.UUID{}
}

type timeCodec struct{}

// Time returns a [Codec] for [time.Time] values in RFC 3339 format.
func Time() Codec {
	return timeCodec{}
}

func (timeCodec) ContentType() string {
	return "text/plain; charset=UTF-8"
}

func (c timeCodec) Encode(v any) ([]byte, error) {
	s, err := c.EncodeString(v)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (c timeCodec) Decode(b []byte) (any, error) {
	return c.DecodeString(string(b))
}

func (c timeCodec) EncodeString(v any) (string, error) {
	t, ok := v.(time.Time)
	if !ok {
		return "", typeError(c, v)
	}
	return t.Format(time.RFC3339Nano), nil
}

func (timeCodec) DecodeString(s string) (any, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, fmt.Errorf("codec: expecting an RFC 3339 timestamp: %q", s)
	}
	return t, nil
}

func (timeCodec) Prototype() any {
	return time.Time{}
}

type jsonCodec struct {
	prototype any
}

// JSON returns a [Codec] which marshals values to and from JSON. The
// prototype value determines the concrete type produced by Decode; decoding
// always yields a value of the prototype's type, never a pointer to it.
//
// Example:
//
//	c := codec.JSON(Note{})
//	v, err := c.Decode(b) // v is a Note
func JSON(prototype any) Codec {
	return jsonCodec{
		prototype: prototype,
	}
}

func (jsonCodec) ContentType() string {
	return "application/json"
}

func (jsonCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c jsonCodec) Decode(b []byte) (any, error) {
	pv := reflect.New(reflect.TypeOf(c.prototype))
	err := json.Unmarshal(b, pv.Interface())
	if err != nil {
		return nil, fmt.Errorf("codec: malformed JSON value: %w", err)
	}
	return pv.Elem().Interface(), nil
}

func (c jsonCodec) EncodeString(v any) (string, error) {
	b, err := c.Encode(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c jsonCodec) DecodeString(s string) (any, error) {
	return c.Decode([]byte(s))
}

// Prototype reports the zero value whose type Decode produces. It is used
// for schema reflection.
func (c jsonCodec) Prototype() any {
	return c.prototype
}
