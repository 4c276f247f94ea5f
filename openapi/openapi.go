// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package openapi generates an OpenAPI 3.0 document from a resource tree.
//
// The document is derived entirely from the tree: fixed children contribute
// literal path segments, dynamic indexes contribute templated segments, and
// each operation contributes its parameters, request body and response media
// types. Schemas are reflected from codec prototypes.
package openapi

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/resinhq/resin/codec"
	"github.com/resinhq/resin/resource"

	"github.com/swaggest/jsonschema-go"
	"github.com/swaggest/openapi-go/openapi3"
	"github.com/z5labs/sdk-go/ptr"
)

// Generate builds the OpenAPI document for the tree rooted at root.
func Generate(title, version string, root *resource.Resource) (*openapi3.Spec, error) {
	spec := &openapi3.Spec{
		Openapi: "3.0.3",
		Info: openapi3.Info{
			Title:   title,
			Version: version,
		},
	}

	err := addResource(spec, root, "")
	if err != nil {
		return nil, err
	}
	return spec, nil
}

func addResource(spec *openapi3.Spec, r *resource.Resource, path string) error {
	endpoint := path
	if endpoint == "" {
		endpoint = "/"
	}

	for _, method := range sortedMethods(r.Operations()) {
		op, _ := r.Operation(method)

		def, err := operationSpec(op)
		if err != nil {
			return err
		}

		err = spec.AddOperation(method, endpoint, *def)
		if err != nil {
			return fmt.Errorf("openapi: %s %s: %w", method, endpoint, err)
		}
	}

	for _, name := range sortedNames(r.Children()) {
		child, _ := r.Child(name)

		err := addResource(spec, child, path+"/"+name)
		if err != nil {
			return err
		}
	}

	idx, ok := r.Index()
	if !ok {
		return nil
	}

	// an indexed child's operations are discovered by resolving the
	// index with the key codec's prototype value
	proto, ok := idx.Codec.(codec.Prototyper)
	if !ok {
		return nil
	}

	child, err := idx.Resolve(context.Background(), proto.Prototype())
	if err != nil || child == nil {
		return nil
	}

	return addResource(spec, child, path+"/{"+idx.Param+"}")
}

func operationSpec(op *resource.Operation) (*openapi3.Operation, error) {
	def := &openapi3.Operation{
		ID: ptr.Ref(op.Name()),
	}

	var bodyFields []resource.Param
	for _, p := range op.Params() {
		switch p.In {
		case resource.InPath, resource.InQuery:
			param, err := parameterSpec(p)
			if err != nil {
				return nil, err
			}
			def.Parameters = append(def.Parameters, *param)
		case resource.InBody:
			body, err := bodySpec(p)
			if err != nil {
				return nil, err
			}
			def.RequestBody = body
		case resource.InBodyField:
			bodyFields = append(bodyFields, p)
		}
	}

	if len(bodyFields) > 0 {
		body, err := bodyFieldsSpec(bodyFields)
		if err != nil {
			return nil, err
		}
		def.RequestBody = body
	}

	responses, err := responseSpec(op)
	if err != nil {
		return nil, err
	}
	def.Responses = *responses

	return def, nil
}

func parameterSpec(p resource.Param) (*openapi3.ParameterOrRef, error) {
	in := openapi3.ParameterInQuery
	required := p.Required
	if p.In == resource.InPath {
		in = openapi3.ParameterInPath

		// path parameters are always required in OpenAPI
		required = true
	}

	schema, err := schemaFor(p.Codec)
	if err != nil {
		return nil, err
	}

	def := &openapi3.Parameter{
		Name:   p.Name,
		In:     in,
		Schema: schema,
	}
	if required {
		def.Required = ptr.Ref(true)
	}

	return &openapi3.ParameterOrRef{
		Parameter: def,
	}, nil
}

func bodySpec(p resource.Param) (*openapi3.RequestBodyOrRef, error) {
	contentType := "application/octet-stream"
	var schema *openapi3.SchemaOrRef
	if p.Codec != nil {
		contentType = p.Codec.ContentType()

		var err error
		schema, err = schemaFor(p.Codec)
		if err != nil {
			return nil, err
		}
	}

	def := &openapi3.RequestBody{
		Content: map[string]openapi3.MediaType{
			contentType: {
				Schema: schema,
			},
		},
	}
	if p.Required {
		def.Required = ptr.Ref(true)
	}

	return &openapi3.RequestBodyOrRef{
		RequestBody: def,
	}, nil
}

func bodyFieldsSpec(fields []resource.Param) (*openapi3.RequestBodyOrRef, error) {
	properties := make(map[string]openapi3.SchemaOrRef, len(fields))
	var required []string
	anyRequired := false

	for _, p := range fields {
		schema, err := schemaFor(p.Codec)
		if err != nil {
			return nil, err
		}
		if schema == nil {
			schema = &openapi3.SchemaOrRef{}
		}
		properties[p.Name] = *schema

		if p.Required {
			required = append(required, p.Name)
			anyRequired = true
		}
	}
	sort.Strings(required)

	objectType := openapi3.SchemaTypeObject
	def := &openapi3.RequestBody{
		Content: map[string]openapi3.MediaType{
			"application/json": {
				Schema: &openapi3.SchemaOrRef{
					Schema: &openapi3.Schema{
						Type:       &objectType,
						Properties: properties,
						Required:   required,
					},
				},
			},
		},
	}
	if anyRequired {
		def.Required = ptr.Ref(true)
	}

	return &openapi3.RequestBodyOrRef{
		RequestBody: def,
	}, nil
}

func responseSpec(op *resource.Operation) (*openapi3.Responses, error) {
	returns := op.ReturnCodec()
	if returns == nil {
		return &openapi3.Responses{
			MapOfResponseOrRefValues: map[string]openapi3.ResponseOrRef{
				strconv.Itoa(http.StatusNoContent): {
					Response: &openapi3.Response{
						Description: http.StatusText(http.StatusNoContent),
					},
				},
			},
		}, nil
	}

	schema, err := schemaFor(returns)
	if err != nil {
		return nil, err
	}

	return &openapi3.Responses{
		MapOfResponseOrRefValues: map[string]openapi3.ResponseOrRef{
			strconv.Itoa(http.StatusOK): {
				Response: &openapi3.Response{
					Description: http.StatusText(http.StatusOK),
					Content: map[string]openapi3.MediaType{
						returns.ContentType(): {
							Schema: schema,
						},
					},
				},
			},
		},
	}, nil
}

// schemaFor reflects the JSON schema of a codec's prototype value. Codecs
// which do not report a prototype yield no schema.
func schemaFor(c codec.Codec) (*openapi3.SchemaOrRef, error) {
	proto, ok := c.(codec.Prototyper)
	if !ok {
		return nil, nil
	}

	var reflector jsonschema.Reflector
	jsonSchema, err := reflector.Reflect(proto.Prototype(), jsonschema.InlineRefs)
	if err != nil {
		return nil, err
	}

	var schemaOrRef openapi3.SchemaOrRef
	schemaOrRef.FromJSONSchema(jsonSchema.ToSchemaOrBool())
	return &schemaOrRef, nil
}

func sortedMethods(ops map[string]*resource.Operation) []string {
	methods := make([]string, 0, len(ops))
	for m := range ops {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

func sortedNames(children map[string]*resource.Resource) []string {
	names := make([]string, 0, len(children))
	for n := range children {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
