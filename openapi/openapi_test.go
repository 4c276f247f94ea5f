// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package openapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/resinhq/resin/codec"
	"github.com/resinhq/resin/resource"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func noopFunc(ctx context.Context, args resource.Args) (any, error) {
	return nil, nil
}

func TestGenerate(t *testing.T) {
	t.Run("will include the document info", func(t *testing.T) {
		t.Run("if the tree is empty", func(t *testing.T) {
			spec, err := Generate("Note Store", "v1.0.0", resource.New("root"))
			require.NoError(t, err)

			assert.Equal(t, "Note Store", spec.Info.Title)
			assert.Equal(t, "v1.0.0", spec.Info.Version)
		})
	})

	t.Run("will register every operation", func(t *testing.T) {
		t.Run("if the tree has fixed and indexed children", func(t *testing.T) {
			entry := resource.New(
				"note",
				resource.WithOperation(resource.NewOperation(
					http.MethodGet,
					"get-note",
					noopFunc,
					resource.WithParam(resource.Param{
						Name:     "key",
						In:       resource.InPath,
						Codec:    codec.String(),
						Required: true,
					}),
					resource.Returns(codec.JSON(note{})),
				)),
			)

			notes := resource.New(
				"notes",
				resource.WithOperation(resource.NewOperation(
					http.MethodGet,
					"list-notes",
					noopFunc,
					resource.Returns(codec.JSON([]string{})),
				)),
				resource.WithIndex(resource.Index{
					Param: "key",
					Codec: codec.String(),
					Resolve: func(ctx context.Context, key any) (*resource.Resource, error) {
						return entry, nil
					},
				}),
			)

			root := resource.New("root", resource.WithChild(notes))

			spec, err := Generate("Note Store", "v1.0.0", root)
			require.NoError(t, err)

			require.Contains(t, spec.Paths.MapOfPathItemValues, "/notes")
			require.Contains(t, spec.Paths.MapOfPathItemValues, "/notes/{key}")

			list := spec.Paths.MapOfPathItemValues["/notes"].MapOfOperationValues["get"]
			require.NotNil(t, list.ID)
			assert.Equal(t, "list-notes", *list.ID)

			get := spec.Paths.MapOfPathItemValues["/notes/{key}"].MapOfOperationValues["get"]
			require.NotNil(t, get.ID)
			assert.Equal(t, "get-note", *get.ID)
			require.Len(t, get.Parameters, 1)
			assert.Equal(t, "key", get.Parameters[0].Parameter.Name)
		})
	})

	t.Run("will describe the response", func(t *testing.T) {
		t.Run("if the operation declares a return codec", func(t *testing.T) {
			root := resource.New(
				"root",
				resource.WithOperation(resource.NewOperation(
					http.MethodGet,
					"get",
					noopFunc,
					resource.Returns(codec.JSON(note{})),
				)),
			)

			spec, err := Generate("API", "v1", root)
			require.NoError(t, err)

			op := spec.Paths.MapOfPathItemValues["/"].MapOfOperationValues["get"]
			resp, ok := op.Responses.MapOfResponseOrRefValues["200"]
			require.True(t, ok)
			assert.Contains(t, resp.Response.Content, "application/json")
		})

		t.Run("if the operation declares no return codec", func(t *testing.T) {
			root := resource.New(
				"root",
				resource.WithOperation(resource.NewOperation(http.MethodDelete, "delete", noopFunc)),
			)

			spec, err := Generate("API", "v1", root)
			require.NoError(t, err)

			op := spec.Paths.MapOfPathItemValues["/"].MapOfOperationValues["delete"]
			_, ok := op.Responses.MapOfResponseOrRefValues["204"]
			assert.True(t, ok)
		})
	})

	t.Run("will describe the request body", func(t *testing.T) {
		t.Run("if the operation declares a whole body parameter", func(t *testing.T) {
			root := resource.New(
				"root",
				resource.WithOperation(resource.NewOperation(
					http.MethodPost,
					"create",
					noopFunc,
					resource.WithParam(resource.Param{
						Name:     "note",
						In:       resource.InBody,
						Codec:    codec.JSON(note{}),
						Required: true,
					}),
				)),
			)

			spec, err := Generate("API", "v1", root)
			require.NoError(t, err)

			op := spec.Paths.MapOfPathItemValues["/"].MapOfOperationValues["post"]
			require.NotNil(t, op.RequestBody)
			assert.Contains(t, op.RequestBody.RequestBody.Content, "application/json")
		})

		t.Run("if the operation declares body field parameters", func(t *testing.T) {
			root := resource.New(
				"root",
				resource.WithOperation(resource.NewOperation(
					http.MethodPost,
					"create",
					noopFunc,
					resource.WithParam(resource.Param{
						Name:     "title",
						In:       resource.InBodyField,
						Codec:    codec.JSON(""),
						Required: true,
					}),
					resource.WithParam(resource.Param{
						Name:  "stars",
						In:    resource.InBodyField,
						Codec: codec.JSON(0),
					}),
				)),
			)

			spec, err := Generate("API", "v1", root)
			require.NoError(t, err)

			op := spec.Paths.MapOfPathItemValues["/"].MapOfOperationValues["post"]
			require.NotNil(t, op.RequestBody)

			media := op.RequestBody.RequestBody.Content["application/json"]
			require.NotNil(t, media.Schema)
			require.NotNil(t, media.Schema.Schema)
			assert.Contains(t, media.Schema.Schema.Properties, "title")
			assert.Contains(t, media.Schema.Schema.Properties, "stars")
			assert.Equal(t, []string{"title"}, media.Schema.Schema.Required)
		})
	})

	t.Run("will mark query parameters required", func(t *testing.T) {
		t.Run("only if the parameter is declared required", func(t *testing.T) {
			root := resource.New(
				"root",
				resource.WithOperation(resource.NewOperation(
					http.MethodGet,
					"search",
					noopFunc,
					resource.WithParam(resource.Param{
						Name:     "q",
						In:       resource.InQuery,
						Codec:    codec.String(),
						Required: true,
					}),
					resource.WithParam(resource.Param{
						Name:  "limit",
						In:    resource.InQuery,
						Codec: codec.Int(),
					}),
				)),
			)

			spec, err := Generate("API", "v1", root)
			require.NoError(t, err)

			op := spec.Paths.MapOfPathItemValues["/"].MapOfOperationValues["get"]
			require.Len(t, op.Parameters, 2)

			byName := make(map[string]*struct{ required bool })
			for _, p := range op.Parameters {
				required := p.Parameter.Required != nil && *p.Parameter.Required
				byName[p.Parameter.Name] = &struct{ required bool }{required}
			}

			assert.True(t, byName["q"].required)
			assert.False(t, byName["limit"].required)
		})
	})
}
