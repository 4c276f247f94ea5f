// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package app wires the note store together.
package app

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/resinhq/resin/codec"
	"github.com/resinhq/resin/health"
	"github.com/resinhq/resin/httpserver"
	"github.com/resinhq/resin/memory"
	"github.com/resinhq/resin/resource"
	"github.com/resinhq/resin/rest"
	"github.com/resinhq/resin/security"
)

// Config defines the application configuration.
type Config struct {
	httpserver.Config `config:",squash"`

	Notes struct {
		MaxSize int `config:"max_size"`
	} `config:"notes"`

	ApiKey string `config:"api_key"`
}

// Note is a stored note.
type Note struct {
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Init builds the note store handler.
//
// Notes live in an in-memory store keyed by UUID. Every note operation
// requires the configured API key in the X-API-Key header.
func Init(ctx context.Context, cfg Config) (http.Handler, error) {
	scheme := &security.HeaderScheme{
		Name:   "api-key",
		Header: "X-API-Key",
		Authenticate: func(ctx context.Context, key string) (string, bool, error) {
			if subtle.ConstantTimeCompare([]byte(key), []byte(cfg.ApiKey)) == 1 {
				return "writer", true, nil
			}
			return "", false, nil
		},
	}

	store := memory.NewStore(
		codec.UUID(),
		codec.JSON(Note{}),
		memory.MaxSize(cfg.Notes.MaxSize),
		memory.EntryOptions(resource.DefaultSecurity(scheme.Requirement())),
	)

	root := resource.New(
		"root",
		resource.WithChild(store.Resource(
			"notes",
			resource.DefaultSecurity(scheme.Requirement()),
		)),
	)

	var ready health.Binary
	ready.MarkHealthy()

	return httpserver.NewHandler(
		root,
		httpserver.OpenApi(cfg.OpenApi.Title, cfg.OpenApi.Version),
		httpserver.Readiness(&ready),
		httpserver.WithApplicationOptions(
			rest.WithFilter(scheme.Filter()),
		),
	)
}

