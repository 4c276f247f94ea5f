// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package httpserver runs an [http.Server] as a [bedrock.App].
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"

	"golang.org/x/sync/errgroup"
)

// App serves an [http.Server] over a listener until its context is cancelled.
type App struct {
	ls     net.Listener
	server *http.Server
}

// NewApp initializes an [App].
func NewApp(ls net.Listener, server *http.Server) *App {
	return &App{
		ls:     ls,
		server: server,
	}
}

// Run implements the [bedrock.App] interface.
func (a *App) Run(ctx context.Context) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return a.server.Serve(a.ls)
	})
	eg.Go(func() error {
		<-egCtx.Done()

		return a.server.Shutdown(context.Background())
	})

	err := eg.Wait()
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
