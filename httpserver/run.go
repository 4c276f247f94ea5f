// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpserver

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"syscall"

	"github.com/resinhq/resin"
	internalhttp "github.com/resinhq/resin/internal/httpserver"

	"github.com/z5labs/bedrock"
	"github.com/z5labs/bedrock/app"
	"github.com/z5labs/bedrock/appbuilder"
	bedrockcfg "github.com/z5labs/bedrock/config"
	"github.com/z5labs/bedrock/lifecycle"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

//go:embed default_config.yaml
var defaultConfig []byte

// DefaultConfig returns the default config source which corresponds to the
// [Config] type.
func DefaultConfig() bedrockcfg.Source {
	return resin.ConfigSource(bytes.NewReader(defaultConfig))
}

// Configer constrains the custom config type into supporting the
// initialization behaviour required by [Run].
type Configer interface {
	appbuilder.OTelInitializer

	Listener(context.Context) (net.Listener, error)
	HttpServer(context.Context, http.Handler) (*http.Server, error)
}

// Config is the default HTTP server config. It can be embedded into a more
// application specific config.
type Config struct {
	resin.Config `config:",squash"`

	OpenApi struct {
		Title   string `config:"title"`
		Version string `config:"version"`
	} `config:"openapi"`

	HTTP struct {
		Port uint `config:"port"`
	} `config:"http"`
}

// Listener implements the [Configer] interface.
func (c Config) Listener(ctx context.Context) (net.Listener, error) {
	return net.Listen("tcp", fmt.Sprintf(":%d", c.HTTP.Port))
}

// HttpServer implements the [Configer] interface.
func (c Config) HttpServer(ctx context.Context, h http.Handler) (*http.Server, error) {
	s := &http.Server{
		Handler:  h,
		ErrorLog: slog.NewLogLogger(resin.LogHandler("httpserver"), slog.LevelError),
	}
	return s, nil
}

// Run reads, parses and unmarshals config into the type T, calls f to build
// the [http.Handler], and serves it until an OS signal arrives. OTel SDK
// initialization and shutdown, panic recovery and graceful server shutdown
// are handled along the way.
func Run[T Configer](r io.Reader, f func(context.Context, T) (http.Handler, error)) {
	cfg := bedrockcfg.MultiSource(
		resin.DefaultConfig(),
		DefaultConfig(),
		resin.ConfigSource(r),
	)

	builder := appbuilder.FromConfig(
		appbuilder.LifecycleContext(
			appbuilder.OTel(
				appbuilder.Recover(
					bedrock.AppBuilderFunc[T](func(ctx context.Context, cfg T) (bedrock.App, error) {
						h, err := f(ctx, cfg)
						if err != nil {
							return nil, err
						}

						ls, err := cfg.Listener(ctx)
						if err != nil {
							return nil, err
						}

						s, err := cfg.HttpServer(ctx, otelhttp.NewHandler(
							h,
							"httpserver",
							otelhttp.WithMessageEvents(otelhttp.ReadEvents, otelhttp.WriteEvents),
						))
						if err != nil {
							return nil, err
						}
						lc, _ := lifecycle.FromContext(ctx)
						lc.OnPostRun(lifecycle.HookFunc(func(ctx context.Context) error {
							return s.Shutdown(ctx)
						}))

						var base bedrock.App = internalhttp.NewApp(ls, s)
						base = app.Recover(base)
						base = app.InterruptOn(base, os.Kill, os.Interrupt, syscall.SIGTERM)
						return base, nil
					}),
				),
			),
			&lifecycle.Context{},
		),
	)

	runner := resin.NewRunner(builder)
	runner.Run(context.Background(), cfg)
}
