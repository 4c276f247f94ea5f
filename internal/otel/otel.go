// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package otel initializes the global OTel SDK providers from config.
package otel

import (
	"context"
	"os"
	"path/filepath"

	"github.com/resinhq/resin/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Initialize configures the global tracer, meter and logger providers.
// Signals whose exporter target is empty are left on the default no-op
// providers.
func Initialize(ctx context.Context, cfg config.OTel) error {
	r, err := detectResource(ctx, cfg.Resource)
	if err != nil {
		return err
	}

	conns := make(map[string]*grpc.ClientConn)

	if target := cfg.Trace.Exporter.Target; target != "" {
		cc, err := clientConn(conns, target)
		if err != nil {
			return err
		}

		exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(cc))
		if err != nil {
			return err
		}

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(cfg.Trace.ExportInterval)),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.Trace.SamplingRatio)),
			sdktrace.WithResource(r),
		)
		otel.SetTracerProvider(tp)
	}

	if target := cfg.Metric.Exporter.Target; target != "" {
		cc, err := clientConn(conns, target)
		if err != nil {
			return err
		}

		exp, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(cc))
		if err != nil {
			return err
		}

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(
				exp,
				sdkmetric.WithInterval(cfg.Metric.ExportInterval),
			)),
			sdkmetric.WithResource(r),
		)
		otel.SetMeterProvider(mp)
	}

	if target := cfg.Log.Exporter.Target; target != "" {
		cc, err := clientConn(conns, target)
		if err != nil {
			return err
		}

		exp, err := otlploggrpc.New(ctx, otlploggrpc.WithGRPCConn(cc))
		if err != nil {
			return err
		}

		lp := sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(
				exp,
				sdklog.WithExportInterval(cfg.Log.ExportInterval),
			)),
			sdklog.WithResource(r),
		)
		global.SetLoggerProvider(lp)
	}

	return nil
}

func clientConn(conns map[string]*grpc.ClientConn, target string) (*grpc.ClientConn, error) {
	if cc, ok := conns[target]; ok {
		return cc, nil
	}

	cc, err := grpc.NewClient(
		target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, err
	}
	conns[target] = cc
	return cc, nil
}

func detectResource(ctx context.Context, cfg config.Resource) (*resource.Resource, error) {
	return resource.Detect(
		ctx,
		resource.StringDetector(semconv.SchemaURL, semconv.HostNameKey, os.Hostname),
		resource.StringDetector(semconv.SchemaURL, semconv.ServiceNameKey, func() (string, error) {
			if cfg.ServiceName != "" {
				return cfg.ServiceName, nil
			}
			executable, err := os.Executable()
			if err != nil {
				return "unknown_service:go", nil
			}
			return "unknown_service:" + filepath.Base(executable), nil
		}),
		resource.StringDetector(semconv.SchemaURL, semconv.ServiceVersionKey, func() (string, error) {
			return cfg.ServiceVersion, nil
		}),
	)
}
