// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config defines the configuration types shared by resin applications.
package config

import (
	"time"
)

// Resource identifies the service in exported telemetry.
type Resource struct {
	ServiceName    string `config:"service_name"`
	ServiceVersion string `config:"service_version"`
}

// OTLP configures an OTLP gRPC exporter target. An empty target disables
// the corresponding signal.
type OTLP struct {
	Target string `config:"target"`
}

// Trace configures span export.
type Trace struct {
	Exporter       OTLP          `config:"exporter"`
	SamplingRatio  float64       `config:"sampling_ratio"`
	ExportInterval time.Duration `config:"export_interval"`
}

// Metric configures metric export.
type Metric struct {
	Exporter       OTLP          `config:"exporter"`
	ExportInterval time.Duration `config:"export_interval"`
}

// Log configures log record export.
type Log struct {
	Exporter       OTLP          `config:"exporter"`
	ExportInterval time.Duration `config:"export_interval"`
}

// OTel is the root telemetry configuration.
type OTel struct {
	Resource Resource `config:"resource"`
	Trace    Trace    `config:"trace"`
	Metric   Metric   `config:"metric"`
	Log      Log      `config:"log"`
}
