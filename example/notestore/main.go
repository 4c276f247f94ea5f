// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"bytes"
	_ "embed"

	"github.com/resinhq/resin/example/notestore/app"
	"github.com/resinhq/resin/httpserver"
)

//go:embed config.yaml
var configBytes []byte

func main() {
	httpserver.Run(bytes.NewReader(configBytes), app.Init)
}
