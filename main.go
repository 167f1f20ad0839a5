// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/cppypanda/geocoding/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
