// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// mactl - JBL MA-series AV receiver control tool
//
// A CLI tool for controlling JBL MA-series receivers and decoding their
// binary IP control protocol in human-readable format.

package main

import (
	"os"

	"github.com/jblav/mactl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
