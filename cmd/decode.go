// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jblav/mactl/pkg/jbl"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <hex>...",
	Short: "Decode a response frame given as hex",
	Long: `Decode one inbound frame offline and report why it is invalid, if it is.

The bytes may be given as one string or several arguments, with optional
spaces, colons or 0x prefixes:

  mactl decode 02 23 06 05 01 32 0D
  mactl decode 0x02:0x23:0x06:0x05:0x01:0x32:0x0D
  mactl decode 022306050132 0D`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	raw, err := parseHex(strings.Join(args, " "))
	if err != nil {
		return err
	}
	if !describeFrame(os.Stdout, raw) {
		return exitf(1, "invalid frame")
	}
	return nil
}

// parseHex accepts "02 23 0D", "02:23:0D", "0x02 0x23" and "02230D"
func parseHex(s string) ([]byte, error) {
	s = strings.ReplaceAll(strings.ToLower(s), "0x", "")
	s = strings.NewReplacer(" ", "", ":", "", ",", "", "\t", "", "\n", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return b, nil
}

// describeFrame prints a decoded frame or the reason it failed and reports
// whether the frame was valid
func describeFrame(out io.Writer, raw []byte) bool {
	fmt.Fprintf(out, "Raw: %s (%d bytes)\n", jbl.FormatHex(raw), len(raw))

	r, err := jbl.DecodeFrame(raw)
	if err != nil {
		fmt.Fprintf(out, "INVALID (%s): %v\n", jbl.FailureReason(err), err)
		return false
	}

	fmt.Fprint(out, jbl.FormatResponse(r))
	for _, v := range jbl.ValidateResponse(r) {
		fmt.Fprintf(out, "  Anomaly (%s): %s\n", v.Type, v.Message)
	}
	return true
}
