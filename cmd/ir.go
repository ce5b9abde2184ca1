// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jblav/mactl/pkg/jbl"
)

var irNoWait bool

var irCmd = &cobra.Command{
	Use:   "ir <name|0xCODE>",
	Short: "Simulate an IR remote key press",
	Long: `Send a SIMULATE_IR command for one remote control key.

The key may be a table name (VOL_UP, HDMI_1, PARTY_ON), a remote command
alias (VOLUME_UP, CURSOR_ENTER, POWER_TOGGLE) or a raw 24-bit code
(0x010E03). Run 'mactl catalog ir' for the table.`,
	Args: cobra.ExactArgs(1),
	RunE: runIR,
}

func init() {
	rootCmd.AddCommand(irCmd)
	irCmd.Flags().BoolVar(&irNoWait, "no-wait", false, "Do not wait for the echo")
}

func runIR(cmd *cobra.Command, args []string) error {
	code, ok := jbl.LookupIR(args[0])
	if !ok {
		return fmt.Errorf("unknown IR key %q (see 'mactl catalog ir')", args[0])
	}
	frame := jbl.EncodeIR(code)

	ctx := cmd.Context()
	sess, connInfo, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	if key, ok := code.Key(); ok {
		if model, ok := sess.Model(); ok && !key.Models.Supports(model) {
			fmt.Fprintf(os.Stderr, "warning: IR key %s is not supported on %s\n", key.Name, model)
		}
	}

	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("IR %s (0x%06X): %s\n", code, uint32(code), jbl.FormatHex(frame))

	return runFrame(ctx, sess, frame, jbl.CmdSimulateIR, irNoWait)
}
