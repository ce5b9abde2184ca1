// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jblav/mactl/pkg/jbl"
	"github.com/jblav/mactl/pkg/receiver"
)

var probeTimeout int

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Test connection by performing the initialization handshake",
	Long: `Connect to the receiver and wait for a valid INITIALIZATION response.

This command connects over TCP, serial or WebSocket, sends the initialization
request and waits for a structurally valid reply carrying the model id. Bytes
that do not form a frame are skipped.

Exit codes:
  0 - Receiver answered before timeout
  1 - Timeout reached, or the receiver rejected the handshake
  2 - Connection error

Useful for testing connectivity to a receiver or a serial/WebSocket bridge.`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().IntVar(&probeTimeout, "timeout", 10, "Timeout in seconds to wait for a response")
}

func runProbe(cmd *cobra.Command, args []string) error {
	timeout := time.Duration(probeTimeout) * time.Second
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	conn, connInfo, err := OpenConnection(ctx, cfg)
	if err != nil {
		return &ExitError{Code: 2, Err: fmt.Errorf("connection error: %w", err)}
	}

	fmt.Printf("mactl - Probe\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", probeTimeout)
	fmt.Printf("Waiting for INITIALIZATION response...\n\n")

	sess := receiver.NewSession(conn, sessionOptions(cfg, receiver.WithRequestTimeout(timeout))...)
	defer sess.Close()

	events, unsubscribe := sess.Subscribe(64)
	defer unsubscribe()

	start := time.Now()
	r, err := sess.Request(ctx, jbl.Initialize(), jbl.CmdInitialization)
	rtt := time.Since(start)

	skipped := 0
drain:
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				break drain
			}
			skipped += ev.Skipped
		default:
			break drain
		}
	}
	if skipped > 0 {
		fmt.Printf("(skipped %d invalid bytes before sync)\n", skipped)
	}

	var rej *jbl.RejectionError
	switch {
	case errors.As(err, &rej):
		return exitf(1, "REJECTED: %s", rej)
	case errors.Is(err, context.DeadlineExceeded):
		return exitf(1, "TIMEOUT: no valid response within %d seconds", probeTimeout)
	case err != nil:
		return &ExitError{Code: 2, Err: fmt.Errorf("read error: %w", err)}
	}

	fmt.Printf("SUCCESS: Received valid response\n")
	fmt.Printf("  Command: %s (0x%02X)\n", r.Command(), uint8(r.Command()))
	fmt.Printf("  Code: %s (0x%02X)\n", r.Code(), uint8(r.Code()))
	fmt.Printf("  Length: %d bytes\n", len(r.Data()))
	if model, ok := r.Model(); ok {
		fmt.Printf("  Model: %s (0x%02X)\n", model, uint8(model))
		fmt.Printf("  Identifier: %s\n", cfg.Receiver.Identifier())
	}
	fmt.Printf("  RTT: %v\n", rtt.Round(time.Millisecond))
	return nil
}
