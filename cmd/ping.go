// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	pingTimeout  int
	pingCount    int
	pingInterval time.Duration
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure round trips with HEARTBEAT commands",
	Long: `Send HEARTBEAT commands to the receiver and wait for each response.

The receiver answers a heartbeat with an empty status update and resets its
auto-standby timer, so this is safe to run against a receiver in use.

This is useful for verifying:
  - The connection is established (TCP, serial or WebSocket bridge)
  - The initialization handshake succeeds
  - Bidirectional frame flow works
  - Round trip latency

Exit codes:
  0 - All pings successful
  1 - One or more pings failed/timed out
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingTimeout, "timeout", 5, "Timeout in seconds for each ping")
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
	pingCmd.Flags().DurationVar(&pingInterval, "interval", 500*time.Millisecond, "Delay between pings")
}

// pingStats summarizes heartbeat round trips
type pingStats struct {
	sent     int
	received int
	min      time.Duration
	max      time.Duration
	total    time.Duration
}

func (p *pingStats) add(rtt time.Duration) {
	if p.received == 0 || rtt < p.min {
		p.min = rtt
	}
	if rtt > p.max {
		p.max = rtt
	}
	p.total += rtt
	p.received++
}

func (p *pingStats) loss() float64 {
	if p.sent == 0 {
		return 0
	}
	return float64(p.sent-p.received) / float64(p.sent) * 100
}

func (p *pingStats) String() string {
	s := fmt.Sprintf("%d pings sent, %d responses received, %.0f%% loss\n", p.sent, p.received, p.loss())
	if p.received > 0 {
		avg := p.total / time.Duration(p.received)
		s += fmt.Sprintf("rtt min/avg/max = %v/%v/%v\n",
			p.min.Round(time.Microsecond), avg.Round(time.Microsecond), p.max.Round(time.Microsecond))
	}
	return s
}

func runPing(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, connInfo, err := openSession(ctx)
	if err != nil {
		return &ExitError{Code: 2, Err: fmt.Errorf("connection error: %w", err)}
	}
	defer sess.Close()

	fmt.Printf("mactl - Heartbeat Ping\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds per ping\n", pingTimeout)
	fmt.Printf("Count: %d pings\n\n", pingCount)

	var stats pingStats
	for i := 1; i <= pingCount; i++ {
		fmt.Printf("Ping %d/%d: ", i, pingCount)
		stats.sent++

		pctx, cancel := context.WithTimeout(ctx, time.Duration(pingTimeout)*time.Second)
		rtt, err := sess.Heartbeat(pctx)
		cancel()

		switch {
		case err == nil:
			fmt.Printf("HEARTBEAT ok, rtt=%v\n", rtt.Round(time.Millisecond))
			stats.add(rtt)
		case ctx.Err() != nil:
			fmt.Printf("INTERRUPTED\n")
		case pctx.Err() != nil:
			fmt.Printf("TIMEOUT (no response in %ds)\n", pingTimeout)
		default:
			fmt.Printf("FAILED: %v\n", err)
		}

		if ctx.Err() != nil {
			break
		}

		// Small delay between pings
		if i < pingCount {
			select {
			case <-ctx.Done():
			case <-time.After(pingInterval):
			}
		}
	}

	// Summary
	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Print(stats.String())

	if stats.received < stats.sent {
		return exitf(1, "%d of %d pings failed", stats.sent-stats.received, stats.sent)
	}
	return nil
}
