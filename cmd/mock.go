// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jblav/mactl/pkg/jbl"
	"github.com/jblav/mactl/pkg/receiver"
)

var (
	mockListen      string
	mockModel       string
	mockVolumeDrift time.Duration
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Run a simulated receiver on a TCP address",
	Long: `Serve the IP control protocol from an in-process fake receiver.

The mock answers the initialization handshake with the chosen model, stores
and echoes set values, answers queries from its state and rejects what a real
receiver would reject. Point other mactl commands at it:

  mactl mock --listen 127.0.0.1:50000 --model MA710 &
  mactl --host 127.0.0.1 send volume_set 40

With --volume-drift the mock pushes an unsolicited volume status update at that
interval, as a receiver does when someone turns the front-panel knob.`,
	RunE: runMock,
}

func init() {
	rootCmd.AddCommand(mockCmd)
	mockCmd.Flags().StringVar(&mockListen, "listen", ":50000", "TCP address to listen on")
	mockCmd.Flags().StringVar(&mockModel, "model", "MA710", "Model to report (MA510, MA710, MA7100HP, MA9100HP)")
	mockCmd.Flags().DurationVar(&mockVolumeDrift, "volume-drift", 0, "Push a volume change at this interval (0 disables)")
}

func parseModel(name string) (jbl.Model, error) {
	for _, m := range jbl.Models() {
		if strings.EqualFold(m.String(), name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown model %q", name)
}

func runMock(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	model, err := parseModel(mockModel)
	if err != nil {
		return err
	}

	mock := receiver.NewMockReceiver(model, logger.Named("mock"))

	if mockVolumeDrift > 0 {
		go func() {
			ticker := time.NewTicker(mockVolumeDrift)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					v, _ := mock.Value(jbl.CmdVolume)
					mock.Set(jbl.CmdVolume, (v+1)%(jbl.MaxVolume+1))
				}
			}
		}()
	}

	return mock.ListenAndServe(ctx, mockListen, func(addr net.Addr) {
		fmt.Printf("mactl - Mock Receiver\n")
		fmt.Printf("Model: %s\n", model)
		fmt.Printf("Listening: %s\n", addr)
		fmt.Printf("Press Ctrl+C to exit\n\n")
	})
}
