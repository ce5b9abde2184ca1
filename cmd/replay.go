// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jblav/mactl/pkg/jbl"
	"github.com/jblav/mactl/pkg/receiver"
)

var (
	replayShowTX  bool
	replayShowAll bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Decode a traffic capture recorded with 'monitor --record'",
	Long: `Read a CBOR capture file and decode it as if the traffic were live.

Inbound chunks are reassembled and decoded exactly as a session would;
outbound command frames are shown with --tx. A statistics summary is printed
at the end. A truncated capture is decoded up to the damaged record.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayShowTX, "tx", false, "Also show outbound command frames")
	replayCmd.Flags().BoolVar(&replayShowAll, "show-all", true, "Show all frames (not just errors)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	records, readErr := jbl.ReadRecords(f)
	replayRecords(os.Stdout, records, replayShowTX, replayShowAll)

	if readErr != nil {
		return fmt.Errorf("capture damaged after %d records: %w", len(records), readErr)
	}
	return nil
}

// replayRecords feeds recorded inbound chunks through a framer and prints
// what a live monitor would have printed
func replayRecords(out io.Writer, records []jbl.Record, showTX, all bool) {
	framer := receiver.NewFramer(0)
	mon := newFrameMonitor(out, all)

	for _, rec := range records {
		switch rec.Direction {
		case jbl.DirOutbound:
			if showTX {
				fmt.Fprintf(out, "[%s] TX %s\n", rec.Time().Format("15:04:05.000"), jbl.FormatHex(rec.Raw))
			}
		case jbl.DirInbound:
			for _, res := range framer.Push(rec.Raw) {
				mon.handle(receiver.Event{FrameResult: res, Time: rec.Time()})
			}
		}
	}

	if n := framer.Buffered(); n > 0 {
		fmt.Fprintf(out, "(%d bytes left incomplete at end of capture)\n", n)
	}
	mon.printStatistics()
}
