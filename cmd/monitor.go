// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jblav/mactl/internal/metrics"
	"github.com/jblav/mactl/pkg/jbl"
	"github.com/jblav/mactl/pkg/receiver"
)

var (
	showAll       bool
	statsInterval int
	recordPath    string
	metricsAddr   string
	passive       bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Decode inbound frames and detect malformed responses",
	Long: `Continuously decode and validate responses as they arrive from the receiver.

This command performs the initialization handshake (unless --passive), keeps the
link alive with heartbeats, and validates each inbound frame:
  - Framing errors (bad start or end markers, length mismatches)
  - Rejections (COMMAND_NOT_RECOGNIZED, PARAMETER_NOT_RECOGNIZED, ...)
  - Anomalous values (volume > 99, unknown input source, unknown model)
  - Statistics and trends (frame rate, error rate, discarded bytes)

By default, only errors and rejections are displayed. Use --show-all to display
every status update too.

Traffic can be captured to a CBOR file with --record for later use with
'mactl replay', and link counters can be exposed to Prometheus with
--metrics-addr.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	monitorCmd.Flags().StringVar(&recordPath, "record", "", "Capture raw traffic to this CBOR file")
	monitorCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9100)")
	monitorCmd.Flags().BoolVar(&passive, "passive", false, "Listen only; skip the handshake and heartbeats")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	conn, connInfo, err := OpenConnection(ctx, cfg)
	if err != nil {
		return err
	}

	opts := []receiver.Option{receiver.WithoutHandshake()}
	if recordPath != "" {
		f, err := os.Create(recordPath)
		if err != nil {
			conn.Close()
			return fmt.Errorf("create capture file: %w", err)
		}
		defer f.Close()
		opts = append(opts, receiver.WithRecorder(jbl.NewRecorder(f)))
	}

	var link *metrics.LinkMetrics
	addr := metricsAddr
	if addr == "" {
		addr = cfg.Metrics.Addr
	}
	if addr != "" {
		reg := metrics.NewRegistry()
		link = metrics.NewLinkMetrics(reg)
		opts = append(opts, receiver.WithRequestObserver(link.ObserveRequest))
		go func() {
			if err := metrics.Serve(ctx, addr, cfg.Metrics.Path, reg); err != nil {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	sess := receiver.NewSession(conn, sessionOptions(cfg, opts...)...)
	defer sess.Close()

	events, unsubscribe := sess.Subscribe(256)
	defer unsubscribe()

	mon := newFrameMonitor(os.Stdout, showAll)
	mon.link = link

	fmt.Printf("mactl - Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	if recordPath != "" {
		fmt.Printf("Recording: %s\n", recordPath)
	}
	if addr != "" {
		fmt.Printf("Metrics: http://%s%s\n", addr, cfg.Metrics.Path)
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	if !passive {
		model, err := sess.Initialize(ctx)
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
		fmt.Printf("Receiver model: %s\n\n", model)
		if mon.link != nil {
			mon.link.SetModel(model)
		}
		go sess.RunHeartbeat(ctx, cfg.Session.HeartbeatInterval)
	}

	interval := time.Duration(statsInterval) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}
	statsTicker := time.NewTicker(interval)
	defer statsTicker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				mon.printStatistics()
				if err := sess.Err(); err != nil && !errors.Is(err, receiver.ErrSessionClosed) {
					return err
				}
				fmt.Println("Connection closed")
				return nil
			}
			mon.handle(ev)

		case <-statsTicker.C:
			mon.printStatistics()

		case <-ctx.Done():
			mon.printStatistics()
			return nil
		}
	}
}

// frameMonitor prints and counts inbound events
type frameMonitor struct {
	out     io.Writer
	stats   *jbl.Statistics
	showAll bool
	link    *metrics.LinkMetrics

	// Sync tracking - ignore decode errors until first valid frame
	synchronized bool
	preSyncBytes int
}

func newFrameMonitor(out io.Writer, showAll bool) *frameMonitor {
	return &frameMonitor{
		out:     out,
		stats:   jbl.NewStatistics(),
		showAll: showAll,
	}
}

func (m *frameMonitor) handle(ev receiver.Event) {
	if m.link != nil {
		m.link.ObserveEvent(ev)
	}
	m.stats.AddDiscarded(ev.Skipped)

	if ev.Err != nil {
		if !m.synchronized {
			// Not synced yet, just count invalid bytes
			m.preSyncBytes += ev.Skipped + 1
			return
		}
		m.stats.Update(nil, ev.Err, nil)
		m.printDecodeError(ev)
		return
	}

	if !m.synchronized {
		m.synchronized = true
		m.preSyncBytes += ev.Skipped
		if m.preSyncBytes > 0 {
			fmt.Fprintf(m.out, "[SYNC] Synchronized after skipping %d invalid bytes\n\n", m.preSyncBytes)
		} else {
			fmt.Fprintf(m.out, "[SYNC] Synchronized\n\n")
		}
	}

	r := ev.Response
	validationErrors := jbl.ValidateResponse(r)
	m.stats.Update(r, nil, validationErrors)

	if len(validationErrors) > 0 {
		m.printValidationErrors(r, validationErrors)
	} else if m.showAll {
		fmt.Fprint(m.out, jbl.FormatResponse(r))
	}
}

// printDecodeError prints a framing error in highlighted format
func (m *frameMonitor) printDecodeError(ev receiver.Event) {
	timestamp := ev.Time.Format("15:04:05.000")
	fmt.Fprintf(m.out, "[%s] \033[1;31mDECODE ERROR:\033[0m %v\n", timestamp, ev.Err)
	fmt.Fprintf(m.out, "  Raw: %s\n", jbl.FormatHex(ev.Raw))
	fmt.Fprintf(m.out, "  >>> FRAME DROPPED <<<\n\n")
}

// printValidationErrors prints the anomalies found in a response
func (m *frameMonitor) printValidationErrors(r *jbl.Response, errs []jbl.ValidationError) {
	timestamp := r.Timestamp().Format("15:04:05.000")

	label := "\033[1;33mVALIDATION ERROR:\033[0m"
	if r.IsRejection() {
		label = "\033[1;35mREJECTED:\033[0m"
	}
	fmt.Fprintf(m.out, "[%s] %s %s (0x%02X) %s\n", timestamp, label, r.Command(), uint8(r.Command()), r.Code())

	for i, err := range errs {
		switch err.Type {
		case jbl.AnomalyValueOutOfRange:
			fmt.Fprintf(m.out, "  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
		case jbl.AnomalyRejected:
			fmt.Fprintf(m.out, "  Issue %d: %s\n", i+1, err.Message)
		default:
			fmt.Fprintf(m.out, "  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)
		}
	}

	if len(r.Data()) > 0 {
		fmt.Fprintf(m.out, "  Data: %s\n", jbl.FormatHex(r.Data()))
	}
	fmt.Fprintln(m.out)
}

func (m *frameMonitor) printStatistics() {
	fmt.Fprintln(m.out)
	fmt.Fprint(m.out, m.stats.String())
	fmt.Fprintln(m.out)
}
