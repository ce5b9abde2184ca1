// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jblav/mactl/pkg/jbl"
	"github.com/jblav/mactl/pkg/receiver"
)

var sendNoWait bool

var sendCmd = &cobra.Command{
	Use:   "send <operation> [value]",
	Short: "Run a named command catalog operation",
	Long: `Send one operation from the command catalog and print the receiver's response.

Examples:
  mactl send power_on
  mactl send volume_set 35
  mactl send treble_set -- -2
  mactl send input_set hdmi3
  mactl send surround_set "dolby surround"
  mactl send version_query dsp

Run 'mactl catalog commands' for the full list. With --no-wait the frame is
written and the command exits without waiting for a response.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().BoolVar(&sendNoWait, "no-wait", false, "Do not wait for a response")
}

func runSend(cmd *cobra.Command, args []string) error {
	op, ok := jbl.LookupOperation(args[0])
	if !ok {
		return fmt.Errorf("unknown operation %q (see 'mactl catalog commands')", args[0])
	}

	arg, err := parseOperationArg(op, args[1:])
	if err != nil {
		return err
	}
	frame := op.Frame(arg)

	ctx := cmd.Context()
	sess, connInfo, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	checkModel(sess, op)
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Sending %s: %s\n", op.Name, jbl.FormatHex(frame))

	return runFrame(cmd.Context(), sess, frame, op.Command, sendNoWait)
}

// runFrame sends frame and prints the response unless noWait is set
func runFrame(ctx context.Context, sess *receiver.Session, frame []byte, id jbl.CommandID, noWait bool) error {
	if noWait {
		return sess.Send(ctx, frame)
	}

	start := time.Now()
	r, err := sess.Request(ctx, frame, id)
	var rej *jbl.RejectionError
	if err != nil && !errors.As(err, &rej) {
		return err
	}

	fmt.Print(jbl.FormatResponse(r))
	fmt.Printf("  rtt=%v\n", time.Since(start).Round(time.Millisecond))
	return err
}

// parseOperationArg converts the optional command-line value for op
func parseOperationArg(op jbl.Operation, args []string) (int, error) {
	if op.Arg == jbl.ArgNone {
		if len(args) > 0 {
			return 0, fmt.Errorf("%s takes no value", op.Name)
		}
		return 0, nil
	}
	if len(args) == 0 {
		if op.Arg == jbl.ArgVersion {
			return int(jbl.VersionIPControl), nil
		}
		return 0, fmt.Errorf("%s needs a value", op.Name)
	}
	value := args[0]

	switch op.Arg {
	case jbl.ArgNumber:
		n, err := strconv.Atoi(strings.TrimPrefix(value, "+"))
		if err != nil {
			return 0, fmt.Errorf("invalid number %q for %s", value, op.Name)
		}
		return n, nil

	case jbl.ArgInput:
		src, ok := jbl.ParseInputSource(value)
		if !ok {
			return 0, fmt.Errorf("unknown input source %q (see 'mactl catalog inputs')", value)
		}
		return int(src), nil

	case jbl.ArgSurround:
		mode, ok := jbl.ParseSurroundMode(value)
		if !ok {
			return 0, fmt.Errorf("unknown surround mode %q (see 'mactl catalog surround')", value)
		}
		return int(mode), nil

	case jbl.ArgVersion:
		vt, ok := jbl.ParseVersionType(value)
		if !ok {
			return 0, fmt.Errorf("unknown version type %q (use ip, host, dsp, osd or net)", value)
		}
		return int(vt), nil

	case jbl.ArgIRCode:
		code, ok := jbl.LookupIR(value)
		if !ok {
			return 0, fmt.Errorf("unknown IR key %q (see 'mactl catalog ir')", value)
		}
		return int(code), nil
	}

	return 0, fmt.Errorf("unsupported argument kind %d", op.Arg)
}
