// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/jblav/mactl/internal/config"
	"github.com/jblav/mactl/internal/logging"
	"github.com/jblav/mactl/pkg/jbl"
	"github.com/jblav/mactl/pkg/receiver"
)

var (
	cfgFile string

	// v collects defaults, config file, MACTL_ environment and flags
	v = config.New()

	// cfg and logger are populated before any subcommand runs
	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "mactl",
	Short: "JBL MA-series AV receiver control tool",
	Long: `mactl - A CLI tool for controlling and monitoring JBL MA-series AV receivers
(MA510, MA710, MA7100HP, MA9100HP) over the binary IP control protocol.

Provides commands for sending catalog operations, simulating IR remote keys,
monitoring status updates, and decoding captured traffic.

Connection modes:
  TCP:       --host 192.168.1.20 [--port 50000]
  Serial:    --serial-port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

Settings may also come from a config file (--config, or mactl.yaml in the
current directory or $HOME/.config/mactl) and MACTL_ environment variables,
e.g. MACTL_RECEIVER_HOST.

For WebSocket authentication, the password is read from the MACTL_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "Config file (yaml, toml or json)")

	// TCP connection flags
	flags.String("transport", "", "Transport: tcp, serial or websocket (inferred when empty)")
	flags.StringP("host", "H", "", "Receiver host name or IP address")
	flags.IntP("port", "p", receiver.DefaultPort, "Receiver TCP port")

	// Serial connection flags
	flags.String("serial-port", "", "Serial port device")
	flags.IntP("baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	flags.StringP("url", "u", "", "WebSocket URL (ws:// or wss://)")
	flags.String("username", "", "Username for HTTP Basic auth")
	flags.Bool("no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Logging flags
	flags.String("log-level", "warn", "Log level: debug, info, warn, error")
	flags.String("log-format", "console", "Log format: console or json")
	flags.String("log-file", "", "Also write logs to this file (rotated)")

	bindFlags(flags, map[string]string{
		"transport":     "receiver.transport",
		"host":          "receiver.host",
		"port":          "receiver.port",
		"serial-port":   "serial.port",
		"baud":          "serial.baud",
		"url":           "websocket.url",
		"username":      "websocket.username",
		"no-ssl-verify": "websocket.noSSLVerify",
		"log-level":     "logging.level",
		"log-format":    "logging.format",
		"log-file":      "logging.file.filename",
	})
}

func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	cfg = c

	l, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = l
	jbl.SetLogger(logger.Named("jbl"))

	logger.Debug("config loaded",
		zap.String("config", v.ConfigFileUsed()),
		zap.String("transport", cfg.Receiver.Transport))
	return nil
}

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func exitf(code int, format string, args ...any) error {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

// Execute runs the root command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	_ = logger.Sync()
	return err
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}
