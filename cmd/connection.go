// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/jblav/mactl/internal/config"
	"github.com/jblav/mactl/pkg/jbl"
	"github.com/jblav/mactl/pkg/receiver"
)

// PasswordEnv names the environment variable holding the WebSocket password
const PasswordEnv = "MACTL_PASSWORD"

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return pw, nil
	}

	// Prompt user for password (hide input)
	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr) // newline after password
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr) // newline after password
	return string(passwordBytes), nil
}

// newDialer returns a dial function for the configured transport and a
// description of the endpoint. The WebSocket password is resolved once here
// so reconnects do not prompt again.
func newDialer(c *config.Config) (receiver.DialFunc, string, error) {
	timeout := c.Session.ConnectTimeout

	switch c.Receiver.Transport {
	case config.TransportWebSocket:
		if c.WebSocket.URL == "" {
			return nil, "", errors.New("websocket transport needs --url")
		}
		password := ""
		if c.WebSocket.Username != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}
		dial := func(ctx context.Context) (receiver.Conn, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return receiver.DialWebSocket(ctx, c.WebSocket.URL, c.WebSocket.Username, password, c.WebSocket.NoSSLVerify)
		}
		return dial, fmt.Sprintf("WebSocket: %s", c.WebSocket.URL), nil

	case config.TransportSerial:
		if c.Serial.Port == "" {
			return nil, "", errors.New("serial transport needs --serial-port")
		}
		dial := func(ctx context.Context) (receiver.Conn, error) {
			return receiver.OpenSerial(c.Serial.Port, c.Serial.Baud)
		}
		return dial, fmt.Sprintf("Serial: %s @ %d baud", c.Serial.Port, c.Serial.Baud), nil

	default:
		if c.Receiver.Host == "" {
			return nil, "", errors.New("either --host, --serial-port or --url must be specified")
		}
		addr := c.Receiver.Address()
		dial := func(ctx context.Context) (receiver.Conn, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return receiver.DialTCP(ctx, addr)
		}
		return dial, fmt.Sprintf("TCP: %s", addr), nil
	}
}

// OpenConnection opens a TCP, serial or WebSocket connection based on config
func OpenConnection(ctx context.Context, c *config.Config) (receiver.Conn, string, error) {
	dial, connInfo, err := newDialer(c)
	if err != nil {
		return nil, "", err
	}

	conn, err := dial(ctx)
	if err != nil {
		return nil, "", err
	}
	logger.Info("connected", zap.String("endpoint", connInfo))
	return conn, connInfo, nil
}

// sessionOptions maps the session config onto receiver options
func sessionOptions(c *config.Config, extra ...receiver.Option) []receiver.Option {
	opts := []receiver.Option{
		receiver.WithLogger(logger.Named("session")),
		receiver.WithRequestTimeout(c.Session.RequestTimeout),
		receiver.WithRateLimit(c.Session.CommandRate, c.Session.CommandBurst),
		receiver.WithMaxBuffered(c.Session.MaxBuffered),
	}
	return append(opts, extra...)
}

func backoffConfig(c *config.Config) receiver.BackoffConfig {
	return receiver.BackoffConfig{
		InitialDelay: c.Backoff.Initial,
		Multiplier:   c.Backoff.Multiplier,
		MaxDelay:     c.Backoff.Max,
		Jitter:       c.Backoff.Jitter,
	}
}

// openSession connects, wraps the connection in a session and performs the
// initialization handshake.
func openSession(ctx context.Context, extra ...receiver.Option) (*receiver.Session, string, error) {
	conn, connInfo, err := OpenConnection(ctx, cfg)
	if err != nil {
		return nil, "", err
	}

	sess := receiver.NewSession(conn, sessionOptions(cfg, extra...)...)
	model, err := sess.Initialize(ctx)
	if err != nil {
		sess.Close()
		return nil, "", fmt.Errorf("initialize: %w", err)
	}
	return sess, fmt.Sprintf("%s (%s)", connInfo, model), nil
}

// checkModel warns when the connected model does not list op.
func checkModel(sess *receiver.Session, op jbl.Operation) {
	if model, ok := sess.Model(); ok && !op.Models.Supports(model) {
		fmt.Fprintf(os.Stderr, "warning: %s is not supported on %s (models: %s)\n", op.Name, model, op.Models)
	}
}
