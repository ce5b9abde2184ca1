// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package receiver

import (
	"time"

	"go.uber.org/zap"

	"github.com/jblav/mactl/pkg/jbl"
)

// Config holds the session configuration.
type Config struct {
	// Logger receives session diagnostics (optional)
	Logger *zap.Logger

	// RequestTimeout bounds Request when the caller's context has no deadline
	RequestTimeout time.Duration

	// CommandRate is the sustained number of commands per second; zero disables pacing
	CommandRate float64

	// CommandBurst is the number of commands that may be sent back to back
	CommandBurst int

	// MaxBuffered bounds the inbound reassembly buffer
	MaxBuffered int

	// Recorder captures every frame written and every chunk read (optional)
	Recorder *jbl.Recorder

	// RequireInitialization rejects commands until Initialize has succeeded
	RequireInitialization bool

	// OnRequest is called when a request completes (optional)
	OnRequest func(cmd jbl.CommandID, elapsed time.Duration, err error)
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Logger:                zap.NewNop(),
		RequestTimeout:        3 * time.Second,
		CommandRate:           10,
		CommandBurst:          4,
		MaxBuffered:           DefaultMaxBuffered,
		RequireInitialization: true,
	}
}

// Option is a functional option for configuring a Session.
type Option func(*Config)

// WithLogger sets the logger for session diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithRequestTimeout sets the default request timeout.
//
// Example:
//
//	s := receiver.NewSession(conn, receiver.WithRequestTimeout(5*time.Second))
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.RequestTimeout = timeout
	}
}

// WithRateLimit paces outgoing commands with a token bucket.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Config) {
		c.CommandRate = perSecond
		c.CommandBurst = burst
	}
}

// WithMaxBuffered bounds the inbound reassembly buffer.
func WithMaxBuffered(n int) Option {
	return func(c *Config) {
		c.MaxBuffered = n
	}
}

// WithRecorder captures traffic to a CBOR stream.
func WithRecorder(r *jbl.Recorder) Option {
	return func(c *Config) {
		c.Recorder = r
	}
}

// WithoutHandshake lets commands through before Initialize, for passive
// monitoring and for links where another client already initialized the
// receiver.
func WithoutHandshake() Option {
	return func(c *Config) {
		c.RequireInitialization = false
	}
}

// WithRequestObserver reports the outcome and latency of every request.
func WithRequestObserver(fn func(cmd jbl.CommandID, elapsed time.Duration, err error)) Option {
	return func(c *Config) {
		c.OnRequest = fn
	}
}
