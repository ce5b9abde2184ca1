// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jblav/mactl/pkg/jbl"
	"github.com/jblav/mactl/pkg/receiver"
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI for controlling a receiver",
	Long: `Control a JBL MA-series receiver via an interactive terminal UI.

This command provides a TUI for monitoring and controlling a receiver
connected via TCP, serial or a WebSocket bridge.

Features:
  - Initialization handshake and model detection
  - Live status (power, volume, input, surround, EQ) from status updates
  - Every catalog operation, with filtering (/)
  - Remote keys: +/- volume, m mute, p power
  - Statistics tracking
  - Event logging
  - Heartbeats and automatic reconnection on connection loss

Tab switches between the operation list and the value input.`,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
}

// statusQueries are sent after every (re)connect to fill the status panel
var statusQueries = []jbl.CommandID{
	jbl.CmdPower, jbl.CmdVolume, jbl.CmdMute, jbl.CmdInputSource, jbl.CmdSurroundMode,
	jbl.CmdTrebleEQ, jbl.CmdBassEQ, jbl.CmdRoomEQ, jbl.CmdDialogEnhanced,
	jbl.CmdDolbyAudioMode, jbl.CmdDisplayDim,
}

// connectionManager handles session lifecycle and reconnection
type connectionManager struct {
	dial     receiver.DialFunc
	connInfo string
	backoff  receiver.BackoffConfig

	mu   sync.RWMutex
	sess *receiver.Session

	// send delivers messages to the TUI program
	send func(tea.Msg)
}

func (cm *connectionManager) getSession() *receiver.Session {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.sess
}

func (cm *connectionManager) setSession(sess *receiver.Session) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.sess = sess
}

// connect dials once (or with retry) and performs the handshake
func (cm *connectionManager) connect(ctx context.Context, retry bool) (*receiver.Session, jbl.Model, error) {
	var (
		conn receiver.Conn
		err  error
	)
	if retry {
		conn, err = receiver.ConnectWithRetry(ctx, cm.dial, cm.backoff, logger.Named("reconnect"))
	} else {
		conn, err = cm.dial(ctx)
	}
	if err != nil {
		return nil, 0, err
	}

	sess := receiver.NewSession(conn, sessionOptions(cfg)...)
	model, err := sess.Initialize(ctx)
	if err != nil {
		sess.Close()
		return nil, 0, fmt.Errorf("initialize: %w", err)
	}
	return sess, model, nil
}

func runControl(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	dial, connInfo, err := newDialer(cfg)
	if err != nil {
		return err
	}

	cm := &connectionManager{
		dial:     dial,
		connInfo: connInfo,
		backoff:  backoffConfig(cfg),
	}

	// Open initial session
	sess, model, err := cm.connect(ctx, false)
	if err != nil {
		return err
	}
	cm.setSession(sess)

	// Create TUI model with connection manager
	m := initialControlModel(cm, connInfo, model)

	// Create TUI program with alt screen and mouse support
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	cm.send = p.Send

	go cm.sessionLoop(ctx)

	_, err = p.Run()
	cancel()
	if s := cm.getSession(); s != nil {
		s.Close()
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

// sessionLoop forwards events from the current session and reconnects when
// it ends
func (cm *connectionManager) sessionLoop(ctx context.Context) {
	for {
		sess := cm.getSession()

		hbCtx, stopHeartbeat := context.WithCancel(ctx)
		go sess.RunHeartbeat(hbCtx, cfg.Session.HeartbeatInterval)
		cm.watch(ctx, sess)
		stopHeartbeat()

		if ctx.Err() != nil {
			return
		}

		logger.Warn("session ended", zap.String("session", sess.ID()), zap.Error(sess.Err()))
		cm.send(connectionLostMsg{err: sess.Err()})

		next, model, err := cm.connect(ctx, true)
		if err != nil {
			// Only cancellation stops ConnectWithRetry without MaxAttempts
			return
		}
		cm.setSession(next)
		cm.send(reconnectedMsg{connInfo: cm.connInfo, model: model})
	}
}

// watch fills the status panel and forwards session events until the session
// or ctx ends. The subscription is taken before the status queries go out so
// none of their answers are missed.
func (cm *connectionManager) watch(ctx context.Context, sess *receiver.Session) {
	events, unsubscribe := sess.Subscribe(256)
	defer unsubscribe()

	cm.refreshStatus(ctx, sess)
	cm.forwardEvents(ctx, events)
}

// forwardEvents batches subscription events to the TUI at a fixed rate
func (cm *connectionManager) forwardEvents(ctx context.Context, events <-chan receiver.Event) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	var batch controlBatchMsg
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				if len(batch.events) > 0 {
					cm.send(batch)
				}
				return
			}
			batch.events = append(batch.events, ev)
		case <-ticker.C:
			if len(batch.events) > 0 {
				cm.send(batch)
				batch = controlBatchMsg{}
			}
		}
	}
}

// refreshStatus queries the values shown in the status panel. The answers
// arrive through the event subscription like any status update.
func (cm *connectionManager) refreshStatus(ctx context.Context, sess *receiver.Session) {
	go func() {
		for _, id := range statusQueries {
			if _, err := sess.Request(ctx, jbl.Query(id), id); err != nil {
				var rej *jbl.RejectionError
				if errors.As(err, &rej) {
					continue
				}
				logger.Debug("status query failed", zap.Stringer("cmd", id), zap.Error(err))
				return
			}
		}
	}()
}

// request returns a command that runs one request on the current session
func (cm *connectionManager) request(label string, frame []byte, id jbl.CommandID) tea.Cmd {
	sess := cm.getSession()
	return func() tea.Msg {
		if sess == nil {
			return commandResultMsg{label: label, err: errors.New("not connected")}
		}
		start := time.Now()
		r, err := sess.Request(context.Background(), frame, id)
		return commandResultMsg{label: label, response: r, err: err, rtt: time.Since(start)}
	}
}
