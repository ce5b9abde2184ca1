// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package receiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/jblav/mactl/pkg/jbl"
)

// MockReceiver answers the control protocol the way a receiver does: it
// reports its model on initialization, stores and echoes set values, answers
// queries with the stored value and rejects what it does not understand.
type MockReceiver struct {
	model jbl.Model
	log   *zap.Logger

	// Versions answers the version query per component
	Versions map[jbl.VersionType]string

	mu    sync.Mutex
	state map[jbl.CommandID]byte
	conns map[Conn]struct{}
}

// NewMockReceiver creates a mock of the given model with power off, volume
// 20, HDMI 1 selected and flat EQ.
func NewMockReceiver(model jbl.Model, logger *zap.Logger) *MockReceiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MockReceiver{
		model: model,
		log:   logger.Named("mock"),
		Versions: map[jbl.VersionType]string{
			jbl.VersionIPControl: "1.2",
			jbl.VersionHost:      "2.0.14",
			jbl.VersionDSP:       "1.8.3",
			jbl.VersionOSD:       "1.1.0",
			jbl.VersionNetwork:   "3.4.1",
		},
		state: map[jbl.CommandID]byte{
			jbl.CmdPower:          0x00,
			jbl.CmdDisplayDim:     jbl.DimBright,
			jbl.CmdInputSource:    byte(jbl.InputHDMI1),
			jbl.CmdVolume:         20,
			jbl.CmdMute:           0x00,
			jbl.CmdSurroundMode:   byte(jbl.SurroundNative),
			jbl.CmdPartyMode:      0x00,
			jbl.CmdPartyVolume:    20,
			jbl.CmdTrebleEQ:       jbl.EncodeEQLevel(0),
			jbl.CmdBassEQ:         jbl.EncodeEQLevel(0),
			jbl.CmdRoomEQ:         0x01,
			jbl.CmdDialogEnhanced: 0x00,
			jbl.CmdDolbyAudioMode: 0x00,
			jbl.CmdDRC:            0x00,
			jbl.CmdStreamingState: 0x00,
		},
		conns: make(map[Conn]struct{}),
	}
}

// Value returns the stored value for a set/query command.
func (m *MockReceiver) Value(cmd jbl.CommandID) (byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.state[cmd]
	return v, ok
}

// Set changes a stored value and pushes a status update to every client, as
// the receiver does when its front panel or remote is used.
func (m *MockReceiver) Set(cmd jbl.CommandID, v byte) {
	m.mu.Lock()
	m.state[cmd] = v
	conns := make([]Conn, 0, len(m.conns))
	for c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.Unlock()

	frame := jbl.EncodeResponse(cmd, jbl.RspStatusUpdate, v)
	for _, c := range conns {
		if _, err := c.Write(frame); err != nil {
			m.log.Debug("push failed", zap.Error(err))
		}
	}
}

// Serve answers commands on conn until it is closed or ctx ends.
func (m *MockReceiver) Serve(ctx context.Context, conn Conn) error {
	m.mu.Lock()
	m.conns[conn] = struct{}{}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.conns, conn)
		m.mu.Unlock()
	}()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var framer CommandFramer
	buf := make([]byte, 256)
	for {
		n, err := conn.Read(buf)
		for _, frame := range framer.Push(buf[:n]) {
			reply := m.Handle(frame)
			if reply == nil {
				continue
			}
			if _, werr := conn.Write(reply); werr != nil {
				return werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// ListenAndServe accepts TCP clients on addr until ctx ends. ready, if not
// nil, receives the bound address once listening.
func (m *MockReceiver) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	defer ln.Close()

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	if ready != nil {
		ready(ln.Addr())
	}
	m.log.Info("listening", zap.Stringer("addr", ln.Addr()), zap.Stringer("model", m.model))

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		m.log.Info("client connected", zap.Stringer("remote", conn.RemoteAddr()))

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()
			if err := m.Serve(ctx, conn); err != nil {
				m.log.Warn("client error", zap.Error(err))
			}
		}()
	}
}

// Handle computes the reply to one outbound frame, or nil when the frame is
// malformed.
func (m *MockReceiver) Handle(frame []byte) []byte {
	if len(frame) < jbl.CmdOverhead || frame[0] != jbl.CmdStartByte || frame[len(frame)-1] != jbl.EndByte {
		return nil
	}
	cmd := jbl.CommandID(frame[1])
	data := frame[3 : len(frame)-1]
	if int(frame[2]) != len(data) {
		return jbl.EncodeResponse(cmd, jbl.RspInvalidDataLength)
	}

	m.log.Debug("command", zap.Stringer("cmd", cmd), zap.Binary("data", data))

	switch cmd {
	case jbl.CmdInitialization:
		return jbl.EncodeResponse(cmd, jbl.RspStatusUpdate, byte(m.model))
	case jbl.CmdHeartbeat, jbl.CmdReboot, jbl.CmdFactoryReset:
		if len(data) != 0 {
			return jbl.EncodeResponse(cmd, jbl.RspInvalidDataLength)
		}
		return jbl.EncodeResponse(cmd, jbl.RspStatusUpdate)
	case jbl.CmdSimulateIR:
		if len(data) != 3 {
			return jbl.EncodeResponse(cmd, jbl.RspInvalidDataLength)
		}
		return jbl.EncodeResponse(cmd, jbl.RspStatusUpdate, data...)
	case jbl.CmdVersion:
		if len(data) != 1 {
			return jbl.EncodeResponse(cmd, jbl.RspInvalidDataLength)
		}
		v, ok := m.Versions[jbl.VersionType(data[0])]
		if !ok {
			return jbl.EncodeResponse(cmd, jbl.RspParameterNotRecognized)
		}
		return jbl.EncodeResponse(cmd, jbl.RspStatusUpdate, []byte(v)...)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.state[cmd]
	if !ok {
		return jbl.EncodeResponse(cmd, jbl.RspCommandNotRecognized)
	}
	if len(data) != 1 {
		return jbl.EncodeResponse(cmd, jbl.RspInvalidDataLength)
	}
	if !m.available(cmd) {
		return jbl.EncodeResponse(cmd, jbl.RspCommandInvalid)
	}
	if data[0] == jbl.QueryByte {
		return jbl.EncodeResponse(cmd, jbl.RspStatusUpdate, cur)
	}
	if cmd == jbl.CmdStreamingState || !m.accepts(cmd, data[0]) {
		return jbl.EncodeResponse(cmd, jbl.RspParameterNotRecognized)
	}

	m.state[cmd] = data[0]
	return jbl.EncodeResponse(cmd, jbl.RspStatusUpdate, data[0])
}

// available reports whether the command exists on the mocked model.
func (m *MockReceiver) available(cmd jbl.CommandID) bool {
	switch cmd {
	case jbl.CmdPartyMode, jbl.CmdPartyVolume, jbl.CmdDRC:
		return jbl.MA710Plus.Supports(m.model)
	}
	return true
}

// accepts reports whether v is a legal set value for cmd on the mocked model.
func (m *MockReceiver) accepts(cmd jbl.CommandID, v byte) bool {
	switch cmd {
	case jbl.CmdVolume, jbl.CmdPartyVolume:
		return v <= jbl.MaxVolume
	case jbl.CmdDisplayDim:
		return v <= jbl.MaxDisplayDim
	case jbl.CmdTrebleEQ, jbl.CmdBassEQ:
		return jbl.DecodeEQLevel(v) <= jbl.MaxEQLevel
	case jbl.CmdInputSource:
		return jbl.InputSource(v).Models().Supports(m.model)
	case jbl.CmdSurroundMode:
		return jbl.SurroundMode(v).Models().Supports(m.model)
	}
	return v <= 0x01
}
