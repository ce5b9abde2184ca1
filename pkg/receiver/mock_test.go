// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package receiver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jblav/mactl/pkg/jbl"
)

func TestMockReceiver_Handle(t *testing.T) {
	tests := []struct {
		name  string
		model jbl.Model
		frame []byte
		code  jbl.ResponseCode
		data  []byte
	}{
		{"initialize", jbl.ModelMA710, jbl.Initialize(), jbl.RspStatusUpdate, []byte{byte(jbl.ModelMA710)}},
		{"heartbeat", jbl.ModelMA710, jbl.Heartbeat(), jbl.RspStatusUpdate, []byte{}},
		{"query volume", jbl.ModelMA710, jbl.Query(jbl.CmdVolume), jbl.RspStatusUpdate, []byte{20}},
		{"set mute", jbl.ModelMA710, jbl.SetFlag(jbl.CmdMute, true), jbl.RspStatusUpdate, []byte{1}},
		{"raw volume out of range", jbl.ModelMA710, jbl.Encode(jbl.CmdVolume, 120), jbl.RspParameterNotRecognized, []byte{}},
		{"HDMI 5 on MA510", jbl.ModelMA510, jbl.SetInput(jbl.InputHDMI5), jbl.RspParameterNotRecognized, []byte{}},
		{"HDMI 5 on MA710", jbl.ModelMA710, jbl.SetInput(jbl.InputHDMI5), jbl.RspStatusUpdate, []byte{byte(jbl.InputHDMI5)}},
		{"party mode on MA510", jbl.ModelMA510, jbl.SetFlag(jbl.CmdPartyMode, true), jbl.RspCommandInvalid, []byte{}},
		{"two data bytes", jbl.ModelMA710, jbl.Encode(jbl.CmdMute, 1, 1), jbl.RspInvalidDataLength, []byte{}},
		{"unknown command", jbl.ModelMA710, jbl.Encode(jbl.CommandID(0x44), 1), jbl.RspCommandNotRecognized, []byte{}},
		{"unknown version type", jbl.ModelMA710, jbl.Encode(jbl.CmdVersion, 0x01), jbl.RspParameterNotRecognized, []byte{}},
		{"streaming state is read only", jbl.ModelMA710, jbl.Encode(jbl.CmdStreamingState, 1), jbl.RspParameterNotRecognized, []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMockReceiver(tt.model, nil)
			r := jbl.Decode(m.Handle(tt.frame))
			require.NotNil(t, r)
			assert.Equal(t, tt.code, r.Code())
			assert.Equal(t, tt.data, r.Data())
		})
	}

	m := NewMockReceiver(jbl.ModelMA710, nil)
	assert.Nil(t, m.Handle([]byte{0x23, 0x06}))
}

func TestMockReceiver_ListenAndServe(t *testing.T) {
	mock := NewMockReceiver(jbl.ModelMA9100HP, nil)

	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan net.Addr, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- mock.ListenAndServe(ctx, "127.0.0.1:0", func(a net.Addr) { addrCh <- a })
	}()

	var addr net.Addr
	select {
	case addr = <-addrCh:
	case <-time.After(time.Second):
		t.Fatal("mock did not start listening")
	}

	conn, err := DialTCP(ctx, addr.String())
	require.NoError(t, err)

	s := NewSession(conn)
	model, err := s.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, jbl.ModelMA9100HP, model)
	require.NoError(t, s.Close())

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("mock did not stop")
	}
}
