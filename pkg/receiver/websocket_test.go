// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package receiver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jblav/mactl/pkg/jbl"
)

const (
	bridgeUser     = "admin"
	bridgePassword = "secret"
)

// newWSServer serves handle on an upgraded connection once Basic auth passes.
func newWSServer(t *testing.T, handle func(ws *websocket.Conn)) string {
	t.Helper()

	var upgrader websocket.Upgrader
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != bridgeUser || pass != bridgePassword {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		handle(ws)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// relayMock answers commands from a mock receiver. Every reply is split over
// two binary messages with a text message in between, as chatty bridges do.
func relayMock(model jbl.Model) func(ws *websocket.Conn) {
	mock := NewMockReceiver(model, nil)
	return func(ws *websocket.Conn) {
		var framer CommandFramer
		for {
			kind, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if kind != websocket.BinaryMessage {
				continue
			}
			for _, frame := range framer.Push(data) {
				reply := mock.Handle(frame)
				if reply == nil {
					continue
				}
				half := len(reply) / 2
				_ = ws.WriteMessage(websocket.BinaryMessage, reply[:half])
				_ = ws.WriteMessage(websocket.TextMessage, []byte("bridge: relaying"))
				_ = ws.WriteMessage(websocket.BinaryMessage, reply[half:])
			}
		}
	}
}

func TestDialWebSocket_Session(t *testing.T) {
	url := newWSServer(t, relayMock(jbl.ModelMA710))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := DialWebSocket(ctx, url, bridgeUser, bridgePassword, false)
	require.NoError(t, err)

	s := NewSession(conn, WithRateLimit(0, 1))
	t.Cleanup(func() { s.Close() })

	model, err := s.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, jbl.ModelMA710, model)

	r, err := s.Request(ctx, jbl.SetVolume(30), jbl.CmdVolume)
	require.NoError(t, err)
	v, ok := r.Value()
	require.True(t, ok)
	assert.Equal(t, byte(30), v)
}

func TestDialWebSocket_CredentialsInURL(t *testing.T) {
	url := newWSServer(t, relayMock(jbl.ModelMA510))
	url = strings.Replace(url, "ws://", "ws://"+bridgeUser+":"+bridgePassword+"@", 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := DialWebSocket(ctx, url, "", "", false)
	require.NoError(t, err)

	s := NewSession(conn, WithRateLimit(0, 1))
	t.Cleanup(func() { s.Close() })

	model, err := s.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, jbl.ModelMA510, model)
}

func TestDialWebSocket_Unauthorized(t *testing.T) {
	url := newWSServer(t, relayMock(jbl.ModelMA710))

	_, err := DialWebSocket(context.Background(), url, bridgeUser, "wrong", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestDialWebSocket_Scheme(t *testing.T) {
	_, err := DialWebSocket(context.Background(), "http://192.168.1.20/ws", "", "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported URL scheme")
}

func TestWebSocketConn_ReadSplitsMessages(t *testing.T) {
	frame := jbl.EncodeResponse(jbl.CmdPower, jbl.RspStatusUpdate, 0x01)
	url := newWSServer(t, func(ws *websocket.Conn) {
		_ = ws.WriteMessage(websocket.TextMessage, []byte("hello"))
		_ = ws.WriteMessage(websocket.BinaryMessage, frame)
		_ = ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		// Wait for the client to go away
		_, _, _ = ws.ReadMessage()
	})

	conn, err := DialWebSocket(context.Background(), url, bridgeUser, bridgePassword, false)
	require.NoError(t, err)
	defer conn.Close()

	// A small buffer drains one message over several reads
	var got []byte
	buf := make([]byte, 3)
	for {
		n, err := conn.Read(buf)
		got = append(got, buf[:n]...)
		if err != nil {
			assert.ErrorIs(t, err, io.EOF)
			break
		}
		require.LessOrEqual(t, len(got), len(frame))
	}
	assert.Equal(t, frame, got)

	// The error sticks
	_, err = conn.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}
