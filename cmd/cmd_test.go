// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jblav/mactl/internal/config"
	"github.com/jblav/mactl/pkg/jbl"
	"github.com/jblav/mactl/pkg/receiver"
)

func TestParseHex(t *testing.T) {
	want := []byte{0x02, 0x23, 0x06, 0x00, 0x01, 0x32, 0x0D}
	for _, in := range []string{
		"02 23 06 00 01 32 0D",
		"02:23:06:00:01:32:0d",
		"0x02 0x23 0x06 0x00 0x01 0x32 0x0D",
		"0223060001320D",
	} {
		got, err := parseHex(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := parseHex("02 2")
	assert.Error(t, err)
	_, err = parseHex("zz")
	assert.Error(t, err)
}

func TestDescribeFrame(t *testing.T) {
	var out bytes.Buffer
	ok := describeFrame(&out, jbl.EncodeResponse(jbl.CmdVolume, jbl.RspStatusUpdate, 50))
	assert.True(t, ok)
	assert.Contains(t, out.String(), "VOLUME (0x06)")
	assert.Contains(t, out.String(), "Volume: 50")

	out.Reset()
	ok = describeFrame(&out, jbl.EncodeResponse(jbl.CmdVolume, jbl.RspStatusUpdate, 120))
	assert.True(t, ok)
	assert.Contains(t, out.String(), "Anomaly (out_of_range)")

	out.Reset()
	ok = describeFrame(&out, []byte{0x02, 0x23, 0x06, 0x00, 0x02, 0x32, 0x0D})
	assert.False(t, ok)
	assert.Contains(t, out.String(), "INVALID (length_mismatch)")
	assert.Contains(t, out.String(), "incomplete")
}

func TestParseOperationArg(t *testing.T) {
	tests := []struct {
		op      string
		args    []string
		want    int
		wantErr bool
	}{
		{"power_on", nil, 0, false},
		{"power_on", []string{"1"}, 0, true},
		{"volume_set", []string{"35"}, 35, false},
		{"volume_set", nil, 0, true},
		{"volume_set", []string{"loud"}, 0, true},
		{"treble_set", []string{"+3"}, 3, false},
		{"bass_set", []string{"-2"}, -2, false},
		{"input_set", []string{"hdmi3"}, int(jbl.InputHDMI3), false},
		{"input_set", []string{"vhs"}, 0, true},
		{"surround_set", []string{"native"}, int(jbl.SurroundNative), false},
		{"version_query", nil, int(jbl.VersionIPControl), false},
		{"version_query", []string{"dsp"}, int(jbl.VersionDSP), false},
		{"version_query", []string{"bios"}, 0, true},
		{"ir", []string{"VOL_UP"}, int(jbl.IRVolumeUp), false},
		{"ir", []string{"0x010E03"}, int(jbl.IRPower), false},
		{"ir", []string{"SELF_DESTRUCT"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %v", tt.op, tt.args), func(t *testing.T) {
			op, ok := jbl.LookupOperation(tt.op)
			require.True(t, ok)

			got, err := parseOperationArg(op, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintCatalog(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printCatalog(&out, "commands"))
	assert.Contains(t, out.String(), "volume_set")
	assert.Contains(t, out.String(), "number")

	out.Reset()
	require.NoError(t, printCatalog(&out, "inputs"))
	assert.Contains(t, out.String(), "HDMI 5")
	assert.Contains(t, out.String(), "MA710/MA7100HP/MA9100HP")

	out.Reset()
	require.NoError(t, printCatalog(&out, "ir"))
	assert.Contains(t, out.String(), "0x010E03")
	assert.Contains(t, out.String(), "POWER_TOGGLE")

	assert.Error(t, printCatalog(&out, "recipes"))
}

func TestFrameMonitor(t *testing.T) {
	var out bytes.Buffer
	mon := newFrameMonitor(&out, false)

	stream := append([]byte{0xAA, 0xBB}, jbl.EncodeResponse(jbl.CmdVolume, jbl.RspStatusUpdate, 30)...)
	stream = append(stream, jbl.EncodeResponse(jbl.CmdPartyMode, jbl.RspCommandInvalid)...)
	stream = append(stream, 0x02, 0x23, 0x06, 0x00, 0x00, 0x0A)

	f := receiver.NewFramer(0)
	for _, res := range f.Push(stream) {
		mon.handle(receiver.Event{FrameResult: res, Time: time.Now()})
	}

	s := out.String()
	assert.Contains(t, s, "[SYNC] Synchronized after skipping 2 invalid bytes")
	assert.NotContains(t, s, "Volume: 30", "valid frames are hidden without --show-all")
	assert.Contains(t, s, "REJECTED:")
	assert.Contains(t, s, "PARTY_MODE")
	assert.Contains(t, s, "DECODE ERROR:")

	assert.Equal(t, uint64(3), mon.stats.TotalFrames)
	assert.Equal(t, uint64(2), mon.stats.ValidFrames)
	assert.Equal(t, uint64(1), mon.stats.Rejections)
	assert.Equal(t, uint64(1), mon.stats.InvalidEnd)
	assert.Equal(t, uint64(2), mon.stats.DiscardedBytes)
}

func TestFrameMonitor_IgnoresErrorsBeforeSync(t *testing.T) {
	var out bytes.Buffer
	mon := newFrameMonitor(&out, true)

	f := receiver.NewFramer(0)
	stream := []byte{0x02, 0x23, 0x06, 0x00, 0x00, 0x0A}
	stream = append(stream, jbl.EncodeResponse(jbl.CmdMute, jbl.RspStatusUpdate, 1)...)
	for _, res := range f.Push(stream) {
		mon.handle(receiver.Event{FrameResult: res, Time: time.Now()})
	}

	s := out.String()
	assert.NotContains(t, s, "DECODE ERROR")
	assert.Contains(t, s, "[SYNC] Synchronized after skipping")
	assert.Contains(t, s, "Mute: On")
	assert.Equal(t, uint64(0), mon.stats.InvalidEnd)
}

func TestReplayRecords(t *testing.T) {
	var capture bytes.Buffer
	rec := jbl.NewRecorder(&capture)

	reply := jbl.EncodeResponse(jbl.CmdVolume, jbl.RspStatusUpdate, 30)
	require.NoError(t, rec.Record(jbl.DirOutbound, jbl.SetVolume(30)))
	require.NoError(t, rec.Record(jbl.DirInbound, reply[:3]))
	require.NoError(t, rec.Record(jbl.DirInbound, reply[3:]))
	require.NoError(t, rec.Record(jbl.DirInbound, []byte{0x02, 0x23}))

	records, err := jbl.ReadRecords(&capture)
	require.NoError(t, err)
	require.Len(t, records, 4)

	var out bytes.Buffer
	replayRecords(&out, records, true, true)

	s := out.String()
	assert.Contains(t, s, "TX 23 06 01 1E 0D")
	assert.Contains(t, s, "Volume: 30")
	assert.Contains(t, s, "(2 bytes left incomplete at end of capture)")
	assert.Contains(t, s, "=== Statistics")
}

func TestPingStats(t *testing.T) {
	var p pingStats
	p.sent = 3
	p.add(10 * time.Millisecond)
	p.add(30 * time.Millisecond)

	assert.InDelta(t, 33.3, p.loss(), 0.1)
	s := p.String()
	assert.Contains(t, s, "3 pings sent, 2 responses received, 33% loss")
	assert.Contains(t, s, "rtt min/avg/max = 10ms/20ms/30ms")

	var empty pingStats
	assert.NotContains(t, empty.String(), "rtt")
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "0 seconds", formatUptime(0))
	assert.Equal(t, "1 minute, 30 seconds", formatUptime(90*time.Second))
	assert.Equal(t, "1 day, 2 hours", formatUptime(26*time.Hour))
}

func TestParseModel(t *testing.T) {
	m, err := parseModel("ma9100hp")
	require.NoError(t, err)
	assert.Equal(t, jbl.ModelMA9100HP, m)

	_, err = parseModel("MA999")
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("boom")))
	assert.Equal(t, 2, ExitCode(exitf(2, "connection error")))
	assert.Equal(t, 1, ExitCode(fmt.Errorf("wrapped: %w", exitf(1, "timeout"))))
}

func TestNewDialer(t *testing.T) {
	c := &config.Config{Receiver: config.ReceiverConfig{Transport: config.TransportTCP, Port: 50000}}
	_, _, err := newDialer(c)
	assert.Error(t, err, "tcp without host")

	c.Receiver.Host = "192.168.1.20"
	_, info, err := newDialer(c)
	require.NoError(t, err)
	assert.Equal(t, "TCP: 192.168.1.20:50000", info)

	c.Receiver.Transport = config.TransportSerial
	_, _, err = newDialer(c)
	assert.Error(t, err, "serial without port")

	c.Serial = config.SerialConfig{Port: "/dev/ttyUSB0", Baud: 115200}
	_, info, err = newDialer(c)
	require.NoError(t, err)
	assert.Equal(t, "Serial: /dev/ttyUSB0 @ 115200 baud", info)
}

// pipeSession connects a session to a mock receiver over net.Pipe
func pipeSession(t *testing.T, model jbl.Model) *receiver.Session {
	t.Helper()
	client, server := net.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	mock := receiver.NewMockReceiver(model, zap.NewNop())
	go mock.Serve(ctx, server)

	sess := receiver.NewSession(client, receiver.WithRequestTimeout(time.Second), receiver.WithRateLimit(0, 1))
	t.Cleanup(func() {
		sess.Close()
		cancel()
	})

	_, err := sess.Initialize(ctx)
	require.NoError(t, err)
	return sess
}

func TestRunFrame(t *testing.T) {
	sess := pipeSession(t, jbl.ModelMA510)
	ctx := context.Background()

	require.NoError(t, runFrame(ctx, sess, jbl.SetVolume(42), jbl.CmdVolume, false))
	require.NoError(t, runFrame(ctx, sess, jbl.Heartbeat(), jbl.CmdHeartbeat, true))

	// Party mode does not exist on the MA510
	err := runFrame(ctx, sess, jbl.SetFlag(jbl.CmdPartyMode, true), jbl.CmdPartyMode, false)
	var rej *jbl.RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, jbl.RspCommandInvalid, rej.Code)
}

func TestConnectionManager_WatchSeesStatusAnswers(t *testing.T) {
	sess := pipeSession(t, jbl.ModelMA710)

	msgs := make(chan tea.Msg, 64)
	cm := &connectionManager{send: func(msg tea.Msg) { msgs <- msg }}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cm.watch(ctx, sess)
		close(done)
	}()

	seen := make(map[jbl.CommandID]bool)
	timeout := time.After(5 * time.Second)
	for len(seen) < len(statusQueries) {
		select {
		case msg := <-msgs:
			batch, ok := msg.(controlBatchMsg)
			require.True(t, ok, "unexpected message %T", msg)
			for _, ev := range batch.events {
				if ev.Response != nil {
					seen[ev.Response.Command()] = true
				}
			}
		case <-timeout:
			t.Fatalf("answers seen for %d of %d status queries", len(seen), len(statusQueries))
		}
	}
	for _, id := range statusQueries {
		assert.True(t, seen[id], "no answer for %s", id)
	}

	cancel()
	<-done
}

func TestControlModel(t *testing.T) {
	cm := &connectionManager{}
	m := initialControlModel(cm, "TCP: test", jbl.ModelMA710)

	f := receiver.NewFramer(0)
	var events []receiver.Event
	for _, res := range f.Push(jbl.EncodeResponse(jbl.CmdVolume, jbl.RspStatusUpdate, 30)) {
		events = append(events, receiver.Event{FrameResult: res, Time: time.Now()})
	}

	next, _ := m.Update(controlBatchMsg{events: events})
	m = next.(controlModel)
	require.Contains(t, m.values, jbl.CmdVolume)
	assert.Contains(t, m.View(), "Volume: 30")

	// Remote keys without a session report the failure in the event log
	next, cmd := m.Update(keyMsg("+"))
	m = next.(controlModel)
	require.NotNil(t, cmd)
	next, _ = m.Update(cmd())
	m = next.(controlModel)
	assert.True(t, logContains(m, "IR VOL_UP failed: not connected"))

	// Nothing is sent while reconnecting
	next, _ = m.Update(connectionLostMsg{err: receiver.ErrSessionClosed})
	m = next.(controlModel)
	next, cmd = m.Update(keyMsg("p"))
	m = next.(controlModel)
	assert.Nil(t, cmd)
	assert.True(t, logContains(m, "Cannot send IR key: connection lost"))
	assert.Contains(t, m.View(), "RECONNECTING")

	next, _ = m.Update(reconnectedMsg{connInfo: "TCP: test", model: jbl.ModelMA9100HP})
	m = next.(controlModel)
	assert.False(t, m.connectionLost)
	assert.Empty(t, m.values)
	assert.True(t, logContains(m, "Reconnected to MA9100HP"))
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func logContains(m controlModel, s string) bool {
	for _, e := range m.errorLog {
		if strings.Contains(e.message, s) {
			return true
		}
	}
	return false
}
