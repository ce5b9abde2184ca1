// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jbl

import (
	"bytes"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
		want  []byte
	}{
		{"power on", SetFlag(CmdPower, true), []byte{0x23, 0x00, 0x01, 0x01, 0x0D}},
		{"power off", SetFlag(CmdPower, false), []byte{0x23, 0x00, 0x01, 0x00, 0x0D}},
		{"power query", Query(CmdPower), []byte{0x23, 0x00, 0x01, 0xF0, 0x0D}},
		{"volume 50", SetVolume(50), []byte{0x23, 0x06, 0x01, 0x32, 0x0D}},
		{"input HDMI 1", SetInput(InputHDMI1), []byte{0x23, 0x05, 0x01, 0x02, 0x0D}},
		{"surround native", SetSurround(SurroundNative), []byte{0x23, 0x08, 0x01, 0x06, 0x0D}},
		{"version DSP", QueryVersion(VersionDSP), []byte{0x23, 0x02, 0x01, 0xF2, 0x0D}},
		{"initialize", Initialize(), []byte{0x23, 0x50, 0x01, 0xF0, 0x0D}},
		{"heartbeat", Heartbeat(), []byte{0x23, 0x51, 0x00, 0x0D}},
		{"reboot", Reboot(), []byte{0x23, 0x52, 0x00, 0x0D}},
		{"factory reset", FactoryReset(), []byte{0x23, 0x53, 0x00, 0x0D}},
		{"IR power", EncodeIR(IRPower), []byte{0x23, 0x04, 0x03, 0x01, 0x0E, 0x03, 0x0D}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !bytes.Equal(tt.frame, tt.want) {
				t.Errorf("got %X, want %X", tt.frame, tt.want)
			}
		})
	}
}

func TestEncode_LengthInvariant(t *testing.T) {
	for n := 0; n <= MaxDataLen; n += 17 {
		data := bytes.Repeat([]byte{0xAB}, n)
		frame := Encode(CmdVersion, data...)
		if len(frame) != CmdOverhead+n {
			t.Errorf("len(frame) = %d for %d data bytes", len(frame), n)
		}
		if frame[0] != CmdStartByte || frame[len(frame)-1] != EndByte {
			t.Errorf("bad delimiters for %d data bytes", n)
		}
		if int(frame[2]) != n {
			t.Errorf("LEN = %d, want %d", frame[2], n)
		}
	}
}

func TestEncode_TruncatesOversizedData(t *testing.T) {
	frame := Encode(CmdVersion, make([]byte, MaxDataLen+10)...)
	if len(frame) != MaxCommandSize {
		t.Errorf("len(frame) = %d, want %d", len(frame), MaxCommandSize)
	}
	if frame[2] != MaxDataLen {
		t.Errorf("LEN = %d, want %d", frame[2], MaxDataLen)
	}

	resp := EncodeResponse(CmdVersion, RspStatusUpdate, make([]byte, MaxDataLen+1)...)
	if len(resp) != MaxResponseSize {
		t.Errorf("len(resp) = %d, want %d", len(resp), MaxResponseSize)
	}
}

func TestClamping(t *testing.T) {
	tests := []struct {
		name string
		got  []byte
		want []byte
	}{
		{"volume above range", SetVolume(150), SetVolume(99)},
		{"volume below range", SetVolume(-5), SetVolume(0)},
		{"party volume above range", SetPartyVolume(1000), SetPartyVolume(99)},
		{"dim above range", SetDisplayDim(7), SetDisplayDim(3)},
		{"dim below range", SetDisplayDim(-1), SetDisplayDim(0)},
		{"treble far above", SetTreble(100), SetTreble(6)},
		{"bass far below", SetBass(-100), SetBass(-6)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !bytes.Equal(tt.got, tt.want) {
				t.Errorf("got %X, want %X", tt.got, tt.want)
			}
		})
	}
}

func TestEQLevel(t *testing.T) {
	tests := []struct {
		level int
		wire  byte
	}{
		{-100, 0},
		{-6, 0},
		{-1, 5},
		{0, 6},
		{3, 9},
		{6, 12},
		{100, 12},
	}
	for _, tt := range tests {
		if got := EncodeEQLevel(tt.level); got != tt.wire {
			t.Errorf("EncodeEQLevel(%d) = %d, want %d", tt.level, got, tt.wire)
		}
		if frame := SetTreble(tt.level); frame[3] != tt.wire {
			t.Errorf("SetTreble(%d) data = %d, want %d", tt.level, frame[3], tt.wire)
		}
	}

	for level := MinEQLevel; level <= MaxEQLevel; level++ {
		if got := DecodeEQLevel(EncodeEQLevel(level)); got != level {
			t.Errorf("EQ level %d round-tripped to %d", level, got)
		}
	}
}

// Outbound and inbound frames have different start markers, so an encoded
// command never decodes as a response. Rewrapping its command id and data in
// the inbound shape does.
func TestEncodeDecode_Asymmetry(t *testing.T) {
	for _, op := range Operations() {
		t.Run(op.Name, func(t *testing.T) {
			frame := op.Frame(1)

			if Decode(frame) != nil {
				t.Fatalf("outbound frame %X decoded as a response", frame)
			}

			cmd := CommandID(frame[1])
			data := frame[3 : len(frame)-1]
			r := Decode(EncodeResponse(cmd, RspStatusUpdate, data...))
			if r == nil {
				t.Fatal("rewrapped frame failed to decode")
			}
			if r.Command() != op.Command {
				t.Errorf("Command = %s, want %s", r.Command(), op.Command)
			}
			if !bytes.Equal(r.Data(), data) {
				t.Errorf("Data = %X, want %X", r.Data(), data)
			}
		})
	}
}
