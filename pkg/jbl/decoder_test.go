// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jbl

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestDecodeFrame_Valid(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		cmd  CommandID
		code ResponseCode
		data []byte
	}{
		{
			name: "volume status update",
			in:   []byte{0x02, 0x23, 0x06, 0x00, 0x01, 0x32, 0x0D},
			cmd:  CmdVolume,
			code: RspStatusUpdate,
			data: []byte{0x32},
		},
		{
			name: "heartbeat echo with no data",
			in:   []byte{0x02, 0x23, 0x51, 0x00, 0x00, 0x0D},
			cmd:  CmdHeartbeat,
			code: RspStatusUpdate,
			data: []byte{},
		},
		{
			name: "rejection is still a valid frame",
			in:   []byte{0x02, 0x23, 0x0A, 0xC3, 0x00, 0x0D},
			cmd:  CmdPartyVolume,
			code: RspCommandInvalid,
			data: []byte{},
		},
		{
			name: "end byte value inside data",
			in:   []byte{0x02, 0x23, 0x06, 0x00, 0x01, 0x0D, 0x0D},
			cmd:  CmdVolume,
			code: RspStatusUpdate,
			data: []byte{0x0D},
		},
		{
			name: "unknown command id and code are carried",
			in:   []byte{0x02, 0x23, 0x77, 0x42, 0x02, 0xAA, 0xBB, 0x0D},
			cmd:  CommandID(0x77),
			code: ResponseCode(0x42),
			data: []byte{0xAA, 0xBB},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := DecodeFrame(tt.in)
			if err != nil {
				t.Fatalf("DecodeFrame failed: %v", err)
			}
			if r.Command() != tt.cmd {
				t.Errorf("Command = 0x%02X, want 0x%02X", uint8(r.Command()), uint8(tt.cmd))
			}
			if r.Code() != tt.code {
				t.Errorf("Code = 0x%02X, want 0x%02X", uint8(r.Code()), uint8(tt.code))
			}
			if !bytes.Equal(r.Data(), tt.data) {
				t.Errorf("Data = %X, want %X", r.Data(), tt.data)
			}
			if r.Data() == nil {
				t.Error("Data should be empty, not nil")
			}
		})
	}
}

func TestDecodeFrame_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		in      []byte
		wantErr error
		msg     string
	}{
		{"empty", nil, ErrFrameTooShort, ""},
		{"five bytes", []byte{0x02, 0x23, 0x06, 0x00, 0x0D}, ErrFrameTooShort, ""},
		{"bad end byte", []byte{0x02, 0x23, 0x06, 0x00, 0x01, 0x32, 0x0A}, ErrInvalidEnd, ""},
		{"missing STX", []byte{0x23, 0x06, 0x00, 0x01, 0x32, 0x0D}, ErrInvalidStart, ""},
		{"outbound frame", []byte{0x23, 0x06, 0x01, 0x32, 0x0D, 0x0D}, ErrInvalidStart, ""},
		{"declared too long", []byte{0x02, 0x23, 0x06, 0x00, 0x02, 0x32, 0x0D}, ErrLengthMismatch, "incomplete"},
		{"trailing bytes", []byte{0x02, 0x23, 0x06, 0x00, 0x00, 0x32, 0x0D}, ErrLengthMismatch, "trailing"},
		{"two frames concatenated", append(EncodeResponse(CmdVolume, 0, 0x10), EncodeResponse(CmdMute, 0, 0x01)...), ErrLengthMismatch, "trailing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := DecodeFrame(tt.in)
			if r != nil {
				t.Fatalf("expected nil response, got %+v", r)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.msg != "" && !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("error %q should mention %q", err.Error(), tt.msg)
			}
			if Decode(tt.in) != nil {
				t.Error("Decode should return nil for invalid input")
			}
		})
	}
}

// Start marker is checked before the end byte, so a frame wrong on both
// reports the start.
func TestDecodeFrame_GateOrder(t *testing.T) {
	_, err := DecodeFrame([]byte{0x00, 0x00, 0x06, 0x00, 0x01, 0x32, 0x0A})
	if !errors.Is(err, ErrInvalidStart) {
		t.Errorf("expected ErrInvalidStart, got %v", err)
	}

	_, err = DecodeFrame([]byte{0x02, 0x23, 0x06, 0x00, 0x09, 0x32, 0x0A})
	if !errors.Is(err, ErrInvalidEnd) {
		t.Errorf("expected ErrInvalidEnd, got %v", err)
	}
}

func TestDecodeFrame_CopiesData(t *testing.T) {
	in := []byte{0x02, 0x23, 0x06, 0x00, 0x01, 0x32, 0x0D}
	r := Decode(in)
	if r == nil {
		t.Fatal("Decode returned nil")
	}
	in[5] = 0x99
	if r.Data()[0] != 0x32 {
		t.Error("response data aliases the input buffer")
	}
}

func TestFailureReason(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte{0x02}, "too_short"},
		{[]byte{0x00, 0x23, 0x06, 0x00, 0x00, 0x0D}, "invalid_start"},
		{[]byte{0x02, 0x23, 0x06, 0x00, 0x00, 0x00}, "invalid_end"},
		{[]byte{0x02, 0x23, 0x06, 0x00, 0x05, 0x0D}, "length_mismatch"},
	}
	for _, tt := range tests {
		_, err := DecodeFrame(tt.in)
		if got := FailureReason(err); got != tt.want {
			t.Errorf("FailureReason(%X) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if FailureReason(nil) != "" {
		t.Error("FailureReason(nil) should be empty")
	}
	if FailureReason(errors.New("boom")) != "other" {
		t.Error("unrelated errors should map to other")
	}
}

func TestResponse_ModelAndErr(t *testing.T) {
	r := Decode(EncodeResponse(CmdInitialization, RspStatusUpdate, byte(ModelMA7100HP)))
	m, ok := r.Model()
	if !ok || m != ModelMA7100HP {
		t.Errorf("Model() = %v, %v; want MA7100HP, true", m, ok)
	}
	if r.Err() != nil {
		t.Errorf("status update should not carry an error: %v", r.Err())
	}

	r = Decode(EncodeResponse(CmdVolume, RspStatusUpdate, 0x20))
	if _, ok := r.Model(); ok {
		t.Error("Model() should only report for INITIALIZATION")
	}

	r = Decode(EncodeResponse(CmdPartyVolume, RspCommandInvalid))
	var rej *RejectionError
	if !errors.As(r.Err(), &rej) {
		t.Fatalf("expected *RejectionError, got %v", r.Err())
	}
	if rej.Command != CmdPartyVolume || rej.Code != RspCommandInvalid {
		t.Errorf("unexpected rejection %+v", rej)
	}
}
