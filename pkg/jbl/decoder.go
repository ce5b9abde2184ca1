// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jbl

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Frame validation failures returned (wrapped) by DecodeFrame.
var (
	ErrFrameTooShort  = errors.New("jbl: frame too short")
	ErrInvalidStart   = errors.New("jbl: invalid start bytes")
	ErrInvalidEnd     = errors.New("jbl: invalid end byte")
	ErrLengthMismatch = errors.New("jbl: data length mismatch")
)

// DecodeFrame validates a delimited inbound frame and returns its contents.
//
// Frame structure:
//
//	[0x02][0x23][CMD][CODE][LEN][DATA...][0x0D]
//
// The checks run in order: minimum length, start bytes, end byte, and finally
// that the frame is exactly RespOverhead+LEN bytes long. Command id and response
// code are not checked against the catalogs. The returned data slice is a copy.
func DecodeFrame(b []byte) (*Response, error) {
	if len(b) < RespOverhead {
		return nil, fmt.Errorf("%w: got %d bytes, minimum is %d", ErrFrameTooShort, len(b), RespOverhead)
	}

	if b[0] != RespStart[0] || b[1] != RespStart[1] {
		return nil, fmt.Errorf("%w: got 0x%02X 0x%02X, expected 0x%02X 0x%02X",
			ErrInvalidStart, b[0], b[1], RespStart[0], RespStart[1])
	}

	if last := b[len(b)-1]; last != EndByte {
		return nil, fmt.Errorf("%w: got 0x%02X, expected 0x%02X", ErrInvalidEnd, last, EndByte)
	}

	declared := int(b[respLenOffset])
	expected := RespOverhead + declared
	switch {
	case len(b) < expected:
		return nil, fmt.Errorf("%w: incomplete data, declared %d bytes but frame holds %d",
			ErrLengthMismatch, declared, len(b)-RespOverhead)
	case len(b) > expected:
		return nil, fmt.Errorf("%w: %d trailing bytes after declared %d data bytes",
			ErrLengthMismatch, len(b)-expected, declared)
	}

	data := make([]byte, declared)
	copy(data, b[respDataOffset:respDataOffset+declared])

	return NewResponse(CommandID(b[respCommandOffset]), ResponseCode(b[respCodeOffset]), data), nil
}

// Decode is DecodeFrame for callers that only need to know whether a valid
// message is present. Malformed input yields nil and a debug log entry naming
// the reason; it never panics.
func Decode(b []byte) *Response {
	r, err := DecodeFrame(b)
	if err != nil {
		diag().Debug("discarding inbound frame",
			zap.String("reason", FailureReason(err)),
			zap.Int("len", len(b)),
			zap.Error(err))
		return nil
	}
	return r
}

// FailureReason maps a DecodeFrame error onto a short, stable label suitable for
// statistics and metric labels.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFrameTooShort):
		return "too_short"
	case errors.Is(err, ErrInvalidStart):
		return "invalid_start"
	case errors.Is(err, ErrInvalidEnd):
		return "invalid_end"
	case errors.Is(err, ErrLengthMismatch):
		return "length_mismatch"
	default:
		return "other"
	}
}
