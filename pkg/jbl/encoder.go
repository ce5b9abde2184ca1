// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jbl

import "go.uber.org/zap"

// Encode builds an outbound command frame.
//
// Frame structure:
//
//	[START][CMD][LEN][DATA...][END]
//
// LEN is always len(data). Data beyond MaxDataLen bytes is dropped so the
// frame keeps its shape; no catalog command comes close to that limit.
func Encode(cmd CommandID, data ...byte) []byte {
	if len(data) > MaxDataLen {
		diag().Debug("truncating command data",
			zap.Stringer("cmd", cmd),
			zap.Int("len", len(data)),
			zap.Int("max", MaxDataLen))
		data = data[:MaxDataLen]
	}

	frame := make([]byte, 0, CmdOverhead+len(data))
	frame = append(frame, CmdStartByte, byte(cmd), byte(len(data)))
	frame = append(frame, data...)
	frame = append(frame, EndByte)
	return frame
}

// EncodeResponse builds an inbound-shaped frame, as a receiver would send it.
//
// Frame structure:
//
//	[START0][START1][CMD][CODE][LEN][DATA...][END]
//
// Used by the mock receiver and by tests; the same truncation rule as Encode applies.
func EncodeResponse(cmd CommandID, code ResponseCode, data ...byte) []byte {
	if len(data) > MaxDataLen {
		data = data[:MaxDataLen]
	}

	frame := make([]byte, 0, RespOverhead+len(data))
	frame = append(frame, RespStart[0], RespStart[1], byte(cmd), byte(code), byte(len(data)))
	frame = append(frame, data...)
	frame = append(frame, EndByte)
	return frame
}
