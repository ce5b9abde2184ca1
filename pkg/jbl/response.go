// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jbl

import "time"

// Response represents a decoded inbound frame.
//
// The command id and response code are carried as received; an id or code
// outside the catalog is representable and does not make a frame invalid.
type Response struct {
	cmd       CommandID
	code      ResponseCode
	data      []byte
	timestamp time.Time
}

// NewResponse creates a response with the given fields, stamped with the current time.
func NewResponse(cmd CommandID, code ResponseCode, data []byte) *Response {
	return &Response{
		cmd:       cmd,
		code:      code,
		data:      data,
		timestamp: time.Now(),
	}
}

// Command returns the command id the response refers to
func (r *Response) Command() CommandID {
	return r.cmd
}

// Code returns the response code
func (r *Response) Code() ResponseCode {
	return r.code
}

// Data returns the payload bytes (empty, never nil, for zero-length payloads)
func (r *Response) Data() []byte {
	return r.data
}

// Timestamp returns when the response was decoded
func (r *Response) Timestamp() time.Time {
	return r.timestamp
}

// IsRejection reports whether the receiver rejected the request
func (r *Response) IsRejection() bool {
	return r.code.IsRejection()
}

// Value returns the first data byte, the value carried by every status
// update for a set/query command.
func (r *Response) Value() (byte, bool) {
	if len(r.data) == 0 {
		return 0, false
	}
	return r.data[0], true
}

// Model returns the model reported by an initialization response.
func (r *Response) Model() (Model, bool) {
	if r.cmd != CmdInitialization || r.code != RspStatusUpdate {
		return 0, false
	}
	v, ok := r.Value()
	return Model(v), ok
}

// Err returns a *RejectionError when the receiver rejected the request, nil otherwise.
func (r *Response) Err() error {
	if !r.IsRejection() {
		return nil
	}
	return &RejectionError{Command: r.cmd, Code: r.code}
}
