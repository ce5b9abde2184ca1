// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jbl

import "fmt"

// RejectionError reports a structurally valid response whose code says the
// receiver refused the request.
type RejectionError struct {
	Command CommandID
	Code    ResponseCode
}

// Error implements the error interface
func (e *RejectionError) Error() string {
	return fmt.Sprintf("receiver rejected %s (0x%02X): %s (0x%02X)",
		e.Command, uint8(e.Command), e.Code, uint8(e.Code))
}

// AnomalyType represents different kinds of suspicious response content
type AnomalyType int

const (
	AnomalyUnknownCommand AnomalyType = iota
	AnomalyUnknownCode
	AnomalyRejected
	AnomalyLengthMismatch
	AnomalyValueOutOfRange
	AnomalyUnknownValue
)

func (a AnomalyType) String() string {
	switch a {
	case AnomalyUnknownCommand:
		return "unknown_command"
	case AnomalyUnknownCode:
		return "unknown_code"
	case AnomalyRejected:
		return "rejected"
	case AnomalyLengthMismatch:
		return "length_mismatch"
	case AnomalyValueOutOfRange:
		return "out_of_range"
	case AnomalyUnknownValue:
		return "unknown_value"
	}
	return "other"
}

// ValidationError describes one anomaly found in a decoded response.
// Anomalies are informational: the frame itself was valid.
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateResponse checks a decoded response against the catalogs and the
// documented value ranges. Returns an empty slice if nothing looks wrong.
func ValidateResponse(r *Response) []ValidationError {
	errors := []ValidationError{}

	if !r.cmd.Known() {
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownCommand,
			Message: fmt.Sprintf("Unknown command id 0x%02X", uint8(r.cmd)),
			Details: map[string]interface{}{"command": uint8(r.cmd)},
		})
	}

	if r.code.String() == "UNKNOWN" {
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownCode,
			Message: fmt.Sprintf("Unknown response code 0x%02X", uint8(r.code)),
			Details: map[string]interface{}{"code": uint8(r.code)},
		})
	}

	if r.IsRejection() {
		errors = append(errors, ValidationError{
			Type:    AnomalyRejected,
			Message: r.Err().Error(),
			Details: map[string]interface{}{"command": uint8(r.cmd), "code": uint8(r.code)},
		})
		return errors
	}

	switch r.cmd {
	case CmdVolume, CmdPartyVolume:
		errors = append(errors, validateRange(r, 0, MaxVolume)...)
	case CmdDisplayDim:
		errors = append(errors, validateRange(r, 0, MaxDisplayDim)...)
	case CmdTrebleEQ, CmdBassEQ:
		errors = append(errors, validateRange(r, 0, maxEQWire)...)
	case CmdPower, CmdMute, CmdPartyMode, CmdRoomEQ, CmdDialogEnhanced, CmdDolbyAudioMode, CmdDRC:
		errors = append(errors, validateRange(r, 0, 1)...)
	case CmdInputSource:
		errors = append(errors, validateCatalogValue(r, inputSources, "input source")...)
	case CmdSurroundMode:
		errors = append(errors, validateCatalogValue(r, surroundModes, "surround mode")...)
	case CmdInitialization:
		errors = append(errors, validateInitialization(r)...)
	}

	return errors
}

// validateRange checks a single-byte status value
func validateRange(r *Response, min, max int) []ValidationError {
	if len(r.data) != 1 {
		return []ValidationError{{
			Type:    AnomalyLengthMismatch,
			Message: fmt.Sprintf("%s payload length %d (expected 1 byte)", r.cmd, len(r.data)),
			Details: map[string]interface{}{"length": len(r.data), "expected": 1},
		}}
	}

	v := int(r.data[0])
	if v < min || v > max {
		return []ValidationError{{
			Type:    AnomalyValueOutOfRange,
			Message: fmt.Sprintf("%s value=%d out of range (valid %d-%d)", r.cmd, v, min, max),
			Details: map[string]interface{}{"value": v, "min": min, "max": max},
		}}
	}
	return nil
}

// validateCatalogValue checks that a status value names a catalog entry
func validateCatalogValue(r *Response, entries []CatalogEntry, what string) []ValidationError {
	if len(r.data) != 1 {
		return []ValidationError{{
			Type:    AnomalyLengthMismatch,
			Message: fmt.Sprintf("%s payload length %d (expected 1 byte)", r.cmd, len(r.data)),
			Details: map[string]interface{}{"length": len(r.data), "expected": 1},
		}}
	}

	if _, ok := findEntry(entries, r.data[0]); !ok {
		return []ValidationError{{
			Type:    AnomalyUnknownValue,
			Message: fmt.Sprintf("Unknown %s 0x%02X", what, r.data[0]),
			Details: map[string]interface{}{"value": r.data[0]},
		}}
	}
	return nil
}

// validateInitialization checks the model byte of the handshake reply
func validateInitialization(r *Response) []ValidationError {
	m, ok := r.Model()
	if !ok {
		return []ValidationError{{
			Type:    AnomalyLengthMismatch,
			Message: "INITIALIZATION response carries no model byte",
			Details: map[string]interface{}{"length": len(r.data), "minimum": 1},
		}}
	}
	if !m.Known() {
		return []ValidationError{{
			Type:    AnomalyUnknownValue,
			Message: fmt.Sprintf("Unknown model id 0x%02X", uint8(m)),
			Details: map[string]interface{}{"model": uint8(m)},
		}}
	}
	return nil
}
