// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jbl

import (
	"sort"
	"strings"
)

// Command builder functions return complete outbound frames.
// Set commands clamp out-of-range values instead of rejecting them; queries
// reuse the set command id with the QueryByte sentinel as the only data byte.

// Query requests the current value of a set/query command.
func Query(cmd CommandID) []byte {
	return Encode(cmd, QueryByte)
}

// SetFlag switches a boolean command (power, mute, party mode, room EQ,
// dialog enhancement, Dolby audio mode, DRC) on or off.
func SetFlag(cmd CommandID, on bool) []byte {
	if on {
		return Encode(cmd, 0x01)
	}
	return Encode(cmd, 0x00)
}

// SetVolume sets the main volume, clamped to 0-99.
func SetVolume(volume int) []byte {
	return Encode(CmdVolume, clamp(volume, 0, MaxVolume))
}

// SetPartyVolume sets the party mode volume, clamped to 0-99.
// MA710/MA7100HP/MA9100HP only.
func SetPartyVolume(volume int) []byte {
	return Encode(CmdPartyVolume, clamp(volume, 0, MaxVolume))
}

// SetTreble sets the treble EQ level in dB (-6 to +6).
func SetTreble(level int) []byte {
	return Encode(CmdTrebleEQ, EncodeEQLevel(level))
}

// SetBass sets the bass EQ level in dB (-6 to +6).
func SetBass(level int) []byte {
	return Encode(CmdBassEQ, EncodeEQLevel(level))
}

// SetDisplayDim sets display brightness: 0=off, 1=dim, 2=mid, 3=bright.
func SetDisplayDim(level int) []byte {
	return Encode(CmdDisplayDim, clamp(level, 0, MaxDisplayDim))
}

// SetInput selects an input source. Model availability is not checked.
func SetInput(src InputSource) []byte {
	return Encode(CmdInputSource, byte(src))
}

// SetSurround selects a surround mode. Model availability is not checked.
func SetSurround(mode SurroundMode) []byte {
	return Encode(CmdSurroundMode, byte(mode))
}

// QueryVersion requests the firmware version of one component.
func QueryVersion(vt VersionType) []byte {
	return Encode(CmdVersion, byte(vt))
}

// Initialize is the first command of every connection; the receiver answers
// with its model id.
func Initialize() []byte {
	return Encode(CmdInitialization, QueryByte)
}

// Heartbeat keeps the connection alive and resets the auto-standby timer.
func Heartbeat() []byte {
	return Encode(CmdHeartbeat)
}

// Reboot restarts the receiver.
func Reboot() []byte {
	return Encode(CmdReboot)
}

// FactoryReset restores factory settings.
func FactoryReset() []byte {
	return Encode(CmdFactoryReset)
}

// EncodeEQLevel shifts a signed EQ level onto the wire range. The clamp is
// applied after the shift, so -100 saturates at 0 and +100 at 12.
func EncodeEQLevel(level int) byte {
	return clamp(level+eqOffset, 0, maxEQWire)
}

// DecodeEQLevel converts a wire EQ value back to dB.
func DecodeEQLevel(b byte) int {
	return int(b) - eqOffset
}

func clamp(v, lo, hi int) byte {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return byte(v)
}

// ArgKind describes what argument an Operation takes.
type ArgKind int

const (
	ArgNone     ArgKind = iota
	ArgNumber           // integer, clamped by the operation
	ArgInput            // input source name
	ArgSurround         // surround mode name
	ArgVersion          // version type name
	ArgIRCode           // IR code name or number
)

// Operation is one named entry of the command catalog.
type Operation struct {
	Name    string
	Command CommandID
	Arg     ArgKind
	Help    string
	Models  ModelMask

	data func(arg int) []byte
}

// Frame builds the outbound frame for the operation. arg is ignored by
// operations that take no argument; for ArgInput, ArgSurround, ArgVersion and
// ArgIRCode it is the raw catalog value.
func (o Operation) Frame(arg int) []byte {
	return Encode(o.Command, o.data(arg)...)
}

// IsQuery reports whether the operation reads state rather than changing it.
func (o Operation) IsQuery() bool {
	return strings.HasSuffix(o.Name, "_query")
}

func none(int) []byte  { return nil }
func query(int) []byte { return []byte{QueryByte} }
func on(int) []byte    { return []byte{0x01} }
func off(int) []byte   { return []byte{0x00} }
func raw(v int) []byte { return []byte{byte(v)} }

func clamped(max int) func(int) []byte {
	return func(v int) []byte { return []byte{clamp(v, 0, max)} }
}

func eq(v int) []byte { return []byte{EncodeEQLevel(v)} }

func irBytes(v int) []byte {
	return irCodeBytes(IRCode(v))
}

// flagOps expands a boolean command into its on/off/query operations.
func flagOps(name string, cmd CommandID, models ModelMask, what string) []Operation {
	return []Operation{
		{Name: name + "_on", Command: cmd, Models: models, Help: "Enable " + what, data: on},
		{Name: name + "_off", Command: cmd, Models: models, Help: "Disable " + what, data: off},
		{Name: name + "_query", Command: cmd, Models: models, Help: "Query " + what, data: query},
	}
}

// valueOps expands a numeric command into its set/query operations.
func valueOps(name string, cmd CommandID, models ModelMask, what string, set func(int) []byte) []Operation {
	return []Operation{
		{Name: name + "_set", Command: cmd, Arg: ArgNumber, Models: models, Help: "Set " + what, data: set},
		{Name: name + "_query", Command: cmd, Models: models, Help: "Query " + what, data: query},
	}
}

var operations = buildOperations()

func buildOperations() map[string]Operation {
	var ops []Operation
	ops = append(ops, flagOps("power", CmdPower, AllModels, "power")...)
	ops = append(ops, valueOps("volume", CmdVolume, AllModels, "volume (0-99)", clamped(MaxVolume))...)
	ops = append(ops, flagOps("mute", CmdMute, AllModels, "mute")...)
	ops = append(ops,
		Operation{Name: "input_set", Command: CmdInputSource, Arg: ArgInput, Models: AllModels, Help: "Select input source", data: raw},
		Operation{Name: "input_query", Command: CmdInputSource, Models: AllModels, Help: "Query input source", data: query},
		Operation{Name: "surround_set", Command: CmdSurroundMode, Arg: ArgSurround, Models: AllModels, Help: "Select surround mode", data: raw},
		Operation{Name: "surround_query", Command: CmdSurroundMode, Models: AllModels, Help: "Query surround mode", data: query},
	)
	ops = append(ops, valueOps("treble", CmdTrebleEQ, AllModels, "treble EQ (-6..+6 dB)", eq)...)
	ops = append(ops, valueOps("bass", CmdBassEQ, AllModels, "bass EQ (-6..+6 dB)", eq)...)
	ops = append(ops, flagOps("room_eq", CmdRoomEQ, AllModels, "room EQ")...)
	ops = append(ops, flagOps("dialog", CmdDialogEnhanced, AllModels, "dialog enhancement")...)
	ops = append(ops, flagOps("dolby_audio", CmdDolbyAudioMode, AllModels, "Dolby audio mode")...)
	ops = append(ops, flagOps("drc", CmdDRC, MA710Plus, "dynamic range compression")...)
	ops = append(ops, flagOps("party", CmdPartyMode, MA710Plus, "party mode")...)
	ops = append(ops, valueOps("party_volume", CmdPartyVolume, MA710Plus, "party volume (0-99)", clamped(MaxVolume))...)
	ops = append(ops, valueOps("dim", CmdDisplayDim, AllModels, "display brightness (0-3)", clamped(MaxDisplayDim))...)
	ops = append(ops,
		Operation{Name: "version_query", Command: CmdVersion, Arg: ArgVersion, Models: AllModels, Help: "Query firmware version (ip, host, dsp, osd, net)", data: raw},
		Operation{Name: "streaming_query", Command: CmdStreamingState, Models: AllModels, Help: "Query streaming server state", data: query},
		Operation{Name: "initialize", Command: CmdInitialization, Models: AllModels, Help: "Initialize connection and report model", data: query},
		Operation{Name: "heartbeat", Command: CmdHeartbeat, Models: AllModels, Help: "Keep-alive, resets auto-standby", data: none},
		Operation{Name: "reboot", Command: CmdReboot, Models: AllModels, Help: "Reboot the receiver", data: none},
		Operation{Name: "factory_reset", Command: CmdFactoryReset, Models: AllModels, Help: "Restore factory settings", data: none},
		Operation{Name: "ir", Command: CmdSimulateIR, Arg: ArgIRCode, Models: AllModels, Help: "Simulate an IR remote key", data: irBytes},
	)

	m := make(map[string]Operation, len(ops))
	for _, op := range ops {
		m[op.Name] = op
	}
	return m
}

// LookupOperation finds a catalog operation by name ("volume_set", "power-on", ...).
func LookupOperation(name string) (Operation, bool) {
	op, ok := operations[strings.ReplaceAll(strings.ToLower(name), "-", "_")]
	return op, ok
}

// Operations returns every catalog operation sorted by name.
func Operations() []Operation {
	ops := make([]Operation, 0, len(operations))
	for _, op := range operations {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Name < ops[j].Name })
	return ops
}
