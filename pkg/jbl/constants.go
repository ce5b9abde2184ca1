// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package jbl implements the binary IP control protocol spoken by JBL Synthesis
// MA-series AV receivers (MA510, MA710, MA7100HP, MA9100HP).
//
// The package is a pure codec: it builds outbound command frames, validates and
// decodes inbound response frames, and owns the protocol's enumerated vocabulary
// (command ids, response codes, models, input sources, surround modes and the IR
// remote code table). It keeps no state between calls and is safe for concurrent
// use. Connection handling lives in package receiver.
package jbl

// Protocol framing bytes
const (
	CmdStartByte = 0x23 // outbound frames start with a single byte
	EndByte      = 0x0D
	QueryByte    = 0xF0 // "no value supplied, report current value"
)

// RespStart is the two-byte start marker of inbound frames.
var RespStart = [2]byte{0x02, 0x23}

// Frame size limits
const (
	MaxDataLen        = 255
	CmdOverhead       = 4 // start + cmd + len + end
	RespOverhead      = 6 // start(2) + cmd + code + len + end
	MaxCommandSize    = CmdOverhead + MaxDataLen
	MaxResponseSize   = RespOverhead + MaxDataLen
	respHeaderSize    = 5
	respLenOffset     = 4
	respDataOffset    = 5
	respCommandOffset = 2
	respCodeOffset    = 3
)

// CommandID names the receiver function a frame addresses.
type CommandID uint8

// Command ids. These values are fixed by the receiver firmware.
const (
	CmdPower          CommandID = 0x00
	CmdDisplayDim     CommandID = 0x01
	CmdVersion        CommandID = 0x02
	CmdSimulateIR     CommandID = 0x04
	CmdInputSource    CommandID = 0x05
	CmdVolume         CommandID = 0x06
	CmdMute           CommandID = 0x07
	CmdSurroundMode   CommandID = 0x08
	CmdPartyMode      CommandID = 0x09
	CmdPartyVolume    CommandID = 0x0A
	CmdTrebleEQ       CommandID = 0x0B
	CmdBassEQ         CommandID = 0x0C
	CmdRoomEQ         CommandID = 0x0D
	CmdDialogEnhanced CommandID = 0x0E
	CmdDolbyAudioMode CommandID = 0x0F
	CmdDRC            CommandID = 0x10
	CmdStreamingState CommandID = 0x11
	CmdInitialization CommandID = 0x50
	CmdHeartbeat      CommandID = 0x51
	CmdReboot         CommandID = 0x52
	CmdFactoryReset   CommandID = 0x53
)

// ResponseCode is the status byte of an inbound frame.
type ResponseCode uint8

// Response codes
const (
	RspStatusUpdate           ResponseCode = 0x00
	RspCommandNotRecognized   ResponseCode = 0xC1
	RspParameterNotRecognized ResponseCode = 0xC2
	RspCommandInvalid         ResponseCode = 0xC3
	RspInvalidDataLength      ResponseCode = 0xC4
)

// VersionType selects which firmware component the version query reports.
type VersionType uint8

// Version types
const (
	VersionIPControl VersionType = 0xF0
	VersionHost      VersionType = 0xF1
	VersionDSP       VersionType = 0xF2
	VersionOSD       VersionType = 0xF3
	VersionNetwork   VersionType = 0xF4
)

// Parameter ranges
const (
	MaxVolume     = 99
	MaxDisplayDim = 3
	MinEQLevel    = -6
	MaxEQLevel    = 6
	eqOffset      = 6
	maxEQWire     = MaxEQLevel + eqOffset
)

// Display brightness levels
const (
	DimOff    = 0
	DimLow    = 1
	DimMid    = 2
	DimBright = 3
)
