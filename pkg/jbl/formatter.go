// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jbl

import (
	"fmt"
	"strings"
)

// FormatResponse formats a response into a human-readable string
func FormatResponse(r *Response) string {
	timestamp := r.timestamp.Format("15:04:05.000")

	result := fmt.Sprintf("[%s] %s (0x%02X) %s len=%d\n",
		timestamp, r.cmd, uint8(r.cmd), r.code, len(r.data))

	if r.IsRejection() {
		return result + fmt.Sprintf("  Rejected: %s (0x%02X)\n", r.code, uint8(r.code))
	}

	if len(r.data) > 0 {
		result += fmt.Sprintf("  %s\n", FormatValue(r.cmd, r.data))
	}
	return result
}

// FormatValue renders the data of a status update for display, e.g.
// "Volume: 50" or "Input: HDMI 1 (0x02)". Unknown commands fall back to a hex dump.
func FormatValue(cmd CommandID, data []byte) string {
	if len(data) == 0 {
		return "(no data)"
	}
	v := data[0]

	switch cmd {
	case CmdPower:
		return "Power: " + formatOnOff(v)
	case CmdMute:
		return "Mute: " + formatOnOff(v)
	case CmdPartyMode:
		return "Party Mode: " + formatOnOff(v)
	case CmdRoomEQ:
		return "Room EQ: " + formatOnOff(v)
	case CmdDialogEnhanced:
		return "Dialog Enhanced: " + formatOnOff(v)
	case CmdDolbyAudioMode:
		return "Dolby Audio Mode: " + formatOnOff(v)
	case CmdDRC:
		return "DRC: " + formatOnOff(v)
	case CmdVolume:
		return fmt.Sprintf("Volume: %d", v)
	case CmdPartyVolume:
		return fmt.Sprintf("Party Volume: %d", v)
	case CmdTrebleEQ:
		return fmt.Sprintf("Treble: %+d dB", DecodeEQLevel(v))
	case CmdBassEQ:
		return fmt.Sprintf("Bass: %+d dB", DecodeEQLevel(v))
	case CmdDisplayDim:
		return "Display: " + formatDim(v)
	case CmdInputSource:
		return fmt.Sprintf("Input: %s (0x%02X)", InputSource(v), v)
	case CmdSurroundMode:
		return fmt.Sprintf("Surround: %s (0x%02X)", SurroundMode(v), v)
	case CmdInitialization:
		return fmt.Sprintf("Model: %s", Model(v))
	case CmdVersion:
		return "Version: " + formatVersion(data)
	case CmdStreamingState:
		return fmt.Sprintf("Streaming: 0x%02X", v)
	case CmdSimulateIR:
		if len(data) == 3 {
			code := IRCode(data[0])<<16 | IRCode(data[1])<<8 | IRCode(data[2])
			return fmt.Sprintf("IR: %s", code)
		}
	}

	return "Data: " + FormatHex(data)
}

// FormatHex renders bytes as space separated upper-case hex pairs
func FormatHex(data []byte) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}

func formatOnOff(v byte) string {
	switch v {
	case 0x00:
		return "Off"
	case 0x01:
		return "On"
	}
	return fmt.Sprintf("0x%02X", v)
}

func formatDim(v byte) string {
	names := []string{"Off", "Dim", "Mid", "Bright"}
	if int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("0x%02X", v)
}

// formatVersion prints printable ASCII payloads as text and anything else as
// dotted decimal
func formatVersion(data []byte) string {
	printable := true
	for _, b := range data {
		if b < 0x20 || b > 0x7E {
			printable = false
			break
		}
	}
	if printable {
		return string(data)
	}

	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%d", b)
	}
	return strings.Join(parts, ".")
}
