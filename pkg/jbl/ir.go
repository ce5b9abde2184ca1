// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jbl

import (
	"fmt"
	"strconv"
	"strings"
)

// IRCode is a 24-bit NEC-format remote control code.
type IRCode uint32

// MaxIRCode is the largest value representable in the three IR data bytes.
const MaxIRCode IRCode = 0xFFFFFF

// Navigation
const (
	IRPower IRCode = 0x010E03
	IRUp    IRCode = 0x010E99
	IRDown  IRCode = 0x010E59
	IRLeft  IRCode = 0x010E83
	IRRight IRCode = 0x010E43
	IROK    IRCode = 0x010E21
	IRMenu  IRCode = 0x010ECA
	IRBack  IRCode = 0x010EA1
	IRDim   IRCode = 0x010EC9
)

// Volume, source and surround stepping
const (
	IRVolumeUp     IRCode = 0x010EE3
	IRVolumeDown   IRCode = 0x010E13
	IRMute         IRCode = 0x010EC3
	IRSourceUp     IRCode = 0x010E8C
	IRSourceDown   IRCode = 0x010E0C
	IRSurroundUp   IRCode = 0x010EF4
	IRSurroundDown IRCode = 0x010E74
)

// Discrete power
const (
	IRMainPowerOn  IRCode = 0x010ED9
	IRMainPowerOff IRCode = 0x010EF9
)

// Discrete input selection
const (
	IRTV        IRCode = 0x010E71
	IRHDMI1     IRCode = 0x010E11
	IRHDMI2     IRCode = 0x010E91
	IRHDMI3     IRCode = 0x010E51
	IRHDMI4     IRCode = 0x010ED1
	IRHDMI5     IRCode = 0x010E31 // MA710+ only
	IRHDMI6     IRCode = 0x010EB1 // MA710+ only
	IRCoax      IRCode = 0x010E81
	IROptical   IRCode = 0x010EDB
	IRAnalog1   IRCode = 0x010E23
	IRAnalog2   IRCode = 0x010E33
	IRPhono     IRCode = 0x010E0B // MA710+ only
	IRBluetooth IRCode = 0x010E53
	IRNetwork   IRCode = 0x010ED3
)

// Party mode (MA710+ only)
const (
	IRPartyOn         IRCode = 0x010E73
	IRPartyOff        IRCode = 0x010E8B
	IRPartyVolumeUp   IRCode = 0x010E39
	IRPartyVolumeDown IRCode = 0x010EB9
)

// IRKey is one entry of the IR code table.
type IRKey struct {
	Code   IRCode
	Name   string
	Group  string
	Models ModelMask
	// Aliases are the remote-control command names that map onto this key.
	Aliases []string
}

var irKeys = []IRKey{
	{IRPower, "POWER", "navigation", AllModels, []string{"POWER_TOGGLE"}},
	{IRUp, "UP", "navigation", AllModels, []string{"CURSOR_UP"}},
	{IRDown, "DOWN", "navigation", AllModels, []string{"CURSOR_DOWN"}},
	{IRLeft, "LEFT", "navigation", AllModels, []string{"CURSOR_LEFT"}},
	{IRRight, "RIGHT", "navigation", AllModels, []string{"CURSOR_RIGHT"}},
	{IROK, "OK", "navigation", AllModels, []string{"CURSOR_ENTER"}},
	{IRMenu, "MENU", "navigation", AllModels, nil},
	{IRBack, "BACK", "navigation", AllModels, nil},
	{IRDim, "DIM", "navigation", AllModels, nil},

	{IRVolumeUp, "VOL_UP", "volume", AllModels, []string{"VOLUME_UP"}},
	{IRVolumeDown, "VOL_DOWN", "volume", AllModels, []string{"VOLUME_DOWN"}},
	{IRMute, "MUTE", "volume", AllModels, []string{"MUTE_TOGGLE"}},

	{IRSourceUp, "SOURCE_UP", "source", AllModels, nil},
	{IRSourceDown, "SOURCE_DOWN", "source", AllModels, nil},
	{IRSurroundUp, "SURR_UP", "surround", AllModels, []string{"SURROUND_UP"}},
	{IRSurroundDown, "SURR_DOWN", "surround", AllModels, []string{"SURROUND_DOWN"}},

	{IRMainPowerOn, "MAIN_POWER_ON", "power", AllModels, []string{"POWER_ON"}},
	{IRMainPowerOff, "MAIN_POWER_OFF", "power", AllModels, []string{"POWER_OFF"}},

	{IRTV, "TV", "input", AllModels, nil},
	{IRHDMI1, "HDMI1", "input", AllModels, []string{"HDMI_1"}},
	{IRHDMI2, "HDMI2", "input", AllModels, []string{"HDMI_2"}},
	{IRHDMI3, "HDMI3", "input", AllModels, []string{"HDMI_3"}},
	{IRHDMI4, "HDMI4", "input", AllModels, []string{"HDMI_4"}},
	{IRHDMI5, "HDMI5", "input", MA710Plus, []string{"HDMI_5"}},
	{IRHDMI6, "HDMI6", "input", MA710Plus, []string{"HDMI_6"}},
	{IRCoax, "COAX", "input", AllModels, nil},
	{IROptical, "OPTICAL", "input", AllModels, nil},
	{IRAnalog1, "ANALOG1", "input", AllModels, []string{"ANALOG_1"}},
	{IRAnalog2, "ANALOG2", "input", AllModels, []string{"ANALOG_2"}},
	{IRPhono, "PHONO", "input", MA710Plus, nil},
	{IRBluetooth, "BLUETOOTH", "input", AllModels, nil},
	{IRNetwork, "NETWORK", "input", AllModels, nil},

	{IRPartyOn, "PARTY_ON", "party", MA710Plus, nil},
	{IRPartyOff, "PARTY_OFF", "party", MA710Plus, nil},
	{IRPartyVolumeUp, "PARTY_VOL_UP", "party", MA710Plus, nil},
	{IRPartyVolumeDown, "PARTY_VOL_DOWN", "party", MA710Plus, nil},
}

// EncodeIR builds a SIMULATE_IR frame carrying the code as three bytes, most
// significant first. Bits above the low 24 are ignored. Model availability is
// not checked.
func EncodeIR(code IRCode) []byte {
	return Encode(CmdSimulateIR, irCodeBytes(code)...)
}

func irCodeBytes(code IRCode) []byte {
	return []byte{
		byte((code >> 16) & 0xFF),
		byte((code >> 8) & 0xFF),
		byte(code & 0xFF),
	}
}

// IRKeys returns the IR code table in display order.
func IRKeys() []IRKey {
	return append([]IRKey(nil), irKeys...)
}

// Key returns the table entry for the code.
func (c IRCode) Key() (IRKey, bool) {
	for _, k := range irKeys {
		if k.Code == c {
			return k, true
		}
	}
	return IRKey{}, false
}

func (c IRCode) String() string {
	if k, ok := c.Key(); ok {
		return k.Name
	}
	return fmt.Sprintf("0x%06X", uint32(c))
}

// LookupIR resolves a table name ("VOL_UP"), a remote command alias
// ("VOLUME_UP", "CURSOR_ENTER") or a numeric code ("0x010E03") to an IR code.
func LookupIR(name string) (IRCode, bool) {
	key := strings.ToUpper(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "-", "_")
	for _, k := range irKeys {
		if k.Name == key {
			return k.Code, true
		}
		for _, a := range k.Aliases {
			if a == key {
				return k.Code, true
			}
		}
	}

	v, err := strconv.ParseUint(strings.TrimSpace(name), 0, 32)
	if err != nil || IRCode(v) > MaxIRCode {
		return 0, false
	}
	return IRCode(v), true
}
