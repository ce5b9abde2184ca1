// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jbl

import (
	"fmt"
	"strings"
)

// Model identifies a receiver variant, as reported by the initialization response.
type Model uint8

// Receiver models
const (
	ModelMA510    Model = 0x01
	ModelMA710    Model = 0x02
	ModelMA7100HP Model = 0x03
	ModelMA9100HP Model = 0x04
)

// ModelMask is a set of models on which a catalog value is available.
// The codec never enforces it; it is exposed so callers can filter.
type ModelMask uint8

// Model availability sets
const (
	MaskMA510    ModelMask = 1 << iota
	MaskMA710
	MaskMA7100HP
	MaskMA9100HP

	AllModels = MaskMA510 | MaskMA710 | MaskMA7100HP | MaskMA9100HP
	MA710Plus = MaskMA710 | MaskMA7100HP | MaskMA9100HP
	MA510Only = MaskMA510
)

// Mask returns the single-model mask for m, or zero for an unknown model.
func (m Model) Mask() ModelMask {
	switch m {
	case ModelMA510:
		return MaskMA510
	case ModelMA710:
		return MaskMA710
	case ModelMA7100HP:
		return MaskMA7100HP
	case ModelMA9100HP:
		return MaskMA9100HP
	}
	return 0
}

// Known reports whether m is one of the four defined models.
func (m Model) Known() bool {
	return m.Mask() != 0
}

func (m Model) String() string {
	switch m {
	case ModelMA510:
		return "MA510"
	case ModelMA710:
		return "MA710"
	case ModelMA7100HP:
		return "MA7100HP"
	case ModelMA9100HP:
		return "MA9100HP"
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(m))
}

// Supports reports whether model m is in the set.
func (s ModelMask) Supports(m Model) bool {
	return s&m.Mask() != 0
}

func (s ModelMask) String() string {
	switch s {
	case AllModels:
		return "all models"
	case MA710Plus:
		return "MA710/MA7100HP/MA9100HP"
	case 0:
		return "none"
	}
	var names []string
	for _, m := range Models() {
		if s.Supports(m) {
			names = append(names, m.String())
		}
	}
	return strings.Join(names, "/")
}

// Models returns every defined model in id order.
func Models() []Model {
	return []Model{ModelMA510, ModelMA710, ModelMA7100HP, ModelMA9100HP}
}

// InputSource is an input selector value.
type InputSource uint8

// Input sources
const (
	InputTVARC     InputSource = 0x01
	InputHDMI1     InputSource = 0x02
	InputHDMI2     InputSource = 0x03
	InputHDMI3     InputSource = 0x04
	InputHDMI4     InputSource = 0x05
	InputHDMI5     InputSource = 0x06 // MA710/MA7100HP/MA9100HP only
	InputHDMI6     InputSource = 0x07 // MA710/MA7100HP/MA9100HP only
	InputCoax      InputSource = 0x08
	InputOptical   InputSource = 0x09
	InputAnalog1   InputSource = 0x0A
	InputAnalog2   InputSource = 0x0B
	InputPhono     InputSource = 0x0C // MA710/MA7100HP/MA9100HP only
	InputBluetooth InputSource = 0x0D
	InputNetwork   InputSource = 0x0E
)

// SurroundMode is a sound processing mode value.
type SurroundMode uint8

// Surround modes
const (
	SurroundDolbySurround   SurroundMode = 0x01 // MA710/MA7100HP/MA9100HP only
	SurroundDTSNeuralX      SurroundMode = 0x02 // MA710/MA7100HP/MA9100HP only
	SurroundStereo20        SurroundMode = 0x03
	SurroundStereo21        SurroundMode = 0x04
	SurroundAllStereo       SurroundMode = 0x05
	SurroundNative          SurroundMode = 0x06
	SurroundDolbyProLogicII SurroundMode = 0x07 // MA510 only
)

// CatalogEntry is one value of an enumerated catalog.
type CatalogEntry struct {
	Value  uint8
	Name   string
	Models ModelMask
}

var inputSources = []CatalogEntry{
	{uint8(InputTVARC), "TV (ARC)", AllModels},
	{uint8(InputHDMI1), "HDMI 1", AllModels},
	{uint8(InputHDMI2), "HDMI 2", AllModels},
	{uint8(InputHDMI3), "HDMI 3", AllModels},
	{uint8(InputHDMI4), "HDMI 4", AllModels},
	{uint8(InputHDMI5), "HDMI 5", MA710Plus},
	{uint8(InputHDMI6), "HDMI 6", MA710Plus},
	{uint8(InputCoax), "Coax", AllModels},
	{uint8(InputOptical), "Optical", AllModels},
	{uint8(InputAnalog1), "Analog 1", AllModels},
	{uint8(InputAnalog2), "Analog 2", AllModels},
	{uint8(InputPhono), "Phono", MA710Plus},
	{uint8(InputBluetooth), "Bluetooth", AllModels},
	{uint8(InputNetwork), "Network", AllModels},
}

var surroundModes = []CatalogEntry{
	{uint8(SurroundDolbySurround), "Dolby Surround", MA710Plus},
	{uint8(SurroundDTSNeuralX), "DTS Neural:X", MA710Plus},
	{uint8(SurroundStereo20), "Stereo 2.0", AllModels},
	{uint8(SurroundStereo21), "Stereo 2.1", AllModels},
	{uint8(SurroundAllStereo), "All Stereo", AllModels},
	{uint8(SurroundNative), "Native", AllModels},
	{uint8(SurroundDolbyProLogicII), "Dolby Pro Logic II", MA510Only},
}

// InputSources returns the input source catalog in id order.
func InputSources() []CatalogEntry {
	return append([]CatalogEntry(nil), inputSources...)
}

// SurroundModes returns the surround mode catalog in id order.
func SurroundModes() []CatalogEntry {
	return append([]CatalogEntry(nil), surroundModes...)
}

func findEntry(entries []CatalogEntry, v uint8) (CatalogEntry, bool) {
	for _, e := range entries {
		if e.Value == v {
			return e, true
		}
	}
	return CatalogEntry{}, false
}

func findEntryByName(entries []CatalogEntry, name string) (CatalogEntry, bool) {
	key := normalizeName(name)
	for _, e := range entries {
		if normalizeName(e.Name) == key {
			return e, true
		}
	}
	return CatalogEntry{}, false
}

// normalizeName folds case and drops separators so "hdmi_1", "HDMI 1" and
// "hdmi1" compare equal.
func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '_', '-', '.', ':', '(', ')':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s InputSource) String() string {
	if e, ok := findEntry(inputSources, uint8(s)); ok {
		return e.Name
	}
	return fmt.Sprintf("Unknown (0x%02X)", uint8(s))
}

// Models returns the models on which the input exists (zero if unknown).
func (s InputSource) Models() ModelMask {
	e, _ := findEntry(inputSources, uint8(s))
	return e.Models
}

// ParseInputSource resolves a display name ("HDMI 1", "hdmi1", "tv") to an input.
func ParseInputSource(name string) (InputSource, bool) {
	if normalizeName(name) == "tv" {
		return InputTVARC, true
	}
	e, ok := findEntryByName(inputSources, name)
	return InputSource(e.Value), ok
}

func (m SurroundMode) String() string {
	if e, ok := findEntry(surroundModes, uint8(m)); ok {
		return e.Name
	}
	return fmt.Sprintf("Unknown (0x%02X)", uint8(m))
}

// Models returns the models on which the surround mode exists (zero if unknown).
func (m SurroundMode) Models() ModelMask {
	e, _ := findEntry(surroundModes, uint8(m))
	return e.Models
}

// ParseSurroundMode resolves a display name ("Stereo 2.1", "native") to a mode.
func ParseSurroundMode(name string) (SurroundMode, bool) {
	e, ok := findEntryByName(surroundModes, name)
	return SurroundMode(e.Value), ok
}

func (c CommandID) String() string {
	switch c {
	case CmdPower:
		return "POWER"
	case CmdDisplayDim:
		return "DISPLAY_DIM"
	case CmdVersion:
		return "VERSION"
	case CmdSimulateIR:
		return "SIMULATE_IR"
	case CmdInputSource:
		return "INPUT_SOURCE"
	case CmdVolume:
		return "VOLUME"
	case CmdMute:
		return "MUTE"
	case CmdSurroundMode:
		return "SURROUND_MODE"
	case CmdPartyMode:
		return "PARTY_MODE"
	case CmdPartyVolume:
		return "PARTY_VOLUME"
	case CmdTrebleEQ:
		return "TREBLE_EQ"
	case CmdBassEQ:
		return "BASS_EQ"
	case CmdRoomEQ:
		return "ROOM_EQ"
	case CmdDialogEnhanced:
		return "DIALOG_ENHANCED"
	case CmdDolbyAudioMode:
		return "DOLBY_AUDIO_MODE"
	case CmdDRC:
		return "DRC"
	case CmdStreamingState:
		return "STREAMING_STATE"
	case CmdInitialization:
		return "INITIALIZATION"
	case CmdHeartbeat:
		return "HEARTBEAT"
	case CmdReboot:
		return "REBOOT"
	case CmdFactoryReset:
		return "FACTORY_RESET"
	default:
		return "UNKNOWN"
	}
}

// Known reports whether c is a defined command id.
func (c CommandID) Known() bool {
	return c.String() != "UNKNOWN"
}

// CommandIDs returns every defined command id in id order.
func CommandIDs() []CommandID {
	return []CommandID{
		CmdPower, CmdDisplayDim, CmdVersion, CmdSimulateIR, CmdInputSource,
		CmdVolume, CmdMute, CmdSurroundMode, CmdPartyMode, CmdPartyVolume,
		CmdTrebleEQ, CmdBassEQ, CmdRoomEQ, CmdDialogEnhanced, CmdDolbyAudioMode,
		CmdDRC, CmdStreamingState, CmdInitialization, CmdHeartbeat, CmdReboot,
		CmdFactoryReset,
	}
}

func (r ResponseCode) String() string {
	switch r {
	case RspStatusUpdate:
		return "STATUS_UPDATE"
	case RspCommandNotRecognized:
		return "COMMAND_NOT_RECOGNIZED"
	case RspParameterNotRecognized:
		return "PARAMETER_NOT_RECOGNIZED"
	case RspCommandInvalid:
		return "COMMAND_INVALID"
	case RspInvalidDataLength:
		return "INVALID_DATA_LENGTH"
	default:
		return "UNKNOWN"
	}
}

// IsRejection reports whether the receiver refused the request.
// Any code other than a status update counts, including undefined codes.
func (r ResponseCode) IsRejection() bool {
	return r != RspStatusUpdate
}

func (v VersionType) String() string {
	switch v {
	case VersionIPControl:
		return "IP control"
	case VersionHost:
		return "Host"
	case VersionDSP:
		return "DSP"
	case VersionOSD:
		return "OSD"
	case VersionNetwork:
		return "Network"
	}
	return fmt.Sprintf("0x%02X", uint8(v))
}

// ParseVersionType accepts "ip", "host", "dsp", "osd", "net"/"network".
func ParseVersionType(name string) (VersionType, bool) {
	switch normalizeName(name) {
	case "", "ip", "ipcontrol":
		return VersionIPControl, true
	case "host":
		return VersionHost, true
	case "dsp":
		return VersionDSP, true
	case "osd":
		return VersionOSD, true
	case "net", "network":
		return VersionNetwork, true
	}
	return 0, false
}
