// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jbl

import (
	"bytes"
	"testing"
)

func TestLookupOperation(t *testing.T) {
	tests := []struct {
		name string
		arg  int
		want []byte
	}{
		{"power_on", 0, SetFlag(CmdPower, true)},
		{"power-off", 0, SetFlag(CmdPower, false)},
		{"POWER_QUERY", 0, Query(CmdPower)},
		{"volume_set", 150, SetVolume(99)},
		{"volume_query", 0, Query(CmdVolume)},
		{"mute_on", 0, SetFlag(CmdMute, true)},
		{"input_set", int(InputOptical), SetInput(InputOptical)},
		{"surround_set", int(SurroundAllStereo), SetSurround(SurroundAllStereo)},
		{"treble_set", -3, SetTreble(-3)},
		{"bass_set", 9, SetBass(6)},
		{"room_eq_off", 0, SetFlag(CmdRoomEQ, false)},
		{"dialog_on", 0, SetFlag(CmdDialogEnhanced, true)},
		{"dolby_audio_query", 0, Query(CmdDolbyAudioMode)},
		{"drc_on", 0, SetFlag(CmdDRC, true)},
		{"party_on", 0, SetFlag(CmdPartyMode, true)},
		{"party_volume_set", -1, SetPartyVolume(0)},
		{"dim_set", 2, SetDisplayDim(2)},
		{"version_query", int(VersionOSD), QueryVersion(VersionOSD)},
		{"streaming_query", 0, Query(CmdStreamingState)},
		{"initialize", 0, Initialize()},
		{"heartbeat", 0, Heartbeat()},
		{"reboot", 0, Reboot()},
		{"factory_reset", 0, FactoryReset()},
		{"ir", int(IRMute), EncodeIR(IRMute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, ok := LookupOperation(tt.name)
			if !ok {
				t.Fatalf("operation %q not found", tt.name)
			}
			if got := op.Frame(tt.arg); !bytes.Equal(got, tt.want) {
				t.Errorf("Frame(%d) = %X, want %X", tt.arg, got, tt.want)
			}
		})
	}

	if _, ok := LookupOperation("warp_drive_on"); ok {
		t.Error("unexpected operation found")
	}
}

func TestOperations(t *testing.T) {
	ops := Operations()
	if len(ops) == 0 {
		t.Fatal("empty operation catalog")
	}
	for i := 1; i < len(ops); i++ {
		if ops[i-1].Name >= ops[i].Name {
			t.Errorf("operations not sorted: %s before %s", ops[i-1].Name, ops[i].Name)
		}
	}

	for _, op := range ops {
		if op.Help == "" {
			t.Errorf("%s has no help text", op.Name)
		}
		if op.Models == 0 {
			t.Errorf("%s has no model set", op.Name)
		}
		if op.IsQuery() {
			frame := op.Frame(0)
			if op.Command != CmdVersion && (len(frame) != 5 || frame[3] != QueryByte) {
				t.Errorf("%s should carry the query byte, got %X", op.Name, frame)
			}
		}
	}
}

func TestZeroDataCommands(t *testing.T) {
	for _, frame := range [][]byte{Heartbeat(), Reboot(), FactoryReset()} {
		if len(frame) != CmdOverhead || frame[2] != 0 {
			t.Errorf("expected empty data frame, got %X", frame)
		}
	}
}
