// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jbl

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Direction marks which side of the link a recorded frame travelled.
type Direction uint8

const (
	DirOutbound Direction = iota // host to receiver
	DirInbound                   // receiver to host
)

func (d Direction) String() string {
	if d == DirOutbound {
		return "TX"
	}
	return "RX"
}

// Record is one captured frame. Records are written as a stream of CBOR maps
// with integer keys: {1: unix nanos, 2: direction, 3: raw bytes}.
type Record struct {
	Timestamp int64     `cbor:"1,keyasint"`
	Direction Direction `cbor:"2,keyasint"`
	Raw       []byte    `cbor:"3,keyasint"`
}

// Time returns the capture time
func (r Record) Time() time.Time {
	return time.Unix(0, r.Timestamp)
}

// Recorder appends frames to a capture stream. Safe for concurrent use.
type Recorder struct {
	mu  sync.Mutex
	enc *cbor.Encoder
}

// NewRecorder writes records to w
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{enc: cbor.NewEncoder(w)}
}

// Record writes one frame, copying raw.
func (r *Recorder) Record(dir Direction, raw []byte) error {
	rec := Record{
		Timestamp: time.Now().UnixNano(),
		Direction: dir,
		Raw:       append([]byte(nil), raw...),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return nil
}

// ReadRecords decodes every record in a capture stream. A stream truncated
// mid-record returns the records read so far along with the error.
func ReadRecords(rd io.Reader) ([]Record, error) {
	dec := cbor.NewDecoder(rd)
	var records []Record
	for {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, fmt.Errorf("failed to decode record %d: %w", len(records), err)
		}
		records = append(records, rec)
	}
}
