// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package receiver

import (
	"bytes"

	"github.com/jblav/mactl/pkg/jbl"
)

// DefaultMaxBuffered holds two maximum-size inbound frames.
const DefaultMaxBuffered = 2 * jbl.MaxResponseSize

// FrameResult is one candidate frame cut from the stream.
type FrameResult struct {
	Raw      []byte
	Response *jbl.Response // nil when Err is set
	Err      error
	// Skipped counts bytes discarded since the previous result while
	// searching for a start marker or trimming an overfull buffer.
	Skipped int
}

// Framer reassembles inbound frames from a byte stream.
//
// The end byte 0x0D is a legal data value, so frames are cut by their declared
// length rather than by scanning for the end byte: sync on the two-byte start
// marker, wait for the header, then wait for RespOverhead+LEN bytes and hand
// exactly that window to jbl.DecodeFrame. A window that fails validation drops
// one byte and the search resumes. An unfinished head is abandoned as soon as a
// complete valid frame is buffered behind it, so a corrupt LEN byte cannot
// stall the link. Not safe for concurrent use.
type Framer struct {
	buf         []byte
	maxBuffered int
	skipped     int
}

// NewFramer creates a framer holding at most maxBuffered bytes (DefaultMaxBuffered if <= 0).
func NewFramer(maxBuffered int) *Framer {
	if maxBuffered <= 0 {
		maxBuffered = DefaultMaxBuffered
	}
	if maxBuffered < jbl.MaxResponseSize {
		maxBuffered = jbl.MaxResponseSize
	}
	return &Framer{
		buf:         make([]byte, 0, maxBuffered),
		maxBuffered: maxBuffered,
	}
}

// Push appends bytes read from the stream and returns every frame they complete.
func (f *Framer) Push(p []byte) []FrameResult {
	f.buf = append(f.buf, p...)
	if over := len(f.buf) - f.maxBuffered; over > 0 {
		f.discard(over)
	}

	var results []FrameResult
	for {
		if !f.sync() {
			return results
		}
		if len(f.buf) < jbl.RespOverhead-1 {
			return results
		}

		need := jbl.RespOverhead + int(f.buf[4])
		if len(f.buf) < need {
			// A complete frame behind an unfinished head means the head's
			// LEN byte is corrupt; give it up instead of waiting for it.
			next := f.nextFrame()
			if next < 0 {
				return results
			}
			need = next
		}

		raw := append([]byte(nil), f.buf[:need]...)
		r, err := jbl.DecodeFrame(raw)
		res := FrameResult{Raw: raw, Response: r, Err: err, Skipped: f.skipped}
		f.skipped = 0
		if err != nil {
			f.consume(1)
		} else {
			f.consume(need)
		}
		results = append(results, res)
	}
}

// nextFrame returns the offset of the first later start marker that heads a
// complete valid frame, or -1.
func (f *Framer) nextFrame() int {
	for i := 1; ; i++ {
		idx := bytes.Index(f.buf[i:], jbl.RespStart[:])
		if idx < 0 {
			return -1
		}
		i += idx
		if len(f.buf)-i < jbl.RespOverhead-1 {
			return -1
		}
		end := i + jbl.RespOverhead + int(f.buf[i+4])
		if end > len(f.buf) {
			continue
		}
		if _, err := jbl.DecodeFrame(f.buf[i:end]); err == nil {
			return i
		}
	}
}

// sync drops bytes ahead of the first start marker. It reports whether a
// marker now heads the buffer.
func (f *Framer) sync() bool {
	idx := bytes.Index(f.buf, jbl.RespStart[:])
	if idx < 0 {
		// A trailing STX may be the first half of a marker
		keep := 0
		if n := len(f.buf); n > 0 && f.buf[n-1] == jbl.RespStart[0] {
			keep = 1
		}
		f.discard(len(f.buf) - keep)
		return false
	}
	f.discard(idx)
	return true
}

func (f *Framer) discard(n int) {
	if n <= 0 {
		return
	}
	f.skipped += n
	f.consume(n)
}

func (f *Framer) consume(n int) {
	f.buf = f.buf[:copy(f.buf, f.buf[n:])]
}

// Buffered returns the number of bytes waiting for the rest of a frame.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Pending returns bytes discarded that have not yet been attached to a result.
func (f *Framer) Pending() int {
	return f.skipped
}

// Reset clears the buffer, e.g. after a reconnect.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
	f.skipped = 0
}

// CommandFramer cuts outbound command frames from a byte stream; it is the
// receiving side of the link and is used by the mock receiver.
type CommandFramer struct {
	buf []byte
}

// Push appends bytes and returns every complete command frame. Bytes that do
// not start a frame are dropped.
func (c *CommandFramer) Push(p []byte) [][]byte {
	c.buf = append(c.buf, p...)

	var frames [][]byte
	for {
		idx := bytes.IndexByte(c.buf, jbl.CmdStartByte)
		if idx < 0 {
			c.buf = c.buf[:0]
			return frames
		}
		c.buf = c.buf[idx:]
		if len(c.buf) < 3 {
			return frames
		}

		need := jbl.CmdOverhead + int(c.buf[2])
		if len(c.buf) < need {
			return frames
		}
		if c.buf[need-1] != jbl.EndByte {
			c.buf = c.buf[1:]
			continue
		}

		frames = append(frames, append([]byte(nil), c.buf[:need]...))
		c.buf = c.buf[need:]
	}
}
