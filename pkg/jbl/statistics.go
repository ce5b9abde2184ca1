// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jbl

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks frame statistics and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames      uint64
	ValidFrames      uint64
	Rejections       uint64
	TooShort         uint64
	InvalidStart     uint64
	InvalidEnd       uint64
	LengthMismatches uint64
	Anomalies        uint64
	DiscardedBytes   uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update records one decode attempt: either a response with its validation
// results, or a decode error.
func (s *Statistics) Update(r *Response, decodeErr error, validationErrors []ValidationError) {
	s.TotalFrames++
	s.LastUpdateTime = time.Now()

	if decodeErr != nil {
		switch {
		case errors.Is(decodeErr, ErrFrameTooShort):
			s.TooShort++
		case errors.Is(decodeErr, ErrInvalidStart):
			s.InvalidStart++
		case errors.Is(decodeErr, ErrInvalidEnd):
			s.InvalidEnd++
		case errors.Is(decodeErr, ErrLengthMismatch):
			s.LengthMismatches++
		}
		return
	}

	if r != nil && r.IsRejection() {
		s.Rejections++
	}

	clean := true
	for _, v := range validationErrors {
		if v.Type != AnomalyRejected {
			s.Anomalies++
			clean = false
		}
	}
	if clean {
		s.ValidFrames++
	}
}

// AddDiscarded records bytes dropped while searching for a frame start
func (s *Statistics) AddDiscarded(n int) {
	s.DiscardedBytes += uint64(n)
}

// DecodeErrors returns the number of frames that failed validation
func (s *Statistics) DecodeErrors() uint64 {
	return s.TooShort + s.InvalidStart + s.InvalidEnd + s.LengthMismatches
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.DecodeErrors()+s.Anomalies) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent, decodePercent, rejectPercent float64
	if s.TotalFrames > 0 {
		validPercent = float64(s.ValidFrames) * 100.0 / float64(s.TotalFrames)
		decodePercent = float64(s.DecodeErrors()) * 100.0 / float64(s.TotalFrames)
		rejectPercent = float64(s.Rejections) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, validPercent)

	if s.Rejections > 0 {
		result += fmt.Sprintf("Rejections:      %8d (%.1f%%)\n", s.Rejections, rejectPercent)
	}
	if s.DecodeErrors() > 0 {
		result += fmt.Sprintf("Decode Errors:   %8d (%.1f%%)\n", s.DecodeErrors(), decodePercent)
		if s.TooShort > 0 {
			result += fmt.Sprintf("  Too Short:        %5d\n", s.TooShort)
		}
		if s.InvalidStart > 0 {
			result += fmt.Sprintf("  Invalid Start:    %5d\n", s.InvalidStart)
		}
		if s.InvalidEnd > 0 {
			result += fmt.Sprintf("  Invalid End:      %5d\n", s.InvalidEnd)
		}
		if s.LengthMismatches > 0 {
			result += fmt.Sprintf("  Length Mismatch:  %5d\n", s.LengthMismatches)
		}
	}
	if s.Anomalies > 0 {
		result += fmt.Sprintf("Anomalies:       %8d\n", s.Anomalies)
	}
	if s.DiscardedBytes > 0 {
		result += fmt.Sprintf("Discarded Bytes: %8d\n", s.DiscardedBytes)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
