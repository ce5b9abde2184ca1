// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jblav/mactl/pkg/jbl"
	"github.com/jblav/mactl/pkg/receiver"
)

func TestLinkMetrics_ObserveEvent(t *testing.T) {
	reg := NewRegistry()
	m := NewLinkMetrics(reg)

	f := receiver.NewFramer(0)
	stream := append([]byte{0xAA, 0xBB}, jbl.EncodeResponse(jbl.CmdVolume, 0, 30)...)
	stream = append(stream, 0x02, 0x23, 0x06, 0x00, 0x00, 0x0A)
	for _, res := range f.Push(stream) {
		m.ObserveEvent(receiver.Event{FrameResult: res, Time: time.Now()})
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesTotal.WithLabelValues("invalid_end")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResponsesTotal.WithLabelValues("VOLUME", "STATUS_UPDATE")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SkippedBytes))
}

func TestLinkMetrics_ObserveRequest(t *testing.T) {
	m := NewLinkMetrics(NewRegistry())

	m.ObserveRequest(jbl.CmdPower, 10*time.Millisecond, nil)
	m.ObserveRequest(jbl.CmdPartyMode, 10*time.Millisecond, &jbl.RejectionError{Command: jbl.CmdPartyMode, Code: jbl.RspCommandInvalid})
	m.ObserveRequest(jbl.CmdVolume, 0, errors.New("timeout"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("POWER", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("PARTY_MODE", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("VOLUME", "error")))

	m.SetModel(jbl.ModelMA710)
	m.SetModel(jbl.ModelMA9100HP)
	assert.Equal(t, 1, testutil.CollectAndCount(m.Model))
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	m := NewLinkMetrics(reg)
	m.SkippedBytes.Add(3)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "mactl_skipped_bytes_total 3"))
}
