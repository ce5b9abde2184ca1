// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jblav/mactl/pkg/jbl"
	"github.com/jblav/mactl/pkg/receiver"
)

// NewRegistry creates a registry with the Go and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the metrics HTTP handler
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// LinkMetrics counts traffic on a receiver link
type LinkMetrics struct {
	FramesTotal    *prometheus.CounterVec // labels: result=ok|too_short|invalid_start|invalid_end|length_mismatch
	ResponsesTotal *prometheus.CounterVec // labels: cmd, code
	SkippedBytes   prometheus.Counter
	RequestsTotal  *prometheus.CounterVec // labels: cmd, result=ok|rejected|error
	RequestLatency prometheus.Histogram
	Model          *prometheus.GaugeVec // labels: model; 1 for the connected model
}

// NewLinkMetrics registers and returns the link metrics
func NewLinkMetrics(reg prometheus.Registerer) *LinkMetrics {
	m := &LinkMetrics{
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mactl_frames_total",
			Help: "Inbound frames cut from the stream, by decode result.",
		}, []string{"result"}),
		ResponsesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mactl_responses_total",
			Help: "Decoded responses by command and response code.",
		}, []string{"cmd", "code"}),
		SkippedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mactl_skipped_bytes_total",
			Help: "Bytes discarded while searching for a frame start.",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mactl_requests_total",
			Help: "Requests sent, by command and outcome.",
		}, []string{"cmd", "result"}),
		RequestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mactl_request_duration_seconds",
			Help:    "Time from sending a request to its response.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 3},
		}),
		Model: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mactl_receiver_model",
			Help: "Model reported by the receiver on initialization.",
		}, []string{"model"}),
	}
	reg.MustRegister(m.FramesTotal, m.ResponsesTotal, m.SkippedBytes, m.RequestsTotal, m.RequestLatency, m.Model)
	return m
}

// ObserveEvent records one inbound frame
func (m *LinkMetrics) ObserveEvent(ev receiver.Event) {
	if ev.Skipped > 0 {
		m.SkippedBytes.Add(float64(ev.Skipped))
	}
	if ev.Err != nil {
		m.FramesTotal.WithLabelValues(jbl.FailureReason(ev.Err)).Inc()
		return
	}
	m.FramesTotal.WithLabelValues("ok").Inc()
	m.ResponsesTotal.WithLabelValues(ev.Response.Command().String(), ev.Response.Code().String()).Inc()
}

// ObserveRequest records the outcome of one request
func (m *LinkMetrics) ObserveRequest(cmd jbl.CommandID, elapsed time.Duration, err error) {
	var rej *jbl.RejectionError
	switch {
	case err == nil:
		m.RequestsTotal.WithLabelValues(cmd.String(), "ok").Inc()
		m.RequestLatency.Observe(elapsed.Seconds())
	case errors.As(err, &rej):
		m.RequestsTotal.WithLabelValues(cmd.String(), "rejected").Inc()
		m.RequestLatency.Observe(elapsed.Seconds())
	default:
		m.RequestsTotal.WithLabelValues(cmd.String(), "error").Inc()
	}
}

// SetModel marks the connected model
func (m *LinkMetrics) SetModel(model jbl.Model) {
	m.Model.Reset()
	m.Model.WithLabelValues(model.String()).Set(1)
}

// Serve exposes reg on addr until ctx ends
func Serve(ctx context.Context, addr, path string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle(path, Handler(reg))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
