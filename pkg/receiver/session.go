// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package receiver manages a control link to a JBL MA-series receiver: byte
// transports, inbound frame reassembly, request/response matching, keep-alive
// and reconnection. Frame encoding and decoding live in package jbl.
package receiver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jblav/mactl/pkg/jbl"
)

// Session errors
var (
	ErrSessionClosed  = errors.New("session closed")
	ErrNotInitialized = errors.New("session not initialized")
	ErrNoModel        = errors.New("initialization response carries no model")
)

// Event is delivered to subscribers for every frame cut from the stream,
// whether or not it answered a request.
type Event struct {
	FrameResult
	Time time.Time
}

// Session owns one connection. Writes are serialized in issuance order and
// paced; a single reader goroutine feeds the framer and matches responses to
// pending requests by command id, oldest first.
type Session struct {
	id      string
	conn    Conn
	cfg     Config
	log     *zap.Logger
	limiter *rate.Limiter

	writeMu sync.Mutex

	mu          sync.Mutex
	pending     map[jbl.CommandID][]chan *jbl.Response
	subs        map[int]chan Event
	nextSub     int
	model       jbl.Model
	initialized bool
	err         error

	done      chan struct{}
	closeOnce sync.Once
}

// NewSession wraps conn and starts reading from it.
func NewSession(conn Conn, opts ...Option) *Session {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	limit := rate.Inf
	if cfg.CommandRate > 0 {
		limit = rate.Limit(cfg.CommandRate)
	}
	burst := cfg.CommandBurst
	if burst < 1 {
		burst = 1
	}

	id := uuid.NewString()
	s := &Session{
		id:      id,
		conn:    conn,
		cfg:     cfg,
		log:     cfg.Logger.With(zap.String("session", id)),
		limiter: rate.NewLimiter(limit, burst),
		pending: make(map[jbl.CommandID][]chan *jbl.Response),
		subs:    make(map[int]chan Event),
		done:    make(chan struct{}),
	}

	go s.readLoop()
	return s
}

// ID returns the session's unique id, as logged in the session field.
func (s *Session) ID() string {
	return s.id
}

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns why the session ended, or nil while it is running.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Model returns the model reported by Initialize.
func (s *Session) Model() (jbl.Model, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model, s.initialized
}

// Close ends the session and closes the connection.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
		s.shutdown(ErrSessionClosed)
	})
	return err
}

// Send writes one frame without waiting for a response.
func (s *Session) Send(ctx context.Context, frame []byte) error {
	return s.write(ctx, frame, nil)
}

// Request sends frame and waits for the next response carrying cmd. A
// rejection is returned together with a *jbl.RejectionError.
func (s *Session) Request(ctx context.Context, frame []byte, cmd jbl.CommandID) (*jbl.Response, error) {
	if s.cfg.OnRequest == nil {
		return s.request(ctx, frame, cmd)
	}
	start := time.Now()
	r, err := s.request(ctx, frame, cmd)
	s.cfg.OnRequest(cmd, time.Since(start), err)
	return r, err
}

func (s *Session) request(ctx context.Context, frame []byte, cmd jbl.CommandID) (*jbl.Response, error) {
	if _, ok := ctx.Deadline(); !ok && s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	ch := make(chan *jbl.Response, 1)
	register := func() {
		s.mu.Lock()
		s.pending[cmd] = append(s.pending[cmd], ch)
		s.mu.Unlock()
	}
	if err := s.write(ctx, frame, register); err != nil {
		s.removeWaiter(cmd, ch)
		return nil, err
	}

	select {
	case r, ok := <-ch:
		if !ok {
			return nil, s.closedErr()
		}
		return r, r.Err()
	case <-ctx.Done():
		s.removeWaiter(cmd, ch)
		return nil, fmt.Errorf("waiting for %s response: %w", cmd, ctx.Err())
	}
}

// write paces and writes one frame. register runs under the write lock just
// before the bytes go out, so waiters queue in the order their frames were sent.
func (s *Session) write(ctx context.Context, frame []byte, register func()) error {
	if len(frame) < jbl.CmdOverhead {
		return fmt.Errorf("frame too short: %d bytes", len(frame))
	}
	cmd := jbl.CommandID(frame[1])
	if err := s.checkReady(cmd); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	select {
	case <-s.done:
		return s.closedErr()
	default:
	}

	if register != nil {
		register()
	}
	s.record(jbl.DirOutbound, frame)
	if _, err := s.conn.Write(frame); err != nil {
		s.log.Warn("write failed", zap.Error(err))
		return fmt.Errorf("write failed: %w", err)
	}
	s.log.Debug("sent", zap.Stringer("cmd", cmd), zap.Binary("frame", frame))
	return nil
}

// Initialize performs the connection handshake and records the model.
func (s *Session) Initialize(ctx context.Context) (jbl.Model, error) {
	r, err := s.Request(ctx, jbl.Initialize(), jbl.CmdInitialization)
	if err != nil {
		return 0, err
	}

	model, ok := r.Model()
	if !ok {
		return 0, ErrNoModel
	}

	s.mu.Lock()
	s.model = model
	s.initialized = true
	s.mu.Unlock()

	s.log.Info("initialized", zap.Stringer("model", model))
	return model, nil
}

// Heartbeat sends one keep-alive and returns the round trip time.
func (s *Session) Heartbeat(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if _, err := s.Request(ctx, jbl.Heartbeat(), jbl.CmdHeartbeat); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// RunHeartbeat sends a keep-alive every interval until ctx ends or the
// session closes. A missed heartbeat is logged; the next tick tries again.
func (s *Session) RunHeartbeat(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return s.closedErr()
		case <-ticker.C:
			if rtt, err := s.Heartbeat(ctx); err != nil {
				if errors.Is(err, ErrSessionClosed) || ctx.Err() != nil {
					continue
				}
				s.log.Warn("heartbeat failed", zap.Error(err))
			} else {
				s.log.Debug("heartbeat", zap.Duration("rtt", rtt))
			}
		}
	}
}

// Subscribe returns a channel receiving every inbound event and a function
// that cancels the subscription. Events are dropped when the channel is full.
// The channel is closed when the session ends or the subscription is cancelled.
func (s *Session) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

func (s *Session) checkReady(cmd jbl.CommandID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	if s.cfg.RequireInitialization && !s.initialized && cmd != jbl.CmdInitialization {
		return ErrNotInitialized
	}
	return nil
}

func (s *Session) closedErr() error {
	if err := s.Err(); err != nil {
		return err
	}
	return ErrSessionClosed
}

func (s *Session) removeWaiter(cmd jbl.CommandID, ch chan *jbl.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	waiters := s.pending[cmd]
	for i, w := range waiters {
		if w == ch {
			s.pending[cmd] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(s.pending[cmd]) == 0 {
		delete(s.pending, cmd)
	}
}

func (s *Session) readLoop() {
	framer := NewFramer(s.cfg.MaxBuffered)
	buf := make([]byte, 512)

	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			s.record(jbl.DirInbound, buf[:n])
			for _, res := range framer.Push(buf[:n]) {
				s.dispatch(res)
			}
		}
		if err != nil {
			s.log.Debug("read loop ended", zap.Error(err))
			s.shutdown(fmt.Errorf("%w: %v", ErrSessionClosed, err))
			return
		}
	}
}

func (s *Session) dispatch(res FrameResult) {
	if res.Err != nil {
		s.log.Debug("discarding inbound frame",
			zap.String("reason", jbl.FailureReason(res.Err)),
			zap.Binary("frame", res.Raw),
			zap.Error(res.Err))
	}
	if res.Skipped > 0 {
		s.log.Debug("skipped bytes", zap.Int("count", res.Skipped))
	}

	ev := Event{FrameResult: res, Time: time.Now()}

	s.mu.Lock()
	defer s.mu.Unlock()

	if r := res.Response; r != nil {
		if waiters := s.pending[r.Command()]; len(waiters) > 0 {
			waiters[0] <- r
			if len(waiters) == 1 {
				delete(s.pending, r.Command())
			} else {
				s.pending[r.Command()] = waiters[1:]
			}
		} else {
			s.log.Debug("unsolicited response", zap.Stringer("cmd", r.Command()), zap.Stringer("code", r.Code()))
		}
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.log.Debug("subscriber full, dropping event")
		}
	}
}

func (s *Session) shutdown(reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return
	}
	s.err = reason
	close(s.done)

	for cmd, waiters := range s.pending {
		for _, w := range waiters {
			close(w)
		}
		delete(s.pending, cmd)
	}
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

func (s *Session) record(dir jbl.Direction, raw []byte) {
	if s.cfg.Recorder == nil {
		return
	}
	if err := s.cfg.Recorder.Record(dir, raw); err != nil {
		s.log.Warn("capture failed", zap.Error(err))
	}
}
