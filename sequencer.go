// sequencer.go

// Copyright (C) 2018  Steve Merrony

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// This file contains the sequencer which flies a drawing one command at a time

package tellopaint

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/SMerrony/tellopaint/internal/metrics"
	"github.com/SMerrony/tellopaint/internal/worker"
)

const (
	defaultResponseTimeout = 6 * time.Second
	defaultMaxTimeouts     = 2
)

// User-visible failure messages passed to Callbacks.OnError
const (
	MsgNoResponse     = "Lost contact with the drone: it stopped answering commands."
	MsgConnectionLost = "The connection to the drone failed."
)

// Callbacks are the optional hooks for one sequence. They run on the
// sequencer's callback goroutine, never on the sequencing goroutine.
type Callbacks struct {
	OnPatternStart func()
	OnPatternEnd   func()
	OnError        func(msg string)
	OnComplete     func()
}

// EventKind identifies an Event.
type EventKind int

// Event kinds...
const (
	EventSessionStarted EventKind = iota
	EventCommandSent
	EventAcknowledged
	EventTimeoutTolerated
	EventPatternStarted
	EventPatternEnded
	EventSessionEnded
	EventEmergencyLand
)

var eventKindNames = [...]string{
	"session_started", "command_sent", "acknowledged", "timeout_tolerated",
	"pattern_started", "pattern_ended", "session_ended", "emergency_land",
}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return "unknown"
}

// MarshalText renders the kind by name.
func (k EventKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Event describes something that happened during a sequence.
type Event struct {
	Kind     EventKind `json:"kind"`
	Session  string    `json:"session,omitempty"`
	Request  string    `json:"request,omitempty"`
	Index    int       `json:"index"`
	Total    int       `json:"total,omitempty"`
	Command  string    `json:"command,omitempty"`
	Response string    `json:"response,omitempty"`
	Outcome  *Outcome  `json:"outcome,omitempty"`
	Error    string    `json:"error,omitempty"`
	Sends    int       `json:"sends,omitempty"`
	Timeouts int       `json:"timeouts,omitempty"`
	Time     time.Time `json:"time"`
}

// Options configure a Sequencer, zero values select the defaults.
type Options struct {
	ResponseTimeout time.Duration // how long to wait for an acknowledgement
	MaxTimeouts     int           // consecutive timeouts that end the sequence
	Spacing         time.Duration // pause after each pattern command, zero for none
	Clock           clockwork.Clock
	Logger          *slog.Logger
	Metrics         *metrics.Recorder
	// Observer, if set, receives every Event on the callback goroutine.
	Observer func(Event)
}

// Sequencer drives a Transport through the commands of a drawing.
// All session state is owned by one worker goroutine.
type Sequencer struct {
	transport Transport
	opts      Options
	log       *slog.Logger
	work      *worker.Executor // sequencing context
	cb        *worker.Executor // callback context
	running   atomic.Bool

	// owned by work
	m         machine
	pending   clockwork.Timer
	callbacks Callbacks
	sessionID string
	request   string
	sends     int
	tolerated int
	linkErr   error
}

// NewSequencer creates a Sequencer bound to t and starts its goroutines.
func NewSequencer(t Transport, opts Options) *Sequencer {
	if opts.ResponseTimeout <= 0 {
		opts.ResponseTimeout = defaultResponseTimeout
	}
	if opts.MaxTimeouts <= 0 {
		opts.MaxTimeouts = defaultMaxTimeouts
	}
	if opts.Spacing < 0 {
		opts.Spacing = 0
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Sequencer{
		transport: t,
		opts:      opts,
		log:       opts.Logger.With("component", "sequencer"),
		work:      worker.New(),
		cb:        worker.New(),
		m:         machine{maxTimeouts: opts.MaxTimeouts},
	}

	t.OnMessage(func(text string) {
		s.work.Post(func() { s.apply(s.m.response(text)) })
	})
	t.OnStateChange(func(state LinkState, err error) {
		if state != LinkFailed && state != LinkCancelled {
			return
		}
		s.work.Post(func() {
			s.linkErr = err
			s.apply(s.m.transportFailure())
		})
	})
	return s
}

// StartSequence begins flying req. If a sequence is already running the call
// is ignored and false is returned.
func (s *Sequencer) StartSequence(req DrawingRequest, cb Callbacks) bool {
	pattern := Commands(req, s.opts.Spacing)
	cmds := make([]FlightCommand, 0, len(pattern)+4)
	cmds = append(cmds, Command(), Speed(defaultSpeedCmS), TakeOff())
	first := len(cmds)
	cmds = append(cmds, pattern...)
	end := len(cmds)
	cmds = append(cmds, Land())

	accepted := false
	s.work.Sync(func() {
		if s.m.running {
			s.log.Debug("sequence already running, start ignored", "request", req.String())
			return
		}
		accepted = true
		s.callbacks = cb
		s.sessionID = uuid.NewString()
		s.request = req.String()
		s.sends = 0
		s.tolerated = 0
		s.linkErr = nil
		s.running.Store(true)
		s.log.Info("sequence started", "session", s.sessionID, "request", s.request, "commands", len(cmds))
		s.observe(Event{Kind: EventSessionStarted, Total: len(cmds)})
		s.apply(s.m.start(cmds, first, end))
	})
	return accepted
}

// EmergencyLand abandons any running sequence and sends 'land' immediately.
// It may be called from any goroutine and does not wait for a response.
func (s *Sequencer) EmergencyLand() {
	s.work.Post(func() {
		s.log.Warn("emergency land", "session", s.sessionID)
		s.observe(Event{Kind: EventEmergencyLand})
		s.apply(s.m.emergency())
	})
}

// Running reports whether a sequence is in progress.
func (s *Sequencer) Running() bool {
	return s.running.Load()
}

// Close stops the sequencer's goroutines; a running sequence is abandoned
// without landing.
func (s *Sequencer) Close() {
	s.work.Sync(func() { s.setPending(nil) })
	s.work.Close()
	s.cb.Close()
}

// apply performs effects in order, on the work goroutine.
func (s *Sequencer) apply(effs []effect) {
	for _, e := range effs {
		switch e.kind {
		case effSend:
			s.transport.Send(e.text)
			s.sends++
			s.opts.Metrics.CommandSent()
			s.log.Debug("command sent", "session", s.sessionID, "index", e.tok.index, "command", e.text)
			s.observe(Event{Kind: EventCommandSent, Index: e.tok.index, Command: e.text})
			s.apply(s.m.sent(e.tok))

		case effArmTimeout:
			tok := e.tok
			s.setPending(s.opts.Clock.AfterFunc(s.opts.ResponseTimeout, func() {
				s.work.Post(func() { s.apply(s.m.timeout(tok)) })
			}))

		case effCancelTimer:
			s.setPending(nil)

		case effScheduleNext:
			tok := e.tok
			if e.delay <= 0 {
				s.setPending(nil)
				s.work.Post(func() { s.apply(s.m.next(tok)) })
				continue
			}
			s.setPending(s.opts.Clock.AfterFunc(e.delay, func() {
				s.work.Post(func() { s.apply(s.m.next(tok)) })
			}))

		case effSendRaw:
			s.transport.Send(e.text)
			s.opts.Metrics.CommandSent()

		case effAcked:
			resp := ClassifyResponse(e.text)
			s.opts.Metrics.Acknowledged(resp.String())
			if resp == ResponseError {
				s.log.Warn("drone reported an error", "session", s.sessionID, "index", e.tok.index, "response", e.text)
			}
			s.observe(Event{Kind: EventAcknowledged, Index: e.tok.index, Response: e.text})

		case effTolerated:
			s.tolerated++
			s.opts.Metrics.TimedOut(true)
			s.log.Info("no response, carrying on", "session", s.sessionID, "index", e.tok.index)
			s.observe(Event{Kind: EventTimeoutTolerated, Index: e.tok.index})

		case effPatternStart:
			s.observe(Event{Kind: EventPatternStarted, Index: e.tok.index})
			s.dispatch(s.callbacks.OnPatternStart)

		case effPatternEnd:
			s.observe(Event{Kind: EventPatternEnded, Index: e.tok.index})
			s.dispatch(s.callbacks.OnPatternEnd)

		case effFinish:
			s.finish(e.outcome)
		}
	}
}

func (s *Sequencer) finish(o Outcome) {
	s.running.Store(false)
	s.opts.Metrics.SessionEnded(o.String())
	if o == OutcomeFailedTimeout {
		s.opts.Metrics.TimedOut(false)
	}

	ev := Event{Kind: EventSessionEnded, Outcome: &o, Sends: s.sends, Timeouts: s.tolerated}
	cb := s.callbacks
	switch o {
	case OutcomeCompleted:
		s.log.Info("sequence completed", "session", s.sessionID, "sends", s.sends)
		if cb.OnComplete != nil {
			s.cb.Post(cb.OnComplete)
		}
	case OutcomeFailedTimeout:
		ev.Error = MsgNoResponse
		s.log.Error("sequence failed, drone not responding", "session", s.sessionID, "sends", s.sends)
		s.dispatchError(cb.OnError, MsgNoResponse)
	case OutcomeFailedConnection:
		ev.Error = MsgConnectionLost
		s.log.Error("sequence failed, link down", "session", s.sessionID, "error", s.linkErr)
		msg := MsgConnectionLost
		if s.linkErr != nil {
			msg = fmt.Sprintf("%s (%v)", MsgConnectionLost, s.linkErr)
		}
		s.dispatchError(cb.OnError, msg)
	case OutcomeEmergencyAborted:
		s.log.Warn("sequence aborted", "session", s.sessionID, "sends", s.sends)
	}
	s.observe(ev)
	s.callbacks = Callbacks{}
}

// setPending replaces the pending timer, stopping the old one first.
func (s *Sequencer) setPending(t clockwork.Timer) {
	if s.pending != nil {
		s.pending.Stop()
	}
	s.pending = t
}

func (s *Sequencer) dispatch(f func()) {
	if f != nil {
		s.cb.Post(f)
	}
}

func (s *Sequencer) dispatchError(f func(string), msg string) {
	if f != nil {
		s.cb.Post(func() { f(msg) })
	}
}

func (s *Sequencer) observe(ev Event) {
	if s.opts.Observer == nil {
		return
	}
	ev.Session = s.sessionID
	ev.Request = s.request
	ev.Time = s.opts.Clock.Now()
	obs := s.opts.Observer
	s.cb.Post(func() { obs(ev) })
}
