// machine.go - the sequencing state machine

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

package tellopaint

import "time"

// Outcome is how a sequence ended.
type Outcome int

// Outcomes...
const (
	OutcomeCompleted Outcome = iota
	OutcomeFailedTimeout
	OutcomeFailedConnection
	OutcomeEmergencyAborted
)

var outcomeNames = [...]string{"completed", "failed_timeout", "failed_connection", "emergency_aborted"}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// MarshalText renders the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

type effectKind int

const (
	effSend         effectKind = iota // write commands[tok.index] using the step protocol
	effArmTimeout                     // start the response timer for tok
	effCancelTimer                    // drop whatever timer is pending
	effScheduleNext                   // after delay, move on to tok
	effSendRaw                        // write text, outside the step protocol
	effAcked                          // tok was acknowledged with text
	effTolerated                      // tok timed out but the sequence carries on
	effPatternStart
	effPatternEnd
	effFinish // the session is over with outcome
)

// stepToken identifies one step of one session, timers carry it so that a
// late timer cannot act on a newer step.
type stepToken struct {
	session uint64
	index   int
}

type effect struct {
	kind    effectKind
	tok     stepToken
	text    string
	delay   time.Duration
	outcome Outcome
}

// machine holds the session state. Its methods are the only transitions;
// each returns the side effects for the runner to perform, in order.
type machine struct {
	maxTimeouts int

	session      uint64
	running      bool
	awaiting     bool
	commands     []FlightCommand
	index        int
	timeouts     int
	patternFirst int // index of the first pattern command
	patternEnd   int // index just past the last pattern command
}

func (m *machine) token() stepToken {
	return stepToken{session: m.session, index: m.index}
}

func (m *machine) current(tok stepToken) bool {
	return m.running && tok == m.token()
}

// start begins a session, it does nothing if one is already running.
func (m *machine) start(cmds []FlightCommand, patternFirst, patternEnd int) []effect {
	if m.running || len(cmds) == 0 {
		return nil
	}
	m.session++
	m.running = true
	m.awaiting = false
	m.commands = cmds
	m.index = 0
	m.timeouts = 0
	m.patternFirst = patternFirst
	m.patternEnd = patternEnd
	return m.sendCurrent()
}

func (m *machine) sendCurrent() []effect {
	var effs []effect
	if m.patternFirst < m.patternEnd {
		switch m.index {
		case m.patternFirst:
			effs = append(effs, effect{kind: effPatternStart, tok: m.token()})
		case m.patternEnd:
			effs = append(effs, effect{kind: effPatternEnd, tok: m.token()})
		}
	}
	return append(effs, effect{kind: effSend, tok: m.token(), text: m.commands[m.index].Text})
}

// sent records that the command for tok has gone out.
func (m *machine) sent(tok stepToken) []effect {
	if !m.current(tok) || m.awaiting {
		return nil
	}
	m.awaiting = true
	return []effect{{kind: effArmTimeout, tok: tok}}
}

// response handles a datagram from the drone.
func (m *machine) response(text string) []effect {
	if !m.running || !m.awaiting || !ClassifyResponse(text).Acknowledges() {
		return nil
	}
	m.timeouts = 0
	effs := []effect{{kind: effCancelTimer}, {kind: effAcked, tok: m.token(), text: text}}
	return append(effs, m.advance()...)
}

// timeout handles expiry of the response timer for tok.
func (m *machine) timeout(tok stepToken) []effect {
	if !m.current(tok) || !m.awaiting {
		return nil
	}
	m.timeouts++
	if m.timeouts >= m.maxTimeouts {
		return m.finish(OutcomeFailedTimeout)
	}
	// an isolated lost acknowledgement is taken as an implicit 'ok'
	effs := []effect{{kind: effTolerated, tok: tok}}
	return append(effs, m.advance()...)
}

func (m *machine) advance() []effect {
	m.awaiting = false
	done := m.commands[m.index]
	m.index++
	if m.index == len(m.commands) {
		return m.finish(OutcomeCompleted)
	}
	return []effect{{kind: effScheduleNext, tok: m.token(), delay: done.Wait}}
}

// next sends the command for tok once the pause after the previous one is over.
func (m *machine) next(tok stepToken) []effect {
	if !m.current(tok) || m.awaiting {
		return nil
	}
	return m.sendCurrent()
}

// transportFailure ends a running session when the link goes down.
func (m *machine) transportFailure() []effect {
	if !m.running {
		return nil
	}
	return m.finish(OutcomeFailedConnection)
}

// emergency abandons any session and lands straight away.
func (m *machine) emergency() []effect {
	wasRunning := m.running
	m.reset()
	effs := []effect{{kind: effCancelTimer}, {kind: effSendRaw, text: Land().Text}}
	if wasRunning {
		effs = append(effs, effect{kind: effFinish, outcome: OutcomeEmergencyAborted})
	}
	return effs
}

func (m *machine) finish(o Outcome) []effect {
	m.reset()
	return []effect{{kind: effCancelTimer}, {kind: effFinish, outcome: o}}
}

func (m *machine) reset() {
	m.running = false
	m.awaiting = false
	m.commands = nil
	m.index = 0
	m.timeouts = 0
}
