// machine_test.go

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

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCommands() []FlightCommand {
	return []FlightCommand{
		Command(),
		TakeOff(),
		Right(100).withWait(time.Second),
		Up(100).withWait(time.Second),
		Land(),
	}
}

func kinds(effs []effect) []effectKind {
	ks := make([]effectKind, len(effs))
	for i, e := range effs {
		ks[i] = e.kind
	}
	return ks
}

func lastOutcome(t *testing.T, effs []effect) Outcome {
	t.Helper()
	require.NotEmpty(t, effs)
	last := effs[len(effs)-1]
	require.Equal(t, effFinish, last.kind)
	return last.outcome
}

func TestMachineStartSendsFirstCommand(t *testing.T) {
	m := machine{maxTimeouts: 2}
	effs := m.start(testCommands(), 2, 4)
	require.Equal(t, []effectKind{effSend}, kinds(effs))
	assert.Equal(t, "command", effs[0].text)
	assert.Equal(t, 0, effs[0].tok.index)
	assert.True(t, m.running)

	// a second start is ignored
	assert.Nil(t, m.start(testCommands(), 2, 4))
	assert.Nil(t, (&machine{maxTimeouts: 2}).start(nil, 0, 0))
}

func TestMachineHappyPath(t *testing.T) {
	m := machine{maxTimeouts: 2}
	cmds := testCommands()
	effs := m.start(cmds, 2, 4)
	var sent []string

	for i := 0; ; i++ {
		require.Less(t, i, 20, "machine did not finish")
		var tok stepToken
		for _, e := range effs {
			if e.kind == effSend {
				sent = append(sent, e.text)
				tok = e.tok
			}
		}
		require.Equal(t, []effectKind{effArmTimeout}, kinds(m.sent(tok)))
		effs = m.response("ok")
		if m.running {
			ks := kinds(effs)
			require.Equal(t, []effectKind{effCancelTimer, effAcked, effScheduleNext}, ks)
			assert.Equal(t, cmds[i].Wait, effs[2].delay)
			effs = m.next(effs[2].tok)
			continue
		}
		assert.Equal(t, OutcomeCompleted, lastOutcome(t, effs))
		break
	}

	want := make([]string, len(cmds))
	for i, c := range cmds {
		want[i] = c.Text
	}
	assert.Equal(t, want, sent)
}

func TestMachinePatternBookends(t *testing.T) {
	m := machine{maxTimeouts: 2}
	var marks []effectKind
	record := func(effs []effect) {
		for _, e := range effs {
			if e.kind == effPatternStart || e.kind == effPatternEnd {
				marks = append(marks, e.kind)
				if e.kind == effPatternStart {
					assert.Equal(t, 2, e.tok.index)
				} else {
					assert.Equal(t, 4, e.tok.index)
				}
			}
		}
	}
	effs := m.start(testCommands(), 2, 4)
	for m.running {
		record(effs)
		m.sent(m.token())
		effs = m.response("ok")
		if !m.running {
			break
		}
		effs = m.next(m.token())
	}
	assert.Equal(t, []effectKind{effPatternStart, effPatternEnd}, marks)
}

func TestMachineIgnoresUnsolicitedResponses(t *testing.T) {
	m := machine{maxTimeouts: 2}
	assert.Nil(t, m.response("ok"), "idle")

	m.start(testCommands(), 2, 4)
	assert.Nil(t, m.response("ok"), "not yet awaiting")

	m.sent(m.token())
	assert.Nil(t, m.response("battery 87"), "not an acknowledgement")
	assert.NotNil(t, m.response("error"))
}

func TestMachineSingleTimeoutTolerated(t *testing.T) {
	m := machine{maxTimeouts: 2}
	m.start(testCommands(), 2, 4)
	tok := m.token()
	m.sent(tok)

	effs := m.timeout(tok)
	require.Equal(t, []effectKind{effTolerated, effScheduleNext}, kinds(effs))
	assert.True(t, m.running)
	assert.Equal(t, 1, m.index)

	// the timer for the old step is stale now
	assert.Nil(t, m.timeout(tok))

	// an acknowledgement clears the count
	m.next(m.token())
	m.sent(m.token())
	m.response("ok")
	assert.Equal(t, 0, m.timeouts)
}

func TestMachineSecondConsecutiveTimeoutFails(t *testing.T) {
	m := machine{maxTimeouts: 2}
	m.start(testCommands(), 2, 4)
	m.sent(m.token())
	effs := m.timeout(m.token())
	m.next(effs[1].tok)
	m.sent(m.token())

	effs = m.timeout(m.token())
	assert.Equal(t, OutcomeFailedTimeout, lastOutcome(t, effs))
	assert.False(t, m.running)
	assert.Nil(t, m.response("ok"))
}

func TestMachineStaleTokensIgnored(t *testing.T) {
	m := machine{maxTimeouts: 2}
	m.start(testCommands(), 2, 4)
	old := m.token()
	m.sent(old)
	m.emergency()

	m.start(testCommands(), 2, 4)
	assert.NotEqual(t, old, m.token())
	assert.Nil(t, m.sent(old))
	m.sent(m.token())
	assert.Nil(t, m.timeout(old))
	assert.Nil(t, m.next(old))
}

func TestMachineTransportFailure(t *testing.T) {
	m := machine{maxTimeouts: 2}
	assert.Nil(t, m.transportFailure())
	m.start(testCommands(), 2, 4)
	assert.Equal(t, OutcomeFailedConnection, lastOutcome(t, m.transportFailure()))
	assert.False(t, m.running)
}

func TestMachineEmergency(t *testing.T) {
	m := machine{maxTimeouts: 2}
	effs := m.emergency()
	require.Equal(t, []effectKind{effCancelTimer, effSendRaw}, kinds(effs))
	assert.Equal(t, "land", effs[1].text)

	m.start(testCommands(), 2, 4)
	m.sent(m.token())
	effs = m.emergency()
	assert.Equal(t, OutcomeEmergencyAborted, lastOutcome(t, effs))
	assert.False(t, m.running)
}

func TestOutcomeNames(t *testing.T) {
	b, err := OutcomeFailedTimeout.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "failed_timeout", string(b))
	assert.Equal(t, "unknown", Outcome(42).String())
}
