// link_test.go

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
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type linkEvent struct {
	state LinkState
	err   error
}

func fakeDrone(t *testing.T) *net.UDPConn {
	t.Helper()
	peer, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { peer.Close() })
	return peer
}

func TestLinkRoundTrip(t *testing.T) {
	peer := fakeDrone(t)
	port := peer.LocalAddr().(*net.UDPAddr).Port

	l, err := Dial("127.0.0.1", port, 0, nil)
	require.NoError(t, err)

	msgs := make(chan string, 4)
	states := make(chan linkEvent, 4)
	l.OnMessage(func(text string) { msgs <- text })
	l.OnStateChange(func(s LinkState, err error) { states <- linkEvent{s, err} })

	l.Send("command")
	buf := make([]byte, 64)
	require.NoError(t, peer.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, from, err := peer.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, "command", string(buf[:n]))

	_, err = peer.WriteToUDP([]byte("ok"), from)
	require.NoError(t, err)
	select {
	case m := <-msgs:
		assert.Equal(t, "ok", m)
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
	}

	l.Close()
	l.Close()
	select {
	case ev := <-states:
		assert.Equal(t, LinkCancelled, ev.state)
		assert.ErrorIs(t, ev.err, ErrLinkClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("no state change reported")
	}
	assert.Empty(t, states, "the terminal state is reported once")

	// sends after close are dropped quietly
	l.Send("land")
}

func TestLinkStateNames(t *testing.T) {
	assert.Equal(t, "ready", LinkReady.String())
	assert.Equal(t, "failed", LinkFailed.String())
	assert.Equal(t, "cancelled", LinkCancelled.String())
	assert.Equal(t, "unknown", LinkState(9).String())
}

// closedPort returns a localhost UDP port with nothing listening on it.
func closedPort(t *testing.T) int {
	t.Helper()
	c, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	port := c.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, c.Close())
	return port
}

func TestLinkFailsOnReceiveError(t *testing.T) {
	l, err := Dial("127.0.0.1", closedPort(t), 0, nil)
	require.NoError(t, err)

	states := make(chan linkEvent, 4)
	l.OnStateChange(func(s LinkState, err error) { states <- linkEvent{s, err} })

	// the refusal comes back on the next read
	l.Send("command")
	select {
	case ev := <-states:
		assert.Equal(t, LinkFailed, ev.state)
		assert.Error(t, ev.err)
		assert.NotErrorIs(t, ev.err, ErrLinkClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("no state change reported")
	}

	l.Close()
	assert.Empty(t, states, "the terminal state is reported once")
}

func TestSequencerConnectionLostOverLink(t *testing.T) {
	l, err := Dial("127.0.0.1", closedPort(t), 0, nil)
	require.NoError(t, err)
	s := NewSequencer(l, Options{})
	t.Cleanup(func() {
		s.Close()
		l.Close()
	})

	msgs := make(chan string, 1)
	require.True(t, s.StartSequence(square(t), Callbacks{OnError: func(msg string) { msgs <- msg }}))
	select {
	case msg := <-msgs:
		assert.Contains(t, msg, MsgConnectionLost)
	case <-time.After(2 * time.Second):
		t.Fatal("OnError not called")
	}
	require.Eventually(t, func() bool { return !s.Running() }, time.Second, time.Millisecond)
}
