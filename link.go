// link.go - the UDP command link to the drone

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
	"errors"
	"log/slog"
	"net"
	"strconv"
	"sync"
)

const (
	defaultDroneAddr        = "192.168.10.1"
	defaultDroneControlPort = 8889
	defaultLocalControlPort = 8889

	sendQueueLen = 32
)

// LinkState is a connectivity transition reported by a Transport.
type LinkState int

// Link states...
const (
	LinkReady LinkState = iota
	LinkFailed
	LinkCancelled
)

func (s LinkState) String() string {
	switch s {
	case LinkReady:
		return "ready"
	case LinkFailed:
		return "failed"
	case LinkCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Transport is an unreliable datagram channel to the drone.
type Transport interface {
	// Send queues text for transmission and returns immediately.
	Send(text string)
	// OnMessage sets the callback invoked once per received datagram.
	OnMessage(func(text string))
	// OnStateChange sets the callback invoked when the link fails or is closed.
	OnStateChange(func(state LinkState, err error))
}

// ErrLinkClosed is reported with LinkCancelled when Close is called.
var ErrLinkClosed = errors.New("link closed")

// Link holds a UDP connection to a drone speaking the text SDK.
type Link struct {
	conn     *net.UDPConn
	sendChan chan string
	stopChan chan bool
	log      *slog.Logger

	cbMu          sync.RWMutex // this mutex protects the callbacks
	onMessage     func(string)
	onStateChange func(LinkState, error)

	stateMu  sync.Mutex
	finished bool

	wg sync.WaitGroup
}

// Dial connects to a drone at the provided address and starts the listener
// and writer goroutines. A localUDPPort of 0 picks any free port.
func Dial(udpAddr string, droneUDPPort int, localUDPPort int, log *slog.Logger) (*Link, error) {
	droneAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(udpAddr, strconv.Itoa(droneUDPPort)))
	if err != nil {
		return nil, err
	}
	localAddr, err := net.ResolveUDPAddr("udp", ":"+strconv.Itoa(localUDPPort))
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", localAddr, droneAddr)
	if err != nil {
		return nil, err
	}
	return newLink(conn, log), nil
}

// DialDefault connects to a drone on the default network addresses.
func DialDefault(log *slog.Logger) (*Link, error) {
	return Dial(defaultDroneAddr, defaultDroneControlPort, defaultLocalControlPort, log)
}

func newLink(conn *net.UDPConn, log *slog.Logger) *Link {
	if log == nil {
		log = slog.Default()
	}
	l := &Link{
		conn:     conn,
		sendChan: make(chan string, sendQueueLen),
		stopChan: make(chan bool),
		log:      log.With("component", "link", "peer", conn.RemoteAddr().String()),
	}
	l.wg.Add(2)
	go l.writer()
	go l.responseListener()
	return l
}

// Send queues a command; if the queue is full the command is dropped.
func (l *Link) Send(text string) {
	select {
	case l.sendChan <- text:
	default: // so we don't block
		l.log.Warn("send queue full, command dropped", "command", text)
	}
}

// OnMessage sets the receive callback.
func (l *Link) OnMessage(f func(string)) {
	l.cbMu.Lock()
	l.onMessage = f
	l.cbMu.Unlock()
}

// OnStateChange sets the connectivity callback.
func (l *Link) OnStateChange(f func(LinkState, error)) {
	l.cbMu.Lock()
	l.onStateChange = f
	l.cbMu.Unlock()
}

// Close stops the goroutines and closes the connection, reporting LinkCancelled.
func (l *Link) Close() {
	if !l.finish(LinkCancelled, ErrLinkClosed) {
		return
	}
	close(l.stopChan)
	l.conn.Close()
	l.wg.Wait()
}

// finish reports the terminal state once, it returns false if already finished.
func (l *Link) finish(state LinkState, err error) bool {
	l.stateMu.Lock()
	if l.finished {
		l.stateMu.Unlock()
		return false
	}
	l.finished = true
	l.stateMu.Unlock()

	l.cbMu.RLock()
	cb := l.onStateChange
	l.cbMu.RUnlock()
	if cb != nil {
		cb(state, err)
	}
	return true
}

func (l *Link) writer() {
	defer l.wg.Done()
	for {
		select {
		case <-l.stopChan:
			return
		case text := <-l.sendChan:
			if _, err := l.conn.Write([]byte(text)); err != nil {
				// no retries, the sequencer's timeout deals with lost commands
				l.log.Warn("network write error", "command", text, "error", err)
				continue
			}
			l.log.Debug("sent", "command", text)
		}
	}
}

func (l *Link) responseListener() {
	defer l.wg.Done()
	buff := make([]byte, 2048)

	for {
		n, err := l.conn.Read(buff)
		if err != nil {
			select {
			case <-l.stopChan:
				l.log.Debug("response listener stopped")
				return
			default:
			}
			l.log.Error("network read error", "error", err)
			if l.finish(LinkFailed, err) {
				close(l.stopChan)
				l.conn.Close()
			}
			return
		}

		text := string(buff[:n])
		l.log.Debug("received", "response", text)
		l.cbMu.RLock()
		cb := l.onMessage
		l.cbMu.RUnlock()
		if cb != nil {
			cb(text)
		}
	}
}
