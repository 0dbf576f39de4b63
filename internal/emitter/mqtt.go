// mqtt.go

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

// Package emitter publishes sequencer and capture events to an MQTT broker.
package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/SMerrony/tellopaint"
	"github.com/SMerrony/tellopaint/compositor"
)

const publishTimeout = 2 * time.Second

// ErrNotConnected is returned by Publish before Connect succeeds.
var ErrNotConnected = errors.New("mqtt not connected")

// Config holds the broker settings.
type Config struct {
	Broker      string // e.g. tcp://localhost:1883
	ClientID    string
	TopicPrefix string
}

// publisher is the part of mqtt.Client the emitter needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTEmitter publishes JSON events to <prefix>/events and <prefix>/captures.
type MQTTEmitter struct {
	cfg    Config
	log    *slog.Logger
	client mqtt.Client
	pub    publisher

	mu        sync.RWMutex
	connected bool
	published map[string]uint64
	errors    uint64
}

// CaptureSummary is the payload published when a capture window ends.
type CaptureSummary struct {
	ID          string    `json:"id"`
	OK          bool      `json:"ok"`
	Error       string    `json:"error,omitempty"`
	Frames      int       `json:"frames"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	Orientation string    `json:"orientation,omitempty"`
	Started     time.Time `json:"started,omitzero"`
	Ended       time.Time `json:"ended,omitzero"`
}

// NewMQTTEmitter creates an unconnected emitter.
func NewMQTTEmitter(cfg Config, log *slog.Logger) *MQTTEmitter {
	if log == nil {
		log = slog.Default()
	}
	return &MQTTEmitter{
		cfg:       cfg,
		log:       log.With("component", "emitter"),
		published: make(map[string]uint64),
	}
}

// Connect establishes the broker connection; the client reconnects by itself afterwards.
func (e *MQTTEmitter) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(e.cfg.Broker)
	opts.SetClientID(e.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.setConnected(true)
		e.log.Info("mqtt connection established", "broker", e.cfg.Broker, "client_id", e.cfg.ClientID)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.setConnected(false)
		e.log.Warn("mqtt connection lost, will auto-reconnect", "error", err, "broker", e.cfg.Broker)
	}

	e.client = mqtt.NewClient(opts)
	e.pub = e.client

	e.log.Info("connecting to mqtt broker", "broker", e.cfg.Broker)
	token := e.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("mqtt connection: %w", ctx.Err())
	case <-time.After(5 * time.Second):
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	e.setConnected(true)
	return nil
}

// Disconnect closes the broker connection.
func (e *MQTTEmitter) Disconnect() {
	if e.client != nil && e.client.IsConnected() {
		e.client.Disconnect(250)
		e.log.Info("mqtt disconnected")
	}
	e.setConnected(false)
}

// Observe publishes a sequencer event, errors are logged.
func (e *MQTTEmitter) Observe(ev tellopaint.Event) {
	if err := e.publishJSON("events", ev); err != nil {
		e.log.Warn("event not published", "event", ev.Kind.String(), "error", err)
	}
}

// PublishCapture publishes the summary of a finished capture window.
func (e *MQTTEmitter) PublishCapture(id string, res *compositor.Result, capErr error) error {
	s := CaptureSummary{ID: id, OK: capErr == nil}
	if capErr != nil {
		s.Error = capErr.Error()
	}
	if res != nil {
		s.Frames = res.Frames
		s.Width = res.Image.Bounds().Dx()
		s.Height = res.Image.Bounds().Dy()
		s.Orientation = res.Orientation.String()
		s.Started = res.Started
		s.Ended = res.Ended
	}
	return e.publishJSON("captures", s)
}

func (e *MQTTEmitter) publishJSON(sub string, v any) error {
	if !e.isConnected() {
		e.countError()
		return ErrNotConnected
	}
	payload, err := json.Marshal(v)
	if err != nil {
		e.countError()
		return fmt.Errorf("failed to marshal %s payload: %w", sub, err)
	}
	topic := e.cfg.TopicPrefix + "/" + sub
	token := e.pub.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		e.countError()
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		e.countError()
		return fmt.Errorf("publish failed: %w", err)
	}

	e.mu.Lock()
	e.published[topic]++
	e.mu.Unlock()
	e.log.Debug("published", "topic", topic, "size", len(payload))
	return nil
}

// Stats contains emitter statistics.
type Stats struct {
	Connected bool
	Published map[string]uint64
	Errors    uint64
}

// Stats returns a snapshot of the emitter statistics.
func (e *MQTTEmitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	published := make(map[string]uint64, len(e.published))
	for k, v := range e.published {
		published[k] = v
	}
	return Stats{Connected: e.connected, Published: published, Errors: e.errors}
}

func (e *MQTTEmitter) setConnected(c bool) {
	e.mu.Lock()
	e.connected = c
	e.mu.Unlock()
}

func (e *MQTTEmitter) isConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

func (e *MQTTEmitter) countError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}
