// metrics.go - OpenTelemetry instruments

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

// Package metrics holds the OpenTelemetry instruments shared by the sequencer
// and the compositor. A nil *Recorder is valid and records nothing.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/SMerrony/tellopaint"

// Recorder wraps the counters.
type Recorder struct {
	commandsSent   metric.Int64Counter
	acks           metric.Int64Counter
	timeouts       metric.Int64Counter
	sessions       metric.Int64Counter
	framesIn       metric.Int64Counter
	framesDropped  metric.Int64Counter
	captureResults metric.Int64Counter
}

// Default builds a Recorder on the global meter provider (no-op unless one is configured).
func Default() (*Recorder, error) {
	return New(otel.GetMeterProvider().Meter(meterName))
}

// New creates the instruments on the given meter.
func New(m metric.Meter) (*Recorder, error) {
	r := &Recorder{}
	var err error

	if r.commandsSent, err = m.Int64Counter("sequencer.commands.sent",
		metric.WithDescription("Flight commands handed to the link")); err != nil {
		return nil, fmt.Errorf("creating sent counter: %w", err)
	}
	if r.acks, err = m.Int64Counter("sequencer.commands.acknowledged",
		metric.WithDescription("Responses that acknowledged a command")); err != nil {
		return nil, fmt.Errorf("creating ack counter: %w", err)
	}
	if r.timeouts, err = m.Int64Counter("sequencer.commands.timeouts",
		metric.WithDescription("Commands that got no response in time")); err != nil {
		return nil, fmt.Errorf("creating timeout counter: %w", err)
	}
	if r.sessions, err = m.Int64Counter("sequencer.sessions",
		metric.WithDescription("Finished sequences by outcome")); err != nil {
		return nil, fmt.Errorf("creating session counter: %w", err)
	}
	if r.framesIn, err = m.Int64Counter("compositor.frames.processed",
		metric.WithDescription("Frames processed during capture windows")); err != nil {
		return nil, fmt.Errorf("creating frame counter: %w", err)
	}
	if r.framesDropped, err = m.Int64Counter("compositor.frames.dropped",
		metric.WithDescription("Frames dropped before processing")); err != nil {
		return nil, fmt.Errorf("creating drop counter: %w", err)
	}
	if r.captureResults, err = m.Int64Counter("compositor.captures",
		metric.WithDescription("Finished capture windows by result")); err != nil {
		return nil, fmt.Errorf("creating capture counter: %w", err)
	}
	return r, nil
}

// CommandSent counts one command handed to the link.
func (r *Recorder) CommandSent() {
	if r == nil {
		return
	}
	r.commandsSent.Add(context.Background(), 1)
}

// Acknowledged counts one response, tagged ok or error.
func (r *Recorder) Acknowledged(response string) {
	if r == nil {
		return
	}
	r.acks.Add(context.Background(), 1, metric.WithAttributes(attribute.String("response", response)))
}

// TimedOut counts one missing response.
func (r *Recorder) TimedOut(tolerated bool) {
	if r == nil {
		return
	}
	r.timeouts.Add(context.Background(), 1, metric.WithAttributes(attribute.Bool("tolerated", tolerated)))
}

// SessionEnded counts one finished sequence.
func (r *Recorder) SessionEnded(outcome string) {
	if r == nil {
		return
	}
	r.sessions.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// FrameProcessed counts one frame that reached the accumulator stage.
func (r *Recorder) FrameProcessed(reference bool) {
	if r == nil {
		return
	}
	r.framesIn.Add(context.Background(), 1, metric.WithAttributes(attribute.Bool("reference", reference)))
}

// FrameDropped counts one frame discarded for the given reason.
func (r *Recorder) FrameDropped(reason string) {
	if r == nil {
		return
	}
	r.framesDropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// CaptureFinished counts one finalized capture window.
func (r *Recorder) CaptureFinished(ok bool) {
	if r == nil {
		return
	}
	r.captureResults.Add(context.Background(), 1, metric.WithAttributes(attribute.Bool("image", ok)))
}
