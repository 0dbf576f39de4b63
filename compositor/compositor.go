// compositor.go

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

// Package compositor turns the camera frames of a capture window into a single
// light-painting image: the bright moving parts of every frame are
// max-composited over an otherwise empty canvas.
package compositor

import (
	"errors"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/SMerrony/tellopaint/internal/metrics"
	"github.com/SMerrony/tellopaint/internal/worker"
)

// Errors returned when finalizing a capture window.
var (
	ErrIdle    = errors.New("no capture in progress")
	ErrNoImage = errors.New("no image captured")
)

// Frame drop reasons, as reported to metrics.
const (
	dropIdle    = "idle"
	dropBusy    = "busy"
	dropEarly   = "early"
	dropLate    = "late"
	dropInvalid = "invalid"
)

// Result holds the images materialized at the end of a capture window.
type Result struct {
	ID          string
	Image       *image.RGBA // the light trail
	Reference   *image.RGBA // the static background
	Last        *image.RGBA // the final raw frame
	Orientation Orientation
	Frames      int
	Started     time.Time
	Ended       time.Time
}

// Options configure a Compositor.
type Options struct {
	Clock   clockwork.Clock
	Logger  *slog.Logger
	Metrics *metrics.Recorder
	// OnFinished, if set, is called after every finalized window, whether it
	// ended by Stop or by expiry. res is nil when err is ErrNoImage.
	OnFinished func(id string, res *Result, err error)
}

// Compositor owns one frame worker. Frames, Start and Stop are all
// serialized onto that worker.
type Compositor struct {
	opts      Options
	log       *slog.Logger
	work      *worker.Executor
	capturing atomic.Bool
	inFlight  atomic.Bool

	// owned by work
	acc         accumulator
	id          string
	gen         uint64
	started     time.Time
	ends        time.Time
	orientation Orientation
	timer       clockwork.Timer
}

// New creates an idle Compositor.
func New(opts Options) *Compositor {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Compositor{
		opts: opts,
		log:  opts.Logger.With("component", "compositor"),
		work: worker.New(),
	}
}

// Start opens a capture window of the given length. The output orientation is
// fixed from dev for the whole window. Starting while capturing is a no-op
// and returns false.
func (c *Compositor) Start(window time.Duration, dev DeviceOrientation) bool {
	started := false
	c.work.Sync(func() {
		if c.capturing.Load() {
			c.log.Debug("capture already running, start ignored", "capture", c.id)
			return
		}
		started = true
		c.acc.reset()
		c.gen++
		c.id = uuid.NewString()
		c.started = c.opts.Clock.Now()
		c.ends = c.started.Add(window)
		c.orientation = OrientationFor(dev)
		c.capturing.Store(true)
		gen := c.gen
		c.timer = c.opts.Clock.AfterFunc(window, func() { c.expire(gen) })
		c.log.Info("capture started", "capture", c.id, "window", window, "orientation", c.orientation.String())
	})
	return started
}

// Submit hands a frame to the worker and returns at once. Ownership of
// f.Pix passes to the compositor. If a previous frame is still being
// processed, or no window is open, the frame is dropped and false returned.
// A zero Timestamp is taken to mean now.
func (c *Compositor) Submit(f Frame) bool {
	if !c.capturing.Load() {
		c.opts.Metrics.FrameDropped(dropIdle)
		return false
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		c.opts.Metrics.FrameDropped(dropBusy)
		return false
	}
	if f.Timestamp.IsZero() {
		f.Timestamp = c.opts.Clock.Now()
	}
	if !c.work.Post(func() {
		defer c.inFlight.Store(false)
		c.process(f)
	}) {
		c.inFlight.Store(false)
		return false
	}
	return true
}

// Capturing reports whether a window is open.
func (c *Compositor) Capturing() bool {
	return c.capturing.Load()
}

// Stop ends the window now and returns its images. A second call, or a call
// after the window expired, returns ErrIdle.
func (c *Compositor) Stop() (*Result, error) {
	return c.finalizeSync(0)
}

// Close abandons any window and stops the worker.
func (c *Compositor) Close() {
	c.work.Sync(func() {
		if c.timer != nil {
			c.timer.Stop()
		}
		c.capturing.Store(false)
		c.acc.reset()
	})
	c.work.Close()
}

func (c *Compositor) expire(gen uint64) {
	if _, err := c.finalizeSync(gen); errors.Is(err, ErrIdle) {
		c.log.Debug("capture already finalized")
	}
}

// finalizeSync snapshots and clears the window on the worker. gen 0 matches
// any window, otherwise only the window that armed the timer.
func (c *Compositor) finalizeSync(gen uint64) (*Result, error) {
	var (
		res *Result
		id  string
		err = ErrIdle
	)
	c.work.Sync(func() {
		if !c.capturing.Load() || (gen != 0 && gen != c.gen) {
			return
		}
		id = c.id
		res, err = c.finalize()
	})
	if errors.Is(err, ErrIdle) {
		return nil, err
	}
	if c.opts.OnFinished != nil {
		c.opts.OnFinished(id, res, err)
	}
	return res, err
}

func (c *Compositor) finalize() (*Result, error) {
	c.capturing.Store(false)
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	defer c.acc.reset()

	if c.acc.reference == nil {
		c.opts.Metrics.CaptureFinished(false)
		c.log.Warn("capture finished without any frames", "capture", c.id)
		return nil, ErrNoImage
	}
	a := &c.acc
	res := &Result{
		ID:          c.id,
		Image:       toRGBA(a.acc, a.width, a.height),
		Reference:   toRGBA(a.reference, a.width, a.height),
		Last:        toRGBA(a.last, a.width, a.height),
		Orientation: c.orientation,
		Frames:      a.frames,
		Started:     c.started,
		Ended:       c.opts.Clock.Now(),
	}
	c.opts.Metrics.CaptureFinished(true)
	c.log.Info("capture finished", "capture", c.id, "frames", res.Frames, "size", res.Image.Bounds().Size())
	return res, nil
}

func (c *Compositor) process(f Frame) {
	if !c.capturing.Load() {
		c.opts.Metrics.FrameDropped(dropIdle)
		return
	}
	switch {
	case f.Timestamp.After(c.ends):
		c.opts.Metrics.FrameDropped(dropLate)
		return
	case f.Timestamp.Before(c.started):
		c.opts.Metrics.FrameDropped(dropEarly)
		return
	}
	if err := f.validate(); err != nil {
		c.opts.Metrics.FrameDropped(dropInvalid)
		c.log.Warn("frame dropped", "capture", c.id, "error", err)
		return
	}
	ref := c.acc.add(f)
	c.opts.Metrics.FrameProcessed(ref)
	if ref {
		c.log.Debug("reference frame captured", "capture", c.id, "width", f.Width, "height", f.Height)
	}
}
