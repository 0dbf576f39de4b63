// server.go

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

// Package server exposes the sequencer and the compositor over HTTP, with a
// WebSocket stream of events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // frame uploads
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/SMerrony/tellopaint"
	"github.com/SMerrony/tellopaint/compositor"
	"github.com/SMerrony/tellopaint/internal/journal"
)

const maxFrameBytes = 32 << 20

// Pilot is the part of the sequencer the server drives.
type Pilot interface {
	StartSequence(req tellopaint.DrawingRequest, cb tellopaint.Callbacks) bool
	EmergencyLand()
	Running() bool
}

// Camera is the part of the compositor the server drives.
type Camera interface {
	Start(window time.Duration, dev compositor.DeviceOrientation) bool
	Submit(f compositor.Frame) bool
	Stop() (*compositor.Result, error)
	Capturing() bool
}

// History lists past flights and captures.
type History interface {
	RecentFlights(limit int) ([]journal.Flight, error)
	RecentCaptures(limit int) ([]journal.Capture, error)
}

// Options configure a Server. History may be nil.
type Options struct {
	Pilot   Pilot
	Camera  Camera
	History History
	Logger  *slog.Logger

	// Window and Orientation apply when a request does not give them.
	Window      time.Duration
	Orientation compositor.DeviceOrientation
}

// Server routes HTTP requests to the pilot and the camera.
type Server struct {
	opts   Options
	log    *slog.Logger
	hub    *hub
	router *mux.Router

	mu      sync.Mutex
	last    *compositor.Result
	lastID  string
	lastErr error
}

// New builds the router.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Window <= 0 {
		opts.Window = time.Minute
	}
	s := &Server{
		opts: opts,
		log:  opts.Logger.With("component", "server"),
	}
	s.hub = newHub(s.log)

	r := mux.NewRouter()
	r.HandleFunc("/status", s.statusHandler).Methods("GET")
	r.HandleFunc("/sequence", s.sequenceHandler).Methods("POST")
	r.HandleFunc("/land", s.landHandler).Methods("POST")
	r.HandleFunc("/capture/start", s.captureStartHandler).Methods("POST")
	r.HandleFunc("/capture/stop", s.captureStopHandler).Methods("POST")
	r.HandleFunc("/capture/frame", s.captureFrameHandler).Methods("PUT")
	r.HandleFunc("/capture/{image:result|reference|last}.png", s.captureImageHandler).Methods("GET")
	r.HandleFunc("/flights", s.flightsHandler).Methods("GET")
	r.HandleFunc("/captures", s.capturesHandler).Methods("GET")
	r.HandleFunc("/events", s.hub.websocketHandler).Methods("GET")
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	s.hub.closeAll()
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// Observe forwards a sequencer event to the WebSocket clients.
func (s *Server) Observe(ev tellopaint.Event) {
	s.hub.broadcast("sequencer", ev)
}

// CaptureFinished keeps the result of a capture window for the image routes
// and tells the WebSocket clients. It has the shape of a compositor OnFinished hook.
func (s *Server) CaptureFinished(id string, res *compositor.Result, err error) {
	s.mu.Lock()
	s.lastID, s.lastErr = id, err
	if res != nil {
		s.last = res
	}
	s.mu.Unlock()
	s.hub.broadcast("compositor", captureStatusFor(id, res, err))
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondJSON(w http.ResponseWriter, httpStatus int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(httpStatus)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("json encoding failed", "status", httpStatus, "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, httpStatus int, msg string) {
	s.respondJSON(w, httpStatus, errorResponse{Error: msg})
}

type captureStatus struct {
	ID     string `json:"id,omitempty"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Frames int    `json:"frames"`
}

func captureStatusFor(id string, res *compositor.Result, err error) captureStatus {
	cs := captureStatus{ID: id, OK: err == nil}
	if err != nil {
		cs.Error = err.Error()
	}
	if res != nil {
		cs.Frames = res.Frames
	}
	return cs
}

type statusResponse struct {
	Running     bool           `json:"running"`
	Capturing   bool           `json:"capturing"`
	LastCapture *captureStatus `json:"lastCapture,omitempty"`
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Running:   s.opts.Pilot.Running(),
		Capturing: s.opts.Camera.Capturing(),
	}
	s.mu.Lock()
	if s.lastID != "" {
		cs := captureStatusFor(s.lastID, s.last, s.lastErr)
		resp.LastCapture = &cs
	}
	s.mu.Unlock()
	s.respondJSON(w, http.StatusOK, resp)
}

type acceptedResponse struct {
	Accepted bool `json:"accepted"`
}

func (s *Server) sequenceHandler(w http.ResponseWriter, r *http.Request) {
	var body sequenceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "malformed request: "+err.Error())
		return
	}
	req, err := body.drawingRequest()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	dev, err := s.orientation(body.Orientation)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cb := tellopaint.Callbacks{
		OnError: func(msg string) {
			s.log.Warn("sequence failed", "request", req.String(), "message", msg)
			if body.Capture && s.opts.Camera.Capturing() {
				s.opts.Camera.Stop()
			}
		},
		OnComplete: func() { s.log.Info("sequence complete", "request", req.String()) },
	}
	if body.Capture {
		window := s.opts.Window
		if body.WindowSeconds > 0 {
			window = time.Duration(body.WindowSeconds * float64(time.Second))
		}
		cb.OnPatternStart = func() { s.opts.Camera.Start(window, dev) }
		cb.OnPatternEnd = func() { s.opts.Camera.Stop() }
	}

	accepted := s.opts.Pilot.StartSequence(req, cb)
	status := http.StatusAccepted
	if !accepted {
		status = http.StatusConflict
	}
	s.respondJSON(w, status, acceptedResponse{Accepted: accepted})
}

func (s *Server) landHandler(w http.ResponseWriter, r *http.Request) {
	s.opts.Pilot.EmergencyLand()
	s.respondJSON(w, http.StatusAccepted, acceptedResponse{Accepted: true})
}

type captureStartRequest struct {
	WindowSeconds float64 `json:"windowSeconds"`
	Orientation   string  `json:"orientation"`
}

func (s *Server) captureStartHandler(w http.ResponseWriter, r *http.Request) {
	var body captureStartRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			s.respondError(w, http.StatusBadRequest, "malformed request: "+err.Error())
			return
		}
	}
	dev, err := s.orientation(body.Orientation)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	window := s.opts.Window
	if body.WindowSeconds > 0 {
		window = time.Duration(body.WindowSeconds * float64(time.Second))
	}
	started := s.opts.Camera.Start(window, dev)
	status := http.StatusAccepted
	if !started {
		status = http.StatusConflict
	}
	s.respondJSON(w, status, acceptedResponse{Accepted: started})
}

func (s *Server) captureStopHandler(w http.ResponseWriter, r *http.Request) {
	res, err := s.opts.Camera.Stop()
	switch {
	case errors.Is(err, compositor.ErrIdle):
		s.respondError(w, http.StatusConflict, err.Error())
	case err != nil:
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.respondJSON(w, http.StatusOK, captureStatusFor(res.ID, res, nil))
	}
}

func (s *Server) captureFrameHandler(w http.ResponseWriter, r *http.Request) {
	img, _, err := image.Decode(io.LimitReader(r.Body, maxFrameBytes))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "cannot decode frame: "+err.Error())
		return
	}
	ts := time.Now()
	if v := r.URL.Query().Get("ts"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "bad ts: "+err.Error())
			return
		}
		ts = time.UnixMilli(ms)
	}
	accepted := s.opts.Camera.Submit(compositor.FrameFromImage(img, ts))
	s.respondJSON(w, http.StatusAccepted, acceptedResponse{Accepted: accepted})
}

func (s *Server) captureImageHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	res := s.last
	s.mu.Unlock()
	if res == nil {
		s.respondError(w, http.StatusNotFound, "no image captured yet")
		return
	}

	var img *image.RGBA
	switch mux.Vars(r)["image"] {
	case "result":
		img = res.Image
	case "reference":
		img = res.Reference
	case "last":
		img = res.Last
	}
	if img == nil {
		s.respondError(w, http.StatusNotFound, "image not available")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := compositor.EncodePNG(w, img, res.Orientation); err != nil {
		s.log.Warn("png encoding failed", "error", err)
	}
}

func (s *Server) orientation(name string) (compositor.DeviceOrientation, error) {
	if name == "" {
		return s.opts.Orientation, nil
	}
	return compositor.ParseDeviceOrientation(name)
}

func (s *Server) limit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return 20
	}
	return n
}

func (s *Server) flightsHandler(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		s.respondError(w, http.StatusNotFound, "no journal configured")
		return
	}
	fs, err := s.opts.History.RecentFlights(s.limit(r))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, fs)
}

func (s *Server) capturesHandler(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		s.respondError(w, http.StatusNotFound, "no journal configured")
		return
	}
	cs, err := s.opts.History.RecentCaptures(s.limit(r))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, cs)
}
