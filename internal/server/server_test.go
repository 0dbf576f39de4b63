// server_test.go

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

package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SMerrony/tellopaint"
	"github.com/SMerrony/tellopaint/compositor"
	"github.com/SMerrony/tellopaint/internal/journal"
)

type fakePilot struct {
	mu       sync.Mutex
	running  bool
	requests []tellopaint.DrawingRequest
	cbs      []tellopaint.Callbacks
	landings int
}

func (p *fakePilot) StartSequence(req tellopaint.DrawingRequest, cb tellopaint.Callbacks) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return false
	}
	p.running = true
	p.requests = append(p.requests, req)
	p.cbs = append(p.cbs, cb)
	return true
}

func (p *fakePilot) EmergencyLand() {
	p.mu.Lock()
	p.running = false
	p.landings++
	p.mu.Unlock()
}

func (p *fakePilot) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

type testEnv struct {
	srv   *Server
	http  *httptest.Server
	pilot *fakePilot
	cam   *compositor.Compositor
}

func newTestEnv(t *testing.T, history History) *testEnv {
	t.Helper()
	env := &testEnv{pilot: &fakePilot{}}
	env.cam = compositor.New(compositor.Options{
		OnFinished: func(id string, res *compositor.Result, err error) { env.srv.CaptureFinished(id, res, err) },
	})
	t.Cleanup(env.cam.Close)
	env.srv = New(Options{Pilot: env.pilot, Camera: env.cam, History: history, Window: time.Hour})
	env.http = httptest.NewServer(env.srv.Handler())
	t.Cleanup(env.http.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, e.http.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func pngBody(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func (e *testEnv) putFrame(t *testing.T, img image.Image) {
	t.Helper()
	body := pngBody(t, img)
	require.Eventually(t, func() bool {
		req, _ := http.NewRequest("PUT", e.http.URL+"/capture/frame", bytes.NewReader(body))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var out acceptedResponse
		json.NewDecoder(resp.Body).Decode(&out)
		return out.Accepted
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSequenceRoute(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, out := env.do(t, "POST", "/sequence", `{"letter":"l"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, true, out["accepted"])
	require.Len(t, env.pilot.requests, 1)
	assert.Equal(t, "letter:L", env.pilot.requests[0].String())
	assert.Nil(t, env.pilot.cbs[0].OnPatternStart, "no capture asked for")

	resp, out = env.do(t, "POST", "/sequence", `{"shape":"square"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, false, out["accepted"])

	resp, _ = env.do(t, "POST", "/land", "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, 1, env.pilot.landings)

	resp, _ = env.do(t, "POST", "/sequence", `{"path":[{"row":0,"col":0},{"row":0,"col":1}]}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "path:2", env.pilot.requests[1].String())
}

func TestSequenceRouteRejectsBadRequests(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, body := range []string{
		`{`,
		`{}`,
		`{"shape":"square","letter":"A"}`,
		`{"shape":"hexagon"}`,
		`{"letter":"AB"}`,
		`{"digit":12}`,
		`{"path":[{"row":0,"col":0},{"row":1,"col":1}]}`,
		`{"digit":1,"orientation":"sideways"}`,
	} {
		resp, out := env.do(t, "POST", "/sequence", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.NotEmpty(t, out["error"], body)
	}
	assert.Empty(t, env.pilot.requests)
}

func TestSequenceWithCapture(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, _ := env.do(t, "POST", "/sequence", `{"digit":7,"capture":true,"orientation":"landscapeLeft"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	cb := env.pilot.cbs[0]
	require.NotNil(t, cb.OnPatternStart)
	require.NotNil(t, cb.OnPatternEnd)

	cb.OnPatternStart()
	assert.True(t, env.cam.Capturing())

	black := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 3; i < len(black.Pix); i += 4 {
		black.Pix[i] = 255
	}
	env.putFrame(t, black)
	bright := image.NewRGBA(black.Rect)
	copy(bright.Pix, black.Pix)
	bright.SetRGBA(2, 2, color.RGBA{255, 255, 255, 255})
	env.putFrame(t, bright)

	cb.OnPatternEnd()
	assert.False(t, env.cam.Capturing())

	_, status := env.do(t, "GET", "/status", "")
	last := status["lastCapture"].(map[string]any)
	assert.Equal(t, true, last["ok"])
	assert.EqualValues(t, 1, last["frames"])

	resp, err := http.Get(env.http.URL + "/capture/result.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	r, g, b, a := img.At(2, 2).RGBA()
	assert.Equal(t, []uint32{0xffff, 0xffff, 0xffff, 0xffff}, []uint32{r, g, b, a})
}

func TestCaptureRoutes(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, _ := env.do(t, "GET", "/capture/result.png", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = env.do(t, "POST", "/capture/stop", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, out := env.do(t, "POST", "/capture/start", `{"windowSeconds":30}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, true, out["accepted"])
	resp, _ = env.do(t, "POST", "/capture/start", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// nothing submitted
	resp, out = env.do(t, "POST", "/capture/stop", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, compositor.ErrNoImage.Error(), out["error"])

	resp, _ = env.do(t, "POST", "/capture/start", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	env.putFrame(t, image.NewGray(image.Rect(0, 0, 3, 2)))
	resp, out = env.do(t, "POST", "/capture/stop", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["ok"])

	for _, name := range []string{"result", "reference", "last"} {
		resp, _ = env.do(t, "GET", "/capture/"+name+".png", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode, name)
	}
	resp, _ = env.do(t, "GET", "/capture/other.png", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, "PUT", "/capture/frame", "not an image")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHistoryRoutes(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, _ := env.do(t, "GET", "/flights", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	j, err := journal.Open("", nil)
	require.NoError(t, err)
	defer j.Close()
	j.Observe(tellopaint.Event{Kind: tellopaint.EventSessionStarted, Session: "s-1", Request: "shape:square", Time: time.Now()})

	env = newTestEnv(t, j)
	resp, err = http.Get(env.http.URL + "/flights?limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	var fs []journal.Flight
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fs))
	require.Len(t, fs, 1)
	assert.Equal(t, "shape:square", fs[0].Request)

	resp2, _ := env.do(t, "GET", "/captures", "")
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestEventsWebsocket(t *testing.T) {
	env := newTestEnv(t, nil)
	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return env.srv.hub.count() == 1 }, time.Second, time.Millisecond)

	outcome := tellopaint.OutcomeCompleted
	env.srv.Observe(tellopaint.Event{Kind: tellopaint.EventSessionEnded, Session: "s-9", Outcome: &outcome})
	env.srv.CaptureFinished("cap-1", nil, compositor.ErrNoImage)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first, second map[string]any
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))

	assert.Equal(t, "sequencer", first["source"])
	data := first["data"].(map[string]any)
	assert.Equal(t, "session_ended", data["kind"])
	assert.Equal(t, "completed", data["outcome"])

	assert.Equal(t, "compositor", second["source"])
	assert.Equal(t, false, second["data"].(map[string]any)["ok"])

	conn.Close()
	require.Eventually(t, func() bool { return env.srv.hub.count() == 0 }, 2*time.Second, time.Millisecond)
}

func TestRespondJSONLogsEncodeFailure(t *testing.T) {
	var logs bytes.Buffer
	s := New(Options{Logger: slog.New(slog.NewTextHandler(&logs, nil))})

	rec := httptest.NewRecorder()
	s.respondJSON(rec, http.StatusOK, map[string]float64{"bad": math.Inf(1)})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, logs.String(), "json encoding failed")
	assert.Contains(t, logs.String(), "unsupported value")
}
