// slog_test.go

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

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_ConsoleAndFile(t *testing.T) {
	var console, file bytes.Buffer
	m := NewSlogManager(&console)
	m.Setup(&file, "info")
	m.Logger().Info("sequence started", "request", "shape:square")

	assert.Contains(t, console.String(), "sequence started")
	assert.Contains(t, file.String(), "request=shape:square")
}

func TestSetup_NoConsole(t *testing.T) {
	var file bytes.Buffer
	m := NewSlogManager(nil)
	m.Setup(&file, "info")
	m.Logger().Info("file only")
	assert.Contains(t, file.String(), "file only")
}

func TestSetup_InfoLevel_FiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager(nil)
	m.Setup(&buf, "info")

	m.Logger().Debug("should be filtered")
	m.Logger().Info("should appear")

	assert.NotContains(t, buf.String(), "should be filtered")
	assert.Contains(t, buf.String(), "should appear")
}

func TestSetup_UTCTimestamps(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager(nil)
	m.Setup(&buf, "debug")
	m.Logger().Info("stamp")
	assert.Regexp(t, `time=\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z`, buf.String())
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	assert.Equal(t, slog.Default(), NewSlogManager(nil).Logger())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestMultiHandler(t *testing.T) {
	var info, debug bytes.Buffer
	hi := slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo})
	hd := slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug})

	multi := NewMultiHandler(nil, hi, hd)
	require.Len(t, multi.handlers, 2)
	assert.True(t, multi.Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, NewMultiHandler(hi).Enabled(context.Background(), slog.LevelDebug))

	logger := slog.New(multi).With("component", "link").WithGroup("cmd")
	logger.Debug("detail", "text", "takeoff")
	logger.Info("summary")

	assert.NotContains(t, info.String(), "detail")
	assert.Contains(t, info.String(), "component=link")
	assert.Contains(t, debug.String(), "cmd.text=takeoff")
}

var errDiskFull = errors.New("no space left on device")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errDiskFull }

func TestMultiHandlerReportsFailingHandler(t *testing.T) {
	var console bytes.Buffer
	multi := NewMultiHandler(
		slog.NewTextHandler(failingWriter{}, nil),
		slog.NewTextHandler(&console, nil),
	)
	r := slog.NewRecord(time.Now(), slog.LevelInfo, "sequence completed", 0)

	err := multi.Handle(context.Background(), r)
	assert.ErrorIs(t, err, errDiskFull)
	assert.Contains(t, console.String(), "sequence completed")
}

func TestOpenLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	start := time.Date(2018, 6, 1, 12, 30, 0, 0, time.UTC)

	f, err := OpenLogFile(dir, "tellopaint", start)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, filepath.Join(dir, "tellopaint.20180601_123000.log"), f.Name())
	_, err = os.Stat(f.Name())
	assert.NoError(t, err)
}
