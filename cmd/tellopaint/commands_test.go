// commands_test.go

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

package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"

	"github.com/SMerrony/tellopaint"
)

func flagContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("draw", flag.ContinueOnError)
	set.String("shape", "", "")
	set.String("letter", "", "")
	set.Int("digit", -1, "")
	set.String("path", "", "")
	require.NoError(t, set.Parse(args))
	return cli.NewContext(nil, set, nil)
}

func TestDrawingFromFlags(t *testing.T) {
	req, err := drawingFromFlags(flagContext(t, "-shape", "Triangle"))
	require.NoError(t, err)
	assert.Equal(t, "shape:triangle", req.String())

	req, err = drawingFromFlags(flagContext(t, "-letter", "z"))
	require.NoError(t, err)
	assert.Equal(t, "letter:Z", req.String())

	req, err = drawingFromFlags(flagContext(t, "-digit", "0"))
	require.NoError(t, err)
	assert.Equal(t, "digit:0", req.String())

	name := filepath.Join(t.TempDir(), "p.yaml")
	require.NoError(t, os.WriteFile(name, []byte("name: step\npoints:\n  - {row: 0, col: 0}\n  - {row: 0, col: 1}\n"), 0644))
	req, err = drawingFromFlags(flagContext(t, "-path", name))
	require.NoError(t, err)
	assert.Equal(t, tellopaint.KindPath, req.Kind())
}

func TestDrawingFromFlagsErrors(t *testing.T) {
	_, err := drawingFromFlags(flagContext(t))
	assert.Error(t, err)

	_, err = drawingFromFlags(flagContext(t, "-shape", "square", "-digit", "4"))
	assert.Error(t, err)

	_, err = drawingFromFlags(flagContext(t, "-letter", "ab"))
	assert.Error(t, err)

	_, err = drawingFromFlags(flagContext(t, "-letter", "7"))
	assert.ErrorIs(t, err, tellopaint.ErrUnknownLetter)

	_, err = drawingFromFlags(flagContext(t, "-shape", "circle"))
	assert.ErrorIs(t, err, tellopaint.ErrUnknownShape)
}

func TestOfferReplyNeverBlocks(t *testing.T) {
	replies := make(chan string, 2)
	deliver := offerReply(replies)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			deliver("ok")
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reply callback blocked")
	}
	assert.Len(t, replies, 2)
}
