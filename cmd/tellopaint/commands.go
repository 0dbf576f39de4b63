// commands.go

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
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/urfave/cli"

	"github.com/SMerrony/tellopaint"
	"github.com/SMerrony/tellopaint/compositor"
	"github.com/SMerrony/tellopaint/internal/pathfile"
	"github.com/SMerrony/tellopaint/internal/server"
)

var drawingFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "shape, s",
		Usage: "Draw a shape: square, rectangle or triangle",
	},
	cli.StringFlag{
		Name:  "letter, l",
		Usage: "Draw a capital letter A-Z",
	},
	cli.IntFlag{
		Name:  "digit, d",
		Value: -1,
		Usage: "Draw a digit 0-9",
	},
	cli.StringFlag{
		Name:  "path, p",
		Usage: "Draw the freehand path in this YAML file",
	},
}

// COMMANDS are the tellopaint subcommands.
var COMMANDS = []cli.Command{
	{
		Name:   "draw",
		Usage:  "Take off, draw one figure and land",
		Flags:  drawingFlags,
		Action: drawCommand,
	},
	{
		Name:   "plan",
		Usage:  "Print the commands that draw would send, without flying",
		Flags:  drawingFlags,
		Action: planCommand,
	},
	{
		Name:   "land",
		Usage:  "Tell the drone to land now",
		Action: landCommand,
	},
	{
		Name:  "serve",
		Usage: "Start the HTTP control server",
		Flags: []cli.Flag{
			cli.IntFlag{
				Name:  "port",
				Usage: "HTTP listening port (default from config)",
			},
		},
		Action: serveCommand,
	},
}

func drawingFromFlags(ctx *cli.Context) (tellopaint.DrawingRequest, error) {
	given := 0
	for _, name := range []string{"shape", "letter", "path"} {
		if ctx.String(name) != "" {
			given++
		}
	}
	if ctx.Int("digit") >= 0 {
		given++
	}
	if given != 1 {
		return tellopaint.DrawingRequest{}, errors.New("give exactly one of --shape, --letter, --digit or --path")
	}

	switch {
	case ctx.String("shape") != "":
		s, err := tellopaint.ParseShape(ctx.String("shape"))
		if err != nil {
			return tellopaint.DrawingRequest{}, err
		}
		return tellopaint.DrawShape(s)
	case ctx.String("letter") != "":
		l := ctx.String("letter")
		if utf8.RuneCountInString(l) != 1 {
			return tellopaint.DrawingRequest{}, fmt.Errorf("--letter takes one character, not %q", l)
		}
		r, _ := utf8.DecodeRuneInString(l)
		return tellopaint.DrawLetter(r)
	case ctx.String("path") != "":
		_, req, err := pathfile.Load(ctx.String("path"))
		return req, err
	default:
		return tellopaint.DrawDigit(ctx.Int("digit"))
	}
}

func planCommand(ctx *cli.Context) error {
	req, err := drawingFromFlags(ctx)
	if err != nil {
		return cli.NewExitError(err.Error(), 2)
	}
	for _, c := range tellopaint.Commands(req, 0) {
		fmt.Println(c.Text)
	}
	return nil
}

func drawCommand(ctx *cli.Context) error {
	req, err := drawingFromFlags(ctx)
	if err != nil {
		return cli.NewExitError(err.Error(), 2)
	}
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	link, err := e.dial()
	if err != nil {
		return err
	}
	defer link.Close()
	seq := e.sequencer(link)
	defer seq.Close()

	done := make(chan error, 1)
	cb := tellopaint.Callbacks{
		OnPatternStart: func() { e.log.Info("drawing", "request", req.String()) },
		OnPatternEnd:   func() { e.log.Info("drawing finished, landing") },
		OnError:        func(msg string) { done <- errors.New(msg) },
		OnComplete:     func() { done <- nil },
	}
	if !seq.StartSequence(req, cb) {
		return errors.New("a sequence is already running")
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case err = <-done:
		return err
	case <-sigs:
		e.log.Warn("interrupted, landing")
		seq.EmergencyLand()
		// give the writer a moment to put 'land' on the wire
		time.Sleep(500 * time.Millisecond)
		return cli.NewExitError("aborted", 130)
	}
}

func landCommand(ctx *cli.Context) error {
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	link, err := e.dial()
	if err != nil {
		return err
	}
	defer link.Close()

	replies := make(chan string, 4)
	link.OnMessage(offerReply(replies))
	link.Send(tellopaint.Command().Text)
	link.Send(tellopaint.Land().Text)

	timeout := time.After(e.cfg.Sequencer.ResponseTimeout)
	for got := 0; got < 2; {
		select {
		case r := <-replies:
			got++
			e.log.Info("drone replied", "response", r)
		case <-timeout:
			return errors.New("no response from the drone")
		}
	}
	return nil
}

// offerReply returns a receive callback that never blocks the link's listener,
// replies beyond the channel's capacity are discarded.
func offerReply(replies chan<- string) func(string) {
	return func(text string) {
		select {
		case replies <- text:
		default:
		}
	}
}

func serveCommand(ctx *cli.Context) error {
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	dev, err := compositor.ParseDeviceOrientation(e.cfg.Capture.Orientation)
	if err != nil {
		return err
	}

	link, err := e.dial()
	if err != nil {
		return err
	}
	defer link.Close()

	var srv *server.Server
	cam := compositor.New(compositor.Options{
		Logger:  e.log,
		Metrics: e.metrics,
		OnFinished: func(id string, res *compositor.Result, capErr error) {
			srv.CaptureFinished(id, res, capErr)
			var files []string
			if res != nil && e.cfg.Capture.OutputDir != "" {
				if err := os.MkdirAll(e.cfg.Capture.OutputDir, 0755); err != nil {
					e.log.Warn("cannot create capture dir", "error", err)
				} else if files, err = res.SavePNGs(e.cfg.Capture.OutputDir, captureName(res)); err != nil {
					e.log.Warn("saving capture failed", "capture", id, "error", err)
				}
			}
			if e.journal != nil {
				if err := e.journal.RecordCapture(id, res, capErr, files); err != nil {
					e.log.Warn("journal", "error", err)
				}
			}
			if e.emitter != nil {
				if err := e.emitter.PublishCapture(id, res, capErr); err != nil {
					e.log.Debug("capture not published", "error", err)
				}
			}
		},
	})
	defer cam.Close()

	var history server.History
	if e.journal != nil {
		history = e.journal
	}
	seq := e.sequencer(link, func(ev tellopaint.Event) { srv.Observe(ev) })
	defer seq.Close()
	srv = server.New(server.Options{
		Pilot:       seq,
		Camera:      cam,
		History:     history,
		Window:      e.cfg.Capture.Window,
		Orientation: dev,
		Logger:      e.log,
	})

	port := ctx.Int("port")
	if port == 0 {
		port = e.cfg.Server.Port
	}
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = srv.ListenAndServe(sigCtx, fmt.Sprintf(":%d", port))
	if seq.Running() {
		seq.EmergencyLand()
		time.Sleep(500 * time.Millisecond)
	}
	return err
}

func captureName(res *compositor.Result) string {
	return "capture_" + res.Started.Format("20060102_150405")
}
