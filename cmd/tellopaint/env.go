// env.go

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
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/SMerrony/tellopaint"
	"github.com/SMerrony/tellopaint/internal/config"
	"github.com/SMerrony/tellopaint/internal/emitter"
	"github.com/SMerrony/tellopaint/internal/journal"
	"github.com/SMerrony/tellopaint/internal/logging"
	"github.com/SMerrony/tellopaint/internal/metrics"
)

// env holds the services shared by all commands.
type env struct {
	cfg     *config.Config
	log     *slog.Logger
	logFile *os.File
	metrics *metrics.Recorder
	journal *journal.Journal
	emitter *emitter.MQTTEmitter
}

func openEnv(ctx *cli.Context) (*env, error) {
	cfg, err := config.Load(ctx.GlobalString("config"))
	if err != nil {
		return nil, err
	}
	if lvl := ctx.GlobalString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}

	e := &env{cfg: cfg}
	logMgr := logging.NewSlogManager(os.Stdout)
	if cfg.LogsDir != "" {
		if e.logFile, err = logging.OpenLogFile(cfg.LogsDir, "tellopaint", time.Now()); err != nil {
			return nil, err
		}
	}
	if e.logFile != nil {
		logMgr.Setup(e.logFile, cfg.LogLevel)
	} else {
		logMgr.Setup(nil, cfg.LogLevel)
	}
	e.log = logMgr.Logger()
	slog.SetDefault(e.log)

	if e.metrics, err = metrics.Default(); err != nil {
		e.close()
		return nil, err
	}

	if cfg.Journal.Path != "" {
		if e.journal, err = journal.Open(cfg.Journal.Path, e.log); err != nil {
			e.close()
			return nil, err
		}
	}

	if cfg.MQTT.Enabled {
		e.emitter = emitter.NewMQTTEmitter(emitter.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		}, e.log)
		cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := e.emitter.Connect(cctx)
		cancel()
		if err != nil {
			// events are optional, carry on without them
			e.log.Warn("mqtt unavailable, events will not be published", "error", err)
		}
	}
	return e, nil
}

func (e *env) close() {
	if e.emitter != nil {
		e.emitter.Disconnect()
	}
	if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			e.log.Warn("closing journal", "error", err)
		}
	}
	if e.logFile != nil {
		e.logFile.Close()
	}
}

// dial opens the UDP link to the drone.
func (e *env) dial() (*tellopaint.Link, error) {
	l, err := tellopaint.Dial(e.cfg.Drone.Address, e.cfg.Drone.Port, e.cfg.Drone.LocalPort, e.log)
	if err != nil {
		return nil, fmt.Errorf("connecting to drone at %s:%d: %w", e.cfg.Drone.Address, e.cfg.Drone.Port, err)
	}
	return l, nil
}

// sequencer builds a sequencer on link whose events go to the journal, the
// emitter and any extra observers.
func (e *env) sequencer(link tellopaint.Transport, extra ...func(tellopaint.Event)) *tellopaint.Sequencer {
	observers := extra
	if e.journal != nil {
		observers = append(observers, e.journal.Observe)
	}
	if e.emitter != nil {
		observers = append(observers, e.emitter.Observe)
	}
	return tellopaint.NewSequencer(link, tellopaint.Options{
		ResponseTimeout: e.cfg.Sequencer.ResponseTimeout,
		MaxTimeouts:     e.cfg.Sequencer.MaxTimeouts,
		Spacing:         e.cfg.Sequencer.Spacing,
		Logger:          e.log,
		Metrics:         e.metrics,
		Observer: func(ev tellopaint.Event) {
			for _, o := range observers {
				o(ev)
			}
		},
	})
}
