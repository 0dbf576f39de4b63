// journal.go

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

// Package journal keeps a SQLite record of every flight and capture window.
package journal

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SMerrony/tellopaint"
	"github.com/SMerrony/tellopaint/compositor"
)

// Flight is one sequencer session.
type Flight struct {
	ID        uint   `gorm:"primarykey"`
	Session   string `gorm:"uniqueIndex;size:36"`
	Request   string
	StartedAt time.Time
	EndedAt   *time.Time
	Outcome   string
	Sends     int
	Timeouts  int
	Error     string
}

// Capture is one compositor window.
type Capture struct {
	ID          uint   `gorm:"primarykey"`
	CaptureID   string `gorm:"uniqueIndex;size:36"`
	StartedAt   time.Time
	EndedAt     time.Time
	Frames      int
	Width       int
	Height      int
	Orientation string
	OK          bool
	Error       string
	Files       string // comma separated
}

// Journal wraps the database.
type Journal struct {
	db  *gorm.DB
	log *slog.Logger
}

// Open opens or creates the journal at path. An empty path gives an
// in-memory journal.
func Open(path string, log *slog.Logger) (*Journal, error) {
	if log == nil {
		log = slog.Default()
	}
	dsn := path
	if dsn == "" {
		dsn = "file::memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	// SQLite allows one writer, and each in-memory connection is its own database
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Flight{}, &Capture{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrating journal: %w", err)
	}
	log.Debug("journal opened", "path", dsn)
	return &Journal{db: db, log: log.With("component", "journal")}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Observe records session start and end events, other events are ignored.
// It has the signature of a sequencer observer.
func (j *Journal) Observe(ev tellopaint.Event) {
	var err error
	switch ev.Kind {
	case tellopaint.EventSessionStarted:
		err = j.db.Create(&Flight{Session: ev.Session, Request: ev.Request, StartedAt: ev.Time}).Error
	case tellopaint.EventSessionEnded:
		ended := ev.Time
		outcome := ""
		if ev.Outcome != nil {
			outcome = ev.Outcome.String()
		}
		err = j.db.Model(&Flight{}).Where("session = ?", ev.Session).Updates(map[string]any{
			"ended_at": &ended,
			"outcome":  outcome,
			"sends":    ev.Sends,
			"timeouts": ev.Timeouts,
			"error":    ev.Error,
		}).Error
	default:
		return
	}
	if err != nil {
		j.log.Error("failed to record flight", "session", ev.Session, "event", ev.Kind.String(), "error", err)
	}
}

// RecordCapture stores the outcome of a capture window, files lists any
// images saved for it.
func (j *Journal) RecordCapture(id string, res *compositor.Result, capErr error, files []string) error {
	c := Capture{CaptureID: id, OK: capErr == nil, Files: strings.Join(files, ",")}
	if capErr != nil {
		c.Error = capErr.Error()
		c.EndedAt = time.Now()
	}
	if res != nil {
		c.StartedAt = res.Started
		c.EndedAt = res.Ended
		c.Frames = res.Frames
		c.Width = res.Image.Bounds().Dx()
		c.Height = res.Image.Bounds().Dy()
		c.Orientation = res.Orientation.String()
	}
	if err := j.db.Create(&c).Error; err != nil {
		return fmt.Errorf("recording capture %s: %w", id, err)
	}
	return nil
}

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Flight returns the flight recorded for session.
func (j *Journal) Flight(session string) (*Flight, error) {
	var f Flight
	err := j.db.Where("session = ?", session).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("flight %s: %w", session, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// RecentFlights returns up to limit flights, newest first.
func (j *Journal) RecentFlights(limit int) ([]Flight, error) {
	var fs []Flight
	err := j.db.Order("id desc").Limit(limit).Find(&fs).Error
	return fs, err
}

// RecentCaptures returns up to limit captures, newest first.
func (j *Journal) RecentCaptures(limit int) ([]Capture, error) {
	var cs []Capture
	err := j.db.Order("id desc").Limit(limit).Find(&cs).Error
	return cs, err
}
