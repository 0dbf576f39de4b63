// executor.go - serial worker contexts

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

// Package worker provides a serial executor: a single goroutine that runs
// posted functions one at a time, in the order they were posted.
package worker

import "github.com/Workiva/go-datastructures/queue"

const queueHint = 16

// Executor runs posted jobs on one goroutine.
// Post never blocks, the queue grows as needed.
type Executor struct {
	jobs *queue.Queue
	done chan struct{}
}

// New creates an Executor and starts its goroutine.
func New() *Executor {
	e := &Executor{
		jobs: queue.New(queueHint),
		done: make(chan struct{}),
	}
	go e.loop()
	return e
}

// Post queues f, it returns false if the executor has been closed.
func (e *Executor) Post(f func()) bool {
	return e.jobs.Put(f) == nil
}

// Sync runs f on the executor and waits for it to return.
// It must not be called from a job running on the same executor.
func (e *Executor) Sync(f func()) bool {
	ran := make(chan struct{})
	if !e.Post(func() {
		defer close(ran)
		f()
	}) {
		return false
	}
	select {
	case <-ran:
		return true
	case <-e.done:
		// closed before our job came up
		select {
		case <-ran:
			return true
		default:
			return false
		}
	}
}

// Close discards queued jobs, waits for the running job to finish and stops the goroutine.
// It is safe to call more than once.
func (e *Executor) Close() {
	e.jobs.Dispose()
	<-e.done
}

func (e *Executor) loop() {
	defer close(e.done)
	for {
		items, err := e.jobs.Get(1)
		if err != nil {
			// queue.ErrDisposed
			return
		}
		for _, item := range items {
			item.(func())()
		}
	}
}
