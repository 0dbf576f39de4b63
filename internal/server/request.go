// request.go

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
	"errors"
	"unicode/utf8"

	"github.com/SMerrony/tellopaint"
)

// sequenceRequest is the body of POST /sequence. Exactly one of Shape,
// Letter, Digit and Path must be given.
type sequenceRequest struct {
	Shape         string                 `json:"shape,omitempty"`
	Letter        string                 `json:"letter,omitempty"`
	Digit         *int                   `json:"digit,omitempty"`
	Path          []tellopaint.GridPoint `json:"path,omitempty"`
	Capture       bool                   `json:"capture"`
	WindowSeconds float64                `json:"windowSeconds"`
	Orientation   string                 `json:"orientation"`
}

var errDrawingChoice = errors.New("give exactly one of shape, letter, digit or path")

func (b sequenceRequest) drawingRequest() (tellopaint.DrawingRequest, error) {
	n := 0
	if b.Shape != "" {
		n++
	}
	if b.Letter != "" {
		n++
	}
	if b.Digit != nil {
		n++
	}
	if b.Path != nil {
		n++
	}
	if n != 1 {
		return tellopaint.DrawingRequest{}, errDrawingChoice
	}

	switch {
	case b.Shape != "":
		shape, err := tellopaint.ParseShape(b.Shape)
		if err != nil {
			return tellopaint.DrawingRequest{}, err
		}
		return tellopaint.DrawShape(shape)
	case b.Letter != "":
		if utf8.RuneCountInString(b.Letter) != 1 {
			return tellopaint.DrawingRequest{}, errors.New("letter must be a single character")
		}
		r, _ := utf8.DecodeRuneInString(b.Letter)
		return tellopaint.DrawLetter(r)
	case b.Digit != nil:
		return tellopaint.DrawDigit(*b.Digit)
	default:
		return tellopaint.DrawPath(b.Path)
	}
}
