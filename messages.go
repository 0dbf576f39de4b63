// messages.go

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

package tellopaint

import "strings"

// Response is the classification of a datagram received from the drone.
type Response int

// Response classes; anything other than ok or error is ignored by the sequencer.
const (
	ResponseOther Response = iota
	ResponseOK
	ResponseError
)

func (r Response) String() string {
	switch r {
	case ResponseOK:
		return "ok"
	case ResponseError:
		return "error"
	default:
		return "other"
	}
}

// ClassifyResponse inspects the text of a reply. Both "ok" and "error" count
// as an acknowledgement of the last command.
func ClassifyResponse(text string) Response {
	switch {
	case strings.Contains(text, "ok"):
		return ResponseOK
	case strings.Contains(text, "error"):
		return ResponseError
	default:
		return ResponseOther
	}
}

// Acknowledges reports whether the response ends the wait for the current command.
func (r Response) Acknowledges() bool {
	return r == ResponseOK || r == ResponseError
}
