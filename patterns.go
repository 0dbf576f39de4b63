// patterns.go

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

// This file turns drawing requests into flight commands

package tellopaint

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

const (
	// GlyphUnitCM is the size of one glyph grid unit; glyphs are 2 units wide and 4 tall.
	GlyphUnitCM = 25
	// CellDistanceCM is the distance flown for one step of a freehand path.
	CellDistanceCM = 50
)

// Errors returned when building a DrawingRequest
var (
	ErrUnknownShape    = errors.New("unknown shape")
	ErrUnknownLetter   = errors.New("letter must be A to Z")
	ErrUnknownDigit    = errors.New("digit must be 0 to 9")
	ErrPathTooShort    = errors.New("path needs at least 2 points")
	ErrPathNotAdjacent = errors.New("consecutive path points must be one cell apart horizontally or vertically")
)

// Shape is one of the built-in geometric figures.
type Shape int

// Shapes...
const (
	Square Shape = iota
	Rectangle
	Triangle
)

var shapeNames = map[Shape]string{
	Square:    "square",
	Rectangle: "rectangle",
	Triangle:  "triangle",
}

func (s Shape) String() string {
	if n, ok := shapeNames[s]; ok {
		return n
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

// ParseShape returns the Shape with the given (case-insensitive) name.
func ParseShape(name string) (Shape, error) {
	for s, n := range shapeNames {
		if strings.EqualFold(n, name) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownShape, name)
}

// GridPoint is a cell of the freehand drawing grid, rows grow downwards.
type GridPoint struct {
	Row int `json:"row" yaml:"row"`
	Col int `json:"col" yaml:"col"`
}

// RequestKind identifies which variant a DrawingRequest holds.
type RequestKind int

// Request kinds, the zero value is not a valid request.
const (
	KindShape RequestKind = iota + 1
	KindLetter
	KindDigit
	KindPath
)

// DrawingRequest describes what to draw. Build one with DrawShape, DrawLetter,
// DrawDigit or DrawPath; it cannot be changed afterwards.
type DrawingRequest struct {
	kind  RequestKind
	shape Shape
	glyph rune
	path  []GridPoint
}

// DrawShape requests one of the built-in shapes.
func DrawShape(s Shape) (DrawingRequest, error) {
	if _, ok := shapeNames[s]; !ok {
		return DrawingRequest{}, fmt.Errorf("%w: %d", ErrUnknownShape, int(s))
	}
	return DrawingRequest{kind: KindShape, shape: s}, nil
}

// DrawLetter requests a capital letter, lower case is folded to upper.
func DrawLetter(r rune) (DrawingRequest, error) {
	r = unicode.ToUpper(r)
	if r < 'A' || r > 'Z' {
		return DrawingRequest{}, fmt.Errorf("%w: %q", ErrUnknownLetter, r)
	}
	return DrawingRequest{kind: KindLetter, glyph: r}, nil
}

// DrawDigit requests a digit 0-9.
func DrawDigit(d int) (DrawingRequest, error) {
	if d < 0 || d > 9 {
		return DrawingRequest{}, fmt.Errorf("%w: %d", ErrUnknownDigit, d)
	}
	return DrawingRequest{kind: KindDigit, glyph: rune('0' + d)}, nil
}

// DrawPath requests a freehand path across the grid.
func DrawPath(points []GridPoint) (DrawingRequest, error) {
	if len(points) < 2 {
		return DrawingRequest{}, ErrPathTooShort
	}
	for i := 1; i < len(points); i++ {
		dr := abs(points[i].Row - points[i-1].Row)
		dc := abs(points[i].Col - points[i-1].Col)
		if dr+dc != 1 {
			return DrawingRequest{}, fmt.Errorf("%w: point %d %v -> %v", ErrPathNotAdjacent, i, points[i-1], points[i])
		}
	}
	p := make([]GridPoint, len(points))
	copy(p, points)
	return DrawingRequest{kind: KindPath, path: p}, nil
}

// Kind returns the variant of the request.
func (r DrawingRequest) Kind() RequestKind { return r.kind }

// Path returns a copy of the points of a freehand request.
func (r DrawingRequest) Path() []GridPoint {
	p := make([]GridPoint, len(r.path))
	copy(p, r.path)
	return p
}

func (r DrawingRequest) String() string {
	switch r.kind {
	case KindShape:
		return "shape:" + r.shape.String()
	case KindLetter:
		return "letter:" + string(r.glyph)
	case KindDigit:
		return "digit:" + string(r.glyph)
	case KindPath:
		return fmt.Sprintf("path:%d", len(r.path))
	default:
		return "none"
	}
}

// Commands returns the moves that draw req, each carrying spacing as its Wait.
// The drone is assumed to start at the bottom-left corner of a shape, at the
// first vertex of a letter or digit glyph (often its top edge), and at the
// first point of a freehand path.
func Commands(req DrawingRequest, spacing time.Duration) []FlightCommand {
	var cmds []FlightCommand
	switch req.kind {
	case KindShape:
		cmds = shapeCommands(req.shape)
	case KindLetter, KindDigit:
		cmds = strokeCommands(glyphs[req.glyph], GlyphUnitCM)
	case KindPath:
		cmds = pathCommands(req.path)
	}
	for i := range cmds {
		cmds[i] = cmds[i].withWait(spacing)
	}
	return cmds
}

func shapeCommands(s Shape) []FlightCommand {
	switch s {
	case Square:
		return []FlightCommand{Right(100), Up(100), Left(100), Down(100)}
	case Rectangle:
		return []FlightCommand{Right(150), Up(75), Left(150), Down(75)}
	case Triangle:
		// equilateral, 100cm sides
		return []FlightCommand{Right(100), planarMove(-50, 87), planarMove(-50, -87)}
	}
	return nil
}

// strokeCommands emits one move per segment of a polyline given in glyph units.
func strokeCommands(pts []point, unit int) []FlightCommand {
	if len(pts) < 2 {
		return nil
	}
	cmds := make([]FlightCommand, 0, len(pts)-1)
	for i := 1; i < len(pts); i++ {
		dx := (pts[i].x - pts[i-1].x) * unit
		dy := (pts[i].y - pts[i-1].y) * unit
		cmds = append(cmds, planarMove(dx, dy))
	}
	return cmds
}

func pathCommands(path []GridPoint) []FlightCommand {
	cmds := make([]FlightCommand, 0, len(path)-1)
	for i := 1; i < len(path); i++ {
		switch dr, dc := path[i].Row-path[i-1].Row, path[i].Col-path[i-1].Col; {
		case dr > 0:
			cmds = append(cmds, Down(CellDistanceCM))
		case dr < 0:
			cmds = append(cmds, Up(CellDistanceCM))
		case dc > 0:
			cmds = append(cmds, Right(CellDistanceCM))
		case dc < 0:
			cmds = append(cmds, Left(CellDistanceCM))
		}
	}
	return cmds
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
