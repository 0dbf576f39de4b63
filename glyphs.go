// glyphs.go - stroke tables for letters and digits

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

// point is a vertex on the glyph grid, x grows rightwards (0-2) and y upwards (0-4).
type point struct{ x, y int }

// glyphs holds one continuous polyline per character. The light never goes
// off, so strokes that would need a 'pen up' retrace an existing line instead.
var glyphs = map[rune][]point{
	'A': {{0, 0}, {0, 3}, {1, 4}, {2, 3}, {2, 0}, {2, 2}, {0, 2}},
	'B': {{0, 0}, {0, 4}, {1, 4}, {2, 3}, {1, 2}, {0, 2}, {1, 2}, {2, 1}, {1, 0}, {0, 0}},
	'C': {{2, 4}, {0, 4}, {0, 0}, {2, 0}},
	'D': {{0, 0}, {0, 4}, {1, 4}, {2, 3}, {2, 1}, {1, 0}, {0, 0}},
	'E': {{2, 4}, {0, 4}, {0, 2}, {1, 2}, {0, 2}, {0, 0}, {2, 0}},
	'F': {{2, 4}, {0, 4}, {0, 2}, {1, 2}, {0, 2}, {0, 0}},
	'G': {{2, 4}, {0, 4}, {0, 0}, {2, 0}, {2, 2}, {1, 2}},
	'H': {{0, 4}, {0, 0}, {0, 2}, {2, 2}, {2, 4}, {2, 0}},
	'I': {{0, 4}, {2, 4}, {1, 4}, {1, 0}, {0, 0}, {2, 0}},
	'J': {{0, 4}, {2, 4}, {2, 0}, {0, 0}, {0, 1}},
	'K': {{0, 4}, {0, 0}, {0, 2}, {2, 4}, {0, 2}, {2, 0}},
	'L': {{0, 4}, {0, 0}, {2, 0}},
	'M': {{0, 0}, {0, 4}, {1, 2}, {2, 4}, {2, 0}},
	'N': {{0, 0}, {0, 4}, {2, 0}, {2, 4}},
	'O': {{0, 0}, {0, 4}, {2, 4}, {2, 0}, {0, 0}},
	'P': {{0, 0}, {0, 4}, {2, 4}, {2, 2}, {0, 2}},
	'Q': {{2, 0}, {0, 0}, {0, 4}, {2, 4}, {2, 0}, {1, 1}},
	'R': {{0, 0}, {0, 4}, {2, 4}, {2, 2}, {0, 2}, {2, 0}},
	'S': {{2, 4}, {0, 4}, {0, 2}, {2, 2}, {2, 0}, {0, 0}},
	'T': {{0, 4}, {2, 4}, {1, 4}, {1, 0}},
	'U': {{0, 4}, {0, 0}, {2, 0}, {2, 4}},
	'V': {{0, 4}, {1, 0}, {2, 4}},
	'W': {{0, 4}, {0, 0}, {1, 2}, {2, 0}, {2, 4}},
	'X': {{0, 4}, {2, 0}, {1, 2}, {2, 4}, {0, 0}},
	'Y': {{0, 4}, {1, 2}, {2, 4}, {1, 2}, {1, 0}},
	'Z': {{0, 4}, {2, 4}, {0, 0}, {2, 0}},

	'0': {{0, 0}, {0, 4}, {2, 4}, {2, 0}, {0, 0}, {2, 4}},
	'1': {{0, 3}, {1, 4}, {1, 0}, {0, 0}, {2, 0}},
	'2': {{0, 4}, {2, 4}, {2, 2}, {0, 2}, {0, 0}, {2, 0}},
	'3': {{0, 4}, {2, 4}, {2, 2}, {0, 2}, {2, 2}, {2, 0}, {0, 0}},
	'4': {{0, 4}, {0, 2}, {2, 2}, {2, 4}, {2, 0}},
	'5': {{2, 4}, {0, 4}, {0, 2}, {1, 2}, {2, 1}, {1, 0}, {0, 0}},
	'6': {{2, 4}, {0, 4}, {0, 0}, {2, 0}, {2, 2}, {0, 2}},
	'7': {{0, 4}, {2, 4}, {1, 0}},
	'8': {{0, 0}, {0, 4}, {2, 4}, {2, 0}, {0, 0}, {0, 2}, {2, 2}},
	'9': {{2, 2}, {0, 2}, {0, 4}, {2, 4}, {2, 0}, {0, 0}},
}
