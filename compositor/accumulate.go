// accumulate.go

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

package compositor

import "image"

// Pixel classification thresholds, on the 0-255 channel scale.
const (
	BrightnessThreshold = 220
	ChangeThreshold     = 120
)

// accumulator holds the buffers of one capture window. All three are tightly
// packed BGRA of the same size.
type accumulator struct {
	width, height int
	reference     []byte
	acc           []byte
	last          []byte
	frames        int // contributing frames, the reference is not counted
}

// add folds f into the window, it returns true if f became the reference.
// f must have been validated.
func (a *accumulator) add(f Frame) bool {
	if a.acc == nil || f.Width != a.width || f.Height != a.height {
		a.width, a.height = f.Width, f.Height
		a.acc = make([]byte, f.Width*f.Height*4)
		a.reference = nil
		a.last = nil
		a.frames = 0
	}
	if a.reference == nil {
		a.reference = a.pack(f, nil)
		a.last = a.pack(f, nil)
		return true
	}

	row := a.width * 4
	for y := 0; y < a.height; y++ {
		src := f.Pix[y*f.Stride : y*f.Stride+row]
		ref := a.reference[y*row : (y+1)*row]
		acc := a.acc[y*row : (y+1)*row]
		for x := 0; x < row; x += 4 {
			b, g, r := src[x], src[x+1], src[x+2]
			if max3(b, g, r) < BrightnessThreshold {
				continue
			}
			if diff(b, ref[x]) < ChangeThreshold && diff(g, ref[x+1]) < ChangeThreshold && diff(r, ref[x+2]) < ChangeThreshold {
				continue
			}
			acc[x] = max(acc[x], b)
			acc[x+1] = max(acc[x+1], g)
			acc[x+2] = max(acc[x+2], r)
			acc[x+3] = 255
		}
	}
	a.last = a.pack(f, a.last)
	a.frames++
	return false
}

// pack copies f into a tightly packed buffer, reusing dst when it fits.
func (a *accumulator) pack(f Frame, dst []byte) []byte {
	row := f.Width * 4
	if len(dst) != row*f.Height {
		dst = make([]byte, row*f.Height)
	}
	for y := 0; y < f.Height; y++ {
		copy(dst[y*row:(y+1)*row], f.Pix[y*f.Stride:])
	}
	return dst
}

func (a *accumulator) reset() {
	*a = accumulator{}
}

// toRGBA converts a packed BGRA buffer for export.
func toRGBA(buf []byte, w, h int) *image.RGBA {
	if buf == nil {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(buf); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = buf[i+2], buf[i+1], buf[i], buf[i+3]
	}
	return img
}

func max3(a, b, c byte) byte {
	return max(a, b, c)
}

func diff(a, b byte) byte {
	if a > b {
		return a - b
	}
	return b - a
}
