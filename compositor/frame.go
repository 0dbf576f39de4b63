// frame.go

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

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"time"

	"github.com/disintegration/imaging"
)

// Frame is one camera image in BGRA byte order. Stride is the number of bytes
// per row and may be larger than Width*4.
type Frame struct {
	Pix       []byte
	Width     int
	Height    int
	Stride    int
	Timestamp time.Time
}

// ErrBadFrame is returned for frames whose buffer does not match their dimensions.
var ErrBadFrame = errors.New("malformed frame")

func (f Frame) validate() error {
	switch {
	case f.Width <= 0 || f.Height <= 0:
		return fmt.Errorf("%w: %dx%d", ErrBadFrame, f.Width, f.Height)
	case f.Stride < f.Width*4:
		return fmt.Errorf("%w: stride %d below row size %d", ErrBadFrame, f.Stride, f.Width*4)
	case len(f.Pix) < f.Stride*(f.Height-1)+f.Width*4:
		return fmt.Errorf("%w: %d bytes for %dx%d stride %d", ErrBadFrame, len(f.Pix), f.Width, f.Height, f.Stride)
	}
	return nil
}

// FrameFromImage converts any image to a BGRA frame.
func FrameFromImage(img image.Image, ts time.Time) Frame {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
		b = rgba.Bounds()
	}
	f := Frame{
		Pix:       make([]byte, b.Dx()*4*b.Dy()),
		Width:     b.Dx(),
		Height:    b.Dy(),
		Stride:    b.Dx() * 4,
		Timestamp: ts,
	}
	for y := 0; y < f.Height; y++ {
		src := rgba.Pix[rgba.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := f.Pix[y*f.Stride:]
		for x := 0; x < f.Width*4; x += 4 {
			dst[x], dst[x+1], dst[x+2], dst[x+3] = src[x+2], src[x+1], src[x], src[x+3]
		}
	}
	return f
}

// DeviceOrientation is the physical orientation of the capturing device.
type DeviceOrientation int

// Device orientations...
const (
	DevicePortrait DeviceOrientation = iota
	DevicePortraitUpsideDown
	DeviceLandscapeLeft
	DeviceLandscapeRight
)

// ParseDeviceOrientation accepts portrait, upsidedown, landscapeleft and landscaperight.
func ParseDeviceOrientation(s string) (DeviceOrientation, error) {
	switch s {
	case "", "portrait":
		return DevicePortrait, nil
	case "upsidedown", "portraitUpsideDown":
		return DevicePortraitUpsideDown, nil
	case "landscapeleft", "landscapeLeft":
		return DeviceLandscapeLeft, nil
	case "landscaperight", "landscapeRight":
		return DeviceLandscapeRight, nil
	}
	return DevicePortrait, fmt.Errorf("unknown device orientation %q", s)
}

// Orientation tags an output image with the rotation needed to display it upright.
type Orientation int

// Output orientations...
const (
	OrientUp    Orientation = iota // as stored
	OrientDown                     // rotate 180
	OrientLeft                     // rotate 90 anticlockwise
	OrientRight                    // rotate 90 clockwise
)

func (o Orientation) String() string {
	switch o {
	case OrientUp:
		return "up"
	case OrientDown:
		return "down"
	case OrientLeft:
		return "left"
	case OrientRight:
		return "right"
	default:
		return "unknown"
	}
}

// OrientationFor maps the device orientation at capture start to the output tag.
// The camera sensor is mounted landscape, so portrait needs a quarter turn.
func OrientationFor(d DeviceOrientation) Orientation {
	switch d {
	case DevicePortraitUpsideDown:
		return OrientLeft
	case DeviceLandscapeLeft:
		return OrientUp
	case DeviceLandscapeRight:
		return OrientDown
	default:
		return OrientRight
	}
}

// Oriented returns a copy of img rotated for upright display.
func Oriented(img *image.RGBA, o Orientation) *image.NRGBA {
	switch o {
	case OrientDown:
		return imaging.Rotate180(img)
	case OrientLeft:
		return imaging.Rotate90(img)
	case OrientRight:
		return imaging.Rotate270(img)
	default:
		return imaging.Clone(img)
	}
}
