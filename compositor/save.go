// save.go

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
	"fmt"
	"image"
	"io"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// EncodePNG writes img to w, rotated for display according to o.
func EncodePNG(w io.Writer, img *image.RGBA, o Orientation) error {
	return imaging.Encode(w, Oriented(img, o), imaging.PNG)
}

// SavePNGs writes the result, reference and last images to dir using the given
// prefix and returns the file names written.
func (r *Result) SavePNGs(dir, prefix string) (names []string, err error) {
	images := []struct {
		suffix string
		img    *image.RGBA
	}{
		{"result", r.Image},
		{"reference", r.Reference},
		{"last", r.Last},
	}
	for _, i := range images {
		if i.img == nil {
			continue
		}
		name := filepath.Join(dir, fmt.Sprintf("%s_%s.png", prefix, i.suffix))
		if err = imaging.Save(Oriented(i.img, r.Orientation), name); err != nil {
			return names, fmt.Errorf("saving %s image: %w", i.suffix, err)
		}
		names = append(names, name)
	}
	return names, nil
}
