// pathfile.go

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

// Package pathfile reads freehand drawing paths from YAML files such as
//
//	name: zigzag
//	points:
//	  - {row: 0, col: 0}
//	  - {row: 0, col: 1}
//	  - {row: 1, col: 1}
package pathfile

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/SMerrony/tellopaint"
)

// File is one path definition.
type File struct {
	Name   string                 `yaml:"name"`
	Points []tellopaint.GridPoint `yaml:"points"`
}

// Decode parses a path definition and validates it as a drawing request.
func Decode(r io.Reader) (*File, tellopaint.DrawingRequest, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, tellopaint.DrawingRequest{}, fmt.Errorf("parsing path: %w", err)
	}
	req, err := tellopaint.DrawPath(f.Points)
	if err != nil {
		return nil, tellopaint.DrawingRequest{}, fmt.Errorf("path %q: %w", f.Name, err)
	}
	return &f, req, nil
}

// Load reads the path definition at name.
func Load(name string) (*File, tellopaint.DrawingRequest, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, tellopaint.DrawingRequest{}, err
	}
	return Decode(bytes.NewReader(data))
}

// Save writes f to name.
func Save(name string, f *File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding path: %w", err)
	}
	return os.WriteFile(name, data, 0644)
}
