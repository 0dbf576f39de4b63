// flightCommands.go

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

// This file contains the text flight command vocabulary understood by the drone

package tellopaint

import (
	"fmt"
	"time"
)

// FlightCommand is one text instruction for the drone plus the pause to
// observe after it has been acknowledged.
type FlightCommand struct {
	Text string
	Wait time.Duration
}

func (fc FlightCommand) String() string {
	return fc.Text
}

// defaultSpeedCmS is the speed set before take-off, also used for diagonal strokes.
const defaultSpeedCmS = 25

// Command puts the drone into SDK (text command) mode.
func Command() FlightCommand { return FlightCommand{Text: "command"} }

// TakeOff asks for an automatic take-off.
func TakeOff() FlightCommand { return FlightCommand{Text: "takeoff"} }

// Land asks for an automatic landing.
func Land() FlightCommand { return FlightCommand{Text: "land"} }

// Speed sets the flight speed in cm/s.
func Speed(cms int) FlightCommand { return FlightCommand{Text: fmt.Sprintf("speed %d", cms)} }

// Up climbs by cm centimetres.
func Up(cm int) FlightCommand { return FlightCommand{Text: fmt.Sprintf("up %d", cm)} }

// Down descends by cm centimetres.
func Down(cm int) FlightCommand { return FlightCommand{Text: fmt.Sprintf("down %d", cm)} }

// Left moves left by cm centimetres.
func Left(cm int) FlightCommand { return FlightCommand{Text: fmt.Sprintf("left %d", cm)} }

// Right moves right by cm centimetres.
func Right(cm int) FlightCommand { return FlightCommand{Text: fmt.Sprintf("right %d", cm)} }

// Forward moves forward by cm centimetres.
func Forward(cm int) FlightCommand { return FlightCommand{Text: fmt.Sprintf("forward %d", cm)} }

// Back moves backward by cm centimetres.
func Back(cm int) FlightCommand { return FlightCommand{Text: fmt.Sprintf("back %d", cm)} }

// Clockwise rotates clockwise by deg degrees.
func Clockwise(deg int) FlightCommand { return FlightCommand{Text: fmt.Sprintf("cw %d", deg)} }

// Go flies a straight line to the relative position (x forward, y left, z up)
// at the given speed in cm/s.
func Go(x, y, z, speed int) FlightCommand {
	return FlightCommand{Text: fmt.Sprintf("go %d %d %d %d", x, y, z, speed)}
}

// withWait returns a copy of the command carrying the given pause.
func (fc FlightCommand) withWait(d time.Duration) FlightCommand {
	fc.Wait = d
	return fc
}

// planarMove converts a move in the drawing plane (dx to the right, dy up,
// both in cm) into a single command. Axis-aligned moves use the simple
// vocabulary, anything else becomes a 'go'.
// The drone faces away from the camera, so its left is the picture's left.
func planarMove(dx, dy int) FlightCommand {
	switch {
	case dy == 0 && dx > 0:
		return Right(dx)
	case dy == 0 && dx < 0:
		return Left(-dx)
	case dx == 0 && dy > 0:
		return Up(dy)
	case dx == 0 && dy < 0:
		return Down(-dy)
	default:
		return Go(0, -dx, dy, defaultSpeedCmS)
	}
}
