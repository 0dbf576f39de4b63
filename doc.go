/*Package tellopaint flies a Ryze Tello® drone through letters, digits, simple shapes and freehand
grid paths so that a light carried by the drone can be photographed as a long-exposure "light painting".

Disclaimer

Tello is a registered trademark of Ryze Tech.  The author(s) of this package is/are in no way affiliated with Ryze, DJI, or Intel.

Use this package at your own risk.  The author(s) is/are in no way responsible for any damage caused either to or by the
drone when using this software.  Fly indoors, in a clear space, and keep a finger near the land command.

Features

The following features have been implemented...
  * A pattern library turning a DrawingRequest (shape, letter, digit or path) into Tello SDK text commands
  * A UDP link speaking the text SDK on the drone's command port
  * A sequencer that sends one command at a time and waits for each acknowledgement
  * Emergency landing from any goroutine
  * A frame compositor (package compositor) which builds the light-painting image from camera frames

Concepts

The Text SDK

In SDK mode the drone accepts short text commands such as "takeoff", "right 100" or "go 0 50 87 25" as single
UDP datagrams and answers each with "ok" or "error".  Replies may be lost, and nothing in the protocol ties a
reply to the command it answers, so only one command is ever outstanding.

Sequencing

A sequence is always "command", "speed 25", "takeoff", the pattern, and finally "land".  Each step waits for a reply
or for the response timeout.  A single missing reply is taken as an implicit "ok" (the drone often does what it
was asked but the reply is lost); two in a row end the sequence and the error callback is called.

The drone is assumed to face away from the camera, so "right" on the drone is right in the picture and "up" is up.

Callbacks

Callbacks are never called on the sequencing goroutine.  OnPatternStart and OnPatternEnd bracket the part of the
flight which draws, and are the natural place to start and stop a capture window.

*/
package tellopaint
