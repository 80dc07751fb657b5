// SPDX-License-Identifier: MIT

// Package animation renders the strip. A Controller owns the animation
// state, polls the mailbox between frames and pushes each frame to a
// Strip collaborator.
//
// Everything here belongs to the rendering goroutine. Patterns draw into a
// Frame allocated once at start-up; nothing in the frame loop allocates.
package animation

import (
	"fmt"
	"strings"
)

// ColorOrder is the byte order a strip expects on the wire.
type ColorOrder uint8

const (
	GRB ColorOrder = iota // WS2812 default
	RGB
)

// ParseColorOrder accepts "grb" or "rgb".
func ParseColorOrder(s string) (ColorOrder, error) {
	switch strings.ToLower(s) {
	case "grb":
		return GRB, nil
	case "rgb":
		return RGB, nil
	}
	return GRB, fmt.Errorf("unknown color order %q", s)
}

func (o ColorOrder) String() string {
	if o == RGB {
		return "rgb"
	}
	return "grb"
}

// Color is an 8-bit RGB triple.
type Color struct {
	R, G, B uint8
}

// Frame is one full-strip image in wire order with brightness applied.
type Frame struct {
	order ColorOrder
	scale uint16 // brightness+1; 256 leaves channels untouched
	buf   []byte
}

// NewFrame allocates a dark frame at full brightness.
func NewFrame(pixels int, order ColorOrder) *Frame {
	return &Frame{
		order: order,
		scale: 256,
		buf:   make([]byte, 3*pixels),
	}
}

// SetBrightness scales every subsequent Set, NeoPixel style: a channel
// value c is stored as c*(b+1)>>8. Pixels already set are not rescaled.
func (f *Frame) SetBrightness(b uint8) {
	f.scale = uint16(b) + 1
}

// Brightness returns the current brightness setting.
func (f *Frame) Brightness() uint8 {
	return uint8(f.scale - 1)
}

// Len returns the pixel count.
func (f *Frame) Len() int {
	return len(f.buf) / 3
}

// Order returns the wire byte order.
func (f *Frame) Order() ColorOrder {
	return f.order
}

func (f *Frame) dim(c uint8) uint8 {
	return uint8(uint16(c) * f.scale >> 8)
}

// Set writes pixel i. Out-of-range indices are ignored.
func (f *Frame) Set(i int, c Color) {
	if i < 0 || i >= f.Len() {
		return
	}
	p := f.buf[3*i : 3*i+3]
	r, g, b := f.dim(c.R), f.dim(c.G), f.dim(c.B)
	if f.order == GRB {
		p[0], p[1], p[2] = g, r, b
	} else {
		p[0], p[1], p[2] = r, g, b
	}
}

// At returns pixel i as stored, brightness included.
func (f *Frame) At(i int) Color {
	if i < 0 || i >= f.Len() {
		return Color{}
	}
	p := f.buf[3*i : 3*i+3]
	if f.order == GRB {
		return Color{R: p[1], G: p[0], B: p[2]}
	}
	return Color{R: p[0], G: p[1], B: p[2]}
}

// Fill sets every pixel to c.
func (f *Frame) Fill(c Color) {
	for i := range f.Len() {
		f.Set(i, c)
	}
}

// Clear turns every pixel off.
func (f *Frame) Clear() {
	clear(f.buf)
}

// Dark reports whether every pixel is off.
func (f *Frame) Dark() bool {
	for _, b := range f.buf {
		if b != 0 {
			return false
		}
	}
	return true
}

// Bytes returns the wire buffer. It is reused by the next frame.
func (f *Frame) Bytes() []byte {
	return f.buf
}

// AppendRGB appends the frame in RGB order regardless of the wire order,
// for drivers that talk to something other than the strip itself.
func (f *Frame) AppendRGB(dst []byte) []byte {
	if f.order == RGB {
		return append(dst, f.buf...)
	}
	for i := 0; i < len(f.buf); i += 3 {
		dst = append(dst, f.buf[i+1], f.buf[i], f.buf[i+2])
	}
	return dst
}
