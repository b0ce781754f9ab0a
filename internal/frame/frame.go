// Package frame holds decoded video frames as packed 8-bit sample grids.
package frame

import (
	"fmt"
	"image"
)

// Channel depths supported by Frame.
const (
	Gray = 1
	RGB  = 3
)

// Frame is a packed, row-major grid of 8-bit samples. Pixel (x, y) channel c
// lives at Pix[(y*Width+x)*Channels+c].
type Frame struct {
	Width    int
	Height   int
	Channels int
	Pix      []byte
}

// New allocates a zeroed frame.
func New(width, height, channels int) *Frame {
	return &Frame{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]byte, width*height*channels),
	}
}

// FromBytes wraps an existing buffer after checking its length.
func FromBytes(width, height, channels int, pix []byte) (*Frame, error) {
	if want := width * height * channels; len(pix) != want {
		return nil, fmt.Errorf("frame buffer is %d bytes, want %d for %dx%dx%d", len(pix), want, width, height, channels)
	}
	return &Frame{Width: width, Height: height, Channels: channels, Pix: pix}, nil
}

// FrameSize returns the number of bytes in one packed frame.
func FrameSize(width, height, channels int) int {
	return width * height * channels
}

// SameSize reports whether two frames have identical width and height.
func (f *Frame) SameSize(o *Frame) bool {
	return f.Width == o.Width && f.Height == o.Height
}

// Empty reports whether the frame has no pixels.
func (f *Frame) Empty() bool {
	return f.Width <= 0 || f.Height <= 0
}

// Luma converts an RGB sample to 8-bit intensity using BT.601 weights.
func Luma(r, g, b byte) byte {
	y := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
	return byte(y + 0.5)
}

// ToGray returns a single-channel copy of f. Gray frames are returned as-is.
func (f *Frame) ToGray() *Frame {
	if f.Channels == Gray {
		return f
	}
	out := New(f.Width, f.Height, Gray)
	for i, j := 0, 0; j < len(out.Pix); i, j = i+f.Channels, j+1 {
		out.Pix[j] = Luma(f.Pix[i], f.Pix[i+1], f.Pix[i+2])
	}
	return out
}

// Image exposes the frame as an image.Image without copying for Gray
// frames. RGB frames are expanded into an RGBA buffer.
func (f *Frame) Image() image.Image {
	rect := image.Rect(0, 0, f.Width, f.Height)
	if f.Channels == Gray {
		return &image.Gray{Pix: f.Pix, Stride: f.Width, Rect: rect}
	}
	img := image.NewRGBA(rect)
	for i, j := 0, 0; i < len(f.Pix); i, j = i+RGB, j+4 {
		img.Pix[j] = f.Pix[i]
		img.Pix[j+1] = f.Pix[i+1]
		img.Pix[j+2] = f.Pix[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

// FromRGBA packs an RGBA image back into an RGB frame, dropping alpha.
func FromRGBA(img *image.RGBA) *Frame {
	b := img.Bounds()
	out := New(b.Dx(), b.Dy(), RGB)
	for y := 0; y < out.Height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < out.Width; x++ {
			o := (y*out.Width + x) * RGB
			out.Pix[o] = row[x*4]
			out.Pix[o+1] = row[x*4+1]
			out.Pix[o+2] = row[x*4+2]
		}
	}
	return out
}

// FromGray copies a Gray image into a single-channel frame.
func FromGray(img *image.Gray) *Frame {
	b := img.Bounds()
	out := New(b.Dx(), b.Dy(), Gray)
	for y := 0; y < out.Height; y++ {
		copy(out.Pix[y*out.Width:(y+1)*out.Width], img.Pix[y*img.Stride:])
	}
	return out
}

// Solid returns a frame filled with one colour. Used by fakes and tests.
func Solid(width, height int, r, g, b byte) *Frame {
	f := New(width, height, RGB)
	for i := 0; i < len(f.Pix); i += RGB {
		f.Pix[i] = r
		f.Pix[i+1] = g
		f.Pix[i+2] = b
	}
	return f
}
