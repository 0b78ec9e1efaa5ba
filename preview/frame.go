package preview

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/tmpim/pxl"
)

// Possible packet types. Each websocket message starts with one.
const (
	PacketFrame = iota + 1
	PacketPalette
	PacketState
)

// maxFrameBytes bounds the decompressed size of a frame read from the wire.
const maxFrameBytes = 1 << 24

// Frame is a rendered image as sent to clients.
type Frame struct {
	Seq    uint32
	Width  int
	Height int
	// Pix holds palette indices, row-major from the top.
	Pix []uint8
}

// NewFrame wraps img. The pixels are not copied.
func NewFrame(seq uint32, img *pxl.Image) *Frame {
	return &Frame{
		Seq:    seq,
		Width:  img.Width(),
		Height: img.Height(),
		Pix:    img.Pix(),
	}
}

// Image returns the frame as an indexed image.
func (f *Frame) Image() (*pxl.Image, error) {
	return pxl.NewImageFrom(f.Pix, f.Width)
}

// Encode writes the frame with its pixels compressed by enc.
func (f *Frame) Encode(w io.Writer, enc *zstd.Encoder) error {
	if f.Width > 0xFFFF || f.Height > 0xFFFF {
		return errors.New("preview: frame too large")
	}
	if len(f.Pix) != f.Width*f.Height {
		return errors.New("preview: frame size does not match pixels")
	}

	wr := bufio.NewWriter(w)
	compressed := enc.EncodeAll(f.Pix, nil)

	binary.Write(wr, binary.BigEndian, f.Seq)
	binary.Write(wr, binary.BigEndian, uint16(f.Width))
	binary.Write(wr, binary.BigEndian, uint16(f.Height))
	binary.Write(wr, binary.BigEndian, uint32(len(compressed)))
	wr.Write(compressed)

	return wr.Flush()
}

// ReadFrame reads a frame written by Encode.
func ReadFrame(r io.Reader, dec *zstd.Decoder) (*Frame, error) {
	var header struct {
		Seq           uint32
		Width, Height uint16
		Length        uint32
	}
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("preview: ReadFrame: %w", err)
	}

	size := int(header.Width) * int(header.Height)
	if size > maxFrameBytes || header.Length > maxFrameBytes {
		return nil, errors.New("preview: ReadFrame: frame too large")
	}

	compressed := make([]byte, header.Length)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, fmt.Errorf("preview: ReadFrame: %w", err)
	}

	pix, err := dec.DecodeAll(compressed, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("preview: ReadFrame: %w", err)
	}
	if len(pix) != size {
		return nil, fmt.Errorf("preview: ReadFrame: got %d pixels, want %d", len(pix), size)
	}

	return &Frame{
		Seq:    header.Seq,
		Width:  int(header.Width),
		Height: int(header.Height),
		Pix:    pix,
	}, nil
}

// WritePalette writes the color count followed by RGB triples.
func WritePalette(w io.Writer, p *pxl.Palette) error {
	wr := bufio.NewWriter(w)

	wr.WriteByte(byte(p.Len()))
	for _, c := range p.Colors() {
		wr.Write([]byte{c.R, c.G, c.B})
	}

	return wr.Flush()
}

// ReadPalette reads colors written by WritePalette.
func ReadPalette(r io.Reader) ([]color.RGBA, error) {
	var n [1]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return nil, fmt.Errorf("preview: ReadPalette: %w", err)
	}

	data := make([]byte, int(n[0])*3)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("preview: ReadPalette: %w", err)
	}

	colors := make([]color.RGBA, n[0])
	for i := range colors {
		colors[i] = color.RGBA{R: data[i*3], G: data[i*3+1], B: data[i*3+2], A: 0xFF}
	}
	return colors, nil
}
