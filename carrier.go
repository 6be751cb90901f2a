// carrier.go: 4K RGB carrier rasters: synthesis, loading, validation and capacity.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package vault

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // source carriers may be JPEG
	"image/png"
	"io"
	"os"

	goerrors "github.com/agilira/go-errors"
)

// Fixed carrier geometry.
const (
	CarrierWidth    = 3840
	CarrierHeight   = 2160
	CarrierChannels = 3
)

// Carrier is an 8-bit RGB raster stored as packed samples, row-major and
// channel-minor: Pix[(y*Width+x)*3+c]. A Carrier is treated as immutable once
// built; Embed returns a new Carrier instead of touching the input.
type Carrier struct {
	Width  int
	Height int
	Pix    []byte
}

// newCarrier allocates a zeroed carrier with the given dimensions.
func newCarrier(width, height int) *Carrier {
	return &Carrier{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*CarrierChannels),
	}
}

// Clone returns a deep copy of the carrier.
func (c *Carrier) Clone() *Carrier {
	return &Carrier{
		Width:  c.Width,
		Height: c.Height,
		Pix:    append([]byte(nil), c.Pix...),
	}
}

// Samples returns the number of channel samples, one LSB each.
func (c *Carrier) Samples() int {
	return c.Width * c.Height * CarrierChannels
}

// Capacity returns the number of bytes a carrier can host with one bit per
// channel sample. It depends only on the dimensions, never on pixel content.
func Capacity(c *Carrier) int {
	return c.Width * c.Height * CarrierChannels / 8
}

// ContainerCapacity returns the largest container that fits into c once the
// stream length prefix is accounted for.
func ContainerCapacity(c *Carrier) int {
	if n := Capacity(c) - StreamPrefixSize; n > 0 {
		return n
	}
	return 0
}

// palettes are start/end colours for the synthesized vertical gradient.
var palettes = [][2]color.RGBA{
	{{0x0a, 0x0a, 0x0a, 0xff}, {0x1a, 0x4d, 0x2e, 0xff}}, // dark green
	{{0x0f, 0x0f, 0x23, 0xff}, {0x1e, 0x3a, 0x8a, 0xff}}, // dark blue
	{{0x1a, 0x1a, 0x2e, 0xff}, {0x16, 0x21, 0x3e, 0xff}}, // navy
	{{0x0d, 0x11, 0x17, 0xff}, {0x1f, 0x29, 0x37, 0xff}}, // slate
	{{0x00, 0x00, 0x00, 0xff}, {0x2d, 0x37, 0x48, 0xff}}, // charcoal
}

// PaletteCount is the number of built-in gradient palettes.
var PaletteCount = len(palettes)

// NewGradientCarrier synthesizes a 4K carrier: a vertical gradient between the
// two colours of the chosen palette with a small per-pixel noise. The result
// is a pure function of palette; no randomness or network access is involved.
// Out-of-range palette indexes wrap around.
func NewGradientCarrier(palette int) *Carrier {
	n := len(palettes)
	p := palettes[(palette%n+n)%n]
	start, end := p[0], p[1]

	c := newCarrier(CarrierWidth, CarrierHeight)
	for y := 0; y < c.Height; y++ {
		r := lerp(start.R, end.R, y, c.Height)
		g := lerp(start.G, end.G, y, c.Height)
		b := lerp(start.B, end.B, y, c.Height)

		row := c.Pix[y*c.Width*CarrierChannels : (y+1)*c.Width*CarrierChannels]
		for x := 0; x < c.Width; x++ {
			n := noise(x, y)
			row[x*3] = clamp(r + n)
			row[x*3+1] = clamp(g + n)
			row[x*3+2] = clamp(b + n)
		}
	}
	return c
}

// lerp interpolates between a and b at y/height.
func lerp(a, b uint8, y, height int) int {
	return int(a) + (int(b)-int(a))*y/height
}

// noise returns a deterministic value in [-5, 5] for a pixel position.
func noise(x, y int) int {
	h := uint32(x)*0x9E3779B1 ^ uint32(y)*0x85EBCA77 // #nosec G115 -- coordinates are small and non-negative
	h ^= h >> 15
	h *= 0x2C1B3C6D
	h ^= h >> 12
	return int(h%11) - 5
}

func clamp(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}

// CarrierFromImage converts a decoded image into a Carrier without resizing.
// Alpha is dropped; pixels are converted to non-premultiplied 8-bit RGB.
func CarrierFromImage(img image.Image) *Carrier {
	b := img.Bounds()
	c := newCarrier(b.Dx(), b.Dy())

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < c.Height; y++ {
			in := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			out := c.Pix[y*c.Width*3:]
			for x := 0; x < c.Width; x++ {
				copy(out[x*3:x*3+3], in[x*4:x*4+3])
			}
		}
	case *image.RGBA:
		for y := 0; y < c.Height; y++ {
			in := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			out := c.Pix[y*c.Width*3:]
			for x := 0; x < c.Width; x++ {
				px := in[x*4 : x*4+4]
				if px[3] == 0xff {
					copy(out[x*3:x*3+3], px[:3])
					continue
				}
				n := color.NRGBAModel.Convert(color.RGBA{px[0], px[1], px[2], px[3]}).(color.NRGBA)
				out[x*3], out[x*3+1], out[x*3+2] = n.R, n.G, n.B
			}
		}
	default:
		for y := 0; y < c.Height; y++ {
			for x := 0; x < c.Width; x++ {
				n := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				i := (y*c.Width + x) * 3
				c.Pix[i], c.Pix[i+1], c.Pix[i+2] = n.R, n.G, n.B
			}
		}
	}
	return c
}

// Image returns the carrier as an opaque *image.NRGBA.
func (c *Carrier) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, c.Width, c.Height))
	for i, j := 0, 0; i < len(c.Pix); i, j = i+3, j+4 {
		img.Pix[j] = c.Pix[i]
		img.Pix[j+1] = c.Pix[i+1]
		img.Pix[j+2] = c.Pix[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

// WritePNG encodes the carrier as a lossless PNG.
func (c *Carrier) WritePNG(w io.Writer) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(w, c.Image()); err != nil {
		richErr := goerrors.Wrap(err, ErrCodeIO, "failed to encode PNG")
		return fmt.Errorf("%w: %w", ErrIO, richErr)
	}
	return nil
}

// ReadCarrier decodes a PNG or JPEG image from r. The dimensions are not checked.
func ReadCarrier(r io.Reader) (*Carrier, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeCarrier, "failed to decode carrier image")
		return nil, fmt.Errorf("%w: %w", ErrCarrier, richErr)
	}
	return CarrierFromImage(img), nil
}

// LoadCarrier reads and decodes the image at path.
func LoadCarrier(path string) (*Carrier, error) {
	f, err := os.Open(path) // #nosec G304 -- path is chosen by the caller
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeIO, fmt.Sprintf("failed to open %s", path))
		return nil, fmt.Errorf("%w: %w", ErrIO, richErr)
	}
	defer f.Close()
	return ReadCarrier(f)
}

// ValidateCarrier checks that c has the fixed 4K geometry. Source images are
// never resized: a resampled carrier would destroy embedded bits on re-encode.
func ValidateCarrier(c *Carrier) error {
	if c == nil {
		richErr := goerrors.New(ErrCodeCarrier, "carrier is nil")
		return fmt.Errorf("%w: %w", ErrCarrier, richErr)
	}
	if c.Width != CarrierWidth || c.Height != CarrierHeight {
		richErr := goerrors.New(ErrCodeCarrier,
			fmt.Sprintf("carrier must be %dx%d, got %dx%d", CarrierWidth, CarrierHeight, c.Width, c.Height))
		return fmt.Errorf("%w: %w", ErrCarrier, richErr)
	}
	if len(c.Pix) != c.Samples() {
		richErr := goerrors.New(ErrCodeCarrier, fmt.Sprintf("pixel buffer has %d samples, want %d", len(c.Pix), c.Samples()))
		return fmt.Errorf("%w: %w", ErrCarrier, richErr)
	}
	return nil
}

// AcquireCarrier returns a carrier able to host a stream of requiredBytes
// (length prefix included).
//
// With a nil source a gradient carrier is synthesized from palette. A supplied
// source must already be exactly 3840x2160, otherwise ErrCarrier is returned.
// The source is never modified.
func AcquireCarrier(requiredBytes int, source *Carrier, palette int) (*Carrier, error) {
	carrier := source
	if carrier == nil {
		carrier = NewGradientCarrier(palette)
	} else if err := ValidateCarrier(carrier); err != nil {
		return nil, err
	}

	if requiredBytes > Capacity(carrier) {
		return nil, &CapacityError{Required: requiredBytes, Available: Capacity(carrier)}
	}
	return carrier, nil
}
