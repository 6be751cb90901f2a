// stego.go: LSB embedding and extraction of a length-prefixed byte stream.
//
// The stream is a 4-byte big-endian length followed by the data. Each bit,
// most significant first, replaces the least significant bit of one channel
// sample. Samples are visited in raster order: row-major, channel-minor.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package vault

import (
	"encoding/binary"
	"fmt"

	goerrors "github.com/agilira/go-errors"
)

// StreamPrefixSize is the width of the length field in front of the embedded data.
const StreamPrefixSize = 4

// SampleLocation maps a sample index to its (row, col, channel) position in a
// raster of the given width. It is the single definition of the traversal
// order shared by Embed and Extract; for the packed Carrier layout, index i
// is also the offset of that sample in Carrier.Pix.
func SampleLocation(index, width int) (row, col, channel int) {
	pixel := index / CarrierChannels
	return pixel / width, pixel % width, index % CarrierChannels
}

// sampleOffset is the inverse of SampleLocation for the packed layout.
func sampleOffset(row, col, channel, width int) int {
	return (row*width+col)*CarrierChannels + channel
}

// StreamSize returns the number of bytes embedding data will occupy.
func StreamSize(dataLen int) int {
	return StreamPrefixSize + dataLen
}

// Embed writes data into a copy of carrier and returns the copy.
//
// The input carrier is never modified. If the length-prefixed stream needs
// more bits than the carrier has samples, a *CapacityError is returned and
// nothing is embedded.
func Embed(carrier *Carrier, data []byte) (*Carrier, error) {
	if carrier == nil || len(carrier.Pix) != carrier.Samples() {
		richErr := goerrors.New(ErrCodeCarrier, "carrier pixel buffer does not match its dimensions")
		return nil, fmt.Errorf("%w: %w", ErrCarrier, richErr)
	}

	required := StreamSize(len(data))
	if required > Capacity(carrier) || uint64(len(data)) > MaxCiphertextSize {
		return nil, &CapacityError{Required: required, Available: Capacity(carrier)}
	}

	out := carrier.Clone()

	var prefix [StreamPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(data))) // #nosec G115 -- checked against MaxCiphertextSize above

	sample := writeBits(out, 0, prefix[:])
	writeBits(out, sample, data)
	return out, nil
}

// writeBits stores the bits of data starting at sample and returns the index
// of the next free sample.
func writeBits(c *Carrier, sample int, data []byte) int {
	for _, b := range data {
		for bit := 7; bit >= 0; bit-- {
			row, col, ch := SampleLocation(sample, c.Width)
			off := sampleOffset(row, col, ch, c.Width)
			c.Pix[off] = c.Pix[off]&0xFE | (b>>uint(bit))&1
			sample++
		}
	}
	return sample
}

// readBits reads n bytes starting at sample.
func readBits(c *Carrier, sample, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		var b byte
		for bit := 0; bit < 8; bit++ {
			row, col, ch := SampleLocation(sample, c.Width)
			b = b<<1 | c.Pix[sampleOffset(row, col, ch, c.Width)]&1
			sample++
		}
		out[i] = b
	}
	return out
}

// Extract reads the length-prefixed stream from carrier.
//
// It reads the prefix, then exactly the declared number of bytes, and never
// beyond. A carrier that was not produced by Embed yields arbitrary bytes or,
// when the declared length cannot fit, ErrFormat; it never panics.
func Extract(carrier *Carrier) ([]byte, error) {
	if carrier == nil || len(carrier.Pix) != carrier.Samples() {
		richErr := goerrors.New(ErrCodeCarrier, "carrier pixel buffer does not match its dimensions")
		return nil, fmt.Errorf("%w: %w", ErrCarrier, richErr)
	}
	if Capacity(carrier) < StreamPrefixSize {
		richErr := goerrors.New(ErrCodeFormat, "carrier too small to hold a length prefix")
		return nil, fmt.Errorf("%w: %w", ErrFormat, richErr)
	}

	prefix := readBits(carrier, 0, StreamPrefixSize)
	length := uint64(binary.BigEndian.Uint32(prefix))
	if length > uint64(ContainerCapacity(carrier)) {
		richErr := goerrors.New(ErrCodeFormat,
			fmt.Sprintf("declared stream length %d exceeds carrier capacity %d", length, ContainerCapacity(carrier)))
		return nil, fmt.Errorf("%w: %w", ErrFormat, richErr)
	}

	return readBits(carrier, StreamPrefixSize*8, int(length)), nil
}
