// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package fatx implements the FATX filesystem used by the Original Xbox and
// Xbox 360 dashboards: volume headers, the flat cluster allocation table,
// directory entries and the timestamp encoding built on top of them.
package fatx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ByteOrder selects the endianness an Image decodes multi-byte integers with.
// The Original Xbox writes FATX structures little-endian; the Xbox 360 writes
// the very same layouts big-endian.
type ByteOrder int

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

func (o ByteOrder) binary() binary.ByteOrder {
	if o == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// ErrShortRead is returned whenever a read would cross the end of the image;
// FATX structures never span a truncated tail, so a short read always means
// the requested region is corrupt or out of bounds.
var ErrShortRead = errors.New("fatx: short read")

// Image is a random-access view over a FATX-bearing byte range: a disk image
// file, a raw block device or an in-memory buffer in tests. All offsets are
// relative to the start of the wrapped reader: the whole drive image when
// probing partitions, or one partition's section when mounting a volume.
type Image struct {
	r     io.ReaderAt
	order ByteOrder
	size  int64

	// pos is the Image's own read cursor for Reader-style sequential access.
	pos int64

	// bytesRead accumulates every byte ever returned to a caller, purely as
	// a debugging aid surfaced through Image.BytesRead.
	bytesRead uint64
}

// NewImage wraps r as a FATX image of the given size decoded with order.
func NewImage(r io.ReaderAt, size int64, order ByteOrder) *Image {
	return &Image{r: r, order: order, size: size}
}

// Len reports the total addressable size of the image in bytes.
func (img *Image) Len() int64 {
	return img.size
}

// Order reports the byte order the image decodes integers with.
func (img *Image) Order() ByteOrder {
	return img.order
}

// Seek repositions the image's sequential read cursor.
func (img *Image) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = img.pos + offset
	case io.SeekEnd:
		abs = img.size + offset
	default:
		return 0, fmt.Errorf("fatx: invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("fatx: negative seek position")
	}
	img.pos = abs
	return abs, nil
}

// Tell reports the image's current sequential read cursor.
func (img *Image) Tell() int64 {
	return img.pos
}

// BytesRead reports the cumulative count of bytes returned by ReadAt/Read.
func (img *Image) BytesRead() uint64 {
	return img.bytesRead
}

// ReadAt reads len(buf) bytes at the given absolute offset. A read that
// would run past the end of the image returns ErrShortRead instead of a
// partial result, since FATX never expects a truncated structure.
func (img *Image) ReadAt(buf []byte, offset int64) error {
	if offset < 0 || offset+int64(len(buf)) > img.size {
		return ErrShortRead
	}
	n, err := img.r.ReadAt(buf, offset)
	img.bytesRead += uint64(n)
	if err != nil && err != io.EOF {
		return err
	}
	if n != len(buf) {
		return ErrShortRead
	}
	return nil
}

// Read reads len(buf) bytes at the current cursor and advances it.
func (img *Image) Read(buf []byte) (int, error) {
	if err := img.ReadAt(buf, img.pos); err != nil {
		return 0, err
	}
	img.pos += int64(len(buf))
	return len(buf), nil
}

func (img *Image) readN(n int, offset int64) ([]byte, error) {
	buf := make([]byte, n)
	if err := img.ReadAt(buf, offset); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadU8At reads a single byte at offset.
func (img *Image) ReadU8At(offset int64) (uint8, error) {
	buf, err := img.readN(1, offset)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadU16At reads a 16-bit integer at offset using the image's byte order.
func (img *Image) ReadU16At(offset int64) (uint16, error) {
	buf, err := img.readN(2, offset)
	if err != nil {
		return 0, err
	}
	return img.order.binary().Uint16(buf), nil
}

// ReadU32At reads a 32-bit integer at offset using the image's byte order.
func (img *Image) ReadU32At(offset int64) (uint32, error) {
	buf, err := img.readN(4, offset)
	if err != nil {
		return 0, err
	}
	return img.order.binary().Uint32(buf), nil
}

// ReadU64At reads a 64-bit integer at offset using the image's byte order.
func (img *Image) ReadU64At(offset int64) (uint64, error) {
	buf, err := img.readN(8, offset)
	if err != nil {
		return 0, err
	}
	return img.order.binary().Uint64(buf), nil
}

// ReadCString reads up to maxLen bytes at offset and returns the portion
// before the first NUL byte, or the whole buffer if no NUL is present.
func (img *Image) ReadCString(offset int64, maxLen int) (string, error) {
	buf, err := img.readN(maxLen, offset)
	if err != nil {
		return "", err
	}
	if i := indexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf), nil
}

func indexByte(buf []byte, b byte) int {
	for i, c := range buf {
		if c == b {
			return i
		}
	}
	return -1
}
