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
package carve

import (
	"encoding/binary"
	"testing"

	"github.com/fatxforensics/fatxtk/internal/fatx"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// buildXBEVolume builds a volume whose file area is a single 0x4000-byte
// cluster beginning with an XBE header, per the spec's carving scenario.
func buildXBEVolume(t *testing.T) *fatx.Volume {
	t.Helper()

	bytesPerCluster := int64(32) * fatx.SectorSize
	fileAreaOffset := int64(fatx.FATByteOffset) + 4096
	size := fileAreaOffset + bytesPerCluster

	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:], fatx.VolumeSignature)
	binary.LittleEndian.PutUint32(buf[8:], 32)
	binary.LittleEndian.PutUint32(buf[12:], 1)

	xbe := buf[fileAreaOffset:]
	copy(xbe[0:], []byte("XBEH"))
	binary.LittleEndian.PutUint32(xbe[0x104:], 0x10000)   // base_address
	binary.LittleEndian.PutUint32(xbe[0x10C:], 0x4000)    // length
	binary.LittleEndian.PutUint32(xbe[0x150:], 0x10160)   // debug_filename_offset
	copy(xbe[0x160:], []byte("game.exe\x00"))

	img := fatx.NewImage(bytesextra.NewReadWriteSeeker(buf), size, fatx.LittleEndian)
	v, err := fatx.OpenVolume(img, fatx.OpenVolumeOptions{Epoch: fatx.EpochXbox})
	require.NoError(t, err)
	return v
}

func TestXBESignatureCarving(t *testing.T) {
	v := buildXBEVolume(t)

	sig := &XBESignature{}
	require.True(t, sig.Test(v, 0))

	result, err := sig.Parse(v, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0x4000), result.Length)
	require.Equal(t, "game.xbe", result.Name)
}

func TestScanRejectsInvalidStride(t *testing.T) {
	v := buildXBEVolume(t)
	_, err := Scan(v, DefaultOriginalXboxRegistry(), ScanOptions{Stride: 3})
	require.Error(t, err)
}

func TestScanTestsEveryOffsetOncePerSignature(t *testing.T) {
	v := buildXBEVolume(t)

	r := DefaultOriginalXboxRegistry()
	stride := int64(0x1000)
	length := v.Layout.BytesPerCluster

	tested := 0
	countingReg := NewRegistry()
	for range r.factories {
		countingReg.Register(func() Signature { return &countingSignature{count: &tested} })
	}

	_, err := Scan(v, countingReg, ScanOptions{Stride: stride, Length: length})
	require.NoError(t, err)

	wantTests := (length / stride) * int64(len(countingReg.factories))
	require.EqualValues(t, wantTests, tested)
}

type countingSignature struct{ count *int }

func (c *countingSignature) Name() string { return "counting" }
func (c *countingSignature) Test(v *fatx.Volume, offset int64) bool {
	*c.count++
	return false
}
func (c *countingSignature) Parse(v *fatx.Volume, offset int64) (Result, error) {
	return Result{}, nil
}
