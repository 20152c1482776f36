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
package drive

import (
	"encoding/binary"
	"testing"

	"github.com/fatxforensics/fatxtk/internal/fatx"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

func TestProbeOriginalXboxRetail(t *testing.T) {
	size := int64(originalXboxSignatureOffset) + 16
	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[originalXboxSignatureOffset:], fatx.VolumeSignature)

	img := fatx.NewImage(bytesextra.NewReadWriteSeeker(buf), size, fatx.LittleEndian)

	d, err := Probe(img)
	require.NoError(t, err)
	require.Equal(t, KindOriginalXbox, d.Kind)
	require.Len(t, d.Partitions, 5)

	wantOffsets := []uint64{0x80000, 0x2EE80000, 0x5DC80000, 0x8CA80000, 0xABE80000}
	for i, want := range wantOffsets {
		require.Equal(t, want, d.Partitions[i].Offset)
	}
}

func TestProbeXbox360Retail(t *testing.T) {
	const length = 0x200000000
	buf := make([]byte, 16) // small buffer; the read at the Original Xbox signature offset fails, and offsets 0..3 hold no devkit magic

	img := fatx.NewImage(bytesextra.NewReadWriteSeeker(buf), length, fatx.BigEndian)

	d, err := Probe(img)
	require.NoError(t, err)
	require.Equal(t, KindXbox360Retail, d.Kind)
	require.Len(t, d.Partitions, 2)

	require.Equal(t, "SystemPartition", d.Partitions[0].Name)
	require.Equal(t, uint64(0x120EB0000), d.Partitions[0].Offset)
	require.Equal(t, uint64(0x10000000), d.Partitions[0].Length)

	require.Equal(t, "Partition1", d.Partitions[1].Name)
	require.Equal(t, uint64(0x130EB0000), d.Partitions[1].Offset)
	require.Equal(t, uint64(length-0x130EB0000), d.Partitions[1].Length)
}

func TestProbeXbox360Devkit(t *testing.T) {
	buf := make([]byte, devkitTableOffset+devkitTableSlots*8)
	binary.BigEndian.PutUint32(buf[devkitMagicOffset:], devkitMagic)

	putSlot := func(i int, offsetSectors, lengthSectors uint32) {
		off := devkitTableOffset + i*8
		binary.BigEndian.PutUint32(buf[off:], offsetSectors)
		binary.BigEndian.PutUint32(buf[off+4:], lengthSectors)
	}
	putSlot(devkitSlotPartition1, 0x1000, 0x2000)
	putSlot(devkitSlotSystem, 0x400, 0x800)
	putSlot(devkitSlotAltFlash, 0x5000, 0x100)
	putSlot(devkitSlotCache0, 0x6000, 0x200)
	putSlot(devkitSlotCache1, 0x7000, 0x200)

	// The devkit partition table is big-endian on disk regardless of the
	// Image's configured byte order: Probe always runs before the drive
	// kind (and therefore the FATX byte order) is known, so the real CLI
	// call site always constructs this Image as fatx.LittleEndian. Using
	// that same order here is what exercises the bug a BigEndian Image
	// would mask.
	img := fatx.NewImage(bytesextra.NewReadWriteSeeker(buf), int64(len(buf)), fatx.LittleEndian)

	d, err := Probe(img)
	require.NoError(t, err)
	require.Equal(t, KindXbox360Devkit, d.Kind)
	require.Equal(t, []string{"SystemPartition", "Partition1", "AltFlash", "Cache0", "Cache1"}, partitionNames(d.Partitions))
	require.Equal(t, uint64(0x400)*fatx.SectorSize, d.Partitions[0].Offset)
	require.Equal(t, uint64(0x1000)*fatx.SectorSize, d.Partitions[1].Offset)
}

func partitionNames(ps []Partition) []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name
	}
	return names
}
