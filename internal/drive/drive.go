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

// Package drive detects which of the three known Xbox disk layouts an image
// holds and enumerates the byte ranges its partitions occupy. It never
// mounts a partition itself; that is the Volume Engine's job.
package drive

import (
	"encoding/binary"
	"fmt"

	"github.com/fatxforensics/fatxtk/internal/fatx"
)

// Kind identifies which of the three known drive layouts an image holds.
type Kind int

const (
	KindUnknown Kind = iota
	KindOriginalXbox
	KindXbox360Devkit
	KindXbox360Retail
)

func (k Kind) String() string {
	switch k {
	case KindOriginalXbox:
		return "original-xbox"
	case KindXbox360Devkit:
		return "xbox360-devkit"
	case KindXbox360Retail:
		return "xbox360-retail"
	default:
		return "unknown"
	}
}

// ByteOrder reports the byte order partitions of this drive kind use to
// encode their FATX volumes.
func (k Kind) ByteOrder() fatx.ByteOrder {
	if k == KindOriginalXbox {
		return fatx.LittleEndian
	}
	return fatx.BigEndian
}

// Epoch reports the timestamp epoch partitions of this drive kind use.
func (k Kind) Epoch() fatx.TimestampEpoch {
	if k == KindOriginalXbox {
		return fatx.EpochXbox
	}
	return fatx.EpochXbox360
}

// Partition is a named byte range within a drive image. Ranges are not
// required to be disjoint: some devkit layouts legitimately overlap.
type Partition struct {
	Name   string
	Offset uint64
	Length uint64
}

// Drive is a detected disk layout: the backing image, its kind and its
// partition list in detection order.
type Drive struct {
	Image      *fatx.Image
	Kind       Kind
	Partitions []Partition
}

const originalXboxSignatureOffset = 0xABE80000

// originalXboxPartitions are the five hard-coded (offset, length) pairs of
// a retail Original Xbox hard drive.
var originalXboxPartitions = []Partition{
	{Name: "Partition1", Offset: 0x80000, Length: 0x2EE00000},
	{Name: "Partition2", Offset: 0x2EE80000, Length: 0x2EE00000},
	{Name: "Partition3", Offset: 0x5DC80000, Length: 0x2EE00000},
	{Name: "SystemPartition", Offset: 0x8CA80000, Length: 0x1F400000},
	{Name: "Partition4", Offset: 0xABE80000, Length: 0x1312D6000},
}

const (
	devkitMagicOffset = 0
	devkitMagic       = 0x00020000
	devkitTableOffset = 8
	devkitTableSlots  = 12
)

// devkit partition table slot indices, in on-disk order. Only five of the
// twelve slots carry a FATX partition the probe cares about; the rest are
// unused on every devkit image this toolkit has ever seen but are still
// read so the table offset math lines up.
const (
	devkitSlotPartition1 = 0
	devkitSlotSystem     = 1
	devkitSlotRDMP       = 2 // unused
	devkitSlotPixDump    = 3 // unused
	devkitSlotUnused4    = 4
	devkitSlotUnused5    = 5
	devkitSlotAltFlash   = 6
	devkitSlotCache0     = 7
	devkitSlotCache1     = 8
	// slots 9, 10, 11 are reserved and carry no assigned partition.
)

const (
	xbox360RetailSystemOffset = 0x120EB0000
	xbox360RetailSystemLength = 0x10000000
	xbox360RetailDataOffset   = 0x130EB0000
)

// Probe detects the drive kind and enumerates its partitions.
func Probe(img *fatx.Image) (*Drive, error) {
	sig, err := img.ReadU32At(originalXboxSignatureOffset)
	if err == nil && sig == fatx.VolumeSignature {
		return &Drive{Image: img, Kind: KindOriginalXbox, Partitions: append([]Partition(nil), originalXboxPartitions...)}, nil
	}

	magicBuf := make([]byte, 4)
	if err := img.ReadAt(magicBuf, devkitMagicOffset); err == nil {
		if binary.BigEndian.Uint32(magicBuf) == devkitMagic {
			parts, err := probeDevkitPartitions(img)
			if err != nil {
				return nil, err
			}
			return &Drive{Image: img, Kind: KindXbox360Devkit, Partitions: parts}, nil
		}
	}

	length := uint64(img.Len())
	if length <= xbox360RetailDataOffset {
		return nil, fmt.Errorf("drive: image too small (%d bytes) to be a retail Xbox 360 image", length)
	}
	parts := []Partition{
		{Name: "SystemPartition", Offset: xbox360RetailSystemOffset, Length: xbox360RetailSystemLength},
		{Name: "Partition1", Offset: xbox360RetailDataOffset, Length: length - xbox360RetailDataOffset},
	}
	return &Drive{Image: img, Kind: KindXbox360Retail, Partitions: parts}, nil
}

func probeDevkitPartitions(img *fatx.Image) ([]Partition, error) {
	type slot struct {
		offsetSectors uint32
		lengthSectors uint32
	}
	// The devkit partition table is always big-endian on disk, the same as
	// the magic check above, regardless of img's configured byte order:
	// Probe runs before the drive kind (and therefore the FATX byte order)
	// is known, so img is always constructed little-endian by the caller.
	// Read the raw bytes and decode with binary.BigEndian explicitly rather
	// than going through img.ReadU32At, which would decode using img.order.
	slots := make([]slot, devkitTableSlots)
	buf := make([]byte, devkitTableSlots*8)
	if err := img.ReadAt(buf, devkitTableOffset); err != nil {
		return nil, fmt.Errorf("drive: read devkit partition table: %w", err)
	}
	for i := 0; i < devkitTableSlots; i++ {
		off := i * 8
		slots[i] = slot{
			offsetSectors: binary.BigEndian.Uint32(buf[off : off+4]),
			lengthSectors: binary.BigEndian.Uint32(buf[off+4 : off+8]),
		}
	}

	toPartition := func(name string, s slot) Partition {
		return Partition{
			Name:   name,
			Offset: uint64(s.offsetSectors) * fatx.SectorSize,
			Length: uint64(s.lengthSectors) * fatx.SectorSize,
		}
	}

	// Emission order is normative: SystemPartition, Partition1, AltFlash,
	// Cache0, Cache1 — independent of the slots' on-disk index order.
	return []Partition{
		toPartition("SystemPartition", slots[devkitSlotSystem]),
		toPartition("Partition1", slots[devkitSlotPartition1]),
		toPartition("AltFlash", slots[devkitSlotAltFlash]),
		toPartition("Cache0", slots[devkitSlotCache0]),
		toPartition("Cache1", slots[devkitSlotCache1]),
	}, nil
}
