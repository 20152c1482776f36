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
package fatx

import "fmt"

const (
	DirentSize     = 64
	MaxNameLength  = 42
	MaxDirentsInDirectory = 256
)

// Name-length sentinel bytes. A name-length byte of 0x00 or 0xFF marks a
// directory entry slot that has never been used; 0xE5 marks a deleted entry
// whose original name-length byte has been overwritten.
const (
	SentinelNeverUsed1 = 0x00
	SentinelNeverUsed2 = 0xFF
	SentinelDeleted    = 0xE5
)

// Attribute bits stored in a Dirent's attributes byte. ValidAttributeMask
// covers every bit FATX assigns meaning to; any other bit set is a strong
// signal the entry is garbage.
type Attribute uint8

const (
	AttrReadOnly Attribute = 1 << 0
	AttrHidden   Attribute = 1 << 1
	AttrSystem   Attribute = 1 << 2
	_            Attribute = 1 << 3 // unused, reserved in the original FAT attribute byte
	AttrDirectory Attribute = 1 << 4
	AttrArchive   Attribute = 1 << 5

	ValidAttributeMask Attribute = 0x37
)

func (a Attribute) IsDirectory() bool { return a&AttrDirectory != 0 }
func (a Attribute) Valid() bool       { return a & ^ValidAttributeMask == 0 }

// Dirent is a decoded 64-byte FATX directory entry.
type Dirent struct {
	NameLength   uint8
	Attributes   Attribute
	Name         string // decoded, sentinel-stripped name (raw bytes available in RawName)
	RawName      [MaxNameLength]byte
	Offset       int64 // physical byte offset this entry was parsed from
	FirstCluster uint32
	FileSize     uint32
	CreatedAt    Timestamp
	ModifiedAt   Timestamp
	AccessedAt   Timestamp
}

// IsNeverUsed reports whether the slot has never held an entry.
func (d *Dirent) IsNeverUsed() bool {
	return d.NameLength == SentinelNeverUsed1 || d.NameLength == SentinelNeverUsed2
}

// IsDeleted reports whether the slot holds a deleted entry.
func (d *Dirent) IsDeleted() bool {
	return d.NameLength == SentinelDeleted
}

// IsLive reports whether the slot holds a currently-referenced entry: not
// never-used, not deleted, and carrying a plausible name length.
func (d *Dirent) IsLive() bool {
	return !d.IsNeverUsed() && !d.IsDeleted() && d.NameLength > 0 && int(d.NameLength) <= MaxNameLength
}

// ParseDirent decodes a 64-byte FATX directory entry starting at offset in
// the image. It does not validate the entry beyond extracting its fields;
// callers distinguish live, deleted and never-used slots via the IsXxx
// predicates, and orphan scanning runs deeper validation separately.
func ParseDirent(img *Image, offset int64, epoch TimestampEpoch) (*Dirent, error) {
	raw, err := img.readN(DirentSize, offset)
	if err != nil {
		return nil, fmt.Errorf("fatx: read dirent at %#x: %w", offset, err)
	}

	d := &Dirent{
		NameLength: raw[0],
		Attributes: Attribute(raw[1]),
		Offset:     offset,
	}
	copy(d.RawName[:], raw[2:2+MaxNameLength])

	nameLen := int(d.NameLength)
	if d.IsDeleted() {
		// Only the name-length byte of a deleted entry is overwritten with
		// 0xE5; the name bytes themselves are left intact, padded with 0xFF
		// up to MaxNameLength. Recover the name as the prefix before the
		// first 0xFF.
		end := 0
		for end < MaxNameLength && d.RawName[end] != SentinelNeverUsed2 {
			end++
		}
		d.Name = string(d.RawName[:end])
	} else if nameLen > 0 && nameLen <= MaxNameLength {
		d.Name = string(d.RawName[:nameLen])
	}

	order := img.order.binary()
	const clusterOff = 2 + MaxNameLength
	d.FirstCluster = order.Uint32(raw[clusterOff : clusterOff+4])
	d.FileSize = order.Uint32(raw[clusterOff+4 : clusterOff+8])
	d.CreatedAt = UnpackTimestamp(order.Uint32(raw[clusterOff+8:clusterOff+12]), epoch)
	d.ModifiedAt = UnpackTimestamp(order.Uint32(raw[clusterOff+12:clusterOff+16]), epoch)
	d.AccessedAt = UnpackTimestamp(order.Uint32(raw[clusterOff+16:clusterOff+20]), epoch)

	return d, nil
}

// ValidCharSet is the set of bytes a genuine FATX filename may contain. It
// is used by the orphan analyzer's full-validation pass to reject clusters
// that merely happen to look like a dirent at a glance.
const ValidCharSet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!#$%&'()-.@[]^_`{}~ "

func IsValidNameByte(b byte) bool {
	for i := 0; i < len(ValidCharSet); i++ {
		if ValidCharSet[i] == b {
			return true
		}
	}
	return false
}

// HasValidName reports whether every rune of d.Name is in ValidCharSet and
// the name is non-empty.
func (d *Dirent) HasValidName() bool {
	if d.Name == "" {
		return false
	}
	for i := 0; i < len(d.Name); i++ {
		if !IsValidNameByte(d.Name[i]) {
			return false
		}
	}
	return true
}
