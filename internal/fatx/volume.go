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

import (
	"fmt"
	"log/slog"
)

const (
	SectorSize       = 512
	VolumeSignature  = 0x58544146 // "FATX", stored as a 32-bit little/big-endian word
	FATReservedEntry = 0xFFF0     // entries at or above this value in a fat16x table are reserved
	FAT32Threshold   = 0xFFF0     // clusterCount >= this selects 32-bit FAT entries
	FATByteOffset    = 0x1000     // fixed offset of the FAT from the start of the partition
)

// Header is a parsed FATX volume header (sector 0 of the partition).
type Header struct {
	Signature       uint32
	SerialNumber    uint32
	SectorsPerCluster uint32
	RootDirFirstCluster uint32
}

// Valid reports whether the header's signature matches "FATX".
func (h *Header) Valid() bool {
	return h.Signature == VolumeSignature
}

// ParseHeader decodes the 16-byte volume header at the start of the image.
func ParseHeader(img *Image) (*Header, error) {
	sig, err := img.ReadU32At(0)
	if err != nil {
		return nil, fmt.Errorf("fatx: read volume signature: %w", err)
	}
	serial, err := img.ReadU32At(4)
	if err != nil {
		return nil, fmt.Errorf("fatx: read serial number: %w", err)
	}
	spc, err := img.ReadU32At(8)
	if err != nil {
		return nil, fmt.Errorf("fatx: read sectors-per-cluster: %w", err)
	}
	root, err := img.ReadU32At(12)
	if err != nil {
		return nil, fmt.Errorf("fatx: read root dir first cluster: %w", err)
	}

	h := &Header{
		Signature:           sig,
		SerialNumber:        serial,
		SectorsPerCluster:   spc,
		RootDirFirstCluster: root,
	}
	if !h.Valid() {
		return h, fmt.Errorf("fatx: bad volume signature %#x", sig)
	}
	return h, nil
}

// Layout holds the byte offsets and sizes derived from a Header, once the
// partition's total length is known.
type Layout struct {
	BytesPerCluster   int64
	MaxClusters       uint32
	FAT32             bool // true when cluster entries are 32 rather than 16 bits wide
	FATByteOffset     int64
	FATByteSize       int64
	FileAreaByteOffset int64
}

// CalculateLayout derives a Layout from a parsed Header and the partition's
// total byte length.
//
// The cluster-to-offset arithmetic below intentionally carries the FATX
// driver's original off-by-one: cluster indices are 1-based in the on-disk
// FAT, but MaxClusters is computed as if cluster 0 were also addressable.
// Every offset computed through this Layout must stay consistent with that
// quirk, or cluster chains silently walk one cluster short.
func CalculateLayout(h *Header, partitionLen int64) (*Layout, error) {
	if h.SectorsPerCluster == 0 {
		return nil, fmt.Errorf("fatx: sectors-per-cluster is zero")
	}

	bytesPerCluster := int64(h.SectorsPerCluster) * SectorSize
	maxClusters := uint32(partitionLen/bytesPerCluster) + 1

	fat32 := maxClusters >= FAT32Threshold
	entrySize := int64(2)
	if fat32 {
		entrySize = 4
	}

	fatByteOffset := int64(FATByteOffset)
	fatByteSize := int64(maxClusters) * entrySize
	// file_area_byte_offset - fat_byte_offset must be a 4096-byte multiple.
	fatByteSize = roundUp(fatByteSize, 4096)

	return &Layout{
		BytesPerCluster:    bytesPerCluster,
		MaxClusters:        maxClusters,
		FAT32:              fat32,
		FATByteOffset:      fatByteOffset,
		FATByteSize:        fatByteSize,
		FileAreaByteOffset: fatByteOffset + fatByteSize,
	}, nil
}

func roundUp(n, mult int64) int64 {
	if n%mult == 0 {
		return n
	}
	return n + (mult - n%mult)
}

// ClusterToPhysicalOffset converts a 1-based cluster index into an absolute
// byte offset within the partition. Cluster indices below 1 are invalid.
func (l *Layout) ClusterToPhysicalOffset(cluster uint32) int64 {
	return l.FileAreaByteOffset + l.BytesPerCluster*(int64(cluster)-1)
}

// Volume is a fully opened FATX filesystem: header, layout, FAT and the
// image it was decoded from.
type Volume struct {
	Image  *Image
	Header *Header
	Layout *Layout
	FAT    []uint32 // always widened to 32 bits regardless of on-disk entry size
	Epoch  TimestampEpoch

	log *slog.Logger
}

// OpenVolumeOptions configures OpenVolume.
type OpenVolumeOptions struct {
	Epoch  TimestampEpoch
	Logger *slog.Logger
}

// OpenVolume parses the header, derives the layout and loads the full FAT
// for the given image.
func OpenVolume(img *Image, opts OpenVolumeOptions) (*Volume, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	h, err := ParseHeader(img)
	if err != nil {
		return nil, err
	}

	layout, err := CalculateLayout(h, img.Len())
	if err != nil {
		return nil, err
	}

	v := &Volume{
		Image:  img,
		Header: h,
		Layout: layout,
		Epoch:  opts.Epoch,
		log:    log,
	}

	if err := v.loadFAT(); err != nil {
		return nil, err
	}

	log.Debug("opened fatx volume",
		"serial", h.SerialNumber,
		"bytesPerCluster", layout.BytesPerCluster,
		"maxClusters", layout.MaxClusters,
		"fat32", layout.FAT32)

	return v, nil
}

func (v *Volume) loadFAT() error {
	l := v.Layout
	v.FAT = make([]uint32, l.MaxClusters)

	for i := uint32(0); i < l.MaxClusters; i++ {
		var offset int64
		var entry uint32
		var err error
		if l.FAT32 {
			offset = l.FATByteOffset + int64(i)*4
			entry, err = v.Image.ReadU32At(offset)
		} else {
			offset = l.FATByteOffset + int64(i)*2
			var e16 uint16
			e16, err = v.Image.ReadU16At(offset)
			entry = uint32(e16)
		}
		if err != nil {
			return fmt.Errorf("fatx: read fat entry %d: %w", i, err)
		}
		v.FAT[i] = entry
	}
	return nil
}

// IsReservedEntry reports whether a raw FAT entry value marks end-of-chain
// or another reserved condition rather than a link to another cluster.
func (v *Volume) IsReservedEntry(entry uint32) bool {
	if v.Layout.FAT32 {
		return entry >= 0xFFFFFFF0
	}
	return entry >= FATReservedEntry
}

// Chain walks the cluster chain starting at first and returns every cluster
// visited, in order. If the walk ever steps onto a free cluster (entry 0)
// or an out-of-range cluster index — at any depth, not just the first hop
// — the whole chain is corrupt, not just its tail, so the result collapses
// back to just []uint32{first} rather than keeping the clusters walked
// before the bad link. A cycle is the one case that truncates in place
// instead of collapsing, since the clusters walked up to the repeat are
// still a valid (if incomplete) chain.
func (v *Volume) Chain(first uint32) []uint32 {
	var clusters []uint32
	seen := make(map[uint32]bool)

	cur := first
	for {
		if cur == 0 || cur >= v.Layout.MaxClusters {
			v.log.Warn("fat chain corrupt: invalid link, collapsing to first cluster", "first", first, "cluster", cur)
			return []uint32{first}
		}
		if seen[cur] {
			v.log.Warn("fat chain truncated: cycle detected", "cluster", cur)
			break
		}
		seen[cur] = true
		clusters = append(clusters, cur)

		if v.IsReservedEntry(v.FAT[cur]) {
			break
		}
		cur = v.FAT[cur]
	}
	return clusters
}

// ReadCluster returns the raw bytes of the given 1-based cluster.
func (v *Volume) ReadCluster(cluster uint32) ([]byte, error) {
	buf := make([]byte, v.Layout.BytesPerCluster)
	offset := v.Layout.ClusterToPhysicalOffset(cluster)
	if err := v.Image.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("fatx: read cluster %d: %w", cluster, err)
	}
	return buf, nil
}

// ReadDirectory parses every dirent slot of the directory stream formed by
// chaining cluster's FAT links, stopping at the first never-used sentinel
// or after MaxDirentsInDirectory entries, whichever comes first.
func (v *Volume) ReadDirectory(firstCluster uint32) ([]*Dirent, error) {
	clusters := v.Chain(firstCluster)

	var dirents []*Dirent
	for _, cluster := range clusters {
		base := v.Layout.ClusterToPhysicalOffset(cluster)
		entriesPerCluster := v.Layout.BytesPerCluster / DirentSize

		for i := int64(0); i < entriesPerCluster; i++ {
			if len(dirents) >= MaxDirentsInDirectory {
				return dirents, nil
			}

			off := base + i*DirentSize
			d, err := ParseDirent(v.Image, off, v.Epoch)
			if err != nil {
				return dirents, err
			}
			if d.IsNeverUsed() {
				return dirents, nil
			}
			dirents = append(dirents, d)
		}
	}
	return dirents, nil
}

// BuildLiveTree walks the root directory and every live (non-deleted)
// subdirectory recursively, populating forest with the resulting tree.
// Deleted entries are added to the tree, but a deleted directory is not
// expanded: its own cluster chain may have been reallocated, so recursing
// into it could read unrelated data.
func (v *Volume) BuildLiveTree(forest *Forest) error {
	return v.buildSubtree(forest, v.Header.RootDirFirstCluster, NoParent)
}

func (v *Volume) buildSubtree(forest *Forest, cluster uint32, parent NodeIndex) error {
	dirents, err := v.ReadDirectory(cluster)
	if err != nil {
		return err
	}

	for _, d := range dirents {
		own := uint32((d.Offset-v.Layout.FileAreaByteOffset)/v.Layout.BytesPerCluster) + 1
		idx := forest.Add(*d, own, parent, false)
		if d.IsDeleted() {
			continue
		}
		if d.Attributes.IsDirectory() && d.FirstCluster != 0 {
			if err := v.buildSubtree(forest, d.FirstCluster, idx); err != nil {
				v.log.Warn("skipping unreadable subdirectory", "name", d.Name, "err", err)
			}
		}
	}
	return nil
}

// Describe returns a short human-readable summary of the volume, in the
// spirit of a quick sanity dump rather than a full report.
func (v *Volume) Describe() string {
	return fmt.Sprintf("FATX volume: serial=%#x bytesPerCluster=%d maxClusters=%d fat32=%v rootCluster=%d",
		v.Header.SerialNumber, v.Layout.BytesPerCluster, v.Layout.MaxClusters, v.Layout.FAT32, v.Header.RootDirFirstCluster)
}
