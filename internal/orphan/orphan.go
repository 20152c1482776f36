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

// Package orphan recovers dirents the live directory tree cannot reach: it
// scans every cluster for candidate dirents, validates them, and re-links
// the survivors into a parent/child forest using FAT chain membership.
package orphan

import (
	"log/slog"
	"time"

	"github.com/fatxforensics/fatxtk/internal/fatx"
)

// Candidate is a validated orphan dirent together with the physical
// location it was discovered at.
type Candidate struct {
	Dirent  fatx.Dirent
	Cluster uint32
	Slot    int // index of the 64-byte slot within the cluster
	Offset  int64
}

// Options configures Scan.
type Options struct {
	Logger *slog.Logger
	Now    time.Time // clock used for IsPlausible's upper year bound; defaults to time.Now()

	// StrictReattachment restricts phase-2 re-linking to candidates whose
	// discovery cluster equals the parent's first_cluster, rather than the
	// default (and spec-authoritative) policy of accepting any cluster
	// that appears anywhere in the parent's FAT chain.
	StrictReattachment bool

	Progress func(cluster uint32)
	Cancel   func() bool
}

// Scan performs phase 1 (cluster scan + validation) over every cluster of
// v, returning every accepted candidate in strictly ascending (cluster,
// slot) order.
func Scan(v *fatx.Volume, opts Options) []Candidate {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	var candidates []Candidate
	entriesPerCluster := int(v.Layout.BytesPerCluster / fatx.DirentSize)

	for cluster := uint32(1); cluster < v.Layout.MaxClusters; cluster++ {
		if opts.Cancel != nil && opts.Cancel() {
			break
		}

		raw, err := v.ReadCluster(cluster)
		if err != nil {
			log.Warn("orphan scan: short read, skipping cluster", "cluster", cluster, "err", err)
			continue
		}

		for slot := 0; slot < entriesPerCluster; slot++ {
			base := slot * fatx.DirentSize
			slotBytes := raw[base : base+fatx.DirentSize]

			if !fastReject(slotBytes) {
				continue
			}

			offset := v.Layout.ClusterToPhysicalOffset(cluster) + int64(base)
			d, err := fatx.ParseDirent(v.Image, offset, v.Epoch)
			if err != nil {
				continue
			}
			if !isValid(d, v.Layout.MaxClusters, v.Epoch, now) {
				continue
			}

			candidates = append(candidates, Candidate{
				Dirent:  *d,
				Cluster: cluster,
				Slot:    slot,
				Offset:  offset,
			})
		}

		if opts.Progress != nil {
			opts.Progress(cluster)
		}
	}
	return candidates
}

// fastReject runs the three cheap pre-validation tests directly on the raw
// 64-byte slot, before the cost of fully parsing a Dirent (and its three
// timestamps) is paid.
func fastReject(slot []byte) bool {
	nameLength := slot[0]
	attrs := slot[1]

	if attrs != 0x00 && attrs != byte(fatx.AttrDirectory) {
		return false
	}
	if nameLength == 0x00 || nameLength == 0x01 || nameLength == 0xFF {
		return false
	}
	if nameLength != fatx.SentinelDeleted && nameLength > fatx.MaxNameLength {
		return false
	}
	return true
}

// isValid runs the full validation pass described for orphan candidates.
func isValid(d *fatx.Dirent, maxClusters uint32, epoch fatx.TimestampEpoch, now time.Time) bool {
	if d.FirstCluster > maxClusters {
		return false
	}
	if !hasValidNameBytes(d) {
		return false
	}
	if !d.Attributes.Valid() {
		return false
	}
	if !d.CreatedAt.IsPlausible(epoch, now) {
		return false
	}
	if !d.ModifiedAt.IsPlausible(epoch, now) {
		return false
	}
	if !d.AccessedAt.IsPlausible(epoch, now) {
		return false
	}
	return true
}

// hasValidNameBytes checks every byte of the dirent's raw name field
// (including the 0xFF padding that follows a shorter name): every byte must
// be 0xFF or a member of fatx.ValidCharSet.
func hasValidNameBytes(d *fatx.Dirent) bool {
	for _, b := range d.RawName {
		if b == 0xFF {
			continue
		}
		if !fatx.IsValidNameByte(b) {
			return false
		}
	}
	return true
}

// Relink performs phase 2: for every directory candidate, attach every
// candidate whose discovery cluster appears in the directory's FAT chain
// (or, under StrictReattachment, only candidates whose cluster equals the
// directory's own first_cluster) as its child.
//
// An orphan attached under more than one parent keeps only the last
// attachment performed, matching the spec's documented last-wins policy.
func Relink(v *fatx.Volume, candidates []Candidate, opts Options) *fatx.Forest {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	forest := fatx.NewForest()
	index := make([]fatx.NodeIndex, len(candidates))
	parentOf := make([]int, len(candidates))
	for i := range parentOf {
		parentOf[i] = -1
	}

	for i, c := range candidates {
		index[i] = forest.Add(c.Dirent, c.Cluster, fatx.NoParent, true)
	}

	for i, c := range candidates {
		if !c.Dirent.Attributes.IsDirectory() {
			continue
		}

		var chainClusters map[uint32]bool
		if !opts.StrictReattachment {
			chain := v.Chain(c.Dirent.FirstCluster)
			chainClusters = make(map[uint32]bool, len(chain))
			for _, cl := range chain {
				chainClusters[cl] = true
			}
		}

		for j, o := range candidates {
			if j == i {
				continue
			}
			member := false
			if opts.StrictReattachment {
				member = o.Cluster == c.Dirent.FirstCluster
			} else {
				member = chainClusters[o.Cluster]
			}
			if !member {
				continue
			}

			if parentOf[j] != -1 {
				log.Warn("orphan relink: candidate reattached to a new parent",
					"cluster", o.Cluster, "slot", o.Slot, "previousParent", parentOf[j], "newParent", i)
			}
			forest.Reparent(index[j], index[i])
			parentOf[j] = i
		}
	}

	return forest
}
