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

// Package jsonexport serializes a recovered orphan forest to the toolkit's
// interchange JSON format, for consumption by other forensic tooling.
package jsonexport

import (
	"encoding/json"
	"io"

	"github.com/fatxforensics/fatxtk/internal/fatx"
)

// Dirent is the exported, per-entry JSON shape.
type Dirent struct {
	Offset         uint64   `json:"offset"`
	Cluster        uint32   `json:"cluster"`
	FileName       string   `json:"filename"`
	FileNameLen    uint8    `json:"filenamelen"`
	FileSize       uint32   `json:"filesize"`
	Attributes     uint8    `json:"attributes"`
	FirstCluster   uint32   `json:"firstcluster"`
	CreationTime   uint32   `json:"creationtime"`
	LastWriteTime  uint32   `json:"lastwritetime"`
	LastAccessTime uint32   `json:"lastaccesstime"`
	Children       []Dirent `json:"children,omitempty"`
}

// Partition is the exported, per-partition JSON shape: one object per
// mounted partition's orphan forest.
type Partition struct {
	Offset uint64   `json:"offset"`
	Length uint64   `json:"length"`
	Roots  []Dirent `json:"roots"`
}

// FromForest converts every root of forest (and, for directories, their
// descendants) into the exported Dirent shape. Timestamps are exported as
// their raw packed 32-bit values, not decoded calendar fields.
func FromForest(forest *fatx.Forest, epoch fatx.TimestampEpoch) []Dirent {
	roots := forest.Roots()
	out := make([]Dirent, 0, len(roots))
	for _, r := range roots {
		out = append(out, convertNode(forest, r, epoch))
	}
	return out
}

func convertNode(forest *fatx.Forest, idx fatx.NodeIndex, epoch fatx.TimestampEpoch) Dirent {
	n := forest.Get(idx)
	d := Dirent{
		Offset:         uint64(n.Offset),
		Cluster:        n.Cluster,
		FileName:       n.Dirent.Name,
		FileNameLen:    n.Dirent.NameLength,
		FileSize:       n.Dirent.FileSize,
		Attributes:     uint8(n.Dirent.Attributes),
		FirstCluster:   n.Dirent.FirstCluster,
		CreationTime:   fatx.PackTimestamp(n.Dirent.CreatedAt, epoch),
		LastWriteTime:  fatx.PackTimestamp(n.Dirent.ModifiedAt, epoch),
		LastAccessTime: fatx.PackTimestamp(n.Dirent.AccessedAt, epoch),
	}
	if n.Dirent.Attributes.IsDirectory() {
		for _, c := range n.Children {
			d.Children = append(d.Children, convertNode(forest, c, epoch))
		}
	}
	return d
}

// WritePartition encodes one Partition object as indented JSON to w.
func WritePartition(w io.Writer, offset, length uint64, forest *fatx.Forest, epoch fatx.TimestampEpoch) error {
	p := Partition{
		Offset: offset,
		Length: length,
		Roots:  FromForest(forest, epoch),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}
