//go:build linux
// +build linux

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

// Package fuse exposes a recovered FATX live tree as a read-only FUSE
// filesystem, so the directories and files a Volume sees can be browsed
// with ordinary tools without a separate extraction pass.
package fuse

import (
	"context"
	"os"
	"sort"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"

	"github.com/fatxforensics/fatxtk/internal/fatx"
)

// FatxFS mounts a fatx.Forest built from a live Volume tree.
type FatxFS struct {
	Volume *fatx.Volume
	Forest *fatx.Forest
}

func (f *FatxFS) Root() (fusefs.Node, error) {
	return &Dir{fs: f, idx: fatx.NoParent}, nil
}

// Dir implements fs.Node and fs.HandleReadDirAller for one directory node.
// idx is fatx.NoParent for the synthetic mount-point root, whose children
// are the forest's own roots.
type Dir struct {
	fs  *FatxFS
	idx fatx.NodeIndex
}

func (d *Dir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = os.ModeDir | 0555
	if d.idx != fatx.NoParent {
		n := d.fs.Forest.Get(d.idx)
		a.Mtime = n.Dirent.ModifiedAt.ToWallTime()
	}
	return nil
}

func (d *Dir) children() []fatx.NodeIndex {
	if d.idx == fatx.NoParent {
		return d.fs.Forest.Roots()
	}
	return d.fs.Forest.Get(d.idx).Children
}

func (d *Dir) Lookup(ctx context.Context, name string) (fusefs.Node, error) {
	for _, c := range d.children() {
		n := d.fs.Forest.Get(c)
		if n.Dirent.Name != name {
			continue
		}
		if n.Dirent.Attributes.IsDirectory() {
			return &Dir{fs: d.fs, idx: c}, nil
		}
		return &File{fs: d.fs, idx: c}, nil
	}
	return nil, fuse.ENOENT
}

func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	children := d.children()
	entries := make([]fuse.Dirent, 0, len(children))
	for i, c := range children {
		n := d.fs.Forest.Get(c)
		typ := fuse.DT_File
		if n.Dirent.Attributes.IsDirectory() {
			typ = fuse.DT_Dir
		}
		entries = append(entries, fuse.Dirent{Inode: uint64(i + 1), Name: n.Dirent.Name, Type: typ})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// File implements fs.Node and fs.HandleReader by walking the node's FAT
// chain on every read, rather than pre-materializing the file's contents.
type File struct {
	fs  *FatxFS
	idx fatx.NodeIndex
}

func (f *File) Attr(ctx context.Context, a *fuse.Attr) error {
	n := f.fs.Forest.Get(f.idx)
	a.Mode = 0444
	a.Size = uint64(n.Dirent.FileSize)
	a.Mtime = n.Dirent.ModifiedAt.ToWallTime()
	return nil
}

func (f *File) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	n := f.fs.Forest.Get(f.idx)
	size := int64(req.Size)
	offset := req.Offset

	fileSize := int64(n.Dirent.FileSize)
	if offset >= fileSize {
		resp.Data = []byte{}
		return nil
	}
	if offset+size > fileSize {
		size = fileSize - offset
	}

	buf := make([]byte, size)
	bytesPerCluster := f.fs.Volume.Layout.BytesPerCluster
	clusters := f.fs.Volume.Chain(n.Dirent.FirstCluster)

	var read int64
	for read < size {
		absolute := offset + read
		clusterIdx := int(absolute / bytesPerCluster)
		if clusterIdx >= len(clusters) {
			break
		}
		posInCluster := absolute % bytesPerCluster
		clusterOffset := f.fs.Volume.Layout.ClusterToPhysicalOffset(clusters[clusterIdx])

		chunk := bytesPerCluster - posInCluster
		if remaining := size - read; chunk > remaining {
			chunk = remaining
		}
		if err := f.fs.Volume.Image.ReadAt(buf[read:read+chunk], clusterOffset+posInCluster); err != nil {
			return err
		}
		read += chunk
	}

	resp.Data = buf[:read]
	return nil
}
