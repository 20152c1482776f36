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

// Package recover materializes recovered data — live dirents, orphan
// dirents and carved signature finds — onto the host filesystem.
package recover

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/fatxforensics/fatxtk/internal/carve"
	"github.com/fatxforensics/fatxtk/internal/fatx"
	osutils "github.com/fatxforensics/fatxtk/pkg/util/os"
)

// Writer materializes recovered artifacts under a fixed output directory.
type Writer struct {
	Volume    *fatx.Volume
	OutputDir string
	Undelete  bool
	Logger    *slog.Logger
}

func (w *Writer) log() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

// WriteConventional materializes a live-tree node (and, recursively, its
// children) by trusting the FAT: files are reassembled by walking their
// cluster chain, directories are created and recursed into. Deleted nodes
// are skipped unless Undelete is set.
func (w *Writer) WriteConventional(forest *fatx.Forest, idx fatx.NodeIndex, relDir string) error {
	var errs *multierror.Error
	w.writeConventional(forest, idx, relDir, &errs)
	return errs.ErrorOrNil()
}

func (w *Writer) writeConventional(forest *fatx.Forest, idx fatx.NodeIndex, relDir string, errs **multierror.Error) {
	n := forest.Get(idx)
	if n.Dirent.IsDeleted() && !w.Undelete {
		return
	}

	outPath := filepath.Join(w.OutputDir, relDir, n.Dirent.Name)

	if n.Dirent.Attributes.IsDirectory() {
		if err := os.MkdirAll(outPath, 0755); err != nil {
			*errs = multierror.Append(*errs, fmt.Errorf("mkdir %s: %w", outPath, err))
			return
		}
		for _, c := range n.Children {
			w.writeConventional(forest, c, filepath.Join(relDir, n.Dirent.Name), errs)
		}
	} else {
		if err := w.writeFileFromChain(outPath, n.Dirent.FirstCluster, n.Dirent.FileSize); err != nil {
			*errs = multierror.Append(*errs, fmt.Errorf("write %s: %w", outPath, err))
			return
		}
	}

	if err := w.restoreTimes(outPath, n.Dirent); err != nil {
		w.log().Warn("failed to restore timestamps", "path", outPath, "err", err)
	}
}

func (w *Writer) writeFileFromChain(outPath string, firstCluster, fileSize uint32) error {
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	remaining := int64(fileSize)
	for _, cluster := range w.Volume.Chain(firstCluster) {
		if remaining <= 0 {
			break
		}
		data, err := w.Volume.ReadCluster(cluster)
		if err != nil {
			w.log().Warn("short cluster read during recovery", "cluster", cluster, "err", err)
			break
		}
		n := int64(len(data))
		if n > remaining {
			n = remaining
		}
		if _, err := f.Write(data[:n]); err != nil {
			return err
		}
		remaining -= n
	}
	return nil
}

// WriteUnconventional materializes an orphan-tree node without trusting the
// FAT at all: file content is read sequentially for exactly file_size bytes
// starting at first_cluster's physical offset.
func (w *Writer) WriteUnconventional(forest *fatx.Forest, idx fatx.NodeIndex, relDir string) error {
	var errs *multierror.Error
	w.writeUnconventional(forest, idx, relDir, &errs)
	return errs.ErrorOrNil()
}

func (w *Writer) writeUnconventional(forest *fatx.Forest, idx fatx.NodeIndex, relDir string, errs **multierror.Error) {
	n := forest.Get(idx)
	outPath := filepath.Join(w.OutputDir, relDir, n.Dirent.Name)

	if n.Dirent.Attributes.IsDirectory() {
		if err := os.MkdirAll(outPath, 0755); err != nil {
			*errs = multierror.Append(*errs, fmt.Errorf("mkdir %s: %w", outPath, err))
			return
		}
		for _, c := range n.Children {
			w.writeUnconventional(forest, c, filepath.Join(relDir, n.Dirent.Name), errs)
		}
	} else {
		offset := w.Volume.Layout.ClusterToPhysicalOffset(n.Dirent.FirstCluster)
		if err := w.writeSequential(outPath, offset, int64(n.Dirent.FileSize)); err != nil {
			*errs = multierror.Append(*errs, fmt.Errorf("write %s: %w", outPath, err))
			return
		}
	}

	if err := w.restoreTimes(outPath, n.Dirent); err != nil {
		w.log().Warn("failed to restore timestamps", "path", outPath, "err", err)
	}
}

func (w *Writer) writeSequential(outPath string, offset, length int64) error {
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	const chunkSize = 1 << 20
	remaining := length
	pos := offset
	buf := make([]byte, chunkSize)
	for remaining > 0 {
		n := int64(chunkSize)
		if n > remaining {
			n = remaining
		}
		if err := w.Volume.Image.ReadAt(buf[:n], pos); err != nil {
			return err
		}
		if _, err := f.Write(buf[:n]); err != nil {
			return err
		}
		pos += n
		remaining -= n
	}
	return nil
}

func (w *Writer) restoreTimes(path string, d fatx.Dirent) error {
	return os.Chtimes(path, d.AccessedAt.ToWallTime(), d.ModifiedAt.ToWallTime())
}

// WriteCarved writes every carve.Find in finds to the output directory,
// naming each file the signature's parsed name, or an auto-generated
// <class-name-lowercase><N> when the signature carries no name, with N
// incrementing per signature class. A length of 0 or >= 2^32-1 yields an
// empty file.
func (w *Writer) WriteCarved(finds []carve.Find) error {
	if _, err := osutils.EnsureDir(w.OutputDir, false); err != nil {
		return err
	}

	var errs *multierror.Error
	counters := map[string]int{}

	for _, find := range finds {
		name := find.Result.Name
		if name == "" {
			counters[find.SignatureName]++
			name = fmt.Sprintf("%s%d", find.SignatureName, counters[find.SignatureName])
		}
		outPath := filepath.Join(w.OutputDir, name)

		length := find.Result.Length
		if length == 0 || length >= 0xFFFFFFFF {
			if err := touchEmptyFile(outPath); err != nil {
				errs = multierror.Append(errs, err)
			}
			continue
		}

		absOffset := w.Volume.Layout.FileAreaByteOffset + find.Offset
		if err := w.writeSequential(outPath, absOffset, int64(length)); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("write carved %s: %w", name, err))
		}
	}
	return errs.ErrorOrNil()
}

func touchEmptyFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	return f.Close()
}
