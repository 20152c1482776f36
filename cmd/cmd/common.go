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
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatxforensics/fatxtk/internal/disk"
	"github.com/fatxforensics/fatxtk/internal/drive"
	"github.com/fatxforensics/fatxtk/internal/fatx"
	"github.com/fatxforensics/fatxtk/internal/fs"
	"github.com/fatxforensics/fatxtk/internal/mmap"
)

// openDrive opens imgPath and probes it for its drive kind and partition
// table, returning the open handle (caller must Close it) together with the
// probe result. When --mmap is set, the image is memory-mapped rather than
// read through ordinary file-handle syscalls, which pays off on the long
// sequential stride scans carve and orphan run over a full image.
func openDrive(imgPath string) (fs.File, *drive.Drive, error) {
	f, err := openImage(imgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", imgPath, err)
	}

	size, err := sizeOf(f, imgPath)
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	img := fatx.NewImage(f, size, fatx.LittleEndian)
	d, err := drive.Probe(img)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("probe %s: %w", imgPath, err)
	}
	return f, d, nil
}

// openImage opens imgPath as an fs.File, honoring --mmap.
func openImage(imgPath string) (fs.File, error) {
	if useMmapFlag {
		return mmap.NewMmapFile(imgPath)
	}
	return fs.Open(imgPath)
}

// sizeOf returns the addressable size of an open image: a plain os.File
// goes through disk.SizeOf, which knows to ask Linux block devices for
// their real size via ioctl rather than trusting Stat (which reports zero
// for them); anything else falls back to its reported Stat size.
func sizeOf(f fs.File, imgPath string) (int64, error) {
	if osf, ok := f.(*os.File); ok {
		size, err := disk.SizeOf(osf)
		if err != nil {
			return 0, fmt.Errorf("size %s: %w", imgPath, err)
		}
		return size, nil
	}

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", imgPath, err)
	}
	return info.Size(), nil
}

// findPartition looks up a partition by exact name in d's partition table.
func findPartition(d *drive.Drive, name string) (drive.Partition, error) {
	for _, p := range d.Partitions {
		if p.Name == name {
			return p, nil
		}
	}
	return drive.Partition{}, fmt.Errorf("no partition named %q (available: %s)", name, partitionNames(d))
}

func partitionNames(d *drive.Drive) string {
	names := make([]string, len(d.Partitions))
	for i, p := range d.Partitions {
		names[i] = p.Name
	}
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

// openVolume mounts the FATX volume living inside partition p of r, using
// d's detected byte order and timestamp epoch.
func openVolume(r io.ReaderAt, d *drive.Drive, p drive.Partition) (*fatx.Volume, error) {
	section := io.NewSectionReader(r, int64(p.Offset), int64(p.Length))
	img := fatx.NewImage(section, int64(p.Length), d.Kind.ByteOrder())
	return fatx.OpenVolume(img, fatx.OpenVolumeOptions{Epoch: d.Kind.Epoch(), Logger: log})
}
