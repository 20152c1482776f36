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
package recover

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatxforensics/fatxtk/internal/fatx"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

func buildVolumeWithFile(t *testing.T, content string) *fatx.Volume {
	t.Helper()

	bytesPerCluster := int64(32) * fatx.SectorSize
	fileAreaOffset := int64(fatx.FATByteOffset) + 4096
	size := fileAreaOffset + 2*bytesPerCluster

	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:], fatx.VolumeSignature)
	binary.LittleEndian.PutUint32(buf[8:], 32)
	binary.LittleEndian.PutUint32(buf[12:], 1)

	binary.LittleEndian.PutUint16(buf[fatx.FATByteOffset+1*2:], 0xFFFF)
	binary.LittleEndian.PutUint16(buf[fatx.FATByteOffset+2*2:], 0xFFFF)

	copy(buf[fileAreaOffset+bytesPerCluster:], []byte(content))

	img := fatx.NewImage(bytesextra.NewReadWriteSeeker(buf), size, fatx.LittleEndian)
	v, err := fatx.OpenVolume(img, fatx.OpenVolumeOptions{Epoch: fatx.EpochXbox})
	require.NoError(t, err)
	return v
}

func TestWriteUnconventionalFileContent(t *testing.T) {
	content := "hello orphan world"
	v := buildVolumeWithFile(t, content)

	forest := fatx.NewForest()
	d := fatx.Dirent{Name: "FOUND.TXT", NameLength: 9, FirstCluster: 2, FileSize: uint32(len(content))}
	idx := forest.Add(d, 2, fatx.NoParent, true)

	outDir := t.TempDir()
	w := &Writer{Volume: v, OutputDir: outDir}

	require.NoError(t, w.WriteUnconventional(forest, idx, ""))

	got, err := os.ReadFile(filepath.Join(outDir, "FOUND.TXT"))
	require.NoError(t, err)
	require.Equal(t, content, string(got))
}
