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
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

const testSectorsPerCluster = 32 // -> 16384 bytes/cluster

func writeDirent(buf []byte, off int, name string, attrs Attribute, cluster, size uint32) {
	buf[off] = byte(len(name))
	buf[off+1] = byte(attrs)
	copy(buf[off+2:off+2+MaxNameLength], []byte(name))
	for i := len(name); i < MaxNameLength; i++ {
		buf[off+2+i] = SentinelNeverUsed2
	}
	o := off + 2 + MaxNameLength
	binary.LittleEndian.PutUint32(buf[o:], cluster)
	binary.LittleEndian.PutUint32(buf[o+4:], size)
}

// buildSyntheticImage lays out a tiny 4-cluster FATX volume:
//
//	cluster 1: root directory -> one file "HELLO.TXT" (cluster 3), one
//	           subdirectory "SUB" (cluster 2)
//	cluster 2: subdirectory contents, empty
//	cluster 3: file data
func buildSyntheticImage(t *testing.T) (*Image, *Volume) {
	t.Helper()

	bytesPerCluster := int64(testSectorsPerCluster) * SectorSize
	maxClusters := uint32(3) + 1 // three data clusters, off-by-one baked in like CalculateLayout
	fatByteSize := int64(maxClusters) * 2
	fatByteSize = roundUp(fatByteSize, 4096)
	fatByteOffset := int64(FATByteOffset)
	fileAreaOffset := fatByteOffset + fatByteSize

	size := fileAreaOffset + 3*bytesPerCluster
	buf := make([]byte, size)

	binary.LittleEndian.PutUint32(buf[0:], VolumeSignature)
	binary.LittleEndian.PutUint32(buf[4:], 0xDEADBEEF)
	binary.LittleEndian.PutUint32(buf[8:], testSectorsPerCluster)
	binary.LittleEndian.PutUint32(buf[12:], 1) // root dir at cluster 1

	// FAT: cluster 1 (root) is single-cluster (end of chain); cluster 2
	// (subdir) end of chain; cluster 3 (file data) end of chain.
	putFAT16 := func(i uint32, v uint16) {
		binary.LittleEndian.PutUint16(buf[fatByteOffset+int64(i)*2:], v)
	}
	putFAT16(1, 0xFFFF)
	putFAT16(2, 0xFFFF)
	putFAT16(3, 0xFFFF)

	rootOff := fileAreaOffset
	writeDirent(buf[rootOff:], 0, "HELLO.TXT", AttrArchive, 3, 11)
	writeDirent(buf[rootOff:], DirentSize, "SUB", AttrDirectory, 2, 0)
	buf[rootOff+2*DirentSize] = SentinelNeverUsed1 // terminator

	fileDataOff := fileAreaOffset + 2*bytesPerCluster
	copy(buf[fileDataOff:], []byte("hello world"))

	rws := bytesextra.NewReadWriteSeeker(buf)
	img := NewImage(rws, int64(len(buf)), LittleEndian)

	v, err := OpenVolume(img, OpenVolumeOptions{Epoch: EpochXbox})
	require.NoError(t, err)
	return img, v
}

func TestOpenVolumeParsesHeaderAndLayout(t *testing.T) {
	_, v := buildSyntheticImage(t)

	require.True(t, v.Header.Valid())
	require.Equal(t, uint32(0xDEADBEEF), v.Header.SerialNumber)
	require.Equal(t, uint32(1), v.Header.RootDirFirstCluster)
	require.False(t, v.Layout.FAT32)
	require.Equal(t, uint32(4), v.Layout.MaxClusters)
}

func TestClusterToPhysicalOffsetOffByOne(t *testing.T) {
	_, v := buildSyntheticImage(t)

	// Cluster 1 must land exactly at the start of the file area: the
	// (cluster-1) term makes the first addressable cluster index 1, not 0.
	require.Equal(t, v.Layout.FileAreaByteOffset, v.Layout.ClusterToPhysicalOffset(1))
	require.Equal(t, v.Layout.FileAreaByteOffset+v.Layout.BytesPerCluster, v.Layout.ClusterToPhysicalOffset(2))
}

func TestReadDirectoryParsesRootEntries(t *testing.T) {
	_, v := buildSyntheticImage(t)

	dirents, err := v.ReadDirectory(v.Header.RootDirFirstCluster)
	require.NoError(t, err)
	require.Len(t, dirents, 2)

	require.Equal(t, "HELLO.TXT", dirents[0].Name)
	require.True(t, dirents[0].IsLive())
	require.False(t, dirents[0].Attributes.IsDirectory())

	require.Equal(t, "SUB", dirents[1].Name)
	require.True(t, dirents[1].Attributes.IsDirectory())
}

func TestBuildLiveTreeRecursesIntoSubdirectories(t *testing.T) {
	_, v := buildSyntheticImage(t)

	forest := NewForest()
	require.NoError(t, v.BuildLiveTree(forest))

	require.Len(t, forest.Roots(), 2)
	names := map[string]bool{}
	for _, r := range forest.Roots() {
		names[forest.Get(r).Dirent.Name] = true
	}
	require.True(t, names["HELLO.TXT"])
	require.True(t, names["SUB"])
}

func TestChainDefenseTruncatesOnSelfLoop(t *testing.T) {
	_, v := buildSyntheticImage(t)

	// Corrupt the FAT so cluster 2 points to itself.
	v.FAT[2] = 2

	clusters := v.Chain(2)
	require.Equal(t, []uint32{2}, clusters, "self-referencing chain must truncate instead of looping forever")
}

func TestChainDefenseTruncatesOnOutOfRangeEntry(t *testing.T) {
	_, v := buildSyntheticImage(t)

	// Point cluster 1's FAT entry at a cluster index beyond MaxClusters,
	// without it looking like a reserved end-of-chain marker.
	v.FAT[1] = v.Layout.MaxClusters + 100

	clusters := v.Chain(1)
	require.Equal(t, []uint32{1}, clusters, "chain must stop instead of indexing past MaxClusters")
}

func TestChainCollapsesToFirstOnMidChainFreeEntry(t *testing.T) {
	_, v := buildSyntheticImage(t)

	// Extend the synthetic FAT far enough to host a multi-hop chain, then
	// wire fat[10]=11, fat[11]=12, fat[12]=0: a free entry reached two hops
	// in must collapse the whole chain back to just the first cluster, not
	// keep the clusters walked before it.
	for uint32(len(v.FAT)) <= 12 {
		v.FAT = append(v.FAT, 0xFFFF)
	}
	v.Layout.MaxClusters = uint32(len(v.FAT))
	v.FAT[10] = 11
	v.FAT[11] = 12
	v.FAT[12] = 0

	clusters := v.Chain(10)
	require.Equal(t, []uint32{10}, clusters, "a free entry reached mid-chain must collapse to the first cluster")
}

func TestCalculateLayoutSelectsFAT32AboveThreshold(t *testing.T) {
	h := &Header{SectorsPerCluster: 32}
	bytesPerCluster := int64(32) * SectorSize

	below, err := CalculateLayout(h, bytesPerCluster*(int64(FAT32Threshold)-2))
	require.NoError(t, err)
	require.False(t, below.FAT32)

	above, err := CalculateLayout(h, bytesPerCluster*(int64(FAT32Threshold)+2))
	require.NoError(t, err)
	require.True(t, above.FAT32)
}
