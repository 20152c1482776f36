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
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// buildDirentAt writes a single 64-byte dirent at offset 0 of a fresh image
// and parses it back, for tests that only care about field decoding.
func buildDirentAt(t *testing.T, nameLength byte, rawName [MaxNameLength]byte) *Dirent {
	t.Helper()

	buf := make([]byte, DirentSize)
	buf[0] = nameLength
	buf[1] = byte(AttrArchive)
	copy(buf[2:2+MaxNameLength], rawName[:])

	rws := bytesextra.NewReadWriteSeeker(buf)
	img := NewImage(rws, int64(len(buf)), LittleEndian)

	d, err := ParseDirent(img, 0, EpochXbox)
	require.NoError(t, err)
	return d
}

func TestParseDirentRecoversDeletedNamePrefix(t *testing.T) {
	var rawName [MaxNameLength]byte
	copy(rawName[:], "HELLO")
	for i := 5; i < MaxNameLength; i++ {
		rawName[i] = SentinelNeverUsed2
	}

	d := buildDirentAt(t, SentinelDeleted, rawName)
	require.True(t, d.IsDeleted())
	require.Equal(t, "HELLO", d.Name)
}

func TestParseDirentDeletedNameStopsAtFirstFF(t *testing.T) {
	// Garbage bytes following an early 0xFF must not leak into the
	// recovered name: only the prefix before the first 0xFF counts.
	var rawName [MaxNameLength]byte
	copy(rawName[:], "AB")
	rawName[2] = SentinelNeverUsed2
	rawName[3] = 'Z'
	for i := 4; i < MaxNameLength; i++ {
		rawName[i] = SentinelNeverUsed2
	}

	d := buildDirentAt(t, SentinelDeleted, rawName)
	require.Equal(t, "AB", d.Name)
}

func TestParseDirentDeletedNameAllPadding(t *testing.T) {
	var rawName [MaxNameLength]byte
	for i := range rawName {
		rawName[i] = SentinelNeverUsed2
	}

	d := buildDirentAt(t, SentinelDeleted, rawName)
	require.Equal(t, "", d.Name)
}
