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
package orphan

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/fatxforensics/fatxtk/internal/fatx"
	"github.com/stretchr/testify/require"
)

func buildSlot(t *testing.T, nameLen, attrs byte, name string, firstCluster, fileSize uint32, ts uint32) []byte {
	t.Helper()
	buf := make([]byte, fatx.DirentSize)
	buf[0] = nameLen
	buf[1] = attrs
	copy(buf[2:], []byte(name))
	for i := len(name); i < fatx.MaxNameLength; i++ {
		buf[2+i] = 0xFF
	}
	binary.LittleEndian.PutUint32(buf[44:], firstCluster)
	binary.LittleEndian.PutUint32(buf[48:], fileSize)
	binary.LittleEndian.PutUint32(buf[52:], ts)
	binary.LittleEndian.PutUint32(buf[56:], ts)
	binary.LittleEndian.PutUint32(buf[60:], ts)
	return buf
}

func TestOrphanValidationScenario(t *testing.T) {
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	ts := fatx.PackTimestamp(fatx.Timestamp{Year: 2015, Month: 6, Day: 1, Hour: 12, Minute: 0, Second: 0}, fatx.EpochXbox)

	slot := buildSlot(t, 0x05, 0x00, "HELLO", 100, 0x1234, ts)

	require.True(t, fastReject(slot))

	d, err := fatx.ParseDirent(fatx.NewImage(rawReaderAt{slot}, int64(len(slot)), fatx.LittleEndian), 0, fatx.EpochXbox)
	require.NoError(t, err)
	require.Equal(t, "HELLO", d.Name)
	require.True(t, isValid(d, 200, fatx.EpochXbox, now))

	// Attributes outside the valid mask (0x37) must fail validation.
	slot[1] = 0x40
	d2, err := fatx.ParseDirent(fatx.NewImage(rawReaderAt{slot}, int64(len(slot)), fatx.LittleEndian), 0, fatx.EpochXbox)
	require.NoError(t, err)
	require.False(t, isValid(d2, 200, fatx.EpochXbox, now))
}

func TestFastRejectRules(t *testing.T) {
	never := buildSlot(t, 0x00, 0x00, "", 0, 0, 0)
	require.False(t, fastReject(never))

	badAttrs := buildSlot(t, 0x05, 0x08, "HELLO", 1, 0, 0)
	require.False(t, fastReject(badAttrs))

	tooLong := buildSlot(t, 0x2B, 0x00, "X", 1, 0, 0)
	require.False(t, fastReject(tooLong))
}

// rawReaderAt adapts a byte slice to io.ReaderAt for tests that only need a
// single dirent at offset 0.
type rawReaderAt struct{ buf []byte }

func (r rawReaderAt) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, r.buf[off:])
	return n, nil
}
