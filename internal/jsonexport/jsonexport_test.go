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
package jsonexport

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fatxforensics/fatxtk/internal/fatx"
)

func TestFromForestCarriesPhysicalOffset(t *testing.T) {
	forest := fatx.NewForest()

	d := fatx.Dirent{Name: "HELLO.TXT", NameLength: 9, Offset: 0x20400}
	forest.Add(d, 4, fatx.NoParent, false)

	out := FromForest(forest, fatx.EpochXbox)
	require.Len(t, out, 1)
	require.Equal(t, uint64(0x20400), out[0].Offset, "exported offset must match the physical location the dirent was parsed from, not the zero value")
}

func TestFromForestCarriesOffsetForOrphanChildren(t *testing.T) {
	forest := fatx.NewForest()

	dir := fatx.Dirent{Name: "SUB", NameLength: 3, Attributes: fatx.AttrDirectory, Offset: 0x1000}
	dirIdx := forest.Add(dir, 2, fatx.NoParent, true)

	child := fatx.Dirent{Name: "FILE.BIN", NameLength: 8, Offset: 0x2040}
	forest.Add(child, 3, dirIdx, true)

	out := FromForest(forest, fatx.EpochXbox)
	require.Len(t, out, 1)
	require.Len(t, out[0].Children, 1)
	require.Equal(t, uint64(0x1000), out[0].Offset)
	require.Equal(t, uint64(0x2040), out[0].Children[0].Offset)
}
