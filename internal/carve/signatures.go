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
package carve

import (
	"encoding/binary"
	"path"
	"strings"

	"github.com/fatxforensics/fatxtk/internal/fatx"
)

// Every built-in signature reads its own fixed byte order regardless of the
// volume's declared order: the file formats below are platform formats
// (XBE/PE/PDB/XEX/LIVE) with their own independent on-disk endianness.

func readAt(v *fatx.Volume, offset int64, n int) ([]byte, bool) {
	buf := make([]byte, n)
	if err := v.Image.ReadAt(buf, fileAreaOffset(v)+offset); err != nil {
		return nil, false
	}
	return buf, true
}

func readU32(v *fatx.Volume, offset int64, order binary.ByteOrder) (uint32, bool) {
	buf, ok := readAt(v, offset, 4)
	if !ok {
		return 0, false
	}
	return order.Uint32(buf), true
}

func readU16(v *fatx.Volume, offset int64, order binary.ByteOrder) (uint16, bool) {
	buf, ok := readAt(v, offset, 2)
	if !ok {
		return 0, false
	}
	return order.Uint16(buf), true
}

func readCString(v *fatx.Volume, offset int64, maxLen int) (string, bool) {
	buf, ok := readAt(v, offset, maxLen)
	if !ok {
		return "", false
	}
	if i := strings.IndexByte(string(buf), 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf), true
}

func hasMagic(v *fatx.Volume, offset int64, magic []byte) bool {
	buf, ok := readAt(v, offset, len(magic))
	if !ok {
		return false
	}
	for i := range magic {
		if buf[i] != magic[i] {
			return false
		}
	}
	return true
}

// XBESignature detects Original Xbox executables ("XBEH" magic).
type XBESignature struct{}

func (s *XBESignature) Name() string { return "xbe" }

func (s *XBESignature) Test(v *fatx.Volume, offset int64) bool {
	return hasMagic(v, offset, []byte("XBEH"))
}

func (s *XBESignature) Parse(v *fatx.Volume, offset int64) (Result, error) {
	baseAddress, ok := readU32(v, offset+0x104, binary.LittleEndian)
	if !ok {
		return Result{}, errShortRead
	}
	length, ok := readU32(v, offset+0x10C, binary.LittleEndian)
	if !ok {
		return Result{}, errShortRead
	}
	debugFilenameOffset, ok := readU32(v, offset+0x150, binary.LittleEndian)
	if !ok {
		return Result{}, errShortRead
	}

	name := ""
	if debugNameOff := int64(debugFilenameOffset) - int64(baseAddress); debugNameOff >= 0 {
		if s, ok := readCString(v, offset+debugNameOff, 260); ok && s != "" {
			base := path.Base(s)
			base = strings.TrimSuffix(base, ".exe")
			name = base + ".xbe"
		}
	}

	return Result{Length: uint64(length), Name: name}, nil
}

// PESignature detects Windows Portable Executables ("MZ\x90\0" magic).
type PESignature struct{}

func (s *PESignature) Name() string { return "pe" }

func (s *PESignature) Test(v *fatx.Volume, offset int64) bool {
	return hasMagic(v, offset, []byte{'M', 'Z', 0x90, 0x00})
}

func (s *PESignature) Parse(v *fatx.Volume, offset int64) (Result, error) {
	lfanew, ok := readU32(v, offset+0x3C, binary.LittleEndian)
	if !ok {
		return Result{}, errShortRead
	}
	peMagic, ok := readU32(v, offset+int64(lfanew), binary.LittleEndian)
	if !ok || peMagic != 0x00004550 {
		return Result{}, errBadSignature
	}
	nsec, ok := readU16(v, offset+int64(lfanew)+6, binary.LittleEndian)
	if !ok {
		return Result{}, errShortRead
	}
	if nsec == 0 {
		return Result{}, errBadSignature
	}

	lastSec := int64(lfanew) + 0xF8 + int64(nsec-1)*0x28
	rawSize, ok := readU32(v, offset+lastSec+0x10, binary.LittleEndian)
	if !ok {
		return Result{}, errShortRead
	}
	rawPtr, ok := readU32(v, offset+lastSec+0x14, binary.LittleEndian)
	if !ok {
		return Result{}, errShortRead
	}

	return Result{Length: uint64(rawSize) + uint64(rawPtr)}, nil
}

// PDBSignature detects Microsoft Program Database files.
type PDBSignature struct{}

var pdbMagic = []byte("Microsoft C/C++ MSF 7.00\r\n\x1ADS\x00\x00\x00")

func (s *PDBSignature) Name() string { return "pdb" }

func (s *PDBSignature) Test(v *fatx.Volume, offset int64) bool {
	return hasMagic(v, offset, pdbMagic)
}

func (s *PDBSignature) Parse(v *fatx.Volume, offset int64) (Result, error) {
	blockSize, ok := readU32(v, offset+0x20, binary.LittleEndian)
	if !ok {
		return Result{}, errShortRead
	}
	numBlocks, ok := readU32(v, offset+0x28, binary.LittleEndian)
	if !ok {
		return Result{}, errShortRead
	}
	return Result{Length: uint64(blockSize) * uint64(numBlocks)}, nil
}

// XEXSignature detects Xbox 360 executables ("XEX2" magic).
type XEXSignature struct{}

func (s *XEXSignature) Name() string { return "xex" }

func (s *XEXSignature) Test(v *fatx.Volume, offset int64) bool {
	return hasMagic(v, offset, []byte("XEX2"))
}

func (s *XEXSignature) Parse(v *fatx.Volume, offset int64) (Result, error) {
	securityOffset, ok := readU32(v, offset+0x10, binary.BigEndian)
	if !ok {
		return Result{}, errShortRead
	}
	headerCount, ok := readU32(v, offset+0x14, binary.BigEndian)
	if !ok {
		return Result{}, errShortRead
	}

	var fileNameOffset uint32
	haveFileNameOffset := false
	for i := uint32(0); i < headerCount; i++ {
		recOff := offset + 0x18 + int64(i)*8
		id, ok := readU32(v, recOff, binary.BigEndian)
		if !ok {
			break
		}
		value, ok := readU32(v, recOff+4, binary.BigEndian)
		if !ok {
			break
		}
		if id == 0x000183FF {
			fileNameOffset = value
			haveFileNameOffset = true
		}
	}

	length, ok := readU32(v, offset+int64(securityOffset)+4, binary.BigEndian)
	if !ok {
		return Result{}, errShortRead
	}

	result := Result{Length: uint64(length)}
	if haveFileNameOffset {
		if name, ok := readCString(v, offset+int64(fileNameOffset)+4, 260); ok {
			result.Name = name
		}
	}
	return result, nil
}

// LiveSignature detects Xbox Live-signed content ("LIVE" magic). It is
// detection-only: the spec defines no length recovery for it.
type LiveSignature struct{}

func (s *LiveSignature) Name() string { return "live" }

func (s *LiveSignature) Test(v *fatx.Volume, offset int64) bool {
	return hasMagic(v, offset, []byte("LIVE"))
}

func (s *LiveSignature) Parse(v *fatx.Volume, offset int64) (Result, error) {
	return Result{Length: 0}, nil
}
