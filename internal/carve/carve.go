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

// Package carve implements signature-based file carving over a mounted
// FATX volume's file area: a stride-based scan that probes every offset
// with a registry of format signatures, independent of directory metadata.
package carve

import (
	"fmt"

	"github.com/fatxforensics/fatxtk/internal/fatx"
)

// Signature probes a single candidate offset for one file format. Instances
// are constructed fresh per offset by a Factory; test() is cheap, parse()
// does the heavier structured read once test() has already succeeded.
type Signature interface {
	// Name is the lowercase class name used for auto-generated output
	// filenames ("xbe", "pe", "pdb", "xex", "live").
	Name() string
	Test(v *fatx.Volume, offset int64) bool
	Parse(v *fatx.Volume, offset int64) (Result, error)
}

// Factory constructs a zero-value Signature of one format; the scan loop
// calls it once per registered format per candidate offset.
type Factory func() Signature

// Result is the outcome of a successful Parse: the file's length and,
// where the format embeds one, its recovered name.
type Result struct {
	Length uint64
	Name   string // empty if the format carries no embedded name
}

// Find is one accepted carve: a signature class matched at an offset.
type Find struct {
	SignatureName string
	Offset        int64 // relative to the volume's file area
	Result        Result
}

// AllowedStrides are the only scan strides the engine accepts; any other
// value is an InvalidArgument per the error taxonomy.
var AllowedStrides = []int64{1, 0x200, 0x1000, 0x4000}

func validStride(stride int64) bool {
	for _, s := range AllowedStrides {
		if s == stride {
			return true
		}
	}
	return false
}

// Registry holds the ordered set of signature factories a scan dispatches
// against. Registration order is significant: it is the tie-break for the
// (offset, signature-class-registration-index) ordering guarantee.
type Registry struct {
	factories []Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends f to the registry.
func (r *Registry) Register(f Factory) {
	r.factories = append(r.factories, f)
}

// Each instantiates and visits every registered signature, in registration
// order. It exists for introspection (listing supported formats); Scan does
// not use it, since it needs a fresh Signature per candidate offset instead.
func (r *Registry) Each(visit func(Signature)) {
	for _, factory := range r.factories {
		visit(factory())
	}
}

// DefaultOriginalXboxRegistry returns the {XBE, PE, PDB} signature set used
// on Original Xbox volumes.
func DefaultOriginalXboxRegistry() *Registry {
	r := NewRegistry()
	r.Register(func() Signature { return &XBESignature{} })
	r.Register(func() Signature { return &PESignature{} })
	r.Register(func() Signature { return &PDBSignature{} })
	return r
}

// DefaultXbox360Registry returns the {XEX, PDB, LIVE, PE} signature set
// used on Xbox 360 volumes.
func DefaultXbox360Registry() *Registry {
	r := NewRegistry()
	r.Register(func() Signature { return &XEXSignature{} })
	r.Register(func() Signature { return &PDBSignature{} })
	r.Register(func() Signature { return &LiveSignature{} })
	r.Register(func() Signature { return &PESignature{} })
	return r
}

// ScanOptions configures Scan.
type ScanOptions struct {
	Stride int64
	Length int64 // upper bound, relative to the file area; 0 defaults to the volume length rounded down to whole clusters

	// Progress, if non-nil, is invoked after every candidate offset with
	// the most-recently-processed offset, for host-observable progress.
	Progress func(offset int64)

	// Cancel, if non-nil, is polled between offsets; Scan returns the
	// finds accumulated so far as soon as it reports true.
	Cancel func() bool
}

// Scan walks offsets 0, stride, 2*stride, ... up to opts.Length, testing
// every registered signature at each offset and collecting every match.
// Finds are returned in strictly ascending (offset, registration-index)
// order, and every candidate offset is tested against every signature
// exactly once: the total number of tests is (length/stride) * len(registry).
func Scan(v *fatx.Volume, r *Registry, opts ScanOptions) ([]Find, error) {
	if !validStride(opts.Stride) {
		return nil, fmt.Errorf("carve: invalid stride %#x", opts.Stride)
	}

	length := opts.Length
	if length == 0 {
		length = v.Layout.BytesPerCluster * int64(v.Layout.MaxClusters-1)
	}

	var finds []Find
	count := length / opts.Stride
	for i := int64(0); i < count; i++ {
		offset := i * opts.Stride

		if opts.Cancel != nil && opts.Cancel() {
			break
		}

		for _, factory := range r.factories {
			sig := factory()
			if !sig.Test(v, offset) {
				continue
			}
			result, err := sig.Parse(v, offset)
			if err != nil {
				continue
			}
			finds = append(finds, Find{SignatureName: sig.Name(), Offset: offset, Result: result})
		}

		if opts.Progress != nil {
			opts.Progress(offset)
		}
	}
	return finds, nil
}

// fileAreaOffset returns the absolute image offset of the start of the file
// area for v, since every Signature offset is relative to it.
func fileAreaOffset(v *fatx.Volume) int64 {
	return v.Layout.FileAreaByteOffset
}
