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

// NodeIndex addresses a Node within a Forest's arena. Indices are assigned
// from 0 in insertion order; use NoParent to mark a root.
type NodeIndex int

// NoParent marks a Node with no parent, i.e. a root of the forest.
const NoParent NodeIndex = -1

// Node is one entry of a reconstructed directory tree: a Dirent plus the
// arena index of its parent and children. Nodes are addressed by integer
// index rather than pointer so that orphan re-linking, which can attach a
// cluster to more than one directory candidate during analysis, never has
// to worry about creating reference cycles.
type Node struct {
	Dirent   Dirent
	Cluster  uint32 // the cluster this dirent's own record lives in
	Offset   int64  // physical byte offset of this dirent's own 64-byte slot
	Parent   NodeIndex
	Children []NodeIndex

	// Orphan is true when this node was recovered from an unreferenced
	// cluster rather than from a live directory traversal.
	Orphan bool
}

// Forest is an arena of Nodes, holding both the live directory tree (when
// built from root traversal) and any orphan trees reconstructed by the
// analyzer.
type Forest struct {
	nodes []Node
	roots []NodeIndex
}

// NewForest returns an empty forest.
func NewForest() *Forest {
	return &Forest{}
}

// Add inserts a node under parent (or as a root, if parent is NoParent) and
// returns its index. The node's physical Offset is threaded through from
// d.Offset, which ParseDirent stamps with the byte offset the entry was
// decoded from.
func (f *Forest) Add(d Dirent, cluster uint32, parent NodeIndex, orphan bool) NodeIndex {
	idx := NodeIndex(len(f.nodes))
	f.nodes = append(f.nodes, Node{
		Dirent:  d,
		Cluster: cluster,
		Offset:  d.Offset,
		Parent:  parent,
		Orphan:  orphan,
	})
	if parent == NoParent {
		f.roots = append(f.roots, idx)
	} else {
		f.nodes[parent].Children = append(f.nodes[parent].Children, idx)
	}
	return idx
}

// Get returns the node at idx.
func (f *Forest) Get(idx NodeIndex) *Node {
	return &f.nodes[idx]
}

// Roots returns the indices of every root node, in insertion order.
func (f *Forest) Roots() []NodeIndex {
	return f.roots
}

// Reparent moves the node at child to a new parent, fixing up both the old
// and new parent's children slices. It is used by orphan re-linking when a
// later scan finds a directory that actually owns a cluster first attached
// elsewhere.
func (f *Forest) Reparent(child, newParent NodeIndex) {
	old := f.nodes[child].Parent
	if old == NoParent {
		f.removeRoot(child)
	} else {
		f.removeChild(old, child)
	}

	f.nodes[child].Parent = newParent
	if newParent == NoParent {
		f.roots = append(f.roots, child)
	} else {
		f.nodes[newParent].Children = append(f.nodes[newParent].Children, child)
	}
}

func (f *Forest) removeChild(parent, child NodeIndex) {
	children := f.nodes[parent].Children
	for i, c := range children {
		if c == child {
			f.nodes[parent].Children = append(children[:i], children[i+1:]...)
			return
		}
	}
}

func (f *Forest) removeRoot(idx NodeIndex) {
	for i, r := range f.roots {
		if r == idx {
			f.roots = append(f.roots[:i], f.roots[i+1:]...)
			return
		}
	}
}

// Path reconstructs the '/'-joined path of idx from the forest's root down
// to, and including, idx's own name.
func (f *Forest) Path(idx NodeIndex) string {
	var parts []string
	for idx != NoParent {
		n := &f.nodes[idx]
		parts = append([]string{n.Dirent.Name}, parts...)
		idx = n.Parent
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "/"
		}
		out += p
	}
	return out
}

// Walk visits idx and every descendant in depth-first, pre-order fashion.
func (f *Forest) Walk(idx NodeIndex, visit func(NodeIndex, *Node)) {
	n := f.Get(idx)
	visit(idx, n)
	for _, c := range n.Children {
		f.Walk(c, visit)
	}
}
