// Package rope provides a mutable, byte-oriented rope for text editing.
//
// A rope is a binary tree whose leaves hold slices of the text and whose
// internal nodes cache leftLen, the byte length of their left subtree.
// Every tree hangs off an internal root with no right child, so the root's
// leftLen is the length of the whole rope.
//
// Key features:
//   - Split, concatenation, insertion and deletion without copying bodies
//   - Indexed byte lookup and range collection guided by leftLen
//   - Rebuild into a perfectly balanced copy with fixed-size leaves
//   - Failed operations leave the rope unchanged
//
// Nodes come from a NodePool, which may cap the number of live nodes so
// that allocation failure can be exercised. A Rope handle exclusively owns
// its tree; Concat and Release consume handles.
//
// Basic usage:
//
//	r, _ := rope.FromString("Building sturdy")
//	_ = r.Insert(10, "rope ")     // "Building rope sturdy"
//	_ = r.Delete(3, 5)            // "Buing rope sturdy"
//	s, _ := r.Collect(1, 4)       // "Buin"
//	tail, _ := r.Split(5)         // r = "Buing", tail = " rope sturdy"
//
// Indices follow the operation: Insert, Delete and Collect take 1-based
// inclusive positions, KthChar, Locate and Split take 0-based offsets.
// Bytes are opaque; no character encoding is assumed.
package rope
