package rules

import (
	"sort"

	"github.com/rivo/uniseg"
)

// Cursor indexes the grapheme cluster boundaries of a text, so rule sets
// can step over user-perceived characters instead of bytes.
type Cursor struct {
	// offsets holds the byte offset of every cluster start, plus len(text).
	offsets []int
}

// NewCursor builds a Cursor over text.
func NewCursor(text string) *Cursor {
	offsets := make([]int, 0, len(text)+1)
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		from, _ := g.Positions()
		offsets = append(offsets, from)
	}
	offsets = append(offsets, len(text))
	return &Cursor{offsets: offsets}
}

// IsBoundary reports whether off falls between two grapheme clusters.
func (c *Cursor) IsBoundary(off int) bool {
	i := sort.SearchInts(c.offsets, off)
	return i < len(c.offsets) && c.offsets[i] == off
}

// Next returns the first cluster boundary strictly after off, or -1.
func (c *Cursor) Next(off int) int {
	i := sort.SearchInts(c.offsets, off+1)
	if i >= len(c.offsets) {
		return -1
	}
	return c.offsets[i]
}

// Prev returns the last cluster boundary strictly before off, or -1.
func (c *Cursor) Prev(off int) int {
	i := sort.SearchInts(c.offsets, off)
	if i == 0 {
		return -1
	}
	return c.offsets[i-1]
}

// Count returns the number of clusters in text.
func (c *Cursor) Count() int {
	return len(c.offsets) - 1
}
