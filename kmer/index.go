// Package kmer indexes every fixed-length window of a sequence by
// content.
package kmer

import (
	"fmt"

	"github.com/crisprs/crisprs/seq"
)

// Index maps each k-mer to the ascending list of its 0-based start
// positions in the source sequence.
type Index struct {
	k         int
	positions map[seq.Sequence][]int
	count     int
}

func New(k int) *Index {
	return &Index{k: k, positions: map[seq.Sequence][]int{}}
}

// FromSeq slides a window of length k across src one base at a time
// and records every window. A sequence of length L yields L-k+1
// entries.
func FromSeq(src seq.Sequence, k int) (*Index, error) {
	if k < 1 || k > src.Len() {
		return nil, fmt.Errorf("cannot index sequence with length %d using k=%d", src.Len(), k)
	}
	idx := New(k)
	idx.positions = make(map[seq.Sequence][]int, src.Len()-k+1)
	for pos := 0; pos+k <= src.Len(); pos++ {
		window, err := src.GetRange(pos, pos+k)
		if err != nil {
			return nil, err
		}
		idx.Add(window, pos)
	}
	return idx, nil
}

// Add appends pos to the occurrence list for kmer.
func (idx *Index) Add(kmer seq.Sequence, pos int) {
	idx.positions[kmer] = append(idx.positions[kmer], pos)
	idx.count++
}

// Get returns the occurrence list for kmer. ok is false if kmer was
// never added.
func (idx *Index) Get(kmer seq.Sequence) (positions []int, ok bool) {
	positions, ok = idx.positions[kmer]
	return
}

// Each calls fn once for every distinct k-mer. Iteration order is
// unspecified.
func (idx *Index) Each(fn func(kmer seq.Sequence, positions []int)) {
	for kmer, positions := range idx.positions {
		fn(kmer, positions)
	}
}

func (idx *Index) K() int { return idx.k }

// Len returns the number of distinct k-mers.
func (idx *Index) Len() int { return len(idx.positions) }

// Count returns the total number of positions recorded.
func (idx *Index) Count() int { return idx.count }
