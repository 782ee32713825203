// Package crispr finds CRISPR arrays in a contig: k-mers recurring at
// array-like spacing are grouped into candidates, overlapping
// candidates are merged into regions, and each region is assembled
// into repeats and spacers.
package crispr

import (
	"sort"

	"github.com/crisprs/crisprs/clusters"
	"github.com/crisprs/crisprs/config"
	"github.com/crisprs/crisprs/kmer"
	"github.com/crisprs/crisprs/seq"
	"github.com/sirupsen/logrus"
)

// A Candidate is one k-mer with a run of closely spaced occurrences.
type Candidate struct {
	Kmer      seq.Sequence
	Positions []int
}

// Start is the first base covered by the candidate.
func (cand Candidate) Start() int { return cand.Positions[0] }

// End is one past the last base covered by the candidate.
func (cand Candidate) End() int { return cand.Positions[len(cand.Positions)-1] + cand.Kmer.Len() }

type Detector struct {
	cfg config.Detection
	Log logrus.FieldLogger
}

func NewDetector(cfg config.Detection) *Detector {
	return &Detector{cfg: cfg, Log: logrus.StandardLogger()}
}

func (d *Detector) Config() config.Detection { return d.cfg }

// FindKmerLocClusters splits the ascending occurrence list of one
// k-mer into clusters where every MinReps consecutive occurrences fit
// inside the detection window. It returns nil if there are none.
func (d *Detector) FindKmerLocClusters(positions []int) [][]int {
	minReps := d.cfg.MinReps
	if len(positions) < minReps {
		return nil
	}
	window := d.cfg.Window()
	var found [][]int
	var current []int
	for i := minReps - 1; i < len(positions); i++ {
		first := i - (minReps - 1)
		if positions[i]-positions[first] < window {
			if current == nil {
				current = append([]int(nil), positions[first:i+1]...)
			} else {
				current = append(current, positions[i])
			}
		} else if current != nil {
			found = append(found, current)
			current = nil
		}
	}
	if current != nil {
		found = append(found, current)
	}
	return found
}

// Candidates returns every clustered k-mer run in idx, ordered by
// start position and then k-mer.
func (d *Detector) Candidates(idx *kmer.Index) []Candidate {
	var cands []Candidate
	idx.Each(func(k seq.Sequence, positions []int) {
		for _, run := range d.FindKmerLocClusters(positions) {
			cands = append(cands, Candidate{Kmer: k, Positions: run})
		}
	})
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].Start() != cands[j].Start() {
			return cands[i].Start() < cands[j].Start()
		}
		return cands[i].Kmer.String() < cands[j].Kmer.String()
	})
	return cands
}

// Merge groups candidates whose ranges overlap or lie within MergeGap
// bases of each other. cands must be sorted by start, as returned by
// Candidates; groups are returned in order of their first candidate.
func (d *Detector) Merge(cands []Candidate) [][]Candidate {
	if len(cands) == 0 {
		return nil
	}
	cl := clusters.New[int]()
	reach := 0 // candidate reaching furthest so far
	for i := range cands {
		if i > 0 && cands[i].Start() <= cands[reach].End()+d.cfg.MergeGap {
			cl.AddEdge(reach, i)
		} else {
			cl.AddNode(i)
		}
		if i == 0 || cands[i].End() > cands[reach].End() {
			reach = i
		}
	}
	var groups [][]Candidate
	cl.Each(func(_ int, members []int) {
		members = append([]int(nil), members...)
		sort.Ints(members)
		group := make([]Candidate, len(members))
		for i, m := range members {
			group[i] = cands[m]
		}
		groups = append(groups, group)
	})
	sort.Slice(groups, func(i, j int) bool {
		return groups[i][0].Start() < groups[j][0].Start()
	})
	return groups
}

// Scan runs the whole detection pipeline on one contig and returns
// the arrays found, ordered by start.
func (d *Detector) Scan(name string, contig seq.Sequence) ([]*Array, error) {
	if contig.Len() < d.cfg.KmerSize {
		return nil, nil
	}
	idx, err := kmer.FromSeq(contig, d.cfg.KmerSize)
	if err != nil {
		return nil, err
	}
	var arrays []*Array
	for _, group := range d.Merge(d.Candidates(idx)) {
		found, err := d.Assemble(name, contig, group)
		if err != nil {
			return nil, err
		}
		arrays = append(arrays, found...)
	}
	return arrays, nil
}
