package crispr

import (
	"math"
	"sort"

	"github.com/crisprs/crisprs/seq"
	"github.com/sirupsen/logrus"
)

// A kmerRun is one periodic stretch of a candidate's positions.
type kmerRun struct {
	cand      int // index into the group
	positions []int
}

func (r kmerRun) start() int { return r.positions[0] }

// periodicRuns splits positions wherever a step could not be one
// repeat plus one spacer, and returns the stretches holding at least
// MinReps positions.
func (d *Detector) periodicRuns(positions []int) [][]int {
	minPeriod, maxPeriod := d.cfg.MinPeriod(), d.cfg.MaxPeriod()
	var runs [][]int
	start := 0
	for i := 1; i <= len(positions); i++ {
		if i < len(positions) {
			if step := positions[i] - positions[i-1]; step >= minPeriod && step <= maxPeriod {
				continue
			}
		}
		if i-start >= d.cfg.MinReps {
			runs = append(runs, positions[start:i])
		}
		start = i
	}
	return runs
}

// offset returns the constant distance from anchor to run, if there
// is one.
func offset(anchor, run []int) (int, bool) {
	if len(anchor) != len(run) {
		return 0, false
	}
	delta := run[0] - anchor[0]
	for i := range run {
		if run[i]-anchor[i] != delta {
			return 0, false
		}
	}
	return delta, true
}

// lenDeviation returns the largest relative difference between one of
// the given lengths and their mean.
func lenDeviation(lengths []int) float64 {
	if len(lengths) == 0 {
		return 0
	}
	sum := 0
	for _, l := range lengths {
		sum += l
	}
	mean := float64(sum) / float64(len(lengths))
	if mean == 0 {
		return 0
	}
	dev := 0.0
	for _, l := range lengths {
		dev = math.Max(dev, math.Abs(float64(l)-mean)/mean)
	}
	return dev
}

// Assemble builds the arrays found in one merged group of candidates,
// ordered by start. A group can hold several neighbouring arrays: each
// pass anchors on the longest remaining periodic run, aligns the runs
// that share its spacing into one repeat unit, and drops every run
// inside the region it covered.
func (d *Detector) Assemble(name string, contig seq.Sequence, group []Candidate) ([]*Array, error) {
	var runs []kmerRun
	for i, cand := range group {
		for _, positions := range d.periodicRuns(cand.Positions) {
			runs = append(runs, kmerRun{cand: i, positions: positions})
		}
	}
	if len(runs) == 0 {
		if len(group) > 0 {
			d.Log.WithField("contig", name).WithField("start", group[0].Start()).Debug("rejected: no periodic run with enough repeats")
		}
		return nil, nil
	}

	var arrays []*Array
	for len(runs) > 0 {
		anchor := 0
		for i, run := range runs {
			a := runs[anchor]
			if len(run.positions) > len(a.positions) ||
				len(run.positions) == len(a.positions) && run.start() < a.start() ||
				len(run.positions) == len(a.positions) && run.start() == a.start() && group[run.cand].Kmer.String() < group[a.cand].Kmer.String() {
				anchor = i
			}
		}
		a := runs[anchor]
		k := group[a.cand].Kmer.Len()
		member := make([]bool, len(runs))
		member[anchor] = true
		minDelta, maxDelta := 0, 0
		for i, run := range runs {
			if i == anchor || group[run.cand].Kmer.Len() != k {
				continue
			}
			delta, ok := offset(a.positions, run.positions)
			if !ok || delta <= -d.cfg.MaxRepSize || delta >= d.cfg.MaxRepSize {
				continue
			}
			member[i] = true
			if delta < minDelta {
				minDelta = delta
			}
			if delta > maxDelta {
				maxDelta = delta
			}
		}

		lo, hi := a.start()+minDelta, a.positions[len(a.positions)-1]+maxDelta+k
		var rest []kmerRun
		for i, run := range runs {
			end := run.positions[len(run.positions)-1] + group[run.cand].Kmer.Len()
			if member[i] || run.start() < hi && end > lo {
				continue
			}
			rest = append(rest, run)
		}
		runs = rest

		log := d.Log.WithField("contig", name).WithField("start", lo)
		repLen := maxDelta - minDelta + k
		if repLen < d.cfg.MinRepSize || repLen > d.cfg.MaxRepSize {
			log.Debugf("rejected: repeat length %d", repLen)
			continue
		}
		starts := make([]int, len(a.positions))
		for i, p := range a.positions {
			starts[i] = p + minDelta
		}
		for _, part := range d.splitAtSpacers(starts, repLen, log) {
			arr, err := d.buildArray(name, contig, group, part, repLen, k, log)
			if err != nil {
				return nil, err
			}
			if arr != nil {
				arrays = append(arrays, arr)
			}
		}
	}
	sort.Slice(arrays, func(i, j int) bool {
		return arrays[i].Location[0] < arrays[j].Location[0]
	})
	return arrays, nil
}

// splitAtSpacers breaks the repeat starts at every spacer whose length
// is out of range or stands out from the rest, and returns the pieces
// that still hold MinReps repeats.
func (d *Detector) splitAtSpacers(starts []int, repLen int, log logrus.FieldLogger) [][]int {
	if len(starts) < d.cfg.MinReps {
		if len(starts) > 0 {
			log.Debugf("rejected: %d repeats at %d", len(starts), starts[0])
		}
		return nil
	}
	spacerLens := make([]int, len(starts)-1)
	for i := range spacerLens {
		spacerLens[i] = starts[i+1] - starts[i] - repLen
	}
	cut := -1
	for i, l := range spacerLens {
		if l < d.cfg.MinSpacerSize || l > d.cfg.MaxSpacerSize {
			cut = i
			break
		}
	}
	if cut < 0 && d.cfg.MaxSpacerLenDev > 0 && lenDeviation(spacerLens) > d.cfg.MaxSpacerLenDev {
		sorted := append([]int(nil), spacerLens...)
		sort.Ints(sorted)
		median := sorted[len(sorted)/2]
		worst := -1
		for i, l := range spacerLens {
			if dist := abs(l - median); dist > worst {
				cut, worst = i, dist
			}
		}
	}
	if cut < 0 {
		return [][]int{starts}
	}
	log.Debugf("splitting at spacer length %d", spacerLens[cut])
	return append(d.splitAtSpacers(starts[:cut+1], repLen, log), d.splitAtSpacers(starts[cut+1:], repLen, log)...)
}

// supportedLens returns, for each repeat copy, how many of its bases
// are covered by occurrences of the group's k-mers lying wholly inside
// that copy. Exact copies are covered end to end; a degenerate copy
// loses the bases no shared k-mer reaches.
func supportedLens(group []Candidate, starts []int, repLen, k int) []int {
	covered := make([][]bool, len(starts))
	for i := range covered {
		covered[i] = make([]bool, repLen)
	}
	for _, cand := range group {
		if cand.Kmer.Len() != k {
			continue
		}
		for _, p := range cand.Positions {
			i := sort.SearchInts(starts, p+1) - 1
			if i < 0 || p-starts[i] > repLen-k {
				continue
			}
			for j := p - starts[i]; j < p-starts[i]+k; j++ {
				covered[i][j] = true
			}
		}
	}
	lens := make([]int, len(starts))
	for i, bases := range covered {
		for _, ok := range bases {
			if ok {
				lens[i]++
			}
		}
	}
	return lens
}

// buildArray cuts repeats and spacers out of contig. It returns nil if
// the copies differ too much in how much of the repeat they support.
func (d *Detector) buildArray(name string, contig seq.Sequence, group []Candidate, starts []int, repLen, k int, log logrus.FieldLogger) (*Array, error) {
	if dev := lenDeviation(supportedLens(group, starts, repLen, k)); d.cfg.MaxRepLenDev > 0 && dev > d.cfg.MaxRepLenDev {
		log.Debugf("rejected: repeat length deviation %.3f at %d", dev, starts[0])
		return nil, nil
	}
	arr := &Array{
		SourceName: name,
		Location:   [2]int{starts[0], starts[len(starts)-1] + repLen},
	}
	for i, start := range starts {
		rep, err := contig.GetRange(start, start+repLen)
		if err != nil {
			return nil, err
		}
		arr.Repeats = append(arr.Repeats, rep)
		if i == len(starts)-1 {
			break
		}
		spacer, err := contig.GetRange(start+repLen, starts[i+1])
		if err != nil {
			return nil, err
		}
		arr.Spacers = append(arr.Spacers, spacer)
	}
	return arr, nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
