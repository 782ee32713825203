package crispr

import (
	"fmt"
	"strings"

	"github.com/crisprs/crisprs/hgvs"
	"github.com/crisprs/crisprs/seq"
)

// An Array is a run of repeats separated by spacers. There is always
// exactly one more repeat than spacer.
type Array struct {
	Repeats    []seq.Sequence
	Spacers    []seq.Sequence
	SourceName string
	Location   [2]int // [start, end), 0-based, in SourceName
}

func (arr *Array) mustBeWellFormed() {
	if len(arr.Repeats) != len(arr.Spacers)+1 {
		panic(fmt.Sprintf("crispr: array in %s at %d has %d repeats and %d spacers", arr.SourceName, arr.Location[0], len(arr.Repeats), len(arr.Spacers)))
	}
}

// Header returns the default record name, contig_start_end with
// 1-based inclusive coordinates.
func (arr *Array) Header() string {
	return fmt.Sprintf("%s_%d_%d", arr.SourceName, arr.Location[0]+1, arr.Location[1])
}

// ToFasta renders the array as a single FASTA record with no trailing
// newline.
func (arr *Array) ToFasta(header string) string {
	arr.mustBeWellFormed()
	var sb strings.Builder
	sb.WriteString(">" + header + "\n")
	for i, sp := range arr.Spacers {
		sb.WriteString(arr.Repeats[i].String())
		sb.WriteString(sp.String())
	}
	sb.WriteString(arr.Repeats[len(arr.Repeats)-1].String())
	return sb.String()
}

// ToTable renders one "repeat<TAB>spacer" line per spacer followed by
// a line with the last repeat.
func (arr *Array) ToTable() string {
	arr.mustBeWellFormed()
	var sb strings.Builder
	for i, sp := range arr.Spacers {
		fmt.Fprintf(&sb, "%s\t%s\n", arr.Repeats[i], sp)
	}
	fmt.Fprintf(&sb, "%s\n", arr.Repeats[len(arr.Repeats)-1])
	return sb.String()
}

// Consensus returns the majority base at each repeat column. Ties go
// to the base listed first in ACGTN; columns beyond the end of a
// shorter repeat count only the repeats that reach them.
func (arr *Array) Consensus() seq.Sequence {
	width := 0
	for _, rep := range arr.Repeats {
		if rep.Len() > width {
			width = rep.Len()
		}
	}
	buf := make([]byte, width)
	for col := range buf {
		counts := map[byte]int{}
		for _, rep := range arr.Repeats {
			if b, err := rep.GetBase(col); err == nil {
				counts[b]++
			}
		}
		for _, b := range []byte("ACGTN") {
			if counts[b] > counts[buf[col]] {
				buf[col] = b
			}
		}
	}
	cons, err := seq.FromDNA(string(buf))
	if err != nil {
		panic(err)
	}
	return cons
}

// RepeatVariants describes each repeat relative to the consensus,
// "=" for an exact copy.
func (arr *Array) RepeatVariants() []string {
	cons := arr.Consensus().String()
	out := make([]string, len(arr.Repeats))
	for i, rep := range arr.Repeats {
		out[i] = hgvs.Describe(cons, rep.String())
	}
	return out
}

// SpacerLenMean returns the average spacer length.
func (arr *Array) SpacerLenMean() float64 {
	if len(arr.Spacers) == 0 {
		return 0
	}
	total := 0
	for _, sp := range arr.Spacers {
		total += sp.Len()
	}
	return float64(total) / float64(len(arr.Spacers))
}
