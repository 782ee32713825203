// Package hgvs describes the differences between two short sequences
// using HGVS-style notation (1-based positions in the reference).
package hgvs

import (
	"fmt"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

type Variant struct {
	Position int
	Ref      string
	New      string
}

func (v Variant) String() string {
	switch {
	case len(v.New) == 0 && len(v.Ref) == 1:
		return fmt.Sprintf("%ddel", v.Position)
	case len(v.New) == 0:
		return fmt.Sprintf("%d_%ddel", v.Position, v.Position+len(v.Ref)-1)
	case len(v.Ref) == 1 && len(v.New) == 1:
		return fmt.Sprintf("%d%s>%s", v.Position, v.Ref, v.New)
	case len(v.Ref) == 0:
		return fmt.Sprintf("%d_%dins%s", v.Position-1, v.Position, v.New)
	case len(v.Ref) == 1:
		return fmt.Sprintf("%ddelins%s", v.Position, v.New)
	default:
		return fmt.Sprintf("%d_%ddelins%s", v.Position, v.Position+len(v.Ref)-1, v.New)
	}
}

// Diff returns the variants that turn ref into alt.
func Diff(ref, alt string) []Variant {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = time.Second
	diffs := coalesce(dmp.DiffCleanupEfficiency(dmp.DiffMain(ref, alt, false)))
	var variants []Variant
	pos := 1
	for i := 0; i < len(diffs); i++ {
		d := diffs[i]
		if d.Type == diffmatchpatch.DiffEqual {
			pos += len(d.Text)
			continue
		}
		v := Variant{Position: pos}
		if d.Type == diffmatchpatch.DiffDelete {
			v.Ref = d.Text
		} else {
			v.New = d.Text
		}
		// a deletion next to an insertion is one delins
		if i+1 < len(diffs) && diffs[i+1].Type != diffmatchpatch.DiffEqual && diffs[i+1].Type != d.Type {
			i++
			if diffs[i].Type == diffmatchpatch.DiffDelete {
				v.Ref = diffs[i].Text
			} else {
				v.New = diffs[i].Text
			}
		}
		pos += len(v.Ref)
		variants = append(variants, v)
	}
	return variants
}

// Describe returns the variants from ref to alt joined by ";", or "="
// if the sequences are identical.
func Describe(ref, alt string) string {
	variants := Diff(ref, alt)
	if len(variants) == 0 {
		return "="
	}
	strs := make([]string, len(variants))
	for i, v := range variants {
		strs[i] = v.String()
	}
	return strings.Join(strs, ";")
}

// coalesce joins adjacent diffs of the same type.
func coalesce(in []diffmatchpatch.Diff) (out []diffmatchpatch.Diff) {
	for _, d := range in {
		if n := len(out); n > 0 && out[n-1].Type == d.Type {
			out[n-1].Text += d.Text
		} else {
			out = append(out, d)
		}
	}
	return
}
