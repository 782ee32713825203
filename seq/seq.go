// Package seq holds the validated DNA string type shared by the
// indexing and detection packages.
package seq

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidBase = errors.New("invalid base")
	ErrOutOfBounds = errors.New("out of bounds")
)

// A Sequence is an immutable, uppercase string over {A,C,G,T,N}.
//
// Sequence is comparable, so it can be used directly as a map key;
// two sequences are equal iff their bases are equal.
type Sequence struct {
	bases string
}

var (
	isbase = func() []bool {
		r := make([]bool, 256)
		for _, b := range []byte("ACGTN") {
			r[int(b)] = true
		}
		return r
	}()
	complement = func() []byte {
		r := make([]byte, 256)
		r['A'] = 'T'
		r['T'] = 'A'
		r['C'] = 'G'
		r['G'] = 'C'
		r['N'] = 'N'
		return r
	}()
)

// FromDNA returns a Sequence for the given text after removing
// newlines and converting to uppercase. Any other character outside
// ACGTN, carriage returns included, is an ErrInvalidBase.
func FromDNA(text string) (Sequence, error) {
	text = strings.ToUpper(strings.ReplaceAll(text, "\n", ""))
	for i := 0; i < len(text); i++ {
		if !isbase[int(text[i])] {
			return Sequence{}, fmt.Errorf("%w %q at offset %d", ErrInvalidBase, text[i], i)
		}
	}
	return Sequence{bases: text}, nil
}

func (s Sequence) Len() int {
	return len(s.bases)
}

func (s Sequence) String() string {
	return s.bases
}

// GetRange returns the half-open slice [start, stop).
func (s Sequence) GetRange(start, stop int) (Sequence, error) {
	if start < 0 || start >= len(s.bases) || stop > len(s.bases) || stop < start {
		return Sequence{}, fmt.Errorf("%w: range [%d,%d) of sequence with length %d", ErrOutOfBounds, start, stop, len(s.bases))
	}
	// a substring of valid bases is valid; no need to check again
	return Sequence{bases: s.bases[start:stop]}, nil
}

func (s Sequence) GetBase(index int) (byte, error) {
	if index < 0 || index >= len(s.bases) {
		return 0, fmt.Errorf("%w: index %d of sequence with length %d", ErrOutOfBounds, index, len(s.bases))
	}
	return s.bases[index], nil
}

// RevComp returns the reverse complement.
func (s Sequence) RevComp() Sequence {
	buf := make([]byte, len(s.bases))
	for i := 0; i < len(s.bases); i++ {
		buf[len(buf)-1-i] = complement[int(s.bases[i])]
	}
	return Sequence{bases: string(buf)}
}
