package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/crisprs/crisprs/crispr"
	"github.com/kshedden/gonpy"
)

// npyColumns are the columns of the numpy summary matrix, one row per
// array.
var npyColumns = []string{"contig", "start", "end", "repeats", "repeat_length", "mean_spacer_length"}

type outputWriter struct {
	prefix  string
	contigs []string // sorted names; row value in the numpy "contig" column is an index into this
	npy     bool
	pending []string // written under a temporary name, not yet renamed
}

// writeFile writes one output file under a temporary name and records
// it for commit.
func (ow *outputWriter) writeFile(suffix string, fn func(w io.Writer) error) error {
	fnm := ow.prefix + suffix
	f, err := os.OpenFile(fnm+".tmp", os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
	if err != nil {
		return err
	}
	ow.pending = append(ow.pending, fnm)
	defer f.Close()
	bufw := bufio.NewWriter(f)
	if err = fn(bufw); err != nil {
		return fmt.Errorf("%s: %w", fnm, err)
	}
	if err = bufw.Flush(); err != nil {
		return fmt.Errorf("%s: %w", fnm, err)
	}
	return f.Close()
}

// Write renders arrays to every output file. Either all files appear
// under their final names or none do.
func (ow *outputWriter) Write(arrays []*crispr.Array) (err error) {
	ow.pending = nil
	defer func() {
		if err != nil {
			for _, fnm := range ow.pending {
				os.Remove(fnm + ".tmp")
			}
		}
	}()
	err = ow.writeFile(".fasta", func(w io.Writer) error {
		for _, arr := range arrays {
			if _, err := fmt.Fprintln(w, arr.ToFasta(arr.Header())); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	err = ow.writeFile(".tsv", func(w io.Writer) error {
		for _, arr := range arrays {
			if _, err := fmt.Fprintf(w, "#%s\n%s", arr.Header(), arr.ToTable()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	err = ow.writeFile(".summary.tsv", writeSummary(arrays))
	if err != nil {
		return err
	}
	if ow.npy {
		err = ow.writeFile(".npy", ow.writeNumpy(arrays))
		if err != nil {
			return err
		}
	}
	for _, fnm := range ow.pending {
		if err = os.Rename(fnm+".tmp", fnm); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(arrays []*crispr.Array) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := fmt.Fprintln(w, "contig\tstart\tend\trepeats\trepeat_length\tmean_spacer_length\tconsensus\trepeat_variants")
		if err != nil {
			return err
		}
		for _, arr := range arrays {
			cons := arr.Consensus()
			_, err = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.1f\t%s\t%s\n",
				arr.SourceName, arr.Location[0]+1, arr.Location[1],
				len(arr.Repeats), cons.Len(), arr.SpacerLenMean(),
				cons, strings.Join(arr.RepeatVariants(), ","))
			if err != nil {
				return err
			}
		}
		return nil
	}
}

func (ow *outputWriter) writeNumpy(arrays []*crispr.Array) func(io.Writer) error {
	return func(w io.Writer) error {
		contigIndex := make(map[string]int, len(ow.contigs))
		for i, name := range ow.contigs {
			contigIndex[name] = i
		}
		cols := len(npyColumns)
		out := make([]int64, 0, len(arrays)*cols)
		for _, arr := range arrays {
			out = append(out,
				int64(contigIndex[arr.SourceName]),
				int64(arr.Location[0]),
				int64(arr.Location[1]),
				int64(len(arr.Repeats)),
				int64(arr.Consensus().Len()),
				int64(arr.SpacerLenMean()+0.5))
		}
		npw, err := gonpy.NewWriter(nopCloser{w})
		if err != nil {
			return err
		}
		npw.Shape = []int{len(arrays), cols}
		return npw.WriteInt64(out)
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
