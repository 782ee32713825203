package main

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/crisprs/crisprs/seq"
)

var ErrMalformedInput = errors.New("malformed input")

// assembly maps contig names to sequences.
type assembly map[string]seq.Sequence

// Names returns the contig names in sorted order.
func (asm assembly) Names() []string {
	names := make([]string, 0, len(asm))
	for name := range asm {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func loadAssembly(path string) (assembly, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var rdr io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%s: gzip: %s", path, err)
		}
		defer gz.Close()
		rdr = gz
	}
	asm, err := readAssembly(rdr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return asm, nil
}

// readAssembly parses FASTA text. Every entry needs a named header and
// at least one line of sequence; names must be unique.
func readAssembly(rdr io.Reader) (assembly, error) {
	asm := assembly{}
	var name string
	var fasta []byte
	entry := 0
	flush := func() error {
		if entry == 0 {
			return nil
		}
		if len(fasta) == 0 {
			return fmt.Errorf("%w: entry %d (%q) has a header but no sequence", ErrMalformedInput, entry, name)
		}
		sq, err := seq.FromDNA(string(fasta))
		if err != nil {
			return fmt.Errorf("entry %d (%q): %w", entry, name, err)
		}
		asm[name] = sq
		return nil
	}
	scanner := bufio.NewScanner(rdr)
	scanner.Buffer(nil, 640*1024*1024)
	for scanner.Scan() {
		buf := bytes.TrimSpace(scanner.Bytes())
		if len(buf) == 0 {
			continue
		}
		if buf[0] != '>' {
			if entry == 0 {
				return nil, fmt.Errorf("%w: sequence data before first header", ErrMalformedInput)
			}
			fasta = append(fasta, buf...)
			continue
		}
		if err := flush(); err != nil {
			return nil, err
		}
		entry++
		name = strings.TrimSpace(string(buf[1:]))
		fasta = nil
		if name == "" {
			return nil, fmt.Errorf("%w: entry %d has a header with no name", ErrMalformedInput, entry)
		}
		if _, dup := asm[name]; dup {
			return nil, fmt.Errorf("%w: entry %d: duplicate name %q", ErrMalformedInput, entry, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if entry == 0 {
		return nil, fmt.Errorf("%w: no sequences", ErrMalformedInput)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return asm, nil
}
