package main

import (
	"os"
	"path/filepath"

	"github.com/crisprs/crisprs/crispr"
	"github.com/crisprs/crisprs/seq"
	"gopkg.in/check.v1"
)

type outputSuite struct{}

var _ = check.Suite(&outputSuite{})

func testArrays(c *check.C) []*crispr.Array {
	rep, err := seq.FromDNA("ATCG")
	c.Assert(err, check.IsNil)
	sp, err := seq.FromDNA("AAAA")
	c.Assert(err, check.IsNil)
	return []*crispr.Array{{
		Repeats:    []seq.Sequence{rep, rep},
		Spacers:    []seq.Sequence{sp},
		SourceName: "c1",
		Location:   [2]int{5, 17},
	}}
}

func (s *outputSuite) TestWrite(c *check.C) {
	prefix := filepath.Join(c.MkDir(), "out")
	ow := outputWriter{prefix: prefix, contigs: []string{"c1"}, npy: true}
	c.Assert(ow.Write(testArrays(c)), check.IsNil)
	fasta, err := os.ReadFile(prefix + ".fasta")
	c.Assert(err, check.IsNil)
	c.Check(string(fasta), check.Equals, ">c1_6_17\nATCGAAAAATCG\n")
	for _, suffix := range []string{".fasta", ".tsv", ".summary.tsv", ".npy"} {
		_, err = os.Stat(prefix + suffix)
		c.Check(err, check.IsNil, check.Commentf(suffix))
		_, err = os.Stat(prefix + suffix + ".tmp")
		c.Check(os.IsNotExist(err), check.Equals, true, check.Commentf(suffix))
	}
}

func (s *outputSuite) TestWriteFailureLeavesNothing(c *check.C) {
	prefix := filepath.Join(c.MkDir(), "out")
	// the .tsv file cannot be created, after .fasta was written
	c.Assert(os.Mkdir(prefix+".tsv.tmp", 0755), check.IsNil)
	ow := outputWriter{prefix: prefix, contigs: []string{"c1"}}
	c.Check(ow.Write(testArrays(c)), check.NotNil)
	for _, fnm := range []string{".fasta", ".fasta.tmp", ".tsv", ".summary.tsv", ".summary.tsv.tmp"} {
		_, err := os.Stat(prefix + fnm)
		c.Check(os.IsNotExist(err), check.Equals, true, check.Commentf(fnm))
	}
}
