package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kshedden/gonpy"
	"gopkg.in/check.v1"
)

type detectSuite struct{}

var _ = check.Suite(&detectSuite{})

const testRepeat = "GTTTTAGAGCTATGCTGTTTTGAATGGTCC"

var testArray = testRepeat +
	"ATTGCCGTAGGCTAACGTTCAGGTACCTTGAAGC" + testRepeat +
	"CGGATATCCTTAGCAGGTCAAGTTCGATCGATAT" + testRepeat +
	"TCAACGGTTAGCCATGGAGTCTAGACCTATTGCGA" + testRepeat +
	"GAGTCCATTGACGGCTATCAGGTAACTTCCAGTG" + testRepeat

func randomDNA(seed uint64, n int) string {
	buf := make([]byte, n)
	for i := range buf {
		seed = seed*6364136223846793005 + 1442695040888963407
		buf[i] = "ACGT"[seed>>62]
	}
	return string(buf)
}

// writeAssembly writes a two-contig assembly: c1 has no array, c2 has
// testArray at [300,587).
func writeAssembly(c *check.C, dir string) string {
	fnm := filepath.Join(dir, "assembly.fa")
	var buf bytes.Buffer
	buf.WriteString(">c2\n")
	c2 := randomDNA(1, 300) + testArray + randomDNA(2, 300)
	for len(c2) > 60 {
		buf.WriteString(c2[:60] + "\n")
		c2 = c2[60:]
	}
	buf.WriteString(c2 + "\n>c1\n" + strings.ToLower(randomDNA(4, 500)) + "\n")
	c.Assert(os.WriteFile(fnm, buf.Bytes(), 0644), check.IsNil)
	return fnm
}

func (s *detectSuite) TestDetect(c *check.C) {
	tmpdir := c.MkDir()
	asm := writeAssembly(c, tmpdir)
	var stdout, stderr bytes.Buffer
	exited := (&detector{}).RunCommand("detect", []string{"-a", asm, "-o", tmpdir + "/out", "--threads", "2", "--npy"}, &bytes.Buffer{}, &stdout, &stderr)
	c.Assert(exited, check.Equals, 0, check.Commentf("%s", stderr.String()))

	fasta, err := os.ReadFile(tmpdir + "/out.fasta")
	c.Assert(err, check.IsNil)
	c.Check(string(fasta), check.Equals, ">c2_301_587\n"+testArray+"\n")

	table, err := os.ReadFile(tmpdir + "/out.tsv")
	c.Assert(err, check.IsNil)
	lines := strings.Split(string(table), "\n")
	c.Assert(lines, check.HasLen, 7)
	c.Check(lines[0], check.Equals, "#c2_301_587")
	c.Check(lines[1], check.Equals, testRepeat+"\tATTGCCGTAGGCTAACGTTCAGGTACCTTGAAGC")
	c.Check(lines[5], check.Equals, testRepeat)
	c.Check(lines[6], check.Equals, "")

	summary, err := os.ReadFile(tmpdir + "/out.summary.tsv")
	c.Assert(err, check.IsNil)
	lines = strings.Split(string(summary), "\n")
	c.Assert(lines, check.HasLen, 3)
	c.Check(lines[0], check.Matches, `contig\tstart\tend\t.*`)
	c.Check(lines[1], check.Matches, `c2\t301\t587\t5\t30\t34\.\d\t`+testRepeat+`\t=,=,=,=,=`)

	f, err := os.Open(tmpdir + "/out.npy")
	c.Assert(err, check.IsNil)
	defer f.Close()
	npy, err := gonpy.NewReader(f)
	c.Assert(err, check.IsNil)
	c.Check(npy.Shape, check.DeepEquals, []int{1, len(npyColumns)})
	data, err := npy.GetInt64()
	c.Assert(err, check.IsNil)
	c.Check(data, check.DeepEquals, []int64{1, 300, 587, 5, 30, 34})
}

func (s *detectSuite) TestDetectNothingFound(c *check.C) {
	tmpdir := c.MkDir()
	asm := filepath.Join(tmpdir, "assembly.fa")
	c.Assert(os.WriteFile(asm, []byte(">only\n"+randomDNA(9, 2000)+"\n>tiny\nACG\n"), 0644), check.IsNil)
	exited := (&detector{}).RunCommand("detect", []string{"--assembly", asm, "--outprefix", tmpdir + "/out"}, &bytes.Buffer{}, &bytes.Buffer{}, os.Stderr)
	c.Assert(exited, check.Equals, 0)
	fasta, err := os.ReadFile(tmpdir + "/out.fasta")
	c.Assert(err, check.IsNil)
	c.Check(string(fasta), check.Equals, "")
	_, err = os.Stat(tmpdir + "/out.npy")
	c.Check(os.IsNotExist(err), check.Equals, true)
}

func (s *detectSuite) TestDetectConfig(c *check.C) {
	tmpdir := c.MkDir()
	asm := writeAssembly(c, tmpdir)
	settings := filepath.Join(tmpdir, "settings.yaml")
	c.Assert(os.WriteFile(settings, []byte("min-reps: 6\n"), 0644), check.IsNil)

	exited := (&detector{}).RunCommand("detect", []string{"-a", asm, "-o", tmpdir + "/six", "--config", settings}, &bytes.Buffer{}, &bytes.Buffer{}, os.Stderr)
	c.Assert(exited, check.Equals, 0)
	fasta, err := os.ReadFile(tmpdir + "/six.fasta")
	c.Assert(err, check.IsNil)
	c.Check(string(fasta), check.Equals, "")

	// command line overrides the settings file
	exited = (&detector{}).RunCommand("detect", []string{"-a", asm, "-o", tmpdir + "/five", "--config", settings, "--min-reps", "5"}, &bytes.Buffer{}, &bytes.Buffer{}, os.Stderr)
	c.Assert(exited, check.Equals, 0)
	fasta, err = os.ReadFile(tmpdir + "/five.fasta")
	c.Assert(err, check.IsNil)
	c.Check(string(fasta), check.Equals, ">c2_301_587\n"+testArray+"\n")
}

func (s *detectSuite) TestDetectErrors(c *check.C) {
	tmpdir := c.MkDir()
	bad := filepath.Join(tmpdir, "bad.fa")
	c.Assert(os.WriteFile(bad, []byte(">x\nACGU\n"), 0644), check.IsNil)
	headerless := filepath.Join(tmpdir, "headerless.fa")
	c.Assert(os.WriteFile(headerless, []byte("ACGT\n"), 0644), check.IsNil)

	for _, trial := range []struct {
		args   []string
		exit   int
		stderr string
	}{
		{[]string{"-o", tmpdir + "/out"}, 2, `both --assembly and --outprefix must be specified\n`},
		{[]string{"-a", bad}, 2, `both --assembly and --outprefix must be specified\n`},
		{[]string{"-a", bad, "-o", tmpdir + "/out", "--kmer-size", "0"}, 2, `(?s).*invalid config.*`},
		{[]string{"-a", bad, "-o", tmpdir + "/out"}, 1, `(?s).*bad\.fa: entry 1 \("x"\): invalid base 'U'.*`},
		{[]string{"-a", headerless, "-o", tmpdir + "/out"}, 1, `(?s).*malformed input: sequence data before first header\n`},
		{[]string{"-a", tmpdir + "/nonexistent.fa", "-o", tmpdir + "/out"}, 1, `(?s).*no such file or directory\n`},
		{[]string{"--no-such-flag"}, 2, `(?s).*unknown flag.*`},
	} {
		var stderr bytes.Buffer
		exited := (&detector{}).RunCommand("detect", trial.args, &bytes.Buffer{}, &bytes.Buffer{}, &stderr)
		c.Check(exited, check.Equals, trial.exit, check.Commentf("%v", trial.args))
		c.Check(stderr.String(), check.Matches, trial.stderr, check.Commentf("%v", trial.args))
	}
	_, err := os.Stat(tmpdir + "/out.fasta")
	c.Check(os.IsNotExist(err), check.Equals, true)
}

func (s *detectSuite) TestContigs(c *check.C) {
	tmpdir := c.MkDir()
	asm := writeAssembly(c, tmpdir)
	var stdout bytes.Buffer
	exited := (&listContigs{}).RunCommand("contigs", []string{"-a", asm}, &bytes.Buffer{}, &stdout, os.Stderr)
	c.Assert(exited, check.Equals, 0)
	c.Check(stdout.String(), check.Equals, fmt.Sprintf("c1\t500\nc2\t%d\n", 600+len(testArray)))

	exited = (&listContigs{}).RunCommand("contigs", nil, &bytes.Buffer{}, &stdout, &bytes.Buffer{})
	c.Check(exited, check.Equals, 2)
}
