package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// listContigs validates an assembly and prints the name and length
// of each contig.
type listContigs struct {
	assemblyFile string
}

func (cmd *listContigs) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVarP(&cmd.assemblyFile, "assembly", "a", "", "assembly fasta `file` (may be gzipped)")
	err = flags.Parse(args)
	if err == pflag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if cmd.assemblyFile == "" {
		err = errors.New("assembly (--assembly) not specified")
		return 2
	}

	asm, err := loadAssembly(cmd.assemblyFile)
	if err != nil {
		return 1
	}
	log.Printf("%s: %d contigs", cmd.assemblyFile, len(asm))
	out := bufio.NewWriter(stdout)
	for _, name := range asm.Names() {
		fmt.Fprintf(out, "%s\t%d\n", name, asm[name].Len())
	}
	if err = out.Flush(); err != nil {
		return 1
	}
	return 0
}
