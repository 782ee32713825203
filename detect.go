package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"git.arvados.org/arvados.git/sdk/go/arvados"
	"github.com/crisprs/crisprs/config"
	"github.com/crisprs/crisprs/crispr"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

type detector struct {
	assemblyFile string
	outputPrefix string
	configFile   string
	threads      int
	npy          bool
	runArvados   bool
	projectUUID  string
}

func (cmd *detector) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVarP(&cmd.assemblyFile, "assembly", "a", "", "assembly fasta `file` (may be gzipped)")
	flags.StringVarP(&cmd.outputPrefix, "outprefix", "o", "", "output filename `prefix`")
	flags.StringVar(&cmd.configFile, "config", "", "detection settings `file` (yaml, json, or toml)")
	kmerSize := flags.Int("kmer-size", 0, "k-mer `length` (overrides settings file)")
	minReps := flags.Int("min-reps", 0, "minimum `N` repeats per array (overrides settings file)")
	flags.IntVar(&cmd.threads, "threads", runtime.NumCPU(), "scan `N` contigs concurrently")
	flags.BoolVar(&cmd.npy, "npy", false, "also write a numpy matrix summarizing the arrays")
	flags.BoolVar(&cmd.runArvados, "arvados", false, "run in an arvados container (default: run on local host)")
	flags.StringVar(&cmd.projectUUID, "project", "", "project `UUID` for containers and output data")
	priority := flags.Int("priority", 500, "container request priority")
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	err = flags.Parse(args)
	if err == pflag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if cmd.assemblyFile == "" || cmd.outputPrefix == "" {
		err = errors.New("both --assembly and --outprefix must be specified")
		return 2
	} else if flags.NArg() > 0 {
		err = fmt.Errorf("unexpected arguments: %q", flags.Args())
		return 2
	}

	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
	}

	cfg, err := config.Load(cmd.configFile)
	if errors.Is(err, config.ErrInvalidConfig) {
		return 2
	} else if err != nil {
		return 1
	}
	if flags.Changed("kmer-size") {
		cfg.KmerSize = *kmerSize
	}
	if flags.Changed("min-reps") {
		cfg.MinReps = *minReps
	}
	if err = cfg.Validate(); err != nil {
		return 2
	}

	if cmd.runArvados {
		runner := arvadosContainerRunner{
			Name:        "crisprs detect",
			Client:      arvados.NewClientFromEnv(),
			ProjectUUID: cmd.projectUUID,
			RAM:         16 << 30,
			VCPUs:       cmd.threads,
			Priority:    *priority,
		}
		err = runner.TranslatePaths(&cmd.assemblyFile, &cmd.configFile)
		if err != nil {
			return 1
		}
		runner.Args = []string{"detect",
			"--assembly", cmd.assemblyFile,
			"--outprefix", "/mnt/output/" + filepath.Base(cmd.outputPrefix),
			"--threads", fmt.Sprint(cmd.threads),
			"--kmer-size", fmt.Sprint(cfg.KmerSize),
			"--min-reps", fmt.Sprint(cfg.MinReps),
			fmt.Sprintf("--npy=%v", cmd.npy),
		}
		if cmd.configFile != "" {
			runner.Args = append(runner.Args, "--config", cmd.configFile)
		}
		var uuid string
		uuid, err = runner.Run()
		if err != nil {
			return 1
		}
		fmt.Fprintln(stdout, uuid)
		return 0
	}

	log.Printf("assembly %s load starting", cmd.assemblyFile)
	asm, err := loadAssembly(cmd.assemblyFile)
	if err != nil {
		return 1
	}
	log.Printf("assembly %s load done, %d contigs", cmd.assemblyFile, len(asm))

	arrays, err := cmd.scan(asm, crispr.NewDetector(cfg))
	if err != nil {
		return 1
	}
	log.Printf("found %d arrays", len(arrays))

	ow := outputWriter{prefix: cmd.outputPrefix, contigs: asm.Names(), npy: cmd.npy}
	err = ow.Write(arrays)
	if err != nil {
		return 1
	}
	return 0
}

// scan runs det on every contig, using cmd.threads workers, and
// returns all arrays sorted by contig name and start position. It
// stops at the first error.
func (cmd *detector) scan(asm assembly, det *crispr.Detector) ([]*crispr.Array, error) {
	names := asm.Names()
	todo := make(chan string, len(names))
	for _, name := range names {
		todo <- name
	}
	close(todo)

	starttime := time.Now()
	errs := make(chan error, 1)
	var (
		mtx     sync.Mutex
		found   []*crispr.Array
		scanned int64
		wg      sync.WaitGroup
	)
	threads := cmd.threads
	if threads < 1 {
		threads = 1
	}
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range todo {
				if len(errs) > 0 {
					// a different worker encountered an error
					return
				}
				arrays, err := det.Scan(name, asm[name])
				if err != nil {
					select {
					case errs <- fmt.Errorf("%s: %w", name, err):
					default:
					}
					return
				}
				mtx.Lock()
				found = append(found, arrays...)
				mtx.Unlock()
				n := atomic.AddInt64(&scanned, 1)
				ttl := time.Since(starttime) * time.Duration(int64(len(names))-n) / time.Duration(n)
				log.Printf("%s: %d arrays, progress %d/%d, eta %v (%v)", name, len(arrays), n, len(names), time.Now().Add(ttl), ttl)
			}
		}()
	}
	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		return nil, err
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].SourceName != found[j].SourceName {
			return found[i].SourceName < found[j].SourceName
		}
		return found[i].Location[0] < found[j].Location[0]
	})
	return found, nil
}
