package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/mauri870/pulsar/internal/engine"
	"github.com/mauri870/pulsar/internal/output"
	"github.com/mauri870/pulsar/internal/runtime/wordcount"
	"github.com/mauri870/pulsar/internal/script"
	"github.com/mauri870/pulsar/pkg/pulsar"
)

var (
	inputPath    string
	scriptPath   string
	outputFormat string
	sortOutput   bool
	testMode     bool
	showVersion  bool
	nativeMode   bool
	numWorkers   int
	showProgress bool
	verbose      bool
)

func init() {
	flag.StringVar(&inputPath, "f", "-", "input `path`, - for stdin")
	flag.StringVar(&inputPath, "file", "-", "input `path`, - for stdin")
	flag.StringVar(&scriptPath, "s", "", "JavaScript `path` with map and reduce functions (default: built-in word count)")
	flag.StringVar(&scriptPath, "script", "", "JavaScript `path` with map and reduce functions (default: built-in word count)")
	flag.BoolVar(&sortOutput, "sort", false, "buffer all reductions and order them with the script sort function")
	flag.StringVar(&outputFormat, "output", "plain", "output `format`: plain or json")
	flag.BoolVar(&testMode, "test", false, "run the script test() entry point and exit")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.BoolVar(&nativeMode, "native", false, "use the built-in native word count runtime instead of a script")
	flag.IntVar(&numWorkers, "workers", 0, "worker `count` (default: number of CPUs)")
	flag.BoolVar(&showProgress, "progress", false, "show byte progress on stderr when reading from a file")
	flag.BoolVar(&verbose, "v", false, "log engine and worker activity to stderr")
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pulsar: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if showVersion {
		fmt.Println("pulsar", pulsar.Version)
		return nil
	}

	if testMode {
		return runTests(flag.Args())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A closed stdout pipe must surface as a write error, not a SIGPIPE kill.
	signal.Ignore(syscall.SIGPIPE)

	factory, err := buildFactory()
	if err != nil {
		return err
	}

	workers := numWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	pool, err := engine.NewPool(engine.PoolConfig{Size: workers, Verbose: verbose}, factory)
	if err != nil {
		return err
	}
	defer pool.Close()

	enc, err := output.ForFormat(outputFormat)
	if err != nil {
		return err
	}

	in, cleanup, err := openInput()
	if err != nil {
		return err
	}
	defer cleanup()

	counted := &countingReader{r: in}

	eng := engine.New(pool, engine.Config{
		Sort:    sortOutput,
		Encoder: enc,
		Verbose: verbose,
	})

	stats, err := eng.Run(ctx, counted, os.Stdout)
	if err != nil {
		return err
	}

	if verbose {
		log.Printf("[ENGINE] read %s lines (%s) in %v",
			humanize.Comma(stats.Lines), humanize.Bytes(uint64(counted.n)), stats.Elapsed)
	}

	return nil
}

// buildFactory selects the runtime implementation: the native word count
// or a script context factory sharing one compiled program.
func buildFactory() (engine.Factory, error) {
	if nativeMode {
		if scriptPath != "" {
			return nil, fmt.Errorf("%w: -native and -script are mutually exclusive", pulsar.ErrUsage)
		}
		return func() (pulsar.Runtime, error) {
			return wordcount.New(), nil
		}, nil
	}

	name, source, err := loadScript()
	if err != nil {
		return nil, err
	}

	prg, err := script.Compile(name, source)
	if err != nil {
		return nil, err
	}

	return func() (pulsar.Runtime, error) {
		return script.NewContext(prg)
	}, nil
}

func loadScript() (name, source string, err error) {
	if scriptPath == "" {
		return "default.js", script.DefaultScript, nil
	}

	data, err := os.ReadFile(scriptPath)
	if err != nil {
		return "", "", fmt.Errorf("%w: read script %s: %v", pulsar.ErrUsage, scriptPath, err)
	}

	return scriptPath, string(data), nil
}

func openInput() (io.Reader, func(), error) {
	if inputPath == "" || inputPath == "-" {
		return os.Stdin, func() {}, nil
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open input %s: %v", pulsar.ErrUsage, inputPath, err)
	}

	if showProgress {
		if fi, err := f.Stat(); err == nil {
			bar := progressbar.DefaultBytes(fi.Size(), "pulsar")
			return io.TeeReader(f, bar), func() { f.Close() }, nil
		}
	}

	return f, func() { f.Close() }, nil
}

// runTests evaluates the selected script in a single context and calls its
// test entry point. Extra positional arguments name additional script files
// to test, each reported on its own line.
func runTests(files []string) error {
	if len(files) == 0 {
		name, source, err := loadScript()
		if err != nil {
			return err
		}

		ran, err := testScript(name, source)
		if err != nil {
			return err
		}
		if ran {
			fmt.Println("OK")
		}
		return nil
	}

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("%w: read script %s: %v", pulsar.ErrUsage, file, err)
		}
		if _, err := testScript(file, string(data)); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		fmt.Printf("%s: OK\n", file)
	}

	return nil
}

func testScript(name, source string) (bool, error) {
	prg, err := script.Compile(name, source)
	if err != nil {
		return false, err
	}

	c, err := script.NewContext(prg)
	if err != nil {
		return false, err
	}
	if !c.HasTest() {
		return false, nil
	}

	return true, c.Test()
}

// countingReader tracks bytes read for the verbose stats line.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
