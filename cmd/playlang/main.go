// playlang CLI - runs a playlang program from a file, stdin or the command line
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/playlang/compiler"
	"github.com/chazu/playlang/manifest"
	"github.com/chazu/playlang/server"
	"github.com/chazu/playlang/vm"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("playlang")

// options collects what the flags ask for beyond running the program.
type options struct {
	disasm   bool
	check    bool
	dumpPath string
	trace    bool
}

func main() {
	level := flag.String("l", "", "Logging level: d, i, w, e or c (default from config, else w)")
	configPath := flag.String("config", "", "Path to playlang.toml (default: search upward from the current directory)")
	inline := flag.String("e", "", "Run the given source instead of reading a file")
	disasm := flag.Bool("disasm", false, "Print the instruction listing instead of running")
	check := flag.Bool("check", false, "Lex and check block structure without running")
	dumpPath := flag.String("dump", "", "Write a CBOR state snapshot to this file after the run")
	inspectPath := flag.String("inspect", "", "Print a snapshot written by -dump and exit")
	trace := flag.Bool("trace", false, "Log every executed instruction (needs -l d)")
	lspMode := flag.Bool("lsp", false, "Start the language server on stdio")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: playlang [options] FILE\n\n")
		fmt.Fprintf(os.Stderr, "Runs a playlang program. FILE may be - for stdin.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  playlang hello.play              # Run a file\n")
		fmt.Fprintf(os.Stderr, "  playlang -e '3 4+.'              # Run inline source\n")
		fmt.Fprintf(os.Stderr, "  playlang -disasm hello.play      # Show the instruction listing\n")
		fmt.Fprintf(os.Stderr, "  playlang -dump state.cbor x.play # Keep the final state\n")
		fmt.Fprintf(os.Stderr, "  playlang -inspect state.cbor     # Print a saved state\n")
	}
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if *level != "" {
		if !manifest.ValidLevel(*level) {
			fmt.Fprintf(os.Stderr, "Error: unknown log level %q (want one of %v)\n", *level, manifest.Levels)
			os.Exit(2)
		}
		cfg.Log.Level = *level
	}
	configureLogging(cfg)

	if *inspectPath != "" {
		if err := inspect(*inspectPath, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *lspMode {
		if err := server.NewLSP(cfg.Run.ByteWidth).Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	source, name, err := readSource(*inline, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	opts := options{
		disasm:   *disasm,
		check:    *check,
		dumpPath: *dumpPath,
		trace:    *trace || cfg.Run.Trace,
	}
	if err := execute(source, name, cfg, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the explicit config file, or the nearest playlang.toml,
// or falls back to defaults.
func loadConfig(path string) (*manifest.Manifest, error) {
	if path != "" {
		return manifest.LoadFile(path)
	}
	m, err := manifest.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if m == nil {
		return manifest.Default(), nil
	}
	return m, nil
}

func configureLogging(cfg *manifest.Manifest) {
	var path *string
	if cfg.Log.File != "" {
		path = &cfg.Log.File
	}
	commonlog.Configure(manifest.Verbosity(cfg.Log.Level), path)
}

// readSource returns the program text and a display name for it.
func readSource(inline string, args []string) (string, string, error) {
	if inline != "" {
		return strings.TrimSpace(inline), "<inline>", nil
	}
	if len(args) != 1 {
		return "", "", errors.New("expected exactly one input file")
	}

	var data []byte
	var err error
	if args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", "", fmt.Errorf("cannot read %s: %w", args[0], err)
	}
	return strings.TrimSpace(string(data)), filepath.Base(args[0]), nil
}

// execute lexes and, unless only a listing or check was asked for, runs the
// program, writing its output to stdout.
func execute(source, name string, cfg *manifest.Manifest, opts options, stdout io.Writer) error {
	lexer := compiler.NewLexer(source)
	lexer.SetByteWidth(cfg.Run.ByteWidth)
	prog, err := lexer.Tokenize()
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	if opts.disasm {
		_, err := io.WriteString(stdout, prog.DisassembleWithName(name))
		return err
	}
	if opts.check {
		issues := prog.CheckBlocks()
		for _, issue := range issues {
			fmt.Fprintf(stdout, "%s:%s\n", name, issue)
		}
		if len(issues) > 0 {
			return fmt.Errorf("%s: %d block issues", name, len(issues))
		}
		return nil
	}

	engine := vm.NewEngine(stdout, vm.WithByteWidth(cfg.Run.ByteWidth), vm.WithTrace(opts.trace))
	runErr := engine.Run(prog)
	// The newline follows the output even when the run failed part way.
	if cfg.Run.TrailingNewline {
		fmt.Fprintln(stdout)
	}

	if opts.dumpPath != "" {
		if err := dump(engine, opts.dumpPath); err != nil {
			log.Errorf("%s", err)
			if runErr == nil {
				return err
			}
		}
	}
	return runErr
}

func dump(engine *vm.Engine, path string) error {
	data, err := vm.MarshalSnapshot(engine.Snapshot())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	log.Infof("wrote snapshot %s", path)
	return nil
}

func inspect(path string, w io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	snap, err := vm.UnmarshalSnapshot(data)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, snap.String())
	return err
}
