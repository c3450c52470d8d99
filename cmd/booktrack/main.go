// Command booktrack exports, imports and resets the stored state without the
// HTTP daemon. It opens the backend selected by the BOOKTRACK_* environment.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"booktrack/internal/config"
	"booktrack/internal/core"
	"booktrack/internal/exchange"
)

var exitFunc = os.Exit

const usage = `usage: booktrack <command> [flags]

commands:
  export [-o file]                     write the state as JSON
  report [-format csv|xlsx|json] [-o file]  write the delivery report
  import <file.json>                   replace the state with a JSON export
  roster -class <id> <file.xlsx>       add students from column A of a workbook
  reset -yes                           clear all state
`

var errUsage = errors.New("invalid usage")

func main() {
	exitFunc(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "booktrack: %v\n", err)
		return 1
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	backend, err := core.OpenBackend(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "booktrack: open %s backend: %v\n", cfg.StorageDriver, err)
		return 1
	}
	store, err := core.NewStore(ctx, backend, core.WithLogger(logger))
	if err != nil {
		_ = backend.Close()
		fmt.Fprintf(stderr, "booktrack: load state: %v\n", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "export":
		err = runExport(store, rest, stdout)
	case "report":
		err = runReport(store, rest, stdout)
	case "import":
		err = runImport(ctx, store, rest, stdout)
	case "roster":
		err = runRoster(ctx, store, rest, stdout)
	case "reset":
		err = runReset(ctx, store, rest, stdout)
	default:
		err = fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
	if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "booktrack: %v\n", err)
		}
		fmt.Fprint(stderr, usage)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "booktrack: %s: %v\n", cmd, err)
		return 1
	}
	return 0
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

// openOutput returns stdout for "" or "-", otherwise a created file.
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func runExport(store *core.Store, args []string, stdout io.Writer) error {
	fs := newFlagSet("export")
	out := fs.String("o", "", "output file (default stdout)")
	if err := parse(fs, args); err != nil {
		return err
	}
	w, closeFn, err := openOutput(*out, stdout)
	if err != nil {
		return err
	}
	if err := exchange.WriteJSON(w, store.Snapshot()); err != nil {
		_ = closeFn()
		return err
	}
	return closeFn()
}

func runReport(store *core.Store, args []string, stdout io.Writer) error {
	fs := newFlagSet("report")
	out := fs.String("o", "", "output file (default stdout)")
	formatFlag := fs.String("format", "csv", "csv, xlsx or json")
	if err := parse(fs, args); err != nil {
		return err
	}
	format, err := exchange.ParseFormat(*formatFlag)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	w, closeFn, err := openOutput(*out, stdout)
	if err != nil {
		return err
	}
	if err := exchange.WriteReport(w, format, exchange.ReportRows(store.Snapshot())); err != nil {
		_ = closeFn()
		return err
	}
	return closeFn()
}

func runImport(ctx context.Context, store *core.Store, args []string, stdout io.Writer) error {
	fs := newFlagSet("import")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: import takes exactly one file", errUsage)
	}
	payload, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	snap, err := store.ImportJSON(ctx, payload)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "imported %d courses, %d classes, %d students\n", len(snap.Courses), len(snap.Classes), len(snap.Students))
	return nil
}

func runRoster(ctx context.Context, store *core.Store, args []string, stdout io.Writer) error {
	fs := newFlagSet("roster")
	classID := fs.String("class", "", "target class id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *classID == "" || fs.NArg() != 1 {
		return fmt.Errorf("%w: roster needs -class and one workbook", errUsage)
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	names, err := exchange.ReadRoster(f)
	if err != nil {
		return err
	}
	created, err := core.NewService(store).ImportRoster(ctx, *classID, names)
	fmt.Fprintf(stdout, "added %d students\n", len(created))
	return err
}

func runReset(ctx context.Context, store *core.Store, args []string, stdout io.Writer) error {
	fs := newFlagSet("reset")
	yes := fs.Bool("yes", false, "confirm the irreversible reset")
	if err := parse(fs, args); err != nil {
		return err
	}
	if !*yes {
		return fmt.Errorf("%w: reset is irreversible, pass -yes to confirm", errUsage)
	}
	if _, err := store.Reset(ctx); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "state cleared")
	return nil
}
