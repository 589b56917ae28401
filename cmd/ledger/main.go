// Command ledger is the terminal front-end of the personal finance ledger.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"ledger/internal/cli"
	"ledger/internal/core"
	"ledger/internal/ledger"
	applog "ledger/internal/log"
	"ledger/internal/trace"
)

// app is what every subcommand runs against.
type app struct {
	ledger *ledger.Ledger
	forms  *cli.Validator
	log    *applog.Logger
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"categories": {"list the configured categories", runCategories},
	"add":        {"stage one entry and save it on exit", runAdd},
	"session":    {"stage entries read from stdin, save on EOF or interrupt", runSession},
	"insert":     {"save one entry immediately", runInsert},
	"list":       {"query entries, optionally grouped or exported", runList},
	"summary":    {"total one entry type with category shares", runSummary},
	"update":     {"change date, category, and amount of an entry", runUpdate},
	"delete":     {"delete entries by id", runDelete},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, in io.Reader, out, errOut io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		usage(errOut)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(errOut, "unknown command %q\n", args[0])
		usage(errOut)
		return 2
	}

	cli.LoadEnvFile()
	cfg, err := cli.LoadConfig()
	if err != nil {
		fmt.Fprintln(errOut, warnStyle.Render(err.Error()))
		return 1
	}
	logger := cli.SetupLogger(cfg)

	ctx, stop := cli.ShutdownContext(trace.WithRunID(context.Background(), trace.NewRunID()), logger.Logger)
	defer stop()

	l, err := cli.OpenLedger(cfg, logger)
	if err != nil {
		logger.Failure(ctx, applog.OpStartup, applog.ErrorTypeDatabase, err)
		fmt.Fprintln(errOut, warnStyle.Render(err.Error()))
		return 1
	}

	a := &app{
		ledger: l,
		forms:  cli.NewValidator(core.NewCategories(l.Categories())),
		log:    logger,
		in:     in,
		out:    out,
		errOut: errOut,
	}
	var cmdErr error
	done := trace.Span(ctx, logger.Logger, args[0], &cmdErr)
	cmdErr = cmd.run(ctx, a, args[1:])
	if errors.Is(cmdErr, flag.ErrHelp) {
		cmdErr = nil
	}

	// The command context may already be cancelled by a signal; the final
	// flush still has to run.
	if err := l.Shutdown(context.WithoutCancel(ctx)); err != nil {
		logger.Failure(ctx, applog.OpShutdown, applog.ErrorTypeDatabase, err)
		cmdErr = errors.Join(cmdErr, err)
	}
	done()
	if cmdErr != nil {
		fmt.Fprintln(errOut, warnStyle.Render(cmdErr.Error()))
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: ledger <command> [flags]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-11s %s\n", name, commands[name].summary)
	}
}
