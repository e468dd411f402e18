package main

import (
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/YosysHQ/nextpnr-sub004/pnrerror"
)

// cliFlags is the CLI surface. Architecture backends add their own
// flags (device/package/chipdb path); none are added here since no
// family backend is linked into this binary.
type cliFlags struct {
	verbose       bool
	quiet         bool
	debug         bool
	logFile       string
	seed          int64
	randomizeSeed bool
	ignoreLoops   bool
	cstrWeight    float64
	slackRedist   int
	freqMHz       float64
	noTmDriv      bool
	packOnly      bool
	force         bool
	save          string
	load          string
	test          bool
}

func newRootCmd() *cobra.Command {
	var f cliFlags

	cmd := &cobra.Command{
		Use:     "pnr",
		Short:   "Negotiated-congestion place-and-route engine",
		Version: "0.1.0",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, &f)
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.BoolVar(&f.verbose, "verbose", false, "enable verbose logging")
	flags.BoolVar(&f.quiet, "quiet", false, "suppress all but warning/error logging")
	flags.BoolVar(&f.debug, "debug", false, "enable debug-level logging")
	flags.StringVar(&f.logFile, "log", "", "write log output to this file instead of stderr")
	flags.Int64Var(&f.seed, "seed", 1, "deterministic RNG seed")
	flags.BoolVar(&f.randomizeSeed, "randomize-seed", false, "pick a random seed and report it, instead of --seed")
	flags.BoolVar(&f.ignoreLoops, "ignore-loops", false, "force combinational loops instead of failing timing analysis")
	flags.Float64Var(&f.cstrWeight, "cstrweight", 10, "placer1 region-constraint weight")
	flags.IntVar(&f.slackRedist, "slack-redist-iter", 0, "stored as the slack_redist_iter setting; budgets are reassigned after every timing pass whatever N is")
	flags.Float64Var(&f.freqMHz, "freq", 0, "target clock frequency in MHz (0 = unconstrained)")
	flags.BoolVar(&f.noTmDriv, "no-tmdriv", false, "disable timing-driven placement and routing")
	flags.BoolVar(&f.packOnly, "pack-only", false, "stop after packing, before placement")
	flags.BoolVar(&f.force, "force", false, "downgrade an ExecutionError to a warning; the pipeline still stops at the failing stage")
	flags.StringVar(&f.save, "save", "", "save the resulting project to this file")
	flags.StringVar(&f.load, "load", "", "load a project file to place/route")
	flags.BoolVar(&f.test, "test", false, "run archcheck() against a synthetic device and exit")

	return cmd
}

// runRoot is the top-level command handler: it
// runs the pipeline, prints a warnings/errors summary, and sets
// exitCode for main to hand to atexit.Exit.
func runRoot(cmd *cobra.Command, f *cliFlags) error {
	logger, closeLog, err := setupLogging(f)
	if err != nil {
		exitCode = -1
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	seed := f.seed
	if f.randomizeSeed {
		seed = randomSeed()
		logger.Info("randomized seed", "seed", seed)
	}

	if f.test {
		return runArchCheck(cmd.OutOrStdout(), seed)
	}

	errs := &pnrerror.Counter{}
	pipelineErr := runPipeline(cmd.OutOrStdout(), f, seed, errs)

	fmt.Fprintln(cmd.OutOrStdout(), errs.Summary())

	switch e := pipelineErr.(type) {
	case nil:
		exitCode = errs.ExitCode()
		return nil
	case *pnrerror.CommandError:
		exitCode = -1
		return e
	case *pnrerror.InternalInconsistency:
		logger.Error("internal inconsistency", "error", e.Error(), "checksum", e.Checksum)
		exitCode = -1
		return e
	case *pnrerror.ExecutionError:
		if f.force {
			errs.Warn()
			logger.Warn("execution error downgraded by --force", "error", e.Error())
			exitCode = errs.ExitCode()
			return nil
		}
		errs.Error()
		exitCode = -1
		return e
	default:
		exitCode = -1
		return pipelineErr
	}
}

func setupLogging(f *cliFlags) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	switch {
	case f.debug:
		level = slog.LevelDebug
	case f.verbose:
		level = slog.LevelInfo
	case f.quiet:
		level = slog.LevelWarn
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if f.logFile != "" {
		file, err := os.OpenFile(f.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, pnrerror.NewCommandError("open log file %s: %v", f.logFile, err)
		}
		w = file
		atexit.Register(func() { file.Close() })
		closeFn = func() { file.Close() }
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler), closeFn, nil
}

func randomSeed() int64 {
	b := make([]byte, 8)
	var s int64 = 1
	if _, err := rand.Read(b); err == nil {
		s = 0
		for _, c := range b {
			s = s<<8 | int64(c)
		}
		if s < 0 {
			s = -s
		}
		if s == 0 {
			s = 1
		}
	}
	return s
}
