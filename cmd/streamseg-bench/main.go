// Command streamseg-bench scores streaming segmentation against reference
// transcripts and sweeps lookahead values for the best accuracy/latency
// trade-off.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/go-streamseg/internal/bench"
)

// Set via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	bestStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

type benchOptions struct {
	corpusDir string
	pattern   string
	cfg       bench.Config
	sweep     bool
	sweepMin  int
	sweepMax  int
	sweepStep int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, newRootCmd(),
		fang.WithVersion(version+" ("+date+")"),
		fang.WithCommit(commit),
	); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := benchOptions{cfg: bench.DefaultConfig()}

	cmd := &cobra.Command{
		Use:           "streamseg-bench",
		Short:         "Benchmark streaming sentence segmentation",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.corpusDir, "corpus", "testdata/ted", "directory containing transcript files")
	f.StringVar(&opts.pattern, "pattern", bench.DefaultPattern, "glob selecting transcript files")
	f.IntVar(&opts.cfg.Lookahead, "lookahead", opts.cfg.Lookahead, "lookahead in characters")
	f.IntVar(&opts.cfg.MaxBuffer, "max-buffer", opts.cfg.MaxBuffer, "maximum buffered characters")
	f.IntVar(&opts.cfg.ChunkSize, "chunk-size", opts.cfg.ChunkSize, "bytes fed per read")
	f.StringVarP(&opts.cfg.Language, "language", "l", opts.cfg.Language, "language code")
	f.IntVar(&opts.cfg.Tolerance, "tolerance", opts.cfg.Tolerance, "byte tolerance for boundary matching")
	f.Float64Var(&opts.cfg.PrecisionWeight, "wp", opts.cfg.PrecisionWeight, "precision weight")
	f.Float64Var(&opts.cfg.RecallWeight, "wr", opts.cfg.RecallWeight, "recall weight")
	f.IntVar(&opts.cfg.Workers, "workers", 0, "concurrent sweep evaluations (0 for all CPUs)")
	f.BoolVar(&opts.sweep, "sweep", false, "run a lookahead sweep")
	f.IntVar(&opts.sweepMin, "sweep-min", 0, "sweep minimum lookahead")
	f.IntVar(&opts.sweepMax, "sweep-max", 40, "sweep maximum lookahead")
	f.IntVar(&opts.sweepStep, "sweep-step", 5, "sweep step")

	return cmd
}

func run(ctx context.Context, w io.Writer, opts benchOptions) error {
	talks, err := bench.LoadCorpus(opts.corpusDir, opts.pattern)
	if err != nil {
		return fmt.Errorf("loading corpus: %w", err)
	}
	if len(talks) == 0 {
		return fmt.Errorf("no transcripts matching %q in %s", opts.pattern, opts.corpusDir)
	}
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("Loaded %d talks from %s", len(talks), opts.corpusDir)))
	fmt.Fprintln(w)

	if opts.sweep {
		return runSweep(ctx, w, talks, opts)
	}
	return runSingle(ctx, w, talks, opts.cfg)
}

func runSingle(ctx context.Context, w io.Writer, talks []*bench.Talk, cfg bench.Config) error {
	m, err := bench.EvaluateCorpus(ctx, talks, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Lookahead %d, chunk %d bytes", cfg.Lookahead, cfg.ChunkSize)))
	fmt.Fprintf(w, "Precision: %.2f  Recall: %.2f  F1: %.2f  Weighted: %.2f\n",
		m.Precision, m.Recall, m.F1, m.WeightedScore)
	fmt.Fprintf(w, "Mean delay: %.1f characters over %d sentences\n", m.MeanDelay, m.Emitted)
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("(TP: %d, FP: %d, FN: %d)",
		m.TruePositives, m.FalsePositives, m.FalseNegatives)))
	return nil
}

func runSweep(ctx context.Context, w io.Writer, talks []*bench.Talk, opts benchOptions) error {
	lookaheads := bench.SweepLookaheads(opts.sweepMin, opts.sweepMax, opts.sweepStep)
	if len(lookaheads) == 0 {
		return fmt.Errorf("empty sweep range %d..%d step %d", opts.sweepMin, opts.sweepMax, opts.sweepStep)
	}

	results, err := bench.Sweep(ctx, talks, opts.cfg, lookaheads)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	cfg := opts.cfg
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Lookahead Sweep (wp=%.1f, wr=%.1f, chunk=%d)",
		cfg.PrecisionWeight, cfg.RecallWeight, cfg.ChunkSize)))
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-10s %-8s %-8s %-8s %-9s %-8s",
		"Lookahead", "Prec", "Rec", "F1", "Weighted", "Delay")))

	// Print in sweep order for readability.
	byLookahead := make(map[int]bench.Metrics, len(results))
	for _, r := range results {
		byLookahead[r.Lookahead] = r.Metrics
	}
	for _, n := range lookaheads {
		m := byLookahead[n]
		fmt.Fprintf(w, "%-10d %-8.2f %-8.2f %-8.2f %-9.2f %-8.1f\n",
			n, m.Precision, m.Recall, m.F1, m.WeightedScore, m.MeanDelay)
	}

	best := results[0]
	fmt.Fprintln(w)
	fmt.Fprintln(w, bestStyle.Render(fmt.Sprintf("Optimal: %d (Weighted: %.2f, Delay: %.1f)",
		best.Lookahead, best.Metrics.WeightedScore, best.Metrics.MeanDelay)))
	return nil
}
