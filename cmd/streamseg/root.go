package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/muesli/cancelreader"
	"github.com/spf13/cobra"

	streamseg "github.com/jamesainslie/go-streamseg"
	"github.com/jamesainslie/go-streamseg/internal/sink"
	"github.com/jamesainslie/go-streamseg/rules"
)

type cliOptions struct {
	lookahead     int
	maxBuffer     int
	language      string
	inputFile     string
	outputFile    string
	format        string
	rulesFile     string
	chunkSize     int
	carryRunes    bool
	logLevel      string
	listLanguages bool
}

func newRootCmd() *cobra.Command {
	opts := cliOptions{}

	cmd := &cobra.Command{
		Use:   "streamseg",
		Short: "Split streaming text into sentences",
		Long: `streamseg reads text incrementally and writes each sentence as soon as
its boundary is confirmed by enough following characters.`,
		Example: `  tail -f transcript.txt | streamseg
  streamseg -l de -i talk.txt --format jsonl
  streamseg --rules legal.yaml -l en-legal -i contract.txt`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd, opts)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.lookahead, "lookahead", streamseg.DefaultLookahead, "characters required after a boundary before a sentence is emitted")
	f.IntVar(&opts.maxBuffer, "max-buffer", streamseg.DefaultMaxBuffer, "maximum buffered characters")
	f.StringVarP(&opts.language, "language", "l", streamseg.DefaultLanguage, "language code")
	f.StringVarP(&opts.inputFile, "input-file", "i", "", "input file (default stdin)")
	f.StringVarP(&opts.outputFile, "output-file", "o", "", "output file (default stdout)")
	f.StringVar(&opts.format, "format", string(sink.FormatText), "output format: text, jsonl or proto")
	f.StringVar(&opts.rulesFile, "rules", "", "YAML file with additional language rules")
	f.IntVar(&opts.chunkSize, "chunk-size", streamseg.DefaultChunkSize, "bytes read at a time")
	f.BoolVar(&opts.carryRunes, "carry-runes", true, "hold back characters split across reads")
	f.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	f.BoolVar(&opts.listLanguages, "list-languages", false, "list supported languages and exit")

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, opts cliOptions) (err error) {
	logger, err := newLogger(cmd.ErrOrStderr(), opts.logLevel)
	if err != nil {
		return err
	}

	reg := rules.Builtin()
	if opts.rulesFile != "" {
		defs, err := rules.LoadFile(opts.rulesFile)
		if err != nil {
			return err
		}
		if reg, err = rules.NewRegistry(defs...); err != nil {
			return err
		}
		logger.Debug("loaded rules", "file", opts.rulesFile, "languages", len(defs))
	}

	if opts.listLanguages {
		for _, code := range reg.Languages() {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), code); err != nil {
				return err
			}
		}
		return nil
	}

	format, err := sink.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	seg, err := streamseg.New(
		streamseg.WithOptions(streamseg.Options{
			Lookahead: opts.lookahead,
			MaxBuffer: opts.maxBuffer,
			Language:  opts.language,
		}),
		streamseg.WithProvider(reg),
		streamseg.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	in, closeIn, err := openInput(ctx, cmd.InOrStdin(), opts.inputFile)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closeIn()) }()

	out, closeOut, err := openOutput(cmd.OutOrStdout(), opts.outputFile)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closeOut()) }()

	enc, err := sink.New(out, format)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, enc.Close()) }()

	var count int
	for sentence, err := range streamseg.NewStream(in, seg,
		streamseg.WithChunkSize(opts.chunkSize),
		streamseg.WithRuneCarry(opts.carryRunes),
	).All(ctx) {
		if err != nil {
			if errors.Is(err, cancelreader.ErrCanceled) && ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if err := enc.Encode(sentence); err != nil {
			return err
		}
		count++
	}
	logger.Debug("input exhausted", "sentences", count)
	return nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// openInput returns the input named by path, or stdin. Reads from a terminal
// or pipe are cancelled when ctx is done.
func openInput(ctx context.Context, stdin io.Reader, path string) (io.Reader, func() error, error) {
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening input: %w", err)
		}
		return f, f.Close, nil
	}

	if _, ok := stdin.(*os.File); !ok {
		return stdin, func() error { return nil }, nil
	}

	cr, err := cancelreader.NewReader(stdin)
	if err != nil {
		return nil, nil, fmt.Errorf("wrapping stdin: %w", err)
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			cr.Cancel()
		case <-done:
		}
	}()
	return cr, func() error {
		close(done)
		return cr.Close()
	}, nil
}

func openOutput(stdout io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output: %w", err)
	}
	return f, f.Close, nil
}
