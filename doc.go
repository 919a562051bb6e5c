// Package streamseg splits an unbounded text stream into sentences with
// bounded memory and bounded latency.
//
// # Quick Start
//
//	for sentence, err := range streamseg.Sentences(ctx, os.Stdin) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(sentence)
//	}
//
// # Incremental Use
//
// A Segmenter accepts text in arbitrary chunks:
//
//	seg, err := streamseg.New(streamseg.WithLookahead(10), streamseg.WithLanguage("en"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sentences, err := seg.Feed("Hello Mr. Smith. How are")
//	// ...
//	last, ok := seg.Flush()
//
// A boundary is only emitted once at least Lookahead characters follow it,
// unless the language rules mark it as certain. More context can reveal
// that a period belongs to an abbreviation, so a higher lookahead trades
// latency for accuracy. Flush emits the remainder at end of input.
//
// # Languages
//
// Boundary rules come from a rules.Provider, rules.Builtin() by default.
// Custom languages can be loaded from YAML with rules.LoadFile and
// rules.NewRegistry, and passed with WithProvider.
//
// # Thread Safety
//
// A Segmenter and a Stream each belong to a single goroutine. Rule sets are
// immutable and shared freely.
package streamseg
