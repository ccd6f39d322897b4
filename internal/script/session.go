package script

import (
	"context"

	"pkt.systems/ailimit/internal/logx"
	"pkt.systems/ailimit/internal/metrics"
	"pkt.systems/ailimit/internal/ptysession"
)

// Capture is what a scripted session left behind.
type Capture struct {
	// Text is the normalized output captured until teardown.
	Text   string
	Result Result
}

// SessionOptions labels a scripted session for metrics and debug dumps.
type SessionOptions struct {
	Provider string
	// DumpDir receives <Provider>-raw.txt and <Provider>-clean.txt when set.
	DumpDir string
}

// RunSession opens a pseudo-terminal session, runs steps against it and
// always tears the session down before returning. Only a failure to start
// the program is returned as an error.
func RunSession(ctx context.Context, cfg ptysession.Config, steps []Step, opts SessionOptions) (Capture, error) {
	log := logx.Ctx(ctx)
	s, err := ptysession.Open(ctx, cfg)
	if err != nil {
		return Capture{}, err
	}
	res := Run(ctx, s, steps, func(o Outcome) {
		metrics.ObserveWait(opts.Provider, o.Step, o.Matched)
	})
	_ = s.Close()

	if err := s.Dump(opts.DumpDir, opts.Provider); err != nil {
		log.Warn("session dump failed", "dir", opts.DumpDir, "err", err)
	}
	return Capture{Text: s.Output(), Result: res}, nil
}
