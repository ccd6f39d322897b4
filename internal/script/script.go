// Package script runs a linear keystroke script against an interactive session.
//
// A script distinguishes three kinds of steps: Send writes bytes, Settle sleeps
// for a fixed period the program gives no signal for, and Await polls the
// normalized output for an observable state with a bounded, non-fatal timeout.
package script

import (
	"context"
	"time"

	"pkt.systems/ailimit/internal/logx"
	"pkt.systems/ailimit/internal/ptysession"
)

// Driver is the subset of a session a script needs.
type Driver interface {
	Send(text string) error
	WaitFor(ctx context.Context, m ptysession.Matcher, max time.Duration) bool
}

// Kind identifies a step type.
type Kind int

const (
	KindSend Kind = iota
	KindSettle
	KindAwait
)

func (k Kind) String() string {
	switch k {
	case KindSend:
		return "send"
	case KindSettle:
		return "settle"
	case KindAwait:
		return "await"
	default:
		return "unknown"
	}
}

// Step is one instruction of a script.
type Step struct {
	Name    string
	Kind    Kind
	Input   string
	Delay   time.Duration
	Until   ptysession.Matcher
	Timeout time.Duration
}

// Send writes input to the program.
func Send(name, input string) Step {
	return Step{Name: name, Kind: KindSend, Input: input}
}

// Settle sleeps for d.
func Settle(name string, d time.Duration) Step {
	return Step{Name: name, Kind: KindSettle, Delay: d}
}

// Await waits up to timeout for m to hold.
func Await(name string, m ptysession.Matcher, timeout time.Duration) Step {
	return Step{Name: name, Kind: KindAwait, Until: m, Timeout: timeout}
}

// Outcome records how an Await step ended.
type Outcome struct {
	Step    string
	Matched bool
	Elapsed time.Duration
}

// Result summarizes a run.
type Result struct {
	Awaits []Outcome
	// SendErrors counts writes that failed; the script keeps going regardless.
	SendErrors int
	// Aborted is set when ctx ended before the last step.
	Aborted bool
}

// Matched reports whether the named await step matched.
func (r Result) Matched(step string) bool {
	for _, o := range r.Awaits {
		if o.Step == step {
			return o.Matched
		}
	}
	return false
}

// Observer is notified after every Await step.
type Observer func(o Outcome)

// Run executes steps in order. No step can fail the run: send errors are
// logged and counted, await timeouts are recorded and the script proceeds.
// A done ctx stops the run early so the caller can tear the session down.
func Run(ctx context.Context, d Driver, steps []Step, observe Observer) Result {
	log := logx.Ctx(ctx)
	var res Result
	for i, step := range steps {
		if ctx.Err() != nil {
			res.Aborted = true
			log.Debug("script aborted", "step", step.Name, "index", i, "err", ctx.Err())
			return res
		}
		switch step.Kind {
		case KindSend:
			if err := d.Send(step.Input); err != nil {
				res.SendErrors++
				logx.WithStep(log, step.Name).Warn("script send failed", "err", err)
			}
		case KindSettle:
			if !sleep(ctx, step.Delay) {
				res.Aborted = true
				return res
			}
		case KindAwait:
			start := time.Now()
			ok := d.WaitFor(ctx, step.Until, step.Timeout)
			o := Outcome{Step: step.Name, Matched: ok, Elapsed: time.Since(start)}
			res.Awaits = append(res.Awaits, o)
			if !ok {
				logx.WithStep(log, step.Name).Debug("script await timed out, proceeding", "timeout", step.Timeout)
			}
			if observe != nil {
				observe(o)
			}
		}
	}
	return res
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
