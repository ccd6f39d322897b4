// Package ptysession drives an interactive program attached to a pseudo-terminal.
// A Session owns exactly one child process for its lifetime; output is
// accumulated in an append-only buffer and observed by polling predicates.
package ptysession

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"pkt.systems/ailimit/schema"
	"pkt.systems/pslog"
)

// Session is one live automated interaction with an interactive program.
type Session struct {
	cfg     Config
	cmd     *exec.Cmd
	ptmx    *os.File
	buf     Buffer
	log     pslog.Logger
	started time.Time

	alive    atomic.Bool
	closed   atomic.Bool
	exited   chan struct{}
	readDone chan struct{}
	waitErr  error

	closeOnce sync.Once
	stopCtx   func() bool
}

// Open spawns cfg.Command on a new pseudo-terminal with the configured geometry.
// A missing executable is reported as schema.ErrProviderUnavailable.
// Cancelling ctx tears the session down.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()
	if cfg.Command == "" {
		return nil, fmt.Errorf("ptysession: empty command")
	}
	log := pslog.Ctx(ctx)

	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Dir = cfg.Dir
	env := cfg.Env
	if env == nil {
		env = os.Environ()
	}
	cmd.Env = append(append([]string(nil), env...), "TERM="+cfg.Term)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: cfg.Rows, Cols: cfg.Cols})
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %v", schema.ErrProviderUnavailable, cfg.Command, err)
		}
		log.Warn("pty session start failed", "command", cfg.Command, "err", err)
		return nil, fmt.Errorf("start %s: %w", cfg.Command, err)
	}

	s := &Session{
		cfg:      cfg,
		cmd:      cmd,
		ptmx:     ptmx,
		log:      log,
		started:  time.Now(),
		exited:   make(chan struct{}),
		readDone: make(chan struct{}),
	}
	s.alive.Store(true)
	log.Debug("pty session started", "command", cfg.Command, "args", cfg.Args, "pid", cmd.Process.Pid, "cols", cfg.Cols, "rows", cfg.Rows)

	go s.readLoop()
	go s.reap()
	s.stopCtx = context.AfterFunc(ctx, func() { _ = s.Close() })
	return s, nil
}

func (s *Session) readLoop() {
	defer close(s.readDone)
	chunk := make([]byte, 4096)
	for {
		n, err := s.ptmx.Read(chunk)
		if n > 0 {
			_, _ = s.buf.Write(chunk[:n])
		}
		if err != nil {
			// EIO once the child side is gone, EOF or ErrClosed after Close.
			return
		}
	}
}

func (s *Session) reap() {
	s.waitErr = s.cmd.Wait()
	s.alive.Store(false)
	close(s.exited)
}

// Alive reports whether the child process is still running.
func (s *Session) Alive() bool {
	return s.alive.Load()
}

// Send writes raw bytes, control characters included, to the program's input.
// It does not wait for any acknowledgement.
func (s *Session) Send(text string) error {
	if s.closed.Load() {
		return schema.ErrSessionClosed
	}
	if _, err := s.ptmx.Write([]byte(text)); err != nil {
		return fmt.Errorf("pty write: %w", err)
	}
	s.log.Trace("pty session send", "bytes", len(text))
	return nil
}

// WaitFor evaluates m against the normalized output every poll interval until
// it holds or max elapses. The first evaluation happens one interval after the
// call so a half-rendered fragment is not mistaken for the final view. A
// timeout is a normal outcome reported as false. WaitFor also returns early
// once the program's output is fully drained, since nothing more can arrive.
func (s *Session) WaitFor(ctx context.Context, m Matcher, max time.Duration) bool {
	started := time.Now()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	timer := time.NewTimer(max)
	defer timer.Stop()

	var desc string
	check := func() bool {
		var ok bool
		ok, desc = m(s.buf.Text())
		return ok
	}
	result := func(ok bool, reason string) bool {
		s.log.Debug("pty session wait", "matched", ok, "reason", reason, "waiting_for", desc, "elapsed_ms", time.Since(started).Milliseconds())
		return ok
	}

	for {
		select {
		case <-ctx.Done():
			return result(false, "context done")
		case <-ticker.C:
			if check() {
				return result(true, "matched")
			}
		case <-s.readDone:
			return result(check(), "output drained")
		case <-timer.C:
			return result(check(), "timeout")
		}
	}
}

// Output returns the accumulated output with control sequences removed.
func (s *Session) Output() string {
	return s.buf.Text()
}

// Raw returns the accumulated output as received.
func (s *Session) Raw() string {
	return s.buf.Raw()
}

// Close terminates the program: SIGHUP to its process group, SIGKILL after the
// grace period, then the terminal is released. Close is idempotent and
// tolerates a process that already exited.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if s.stopCtx != nil {
			s.stopCtx()
		}
		pid := s.cmd.Process.Pid
		if s.Alive() {
			signalGroup(pid, unix.SIGHUP)
			select {
			case <-s.exited:
			case <-time.After(s.cfg.KillGrace):
				signalGroup(pid, unix.SIGKILL)
				<-s.exited
			}
		}
		_ = s.ptmx.Close()
		select {
		case <-s.readDone:
		case <-time.After(drainTimeout):
			s.log.Warn("pty session output not drained", "pid", pid)
		}
		fields := []any{"pid", pid, "duration_ms", time.Since(s.started).Milliseconds(), "output_bytes", s.buf.Len()}
		var exitErr *exec.ExitError
		if errors.As(s.waitErr, &exitErr) {
			fields = append(fields, "exit_code", exitErr.ExitCode())
		}
		s.log.Debug("pty session closed", fields...)
	})
	return nil
}

func signalGroup(pid int, sig unix.Signal) {
	// The child is a session leader (pty.Start sets Setsid), so its process
	// group id equals its pid.
	if err := unix.Kill(-pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		_ = unix.Kill(pid, sig)
	}
}

// Dump writes the raw and normalized output to dir as <name>-raw.txt and
// <name>-clean.txt.
func (s *Session) Dump(dir, name string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, name+"-raw.txt"), []byte(s.Raw()), 0o600); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name+"-clean.txt"), []byte(s.Output()), 0o600)
}
