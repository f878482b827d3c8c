package process

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// boundChild is a process launched under a context. When the context ends
// exec.Cmd sends SIGTERM, and once the grace period has passed it kills the
// process and closes the output pipes, so an orphaned grandchild holding
// them cannot keep Wait from returning.
type boundChild struct {
	cmd            *exec.Cmd
	stdout, stderr *bytes.Buffer
	started        time.Time
}

// startBound launches l bound to ctx. Piped output is captured when capture
// is set and discarded otherwise; piped stdin reads EOF at once.
func (l *LaunchConfig) startBound(ctx context.Context, def streamDefaults, grace time.Duration, capture bool) (*boundChild, error) {
	cmd := l.prepare(exec.CommandContext(ctx, l.name, l.args...)) //nolint:gosec // launching arbitrary programs is the purpose of this package
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = grace

	b := &boundChild{cmd: cmd}
	switch pick(l.stdin, def.stdin) {
	case Inherit:
		cmd.Stdin = os.Stdin
	case Piped:
		cmd.Stdin = strings.NewReader("")
	}
	cmd.Stdout, b.stdout = route(pick(l.stdout, def.stdout), os.Stdout, capture)
	cmd.Stderr, b.stderr = route(pick(l.stderr, def.stderr), os.Stderr, capture)

	b.started = time.Now()
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return b, nil
}

// route returns the writer for one output stream and the buffer that
// captures it, if any. Null is the nil writer, which exec.Cmd connects to
// the null device.
func route(s Stdio, parent *os.File, capture bool) (io.Writer, *bytes.Buffer) {
	switch s {
	case Inherit:
		return parent, nil
	case Piped:
		if !capture {
			return io.Discard, nil
		}
		buf := new(bytes.Buffer)
		return buf, buf
	}
	return nil, nil
}

// ID returns the OS process id.
func (b *boundChild) ID() int {
	return b.cmd.Process.Pid
}

// wait waits for the process and its output. A non-zero exit is reported in
// the status. Output that was still held open by a descendant when the
// grace period ran out is returned as far as it was read.
func (b *boundChild) wait() (*Output, error) {
	err := b.cmd.Wait()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) && !errors.Is(err, exec.ErrWaitDelay) {
		return nil, err
	}
	out := &Output{
		Status:   exitStatus(b.cmd.ProcessState),
		Duration: time.Since(b.started),
	}
	if b.stdout != nil {
		out.Stdout = b.stdout.Bytes()
	}
	if b.stderr != nil {
		out.Stderr = b.stderr.Bytes()
	}
	return out, nil
}
