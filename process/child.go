package process

import (
	"bytes"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Child is a live handle to a launched process. The caller owns it and must
// call Wait, WaitWithOutput or Kill followed by Wait to release the process.
type Child struct {
	// Stdin writes to the child's standard input when it was Piped.
	Stdin io.WriteCloser
	// Stdout reads the child's standard output when it was Piped. It must be
	// drained before Wait, which closes it.
	Stdout io.ReadCloser
	// Stderr reads the child's standard error when it was Piped. It must be
	// drained before Wait, which closes it.
	Stderr io.ReadCloser

	cmd     *exec.Cmd
	started time.Time
}

// ID returns the OS process id.
func (c *Child) ID() int {
	if c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

// Kill forces the child to exit. Killing a process that was already waited on
// returns os.ErrProcessDone.
func (c *Child) Kill() error {
	if c.cmd.Process == nil {
		return nil
	}
	return c.cmd.Process.Kill()
}

// Signal sends sig to the child. On Windows only os.Kill is supported.
func (c *Child) Signal(sig os.Signal) error {
	if c.cmd.Process == nil {
		return os.ErrProcessDone
	}
	return c.cmd.Process.Signal(sig)
}

// Wait closes the child's stdin, if piped, so it cannot block reading it, and
// waits for the process to exit. A non-zero exit is reported in the status,
// not as an error.
func (c *Child) Wait() (ExitStatus, error) {
	c.closeStdin()
	return c.wait()
}

// WaitWithOutput closes the child's stdin, if piped, reads its piped stdout
// and stderr until they close, and waits for the process to exit. Streams
// that were not piped come back empty.
func (c *Child) WaitWithOutput() (*Output, error) {
	c.closeStdin()

	var (
		wg                   sync.WaitGroup
		stdout, stderr       bytes.Buffer
		stdoutErr, stderrErr error
	)
	collect := func(r io.Reader, buf *bytes.Buffer, errp *error) {
		defer wg.Done()
		_, *errp = buf.ReadFrom(r)
	}
	if c.Stdout != nil {
		wg.Add(1)
		go collect(c.Stdout, &stdout, &stdoutErr)
	}
	if c.Stderr != nil {
		wg.Add(1)
		go collect(c.Stderr, &stderr, &stderrErr)
	}
	wg.Wait()

	status, err := c.wait()
	if err != nil {
		return nil, err
	}
	if err := errors.Join(stdoutErr, stderrErr); err != nil {
		return nil, err
	}
	return &Output{
		Status:   status,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(c.started),
	}, nil
}

// waitDiscarding drains piped output into io.Discard while waiting, so a
// chatty child cannot block on a full pipe nobody reads.
func (c *Child) waitDiscarding() (ExitStatus, error) {
	c.closeStdin()

	var wg sync.WaitGroup
	for _, r := range []io.Reader{c.Stdout, c.Stderr} {
		if r == nil {
			continue
		}
		wg.Add(1)
		go func(r io.Reader) {
			defer wg.Done()
			_, _ = io.Copy(io.Discard, r)
		}(r)
	}
	wg.Wait()
	return c.wait()
}

func (c *Child) wait() (ExitStatus, error) {
	err := c.cmd.Wait()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return ExitStatus{}, err
	}
	return exitStatus(c.cmd.ProcessState), nil
}

func (c *Child) closeStdin() {
	if c.Stdin != nil {
		_ = c.Stdin.Close()
		c.Stdin = nil
	}
}
