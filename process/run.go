package process

import (
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// streamDefaults are the dispositions an entry point uses for streams the
// Command leaves unset.
type streamDefaults struct {
	stdin, stdout, stderr Stdio
}

var (
	startDefaults  = streamDefaults{stdin: Inherit, stdout: Inherit, stderr: Inherit}
	outputDefaults = streamDefaults{stdin: Null, stdout: Piped, stderr: Piped}
	statusDefaults = startDefaults
)

// Start launches the command and returns without waiting. Unset streams are
// inherited from the parent. Errors from the OS are returned unchanged.
func (c Command) Start() (*Child, error) {
	return c.LaunchConfig().spawn(startDefaults)
}

// Output launches the command, waits for it and returns what it wrote.
// Unset stdout and stderr are piped and captured; unset stdin is the null
// device so the child cannot wait on terminal input.
func (c Command) Output() (*Output, error) {
	return c.LaunchConfig().Output()
}

// Status launches the command, waits for it and returns its exit status.
// Unset streams are inherited from the parent.
func (c Command) Status() (ExitStatus, error) {
	return c.LaunchConfig().Status()
}

// Start launches the configured process. See Command.Start.
func (l *LaunchConfig) Start() (*Child, error) {
	return l.spawn(startDefaults)
}

// Output launches the configured process and captures its output. See
// Command.Output.
func (l *LaunchConfig) Output() (*Output, error) {
	child, err := l.spawn(outputDefaults)
	if err != nil {
		return nil, err
	}
	return child.WaitWithOutput()
}

// Status launches the configured process and waits for it. See
// Command.Status.
func (l *LaunchConfig) Status() (ExitStatus, error) {
	child, err := l.spawn(statusDefaults)
	if err != nil {
		return ExitStatus{}, err
	}
	return child.waitDiscarding()
}

func (l *LaunchConfig) cmd() *exec.Cmd {
	return l.prepare(exec.Command(l.name, l.args...)) //nolint:gosec // launching arbitrary programs is the purpose of this package
}

func (l *LaunchConfig) prepare(cmd *exec.Cmd) *exec.Cmd {
	env := l.Environ()
	cmd.Env = env
	cmd.Dir = l.dir
	resolveProgram(cmd, l.name, env)
	return cmd
}

// resolveProgram searches the child's PATH for a bare program name when the
// child's environment sets PATH to something other than the parent's.
// exec.Command has already searched the parent's PATH, which stands when the
// child's environment has no PATH at all.
func resolveProgram(cmd *exec.Cmd, name string, env []string) {
	if env == nil || filepath.Base(name) != name {
		return
	}
	path, ok := lookupEnv(env, "PATH")
	if !ok || path == os.Getenv("PATH") {
		return
	}
	for _, dir := range filepath.SplitList(path) {
		// Relative entries would resolve against the parent's directory.
		if !filepath.IsAbs(dir) {
			continue
		}
		if lp, err := exec.LookPath(filepath.Join(dir, name)); err == nil {
			cmd.Path = lp
			cmd.Err = nil
			return
		}
	}
	cmd.Path = name
	cmd.Err = &exec.Error{Name: name, Err: exec.ErrNotFound}
}

func (l *LaunchConfig) spawn(def streamDefaults) (*Child, error) {
	cmd := l.cmd()
	child := &Child{cmd: cmd}

	switch pick(l.stdin, def.stdin) {
	case Inherit:
		cmd.Stdin = os.Stdin
	case Piped:
		w, err := cmd.StdinPipe()
		if err != nil {
			return nil, abandon(cmd, err)
		}
		child.Stdin = w
	}
	switch pick(l.stdout, def.stdout) {
	case Inherit:
		cmd.Stdout = os.Stdout
	case Piped:
		r, err := cmd.StdoutPipe()
		if err != nil {
			return nil, abandon(cmd, err)
		}
		child.Stdout = r
	}
	switch pick(l.stderr, def.stderr) {
	case Inherit:
		cmd.Stderr = os.Stderr
	case Piped:
		r, err := cmd.StderrPipe()
		if err != nil {
			return nil, abandon(cmd, err)
		}
		child.Stderr = r
	}

	child.started = time.Now()
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return child, nil
}

// abandon releases every pipe cmd has created and returns err. A Start that
// fails closes both ends of each pipe; setting Err makes it fail before
// anything is launched.
func abandon(cmd *exec.Cmd, err error) error {
	cmd.Err = err
	_ = cmd.Start()
	return err
}

// pick returns the override when set and the entry point default otherwise.
// Null is left as the zero stream on exec.Cmd, which is the null device.
func pick(override *Stdio, def Stdio) Stdio {
	if override != nil {
		return *override
	}
	return def
}
