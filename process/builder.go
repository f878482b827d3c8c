package process

// The With* methods are the chainable forms of the in-place setters. Each one
// works on a clone of the receiver, so a base Command can be shared and
// extended without the variants seeing each other's changes:
//
//	base := process.New("git").WithCurrentDir(repo)
//	status := base.WithArgs("status", "--short")
//	log := base.WithArgs("log", "-1")

// WithArg returns a copy of c with arg appended.
func (c Command) WithArg(arg string) Command {
	c = c.Clone()
	c.AddArg(arg)
	return c
}

// WithArgs returns a copy of c with args appended in order.
func (c Command) WithArgs(args ...string) Command {
	c = c.Clone()
	c.AddArgs(args...)
	return c
}

// WithEnv returns a copy of c with key set to val.
func (c Command) WithEnv(key, val string) Command {
	c = c.Clone()
	c.SetEnv(key, val)
	return c
}

// WithEnvs returns a copy of c with every entry of vars set.
func (c Command) WithEnvs(vars map[string]string) Command {
	c = c.Clone()
	c.SetEnvs(vars)
	return c
}

// WithoutEnv returns a copy of c that keeps key out of the inherited
// environment.
func (c Command) WithoutEnv(key string) Command {
	c = c.Clone()
	c.RemoveEnv(key)
	return c
}

// WithClearedEnv returns a copy of c with no explicit variables and no
// inheritance.
func (c Command) WithClearedEnv() Command {
	c = c.Clone()
	c.ClearEnv()
	return c
}

// WithoutInherit returns a copy of c that does not inherit the parent's
// environment but keeps its explicit variables.
func (c Command) WithoutInherit() Command {
	c = c.Clone()
	c.DisableInherit()
	return c
}

// WithCurrentDir returns a copy of c that runs in dir.
func (c Command) WithCurrentDir(dir string) Command {
	c = c.Clone()
	c.SetCurrentDir(dir)
	return c
}

// WithStdin returns a copy of c with the given stdin disposition.
func (c Command) WithStdin(s Stdio) Command {
	c = c.Clone()
	c.SetStdin(s)
	return c
}

// WithStdout returns a copy of c with the given stdout disposition.
func (c Command) WithStdout(s Stdio) Command {
	c = c.Clone()
	c.SetStdout(s)
	return c
}

// WithStderr returns a copy of c with the given stderr disposition.
func (c Command) WithStderr(s Stdio) Command {
	c = c.Clone()
	c.SetStderr(s)
	return c
}
