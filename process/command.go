package process

import (
	"encoding/binary"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Command describes a process invocation as plain data. Unlike exec.Cmd it
// can be copied, compared, hashed and serialized, and it holds no OS
// resources. A Command is turned into a running process by Start, Output or
// Status.
type Command struct {
	// Name is the program to execute. Names without a path separator are
	// looked up on the child's PATH, or on the parent's when the child's
	// environment has no PATH.
	Name string `json:"name" yaml:"name"`
	// Arguments are passed to the program in order. Duplicates are kept.
	Arguments []string `json:"arguments" yaml:"arguments"`
	// InheritEnvironment controls whether the child starts from the parent's
	// environment (true) or from an empty one (false).
	InheritEnvironment bool `json:"inherit_environment" yaml:"inherit_environment"`
	// Environment holds explicit variables for the child. A nil value removes
	// the variable from the inherited environment; it has no effect when
	// InheritEnvironment is false.
	Environment map[string]*string `json:"environment" yaml:"environment"`
	// CurrentDir is the child's working directory. Empty keeps the parent's.
	CurrentDir string `json:"current_dir,omitempty" yaml:"current_dir,omitempty"`
	// Stdin, Stdout and Stderr override the stream dispositions. Nil leaves
	// the choice to the entry point used to run the command.
	Stdin  *Stdio `json:"stdin,omitempty" yaml:"stdin,omitempty"`
	Stdout *Stdio `json:"stdout,omitempty" yaml:"stdout,omitempty"`
	Stderr *Stdio `json:"stderr,omitempty" yaml:"stderr,omitempty"`
}

// New returns a Command for the named program that inherits the parent's
// environment and has no arguments or overrides.
func New(name string) Command {
	return Command{
		Name:               name,
		Arguments:          []string{},
		InheritEnvironment: true,
		Environment:        map[string]*string{},
	}
}

// AddArg appends one argument.
func (c *Command) AddArg(arg string) {
	c.Arguments = append(c.Arguments, arg)
}

// AddArgs appends arguments in order.
func (c *Command) AddArgs(args ...string) {
	c.Arguments = append(c.Arguments, args...)
}

// SetEnv sets key to val in the child's environment, replacing any earlier
// entry for key, including a removal.
func (c *Command) SetEnv(key, val string) {
	if c.Environment == nil {
		c.Environment = make(map[string]*string)
	}
	c.Environment[key] = &val
}

// SetEnvs sets every entry of vars.
func (c *Command) SetEnvs(vars map[string]string) {
	for k, v := range vars {
		c.SetEnv(k, v)
	}
}

// RemoveEnv keeps key out of the child's environment even when it would be
// inherited from the parent.
func (c *Command) RemoveEnv(key string) {
	if c.Environment == nil {
		c.Environment = make(map[string]*string)
	}
	c.Environment[key] = nil
}

// ClearEnv drops every explicit entry and stops inheriting the parent's
// environment. Variables set afterwards are the child's whole environment.
func (c *Command) ClearEnv() {
	c.Environment = make(map[string]*string)
	c.InheritEnvironment = false
}

// DisableInherit stops inheriting the parent's environment but keeps the
// explicit entries, which are then applied on top of an empty environment.
func (c *Command) DisableInherit() {
	c.InheritEnvironment = false
}

// SetCurrentDir sets the child's working directory.
func (c *Command) SetCurrentDir(dir string) {
	c.CurrentDir = dir
}

// SetStdin sets the disposition of the child's standard input.
func (c *Command) SetStdin(s Stdio) {
	c.Stdin = &s
}

// SetStdout sets the disposition of the child's standard output.
func (c *Command) SetStdout(s Stdio) {
	c.Stdout = &s
}

// SetStderr sets the disposition of the child's standard error.
func (c *Command) SetStderr(s Stdio) {
	c.Stderr = &s
}

// Clone returns a deep copy of c. Mutating the copy never affects c.
func (c Command) Clone() Command {
	out := c
	if c.Arguments != nil {
		out.Arguments = slices.Clone(c.Arguments)
	}
	if c.Environment != nil {
		out.Environment = make(map[string]*string, len(c.Environment))
		for k, v := range c.Environment {
			if v != nil {
				val := *v
				v = &val
			}
			out.Environment[k] = v
		}
	}
	out.Stdin = cloneStdio(c.Stdin)
	out.Stdout = cloneStdio(c.Stdout)
	out.Stderr = cloneStdio(c.Stderr)
	return out
}

// Equal reports whether c and other describe the same invocation. Nil and
// empty collections compare equal.
func (c Command) Equal(other Command) bool {
	if c.Name != other.Name ||
		c.InheritEnvironment != other.InheritEnvironment ||
		c.CurrentDir != other.CurrentDir {
		return false
	}
	if !slices.Equal(c.Arguments, other.Arguments) {
		return false
	}
	if !stdioEqual(c.Stdin, other.Stdin) ||
		!stdioEqual(c.Stdout, other.Stdout) ||
		!stdioEqual(c.Stderr, other.Stderr) {
		return false
	}
	return maps.EqualFunc(c.Environment, other.Environment, func(a, b *string) bool {
		if a == nil || b == nil {
			return a == b
		}
		return *a == *b
	})
}

// Hash returns a 64-bit hash of c. Commands that are Equal hash equally, so
// the result can key caches of invocations.
func (c Command) Hash() uint64 {
	d := xxhash.New()
	var buf [8]byte
	writeString := func(s string) {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
		_, _ = d.Write(buf[:])
		_, _ = d.WriteString(s)
	}
	writeByte := func(b byte) {
		_, _ = d.Write([]byte{b})
	}

	writeString(c.Name)
	binary.LittleEndian.PutUint64(buf[:], uint64(len(c.Arguments)))
	_, _ = d.Write(buf[:])
	for _, arg := range c.Arguments {
		writeString(arg)
	}
	if c.InheritEnvironment {
		writeByte(1)
	} else {
		writeByte(0)
	}
	keys := slices.Sorted(maps.Keys(c.Environment))
	binary.LittleEndian.PutUint64(buf[:], uint64(len(keys)))
	_, _ = d.Write(buf[:])
	for _, k := range keys {
		writeString(k)
		if v := c.Environment[k]; v != nil {
			writeByte(1)
			writeString(*v)
		} else {
			writeByte(0)
		}
	}
	writeString(c.CurrentDir)
	for _, s := range []*Stdio{c.Stdin, c.Stdout, c.Stderr} {
		if s == nil {
			writeByte(0)
		} else {
			writeByte(byte(*s))
		}
	}
	return d.Sum64()
}

// String renders the program and its arguments the way a shell would accept
// them. It is meant for logs, not for execution.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Arguments)+1)
	parts = append(parts, quote(c.Name))
	for _, arg := range c.Arguments {
		parts = append(parts, quote(arg))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"'\\$`") {
		return strconv.Quote(s)
	}
	return s
}

func cloneStdio(s *Stdio) *Stdio {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func stdioEqual(a, b *Stdio) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
