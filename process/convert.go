package process

import (
	"maps"
	"os"
	"runtime"
	"slices"
	"strings"
)

// Configurer receives the calls that set up a native process launch. It is
// the surface Configure drives; LaunchConfig implements it, and tests can
// record the calls with their own implementation.
type Configurer interface {
	// EnvClear drops the whole inherited environment.
	EnvClear()
	// EnvRemove drops one inherited variable.
	EnvRemove(key string)
	// Env sets one variable, overriding any inherited value.
	Env(key, val string)
	// Args appends arguments.
	Args(args ...string)
	// Dir sets the working directory.
	Dir(dir string)
	Stdin(s Stdio)
	Stdout(s Stdio)
	Stderr(s Stdio)
}

// Configure replays c onto cfg. Environment entries are applied in key order
// so the sequence of calls is deterministic. Configure performs no I/O.
func (c Command) Configure(cfg Configurer) {
	keys := slices.Sorted(maps.Keys(c.Environment))
	if c.InheritEnvironment {
		for _, k := range keys {
			if c.Environment[k] == nil {
				cfg.EnvRemove(k)
			}
		}
	} else {
		cfg.EnvClear()
	}
	for _, k := range keys {
		if v := c.Environment[k]; v != nil {
			cfg.Env(k, *v)
		}
	}

	if len(c.Arguments) > 0 {
		cfg.Args(c.Arguments...)
	}
	if c.CurrentDir != "" {
		cfg.Dir(c.CurrentDir)
	}
	if c.Stdin != nil {
		cfg.Stdin(*c.Stdin)
	}
	if c.Stdout != nil {
		cfg.Stdout(*c.Stdout)
	}
	if c.Stderr != nil {
		cfg.Stderr(*c.Stderr)
	}
}

// EnvironFunc returns the parent environment as "key=value" pairs.
type EnvironFunc func() []string

// LaunchOption configures a LaunchConfig.
type LaunchOption func(*LaunchConfig)

// WithEnviron replaces the source of the parent environment, which defaults
// to os.Environ.
func WithEnviron(fn EnvironFunc) LaunchOption {
	return func(l *LaunchConfig) { l.environ = fn }
}

// LaunchConfig is the native configuration of a single launch: the state a
// process launcher holds after the Configurer calls for a Command. Unset
// streams are resolved by the entry point that launches it.
type LaunchConfig struct {
	name     string
	args     []string
	envClear bool
	// vars maps a key to its value, or to nil when it is removed.
	vars    map[string]*string
	dir     string
	stdin   *Stdio
	stdout  *Stdio
	stderr  *Stdio
	environ EnvironFunc
}

var _ Configurer = (*LaunchConfig)(nil)

// NewLaunchConfig returns a fresh configuration for the named program.
func NewLaunchConfig(name string, opts ...LaunchOption) *LaunchConfig {
	l := &LaunchConfig{
		name:    name,
		vars:    make(map[string]*string),
		environ: os.Environ,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LaunchConfig converts c into a native launch configuration.
func (c Command) LaunchConfig(opts ...LaunchOption) *LaunchConfig {
	l := NewLaunchConfig(c.Name, opts...)
	c.Configure(l)
	return l
}

func (l *LaunchConfig) EnvClear() {
	l.envClear = true
	clear(l.vars)
}

func (l *LaunchConfig) EnvRemove(key string) {
	l.vars[key] = nil
}

func (l *LaunchConfig) Env(key, val string) {
	l.vars[key] = &val
}

func (l *LaunchConfig) Args(args ...string) {
	l.args = append(l.args, args...)
}

func (l *LaunchConfig) Dir(dir string) {
	l.dir = dir
}

func (l *LaunchConfig) Stdin(s Stdio)  { l.stdin = &s }
func (l *LaunchConfig) Stdout(s Stdio) { l.stdout = &s }
func (l *LaunchConfig) Stderr(s Stdio) { l.stderr = &s }

// Program returns the program name.
func (l *LaunchConfig) Program() string { return l.name }

// Arguments returns a copy of the argument list, without the program name.
func (l *LaunchConfig) Arguments() []string { return slices.Clone(l.args) }

// WorkingDir returns the working directory, or "" for the parent's.
func (l *LaunchConfig) WorkingDir() string { return l.dir }

// Streams returns the stdin, stdout and stderr overrides; nil entries are
// left to the entry point.
func (l *LaunchConfig) Streams() (stdin, stdout, stderr *Stdio) {
	return cloneStdio(l.stdin), cloneStdio(l.stdout), cloneStdio(l.stderr)
}

// caseInsensitiveEnv reports whether environment keys differ only by case
// on this platform. Windows treats Path and PATH as one variable.
var caseInsensitiveEnv = runtime.GOOS == "windows"

// envKey returns the identity of an environment key for comparisons.
func envKey(k string) string {
	if caseInsensitiveEnv {
		return strings.ToUpper(k)
	}
	return k
}

// Environ returns the child's environment as sorted "key=value" pairs. A nil
// result means the environment was not touched and the child inherits the
// parent's unchanged; a non-nil result, possibly empty, is the complete
// environment. On Windows keys are matched case-insensitively and an
// explicit entry takes the caller's spelling.
func (l *LaunchConfig) Environ() []string {
	if !l.envClear && len(l.vars) == 0 {
		return nil
	}
	type entry struct{ key, val string }
	env := make(map[string]entry)
	if !l.envClear && l.environ != nil {
		for _, kv := range l.environ() {
			k, v, ok := splitEnv(kv)
			if !ok {
				continue
			}
			env[envKey(k)] = entry{k, v}
		}
	}
	for _, k := range slices.Sorted(maps.Keys(l.vars)) {
		v := l.vars[k]
		if v == nil {
			delete(env, envKey(k))
			continue
		}
		env[envKey(k)] = entry{k, *v}
	}
	out := make([]string, 0, len(env))
	for _, id := range slices.Sorted(maps.Keys(env)) {
		e := env[id]
		out = append(out, e.key+"="+e.val)
	}
	return out
}

// lookupEnv finds key in "key=value" pairs, honoring envKey. The last
// matching entry wins.
func lookupEnv(env []string, key string) (string, bool) {
	var (
		val   string
		found bool
	)
	for _, kv := range env {
		if k, v, ok := splitEnv(kv); ok && envKey(k) == envKey(key) {
			val, found = v, true
		}
	}
	return val, found
}

// splitEnv splits "key=value". A leading '=' belongs to the key, as in the
// per-drive entries Windows keeps ("=C:=C:\\").
func splitEnv(kv string) (key, val string, ok bool) {
	i := strings.IndexByte(kv, '=')
	if i == 0 {
		if j := strings.IndexByte(kv[1:], '='); j >= 0 {
			i = j + 1
		} else {
			i = -1
		}
	}
	if i < 0 {
		return "", "", false
	}
	return kv[:i], kv[i+1:], true
}
