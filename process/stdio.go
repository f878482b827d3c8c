package process

import (
	"fmt"
	"strings"
)

// Stdio describes how one standard stream of a child process is connected.
type Stdio uint8

const (
	// Piped arranges a new pipe between the parent and the child.
	Piped Stdio = iota + 1
	// Inherit shares the parent's corresponding stream with the child.
	Inherit
	// Null connects the stream to the null device.
	Null
)

var stdioNames = map[Stdio]string{
	Piped:   "Piped",
	Inherit: "Inherit",
	Null:    "Null",
}

// ParseStdio parses the wire name of a stream disposition. Matching is
// case-insensitive.
func ParseStdio(s string) (Stdio, error) {
	for v, name := range stdioNames {
		if strings.EqualFold(s, name) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("process: unknown stdio %q (want Piped, Inherit or Null)", s)
}

// Valid reports whether s is one of Piped, Inherit or Null.
func (s Stdio) Valid() bool {
	_, ok := stdioNames[s]
	return ok
}

func (s Stdio) String() string {
	if name, ok := stdioNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Stdio(%d)", uint8(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Stdio) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("process: cannot encode %s", s)
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stdio) UnmarshalText(text []byte) error {
	v, err := ParseStdio(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Ptr returns a pointer to a copy of s, for filling the optional stream fields
// of a Command literal.
func (s Stdio) Ptr() *Stdio {
	return &s
}
