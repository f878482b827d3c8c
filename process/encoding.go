package process

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"unicode/utf8"

	"go.yaml.in/yaml/v3"
)

// commandFields has Command's fields without its methods, so decoding into it
// does not recurse into the custom unmarshalers below.
type commandFields Command

// commandJSON is the JSON form of a Command. Program names, arguments, keys,
// values and the directory are OS strings that need not be valid UTF-8, so
// each is written as osString.
type commandJSON struct {
	Name               osString   `json:"name"`
	Arguments          []osString `json:"arguments"`
	InheritEnvironment bool       `json:"inherit_environment"`
	Environment        envJSON    `json:"environment"`
	CurrentDir         osString   `json:"current_dir,omitempty"`
	Stdin              *Stdio     `json:"stdin,omitempty"`
	Stdout             *Stdio     `json:"stdout,omitempty"`
	Stderr             *Stdio     `json:"stderr,omitempty"`
}

func toJSON(c Command) commandJSON {
	w := commandJSON{
		Name:               osString(c.Name),
		InheritEnvironment: c.InheritEnvironment,
		Environment:        envJSON(c.Environment),
		CurrentDir:         osString(c.CurrentDir),
		Stdin:              c.Stdin,
		Stdout:             c.Stdout,
		Stderr:             c.Stderr,
	}
	if c.Arguments != nil {
		w.Arguments = make([]osString, len(c.Arguments))
		for i, a := range c.Arguments {
			w.Arguments[i] = osString(a)
		}
	}
	return w
}

func (w commandJSON) command() Command {
	c := Command{
		Name:               string(w.Name),
		InheritEnvironment: w.InheritEnvironment,
		Environment:        map[string]*string(w.Environment),
		CurrentDir:         string(w.CurrentDir),
		Stdin:              w.Stdin,
		Stdout:             w.Stdout,
		Stderr:             w.Stderr,
	}
	if w.Arguments != nil {
		c.Arguments = make([]string, len(w.Arguments))
		for i, a := range w.Arguments {
			c.Arguments[i] = string(a)
		}
	}
	return c
}

// MarshalJSON encodes a Command. Strings that are not valid UTF-8 are
// written as {"bytes": "<base64>"} so they decode to the same bytes.
func (c Command) MarshalJSON() ([]byte, error) {
	return json.Marshal(toJSON(c))
}

// UnmarshalJSON decodes a Command. Fields missing from the document keep the
// defaults of New, so an omitted inherit_environment means true.
func (c *Command) UnmarshalJSON(data []byte) error {
	w := toJSON(New(""))
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = w.command()
	return nil
}

// osString is a string that keeps its exact bytes through JSON. Valid UTF-8
// is a plain JSON string; anything else is a tagged base64 object.
type osString string

type rawBytes struct {
	Bytes []byte `json:"bytes"`
}

func (s osString) MarshalJSON() ([]byte, error) {
	if utf8.ValidString(string(s)) {
		return json.Marshal(string(s))
	}
	return json.Marshal(rawBytes{Bytes: []byte(s)})
}

func (s *osString) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		var raw rawBytes
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*s = osString(raw.Bytes)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = osString(str)
	return nil
}

// envJSON is the JSON form of Command.Environment. It is an object when every
// key is valid UTF-8 and a list of {"key", "value"} entries otherwise, since
// object keys cannot carry arbitrary bytes.
type envJSON map[string]*string

type envEntry struct {
	Key   osString  `json:"key"`
	Value *osString `json:"value"`
}

func (e envJSON) MarshalJSON() ([]byte, error) {
	if e == nil {
		return []byte("null"), nil
	}
	keys := slices.Sorted(maps.Keys(e))
	if !slices.ContainsFunc(keys, func(k string) bool { return !utf8.ValidString(k) }) {
		obj := make(map[string]*osString, len(e))
		for _, k := range keys {
			obj[k] = (*osString)(e[k])
		}
		return json.Marshal(obj)
	}
	entries := make([]envEntry, len(keys))
	for i, k := range keys {
		entries[i] = envEntry{Key: osString(k), Value: (*osString)(e[k])}
	}
	return json.Marshal(entries)
}

func (e *envJSON) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*e = nil
	case bytes.HasPrefix(trimmed, []byte("[")):
		var entries []envEntry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return err
		}
		env := make(envJSON, len(entries))
		for _, en := range entries {
			env[string(en.Key)] = (*string)(en.Value)
		}
		*e = env
	default:
		var obj map[string]*osString
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return err
		}
		env := make(envJSON, len(obj))
		for k, v := range obj {
			env[k] = (*string)(v)
		}
		*e = env
	}
	return nil
}

// UnmarshalYAML decodes a Command with the same defaults as UnmarshalJSON.
// YAML reads a bare Null or NULL as a null value, so for the stream fields
// those spellings are taken as the Null disposition instead.
func (c *Command) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(value.Content); i += 2 {
			key, val := value.Content[i], value.Content[i+1]
			switch key.Value {
			case "stdin", "stdout", "stderr":
				if val.Kind == yaml.ScalarNode && val.Style == 0 && (val.Value == "Null" || val.Value == "NULL") {
					val.Tag = "!!str"
				}
			}
		}
	}
	fields := commandFields(New(""))
	if err := value.Decode(&fields); err != nil {
		return err
	}
	*c = Command(fields)
	return nil
}
