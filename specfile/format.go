package specfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Format is a document encoding.
type Format int

const (
	JSON Format = iota + 1
	YAML
)

func (f Format) String() string {
	switch f {
	case JSON:
		return "json"
	case YAML:
		return "yaml"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatFromPath picks the format from a file extension: .json, .yaml or
// .yml, compared case-insensitively.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	default:
		return 0, fmt.Errorf("specfile: cannot tell format of %q from its extension", path)
	}
}

func marshal(v any, f Format) ([]byte, error) {
	switch f {
	case JSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case YAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("specfile: unsupported format %s", f)
	}
}

func unmarshal(data []byte, v any, f Format) error {
	switch f {
	case JSON:
		return json.Unmarshal(data, v)
	case YAML:
		return yaml.Unmarshal(data, v)
	default:
		return fmt.Errorf("specfile: unsupported format %s", f)
	}
}
