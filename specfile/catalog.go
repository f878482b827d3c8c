package specfile

import (
	"maps"
	"os"
	"slices"

	"github.com/kbukum/procspec/errors"
	"github.com/kbukum/procspec/process"
)

// Catalog is a set of named commands stored in one document.
type Catalog struct {
	Commands map[string]process.Command `json:"commands" yaml:"commands"`
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{Commands: map[string]process.Command{}}
}

// DecodeCatalog parses a catalog document. Errors are INVALID_SPEC.
func DecodeCatalog(data []byte, f Format) (*Catalog, error) {
	return decodeCatalog(data, f, f.String()+" catalog")
}

func decodeCatalog(data []byte, f Format, source string) (*Catalog, error) {
	c := NewCatalog()
	if err := unmarshal(data, c, f); err != nil {
		return nil, errors.InvalidSpec(source, err)
	}
	if c.Commands == nil {
		c.Commands = map[string]process.Command{}
	}
	return c, nil
}

// LoadCatalog reads a catalog from a .json, .yaml or .yml file.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, errors.InvalidSpec(path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeCatalog(data, f, path)
}

// Save writes the catalog to path in the format its extension names.
func (c *Catalog) Save(path string) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := marshal(c, f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Add stores a copy of cmd under name, replacing any previous entry.
func (c *Catalog) Add(name string, cmd process.Command) {
	if c.Commands == nil {
		c.Commands = map[string]process.Command{}
	}
	c.Commands[name] = cmd.Clone()
}

// Get returns a copy of the named command, so callers may mutate it freely.
func (c *Catalog) Get(name string) (process.Command, error) {
	cmd, ok := c.Commands[name]
	if !ok {
		return process.Command{}, errors.NotFound("command", name)
	}
	return cmd.Clone(), nil
}

// Names lists the catalog's command names in sorted order.
func (c *Catalog) Names() []string {
	return slices.Sorted(maps.Keys(c.Commands))
}
