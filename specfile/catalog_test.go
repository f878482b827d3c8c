package specfile

import (
	"path/filepath"
	"slices"
	"testing"

	"github.com/kbukum/procspec/errors"
	"github.com/kbukum/procspec/process"
)

const catalogYAML = `
commands:
  status:
    name: git
    arguments: [status, --short]
  build:
    name: go
    arguments: [build, ./...]
    environment:
      CGO_ENABLED: "0"
    stdout: Piped
`

func TestDecodeCatalog(t *testing.T) {
	c, err := DecodeCatalog([]byte(catalogYAML), YAML)
	if err != nil {
		t.Fatalf("DecodeCatalog: %v", err)
	}
	if got := c.Names(); !slices.Equal(got, []string{"build", "status"}) {
		t.Errorf("unexpected names %v", got)
	}

	status, err := c.Get("status")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !status.Equal(process.New("git").WithArgs("status", "--short")) {
		t.Errorf("unexpected status command %#v", status)
	}
	if !status.InheritEnvironment {
		t.Error("expected catalog entries to default to inheriting the environment")
	}
}

func TestCatalogGetReturnsCopy(t *testing.T) {
	c, err := DecodeCatalog([]byte(catalogYAML), YAML)
	if err != nil {
		t.Fatalf("DecodeCatalog: %v", err)
	}
	build, _ := c.Get("build")
	build.AddArg("-v")
	build.SetEnv("CGO_ENABLED", "1")

	again, _ := c.Get("build")
	if len(again.Arguments) != 2 {
		t.Errorf("catalog entry was mutated through Get: %v", again.Arguments)
	}
	if *again.Environment["CGO_ENABLED"] != "0" {
		t.Error("catalog environment was mutated through Get")
	}
}

func TestCatalogGetMissing(t *testing.T) {
	c := NewCatalog()
	_, err := c.Get("deploy")
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestCatalogAddStoresCopy(t *testing.T) {
	c := &Catalog{}
	cmd := process.New("make").WithArg("all")
	c.Add("all", cmd)
	cmd.AddArg("install")

	got, err := c.Get("all")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Arguments) != 1 {
		t.Errorf("expected stored copy to be unaffected, got %v", got.Arguments)
	}
}

func TestCatalogSaveLoad(t *testing.T) {
	dir := t.TempDir()
	c := NewCatalog()
	c.Add("status", process.New("git").WithArg("status"))
	c.Add("clean", process.New("git").WithArgs("clean", "-fdx").WithoutEnv("GIT_DIR"))

	for _, name := range []string{"catalog.json", "catalog.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := c.Save(path); err != nil {
				t.Fatalf("Save: %v", err)
			}
			loaded, err := LoadCatalog(path)
			if err != nil {
				t.Fatalf("LoadCatalog: %v", err)
			}
			for _, n := range c.Names() {
				want, _ := c.Get(n)
				got, err := loaded.Get(n)
				if err != nil {
					t.Fatalf("Get(%s): %v", n, err)
				}
				if !got.Equal(want) {
					t.Errorf("%s differs after round trip", n)
				}
			}
		})
	}
}

func TestDecodeCatalogEmpty(t *testing.T) {
	c, err := DecodeCatalog([]byte("{}"), JSON)
	if err != nil {
		t.Fatalf("DecodeCatalog: %v", err)
	}
	if len(c.Names()) != 0 {
		t.Errorf("expected no commands, got %v", c.Names())
	}
	if _, err := DecodeCatalog([]byte("commands: [1]"), YAML); !errors.HasCode(err, errors.ErrCodeInvalidSpec) {
		t.Errorf("expected INVALID_SPEC, got %v", err)
	}
}
