package cli

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/loomgraph/loom/pkg/document"
	"github.com/loomgraph/loom/pkg/entity"
	"github.com/loomgraph/loom/pkg/subgraph"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()

	want := map[string]bool{
		"inspect":    false,
		"validate":   false,
		"flatten":    false,
		"convert":    false,
		"render":     false,
		"completion": false,
	}
	for _, cmd := range root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestNestingDepth(t *testing.T) {
	lib := subgraph.NewLibrary()
	inner := subgraph.NewDefinition("inner", entity.NewWithBoundaries(), nil, nil)
	outer := subgraph.NewDefinition("outer", entity.NewWithBoundaries(), nil, nil)
	for _, def := range []*subgraph.Definition{inner, outer} {
		if err := lib.Add(def); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := lib.Instantiate(outer.Store(), inner.ID(), nil); err != nil {
		t.Fatal(err)
	}

	root := entity.New()
	if got := nestingDepth(document.New(root, lib)); got != 0 {
		t.Errorf("nestingDepth(flat) = %d, want 0", got)
	}

	if _, err := lib.Instantiate(root, outer.ID(), nil); err != nil {
		t.Fatal(err)
	}
	if got := nestingDepth(document.New(root, lib)); got != 2 {
		t.Errorf("nestingDepth(nested) = %d, want 2", got)
	}
}

func TestConfigDirRespectsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	dir, err := configDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join("/tmp/xdg", appName) {
		t.Errorf("configDir() = %q", dir)
	}
}

func TestFlattenEncoder(t *testing.T) {
	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{"json", "json", false},
		{"", "json", false},
		{"yaml", "yaml", false},
		{"YML", "yaml", false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		enc, err := flattenEncoder(tt.format)
		if tt.wantErr {
			if err == nil {
				t.Errorf("flattenEncoder(%q) accepted invalid format", tt.format)
			}
			continue
		}
		if err != nil {
			t.Errorf("flattenEncoder(%q) error = %v", tt.format, err)
			continue
		}
		if enc.Name() != tt.want {
			t.Errorf("flattenEncoder(%q).Name() = %q, want %q", tt.format, enc.Name(), tt.want)
		}
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		output, input, ext, want string
	}{
		{"", "graph.json", "svg", "graph.svg"},
		{"", "dir/graph.loom", "png", "dir/graph.png"},
		{"custom.svg", "graph.json", "svg", "custom.svg"},
	}
	for _, tt := range tests {
		if got := outputPath(tt.output, tt.input, tt.ext); got != tt.want {
			t.Errorf("outputPath(%q, %q, %q) = %q, want %q", tt.output, tt.input, tt.ext, got, tt.want)
		}
	}
}
