package cli

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/loomgraph/loom/pkg/docio"
	"github.com/loomgraph/loom/pkg/document"
	"github.com/loomgraph/loom/pkg/entity"
	"github.com/loomgraph/loom/pkg/subgraph"
)

func writeDocument(t *testing.T, doc *document.Document) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workflow.json")
	if err := docio.Export(doc, path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidateStrictPassesCleanDocument(t *testing.T) {
	lib := subgraph.NewLibrary()
	def := subgraph.NewDefinition("Denoise", entity.NewWithBoundaries(), nil, nil)
	if err := lib.Add(def); err != nil {
		t.Fatal(err)
	}
	root := entity.New()
	if _, err := lib.Instantiate(root, def.ID(), nil); err != nil {
		t.Fatal(err)
	}

	c := New(io.Discard, LogInfo)
	if err := c.runValidate(writeDocument(t, document.New(root, lib)), true); err != nil {
		t.Errorf("runValidate() error = %v", err)
	}
}

func TestValidateAcceptsUnusedDefinition(t *testing.T) {
	lib := subgraph.NewLibrary()
	if err := lib.Add(subgraph.NewDefinition("Sharpen", entity.NewWithBoundaries(), nil, nil)); err != nil {
		t.Fatal(err)
	}

	c := New(io.Discard, LogInfo)
	if err := c.runValidate(writeDocument(t, document.New(entity.New(), lib)), false); err != nil {
		t.Errorf("runValidate() error = %v", err)
	}
}
