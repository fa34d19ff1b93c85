package docio

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/loomgraph/loom/pkg/document"
	"github.com/loomgraph/loom/pkg/entity"
	apperrors "github.com/loomgraph/loom/pkg/errors"
	"github.com/loomgraph/loom/pkg/subgraph"
)

func quietLogger() *log.Logger { return log.New(io.Discard) }

func sampleDocument(t *testing.T) *document.Document {
	t.Helper()

	inner := entity.NewWithBoundaries()
	if err := inner.AddNode(&entity.Node{
		ID:      1,
		Type:    "denoise",
		Inputs:  []entity.Slot{{Name: "in", Type: "IMAGE"}},
		Outputs: []entity.Slot{{Name: "out", Type: "IMAGE"}},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := inner.AddLink(entity.InputBoundary, 0, 1, 0, "IMAGE"); err != nil {
		t.Fatal(err)
	}

	lib := subgraph.NewLibrary()
	def := subgraph.NewDefinition("Denoise", inner,
		[]subgraph.SlotSpec{{Name: "image", Type: "IMAGE"}}, nil)
	if err := lib.Add(def); err != nil {
		t.Fatal(err)
	}

	root := entity.New()
	root.AddNode(&entity.Node{ID: 1, Type: "loader", Outputs: []entity.Slot{{Name: "out", Type: "IMAGE"}}})
	inst, err := lib.Instantiate(root, def.ID(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := root.AddLink(1, 0, inst.Node().ID, 0, "IMAGE"); err != nil {
		t.Fatal(err)
	}
	return document.New(root, lib)
}

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"workflow.json", FormatJSON, false},
		{"workflow.yaml", FormatYAML, false},
		{"workflow.YML", FormatYAML, false},
		{"workflow.loom", FormatBinary, false},
		{"workflow.txt", "", true},
		{"workflow", "", true},
	}
	for _, tt := range tests {
		got, err := FormatForPath(tt.path)
		if tt.wantErr {
			if !apperrors.Is(err, apperrors.ErrCodeUnsupportedFormat) {
				t.Errorf("FormatForPath(%q) error = %v, want UNSUPPORTED_FORMAT", tt.path, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("FormatForPath(%q) error = %v", tt.path, err)
			continue
		}
		if got != tt.want {
			t.Errorf("FormatForPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestWriteReadAllFormats(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML, FormatBinary} {
		t.Run(string(format), func(t *testing.T) {
			doc := sampleDocument(t)
			var buf bytes.Buffer
			if err := Write(doc, &buf, format); err != nil {
				t.Fatal(err)
			}
			loaded, err := Read(&buf, format, document.WithLogger(quietLogger()))
			if err != nil {
				t.Fatal(err)
			}
			if loaded.Root.NodeCount() != doc.Root.NodeCount() {
				t.Errorf("node count = %d, want %d", loaded.Root.NodeCount(), doc.Root.NodeCount())
			}
			if loaded.Library.Len() != 1 {
				t.Errorf("library size = %d, want 1", loaded.Library.Len())
			}
			if got := len(loaded.Instances()); got != 1 {
				t.Errorf("bound instances = %d, want 1", got)
			}
		})
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	doc := sampleDocument(t)

	for _, name := range []string{"w.json", "w.yaml", "w.loom"} {
		path := filepath.Join(dir, name)
		if err := Export(doc, path); err != nil {
			t.Fatalf("Export(%s) = %v", name, err)
		}
		loaded, err := Import(path, document.WithLogger(quietLogger()))
		if err != nil {
			t.Fatalf("Import(%s) = %v", name, err)
		}
		if loaded.Root.NodeCount() != doc.Root.NodeCount() {
			t.Errorf("%s: node count = %d, want %d", name, loaded.Root.NodeCount(), doc.Root.NodeCount())
		}
	}
}

func TestExportUnsupportedExtension(t *testing.T) {
	doc := sampleDocument(t)
	err := Export(doc, filepath.Join(t.TempDir(), "w.txt"))
	if !apperrors.Is(err, apperrors.ErrCodeUnsupportedFormat) {
		t.Fatalf("Export(.txt) error = %v, want UNSUPPORTED_FORMAT", err)
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	if _, err := Read(bytes.NewBufferString("{not json"), FormatJSON); err == nil {
		t.Error("Read accepted malformed JSON")
	}
	if _, err := Read(bytes.NewBufferString("plain text"), FormatBinary); err == nil {
		t.Error("Read accepted bytes without a zstd frame")
	}
}
