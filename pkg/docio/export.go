package docio

import (
	"fmt"
	"io"
	"os"

	"github.com/loomgraph/loom/pkg/document"
)

// Write serializes a document to w in the given format.
func Write(doc *document.Document, w io.Writer, format Format) error {
	s, err := serializer(format)
	if err != nil {
		return err
	}
	data, err := s.Marshal(doc.Serialize())
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// Export writes a document to path, picking the format from the extension.
// This is a convenience wrapper around [Write] for file-based output.
func Export(doc *document.Document, path string) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(doc, f, format)
}
