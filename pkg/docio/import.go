package docio

import (
	"fmt"
	"io"
	"os"

	"github.com/loomgraph/loom/pkg/document"
)

// Read decodes a document from r in the given format.
//
// Decoding is two-phased: the bytes are unpacked into the serialized state,
// then [document.Deserialize] rebuilds the stores and binds every instance
// node. Errors from the second phase carry the structured codes documented
// there: MISSING_DEFINITION for unresolvable instance references,
// SCHEMA_ERROR for malformed fragments.
//
// The returned document is independent of r. Read does not close r.
func Read(r io.Reader, format Format, opts ...document.Option) (*document.Document, error) {
	s, err := serializer(format)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	var st document.State
	if err := s.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return document.Deserialize(&st, opts...)
}

// Import reads a document from path, picking the format from the extension.
// The error wraps the underlying cause with the file path for context.
func Import(path string, opts ...document.Option) (*document.Document, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, format, opts...)
}
