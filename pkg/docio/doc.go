// Package docio reads and writes documents in their on-disk encodings.
//
// # Formats
//
// Three encodings are supported, selected by file extension:
//
//   - .json: pretty-printed JSON, the interchange default
//   - .yaml, .yml: YAML for hand-edited documents
//   - .loom: msgpack in a zstd frame, the compact archive form
//
// All three carry the same serialized state: the root graph fragment inline
// plus a definitions table with one entry per subgraph definition. A document
// exported in one format and re-imported in another is semantically
// identical; only the JSON form guarantees byte-stable output across
// repeated exports.
//
// # Import
//
// Use [Import] to read from a file path, or [Read] to read from any
// io.Reader with an explicit format:
//
//	doc, err := docio.Import("workflow.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Both validate instance references strictly: a document whose instance
// nodes point at definitions missing from the table fails with a
// MISSING_DEFINITION error rather than loading partially.
//
// # Export
//
// Use [Export] to write to a file, or [Write] to write to any io.Writer:
//
//	err := docio.Export(doc, "workflow.loom")
//
// Output is deterministic: nodes in z-order, links sorted by id, one
// definitions entry per definition in name order.
package docio
