// Package render provides shared output conversion for graph visualizations.
//
// The package root holds SVG-to-PDF and SVG-to-PNG conversion via
// rsvg-convert. The [nodelink] subpackage generates the diagrams themselves
// from flattened workflow graphs.
//
// [nodelink]: github.com/loomgraph/loom/pkg/render/nodelink
package render
