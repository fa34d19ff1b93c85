package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/loomgraph/loom/pkg/flatten"
	"github.com/loomgraph/loom/pkg/render"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed includes widget values in node labels.
	// When false, only the node type and id are shown.
	Detailed bool
}

// ToDOT converts a flattened graph to Graphviz DOT format. Nodes that came
// out of the same subgraph instance share a path prefix and are drawn inside
// a cluster labeled with that prefix, so the expanded structure stays
// visible. The resulting DOT string can be rendered using [RenderSVG],
// [RenderPDF], or [RenderPNG].
func ToDOT(g *flatten.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	writeCluster(&buf, buildClusters(g), opts, "  ", "")

	buf.WriteString("\n")
	for _, n := range g.Nodes {
		for _, in := range n.Inputs {
			if in.Origin == "" {
				continue
			}
			fmt.Fprintf(&buf, "  %q -> %q [label=%q, fontsize=10];\n", in.Origin, n.ID, in.Name)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// cluster groups flattened nodes by the instance path that produced them.
type cluster struct {
	nodes    []*flatten.Node
	children map[string]*cluster
}

func newCluster() *cluster {
	return &cluster{children: map[string]*cluster{}}
}

// buildClusters arranges nodes into a tree keyed by path elements. A node
// with id "7:3:12" lands in the cluster for instance 7, sub-cluster 3.
func buildClusters(g *flatten.Graph) *cluster {
	root := newCluster()
	for i := range g.Nodes {
		n := &g.Nodes[i]
		parts := strings.Split(n.ID, ":")
		cur := root
		for _, p := range parts[:len(parts)-1] {
			next, ok := cur.children[p]
			if !ok {
				next = newCluster()
				cur.children[p] = next
			}
			cur = next
		}
		cur.nodes = append(cur.nodes, n)
	}
	return root
}

func writeCluster(buf *bytes.Buffer, c *cluster, opts Options, indent, prefix string) {
	for _, n := range c.nodes {
		label := fmtLabel(n, opts.Detailed)
		fmt.Fprintf(buf, "%s%q [label=%q];\n", indent, n.ID, label)
	}
	for _, key := range slices.Sorted(maps.Keys(c.children)) {
		qualified := key
		if prefix != "" {
			qualified = prefix + ":" + key
		}
		fmt.Fprintf(buf, "%ssubgraph \"cluster_%s\" {\n", indent, qualified)
		fmt.Fprintf(buf, "%s  label=%q;\n", indent, "instance "+qualified)
		fmt.Fprintf(buf, "%s  style=\"rounded,dashed\";\n", indent)
		writeCluster(buf, c.children[key], opts, indent+"  ", qualified)
		fmt.Fprintf(buf, "%s}\n", indent)
	}
}

func fmtLabel(n *flatten.Node, detailed bool) string {
	title := n.Type
	if n.Title != "" {
		title = n.Title
	}
	label := fmt.Sprintf("%s\n#%s", title, n.ID)
	if !detailed || len(n.Widgets) == 0 {
		return label
	}
	var parts []string
	for _, k := range slices.Sorted(maps.Keys(n.Widgets)) {
		parts = append(parts, fmt.Sprintf("%s: %v", k, n.Widgets[k]))
	}
	return label + "\n" + strings.Join(parts, "\n")
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with
// [render.ToPDF] or [render.ToPNG].
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
// This is a convenience wrapper around [RenderSVG] and [render.ToPDF].
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(dot string) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
// This is a convenience wrapper around [RenderSVG] and [render.ToPNG].
//
// A scale of 2.0 produces a 2x resolution image suitable for high-DPI displays.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPNG(dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(svg, scale)
}
