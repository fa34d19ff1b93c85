package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loomgraph/loom/pkg/codec"
	"github.com/loomgraph/loom/pkg/docio"
	"github.com/loomgraph/loom/pkg/document"
	"github.com/loomgraph/loom/pkg/flatten"
)

// flattenOpts holds the command-line flags for the flatten command.
type flattenOpts struct {
	output string // output file path (stdout if empty)
	format string // output encoding: json or yaml
}

// flattenCommand creates the flatten command for producing executable
// graphs.
func (c *CLI) flattenCommand() *cobra.Command {
	opts := flattenOpts{format: c.Config.Flatten.Format}

	cmd := &cobra.Command{
		Use:   "flatten <file>",
		Short: "Flatten subgraph instances into an executable node list",
		Long: `Flatten loads a workflow document, expands every subgraph instance
into its definition's nodes under path-qualified ids, and resolves every
input across subgraph boundaries. The result contains only executable
nodes; instance nodes and boundary links are gone.

Examples:
  loom flatten workflow.json
  loom flatten workflow.json -o exec.yaml --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFlatten(args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVar(&opts.format, "format", opts.format, "output encoding: json (default), yaml")
	return cmd
}

func (c *CLI) runFlatten(input string, opts *flattenOpts) error {
	enc, err := flattenEncoder(opts.format)
	if err != nil {
		return err
	}

	doc, err := docio.Import(input, document.WithLogger(c.Logger))
	if err != nil {
		return err
	}

	p := newProgress(c.Logger)
	g, err := flatten.Flatten(doc, flatten.WithLogger(c.Logger))
	if err != nil {
		return err
	}
	p.done(fmt.Sprintf("Flattened %d nodes", len(g.Nodes)))

	data, err := enc.Encode(g)
	if err != nil {
		return fmt.Errorf("encode flattened graph: %w", err)
	}

	if opts.output == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	printFile(opts.output)
	return nil
}

// flattenEncoder maps the --format flag to a codec.
func flattenEncoder(format string) (codec.Codec, error) {
	switch strings.ToLower(format) {
	case "json", "":
		return codec.JSON{Indent: "  "}, nil
	case "yaml", "yml":
		return codec.YAML{}, nil
	default:
		return nil, fmt.Errorf("invalid format: %s (must be 'json' or 'yaml')", format)
	}
}

// outputPath derives an output path from the input file when none is given.
func outputPath(output, input, ext string) string {
	if output != "" {
		return output
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + "." + ext
}
