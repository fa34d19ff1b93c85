package cli

import (
	"github.com/spf13/cobra"

	"github.com/loomgraph/loom/pkg/docio"
	"github.com/loomgraph/loom/pkg/document"
)

// convertCommand creates the convert command for translating documents
// between on-disk formats.
func (c *CLI) convertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Convert a workflow document between formats",
		Long: `Convert reads a workflow document and writes it back in the format
implied by the output extension: .json, .yaml/.yml, or .loom for the
compact binary form.

Examples:
  loom convert workflow.json workflow.loom
  loom convert workflow.loom workflow.yaml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConvert(args[0], args[1])
		},
	}
}

func (c *CLI) runConvert(input, output string) error {
	doc, err := docio.Import(input, document.WithLogger(c.Logger))
	if err != nil {
		return err
	}
	if err := docio.Export(doc, output); err != nil {
		return err
	}
	printSuccess("Converted %s", input)
	printFile(output)
	return nil
}
