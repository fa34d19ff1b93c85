package cli

import (
	"github.com/spf13/cobra"

	"github.com/loomgraph/loom/pkg/docio"
	"github.com/loomgraph/loom/pkg/document"
	apperrors "github.com/loomgraph/loom/pkg/errors"
	"github.com/loomgraph/loom/pkg/flatten"
)

// validateCommand creates the validate command for checking document
// integrity.
func (c *CLI) validateCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a workflow document for structural problems",
		Long: `Validate loads a workflow document and checks its referential
integrity: link endpoints, reroute parent chains, and subgraph instance
references. With --strict it additionally flattens the document, which
catches recursive definitions and unresolvable nesting.

Exit status is non-zero when any check fails.

Examples:
  loom validate workflow.json
  loom validate --strict workflow.loom`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(args[0], strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "also flatten to catch recursion and nesting errors")
	return cmd
}

func (c *CLI) runValidate(input string, strict bool) error {
	doc, err := docio.Import(input, document.WithLogger(c.Logger))
	if err != nil {
		printError("%s", apperrors.UserMessage(err))
		return err
	}

	instances := 0
	for _, def := range doc.Library.Definitions() {
		instances += doc.Library.InstanceCount(def.ID())
	}
	printStats(doc.Root.NodeCount(), doc.Root.LinkCount(), doc.Library.Len(), instances)

	for _, def := range doc.Library.Definitions() {
		if doc.Library.InstanceCount(def.ID()) == 0 {
			printWarning("definition %q has no instances", def.Name())
		}
	}

	if err := doc.Validate(); err != nil {
		printError("%s", apperrors.UserMessage(err))
		return err
	}

	if strict {
		g, err := flatten.Flatten(doc, flatten.WithLogger(c.Logger))
		if err != nil {
			printError("%s", apperrors.UserMessage(err))
			return err
		}
		printInfo("flattens to %d executable nodes", len(g.Nodes))
	}

	printSuccess("%s is valid", input)
	printNextStep("Flatten it", "loom flatten "+input)
	return nil
}
