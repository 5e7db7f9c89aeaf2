package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gridcalc/internal/calc"
)

func newRefsCmd(root *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "refs <formula>",
		Short: "List the cells and ranges a formula reads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			refs := calc.References(args[0])
			root.logger.Debug("references extracted", "count", len(refs))
			if asJSON {
				if refs == nil {
					refs = []string{}
				}
				return jsonPrint(cmd.OutOrStdout(), refs)
			}
			for _, r := range refs {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print a JSON array")
	return cmd
}
