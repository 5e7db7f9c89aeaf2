package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gridcalc/internal/calc"
)

type funcInfo struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Arity    string `json:"arity"`
}

func newFuncsCmd(root *rootOptions) *cobra.Command {
	var (
		filter string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "funcs",
		Short: "List the supported functions",
		Long: `List the registered functions with their category and the number of
parameters they accept ("1..*" means one or more).

--filter keeps functions whose name or category contains the text.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			infos := listFuncs(calc.DefaultRegistry(), filter)
			if asJSON {
				return jsonPrint(cmd.OutOrStdout(), infos)
			}
			if len(infos) == 0 {
				return fmt.Errorf("no function matches %q", filter)
			}
			for _, f := range infos {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-12s %s\n", f.Name, f.Category, f.Arity)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "Only list functions whose name or category contains this text")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func listFuncs(r *calc.Registry, filter string) []funcInfo {
	filter = strings.ToUpper(strings.TrimSpace(filter))
	infos := []funcInfo{}
	for _, d := range r.Definitions() {
		if filter != "" && !strings.Contains(d.Name, filter) && !strings.Contains(strings.ToUpper(d.Category), filter) {
			continue
		}
		infos = append(infos, funcInfo{Name: d.Name, Category: d.Category, Arity: d.Arity()})
	}
	return infos
}
