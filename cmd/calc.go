package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gridcalc/internal/app"
	"gridcalc/internal/grid"
	"gridcalc/internal/storage"
)

type calcOptions struct {
	out    string
	others []string
	strict bool
}

func newCalcCmd(root *rootOptions) *cobra.Command {
	o := &calcOptions{}
	cmd := &cobra.Command{
		Use:   "calc <file.csv>",
		Short: "Evaluate every formula of a CSV sheet",
		Long: `Evaluate every formula cell of a CSV file and write the sheet with
computed values in place of formulas.

Behavior:
  - Output goes to stdout unless --out is given. The input is never modified.
  - Sheets loaded with --with can be referenced by name from the formulas.
  - Failing formulas are written as "Error: <message>".
  - With --strict, returns exit code 2 when any formula fails.

Examples:
  gridcalc calc budget.csv
  gridcalc calc budget.csv --out computed.csv
  gridcalc calc summary.csv --with sales.csv --strict`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalc(cmd, args[0], root, o)
		},
	}
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "Write the computed CSV to this file")
	cmd.Flags().StringArrayVar(&o.others, "with", nil, "Additional CSV file to load as a referenced sheet (repeatable)")
	cmd.Flags().BoolVar(&o.strict, "strict", false, "Exit with code 2 when any formula fails")
	return cmd
}

func runCalc(cmd *cobra.Command, file string, root *rootOptions, o *calcOptions) error {
	cmd.SilenceUsage = true

	wb, _, err := root.workbook(append([]string{file}, o.others...))
	if err != nil {
		return err
	}
	sheet := wb.Sheets[0]
	engine := root.newEngine(wb)

	failed := 0
	records := storage.Records(sheet, func(r, c int) string {
		text := sheet.Get(r, c)
		if !strings.HasPrefix(text, "=") {
			return text
		}
		v := engine.Evaluate(text, "", sheet.Name, r, c)
		if isErrorResult(v) {
			failed++
			root.logger.Warn("formula failed", "cell", grid.ColRowToName(c, r), "err", strings.TrimPrefix(v.(string), "Error: "))
		}
		return app.DisplayValue(v)
	})

	if o.out == "" {
		if err := storage.WriteCSV(cmd.OutOrStdout(), records, root.enc); err != nil {
			return err
		}
	} else {
		if err := storage.SaveRecords(records, o.out, root.enc); err != nil {
			return fmt.Errorf("writing %s: %w", o.out, err)
		}
		root.logger.Info("wrote computed sheet", "file", o.out, "rows", len(records))
	}

	if o.strict && failed > 0 {
		return &ExitError{Code: 2}
	}
	return nil
}
