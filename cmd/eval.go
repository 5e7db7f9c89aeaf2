package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gridcalc/internal/app"
	"gridcalc/internal/grid"
)

type evalOptions struct {
	files  []string
	sheet  string
	at     string
	format string
	strict bool
}

func newEvalCmd(root *rootOptions) *cobra.Command {
	o := &evalOptions{}
	cmd := &cobra.Command{
		Use:   "eval <formula>",
		Short: "Evaluate one formula",
		Long: `Evaluate a formula and print its value.

The leading '=' is optional. Cell references resolve against the sheets
loaded with --file; the formula is evaluated as if it were stored in the
cell given by --at on the sheet given by --sheet.

Errors print as "Error: <message>". With --strict they also exit with
code 2.

Examples:
  gridcalc eval "2^10"
  gridcalc eval "=SUMIF(B2:B20, \">100\")" --file sales.csv
  gridcalc eval "=prices!B2*qty!B2" --file prices.csv --file qty.csv
  gridcalc eval "=NOW()" --format "yyyy-mm-dd hh:mm"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, args[0], root, o)
		},
	}
	cmd.Flags().StringArrayVarP(&o.files, "file", "f", nil, "CSV file to load as a sheet (repeatable)")
	cmd.Flags().StringVar(&o.sheet, "sheet", "", "Sheet the formula is evaluated on (default: first file, or the configured default sheet)")
	cmd.Flags().StringVar(&o.at, "at", "A1", "Cell the formula is evaluated in")
	cmd.Flags().StringVar(&o.format, "format", "", "Display format for the result, e.g. 0.00 or yyyy-mm-dd")
	cmd.Flags().BoolVar(&o.strict, "strict", false, "Exit with code 2 when the formula fails")
	return cmd
}

func runEval(cmd *cobra.Command, formula string, root *rootOptions, o *evalOptions) error {
	cmd.SilenceUsage = true

	row, col, ok := grid.ParseCellRef(o.at)
	if !ok {
		return fmt.Errorf("invalid cell %q", o.at)
	}
	wb, _, err := root.workbook(o.files)
	if err != nil {
		return err
	}
	sheet := o.sheet
	if sheet == "" {
		sheet = root.cfg.DefaultSheet
	}
	if sheet == "" {
		sheet = wb.ActiveSheet().Name
	} else if _, found := wb.Sheet(sheet); !found {
		return fmt.Errorf("no sheet %q", sheet)
	}

	if !strings.HasPrefix(strings.TrimSpace(formula), "=") {
		formula = "=" + formula
	}
	v := root.newEngine(wb).Evaluate(formula, o.format, sheet, row, col)
	fmt.Fprintln(cmd.OutOrStdout(), app.DisplayValue(v))
	if o.strict && isErrorResult(v) {
		return &ExitError{Code: 2}
	}
	return nil
}
