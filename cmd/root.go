package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"gridcalc/config"
	"gridcalc/internal/calc"
	"gridcalc/internal/grid"
	"gridcalc/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// rootOptions holds the persistent flags and the settings resolved from
// them and the config file before any command runs.
type rootOptions struct {
	debug     bool
	encoding  string
	cacheSize int
	noSplash  bool

	cfg    config.Config
	enc    storage.Encoding
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "gridcalc [file.csv ...]",
		Short: "Terminal spreadsheet with a formula engine",
		Long: `gridcalc opens CSV files as sheets of a workbook in a terminal grid.
Cells starting with '=' are formulas; they may reference cells of any
loaded sheet by the sheet's file name, e.g. =SUM(prices!B2:B10).

Without a subcommand the terminal grid starts.`,
		Version:       Version,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, args, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVar(&opts.debug, "debug", false, "Enable debug logging (env: GRIDCALC_DEBUG)")
	pf.StringVar(&opts.encoding, "encoding", "", "CSV encoding: utf-8 or latin1 (default from config)")
	pf.IntVar(&opts.cacheSize, "cache-size", 0, "Expression cache capacity (default from config)")
	root.Flags().BoolVar(&opts.noSplash, "no-splash", false, "Skip the start screen")

	root.AddCommand(
		newTUICmd(opts),
		newEvalCmd(opts),
		newCalcCmd(opts),
		newRefsCmd(opts),
		newFuncsCmd(opts),
		newConfigCmd(),
	)
	return root
}

// setup merges flags over the config file.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if o.encoding != "" {
		cfg.Encoding = o.encoding
	}
	if o.cacheSize > 0 {
		cfg.CacheSize = o.cacheSize
	}
	if o.debug {
		cfg.Debug = true
	}
	enc, err := storage.ParseEncoding(cfg.Encoding)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.enc = enc
	o.logger = newLogger(cmd.ErrOrStderr(), cfg.Debug)
	return nil
}

// workbook loads files as sheets and maps each sheet name to its file.
func (o *rootOptions) workbook(files []string) (*grid.Workbook, map[string]string, error) {
	wb, err := storage.LoadWorkbook(files, o.enc)
	if err != nil {
		return nil, nil, err
	}
	paths := make(map[string]string, len(files))
	for _, f := range files {
		paths[storage.SheetName(f)] = f
	}
	o.logger.Debug("workbook loaded", "sheets", len(wb.Sheets))
	return wb, paths, nil
}

func (o *rootOptions) newEngine(wb *grid.Workbook) *calc.Engine {
	return calc.New(wb, calc.Options{
		CacheSize:    o.cfg.CacheSize,
		Logger:       o.logger,
		DefaultSheet: o.cfg.DefaultSheet,
	})
}

// newLogger returns a text logger without time and level attributes.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func Execute() error {
	return newRootCmd().Execute()
}
