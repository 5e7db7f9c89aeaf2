package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"gridcalc/internal/app"
)

const splashDelay = 60 * time.Millisecond

func newTUICmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui [file.csv ...]",
		Short: "Open files in the terminal grid",
		Long: `Open CSV files in the terminal grid, one sheet per file. The first file
is shown; switch with ":sheet NAME". Files changed on disk are reloaded.
Press ? inside the grid for key bindings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, args, root)
		},
	}
	cmd.Flags().BoolVar(&root.noSplash, "no-splash", false, "Skip the start screen")
	return cmd
}

func runTUI(cmd *cobra.Command, args []string, root *rootOptions) error {
	cmd.SilenceUsage = true

	wb, files, err := root.workbook(args)
	if err != nil {
		return err
	}
	logger, closeLog, err := root.tuiLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	a := app.NewApp(app.Options{
		Workbook:    wb,
		Files:       files,
		Encoding:    root.enc,
		CacheSize:   root.cfg.CacheSize,
		ColumnWidth: root.cfg.ColumnWidth,
		Logger:      logger,
	})

	s, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("cannot create screen: %w", err)
	}
	if err := s.Init(); err != nil {
		return fmt.Errorf("cannot init screen: %w", err)
	}
	defer s.Fini()
	s.Clear()

	if !root.noSplash {
		app.Splash(s, splashDelay)
	}
	return a.Run(s)
}

// tuiLogger returns the logger used while the screen is active. Output on
// stderr would corrupt the grid, so debug logs go to a file in the temp
// directory and everything else is dropped.
func (o *rootOptions) tuiLogger() (*slog.Logger, func(), error) {
	if !o.cfg.Debug {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	path := filepath.Join(os.TempDir(), "gridcalc.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening debug log: %w", err)
	}
	o.logger.Debug("debug log", "file", path)
	return newLogger(f, true), func() { f.Close() }, nil
}
