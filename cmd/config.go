package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"gridcalc/config"
	"gridcalc/internal/storage"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the stored settings",
		Args:  cobra.NoArgs,
		// skip the root setup so a broken file can still be repaired
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := config.Path()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), p)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective settings as YAML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				out, err := yaml.Marshal(cfg)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Store one setting",
			Long:  "Store one setting in the config file. Keys: " + strings.Join(config.Keys, ", ") + ".",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				cmd.SilenceUsage = true
				key, value := args[0], args[1]
				if key == "encoding" {
					if _, err := storage.ParseEncoding(value); err != nil {
						return err
					}
				}
				if err := config.Update(func(c *config.Config) error { return c.Set(key, value) }); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "set %s = %s\n", key, value)
				return nil
			},
		},
	)
	return cmd
}
