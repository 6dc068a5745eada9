package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oukeidos/mdtrans/internal/config"
)

func newConfigCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create, show or check the configuration file",
	}
	cmd.SetUsageTemplate(groupUsageTemplate)
	cmd.AddCommand(
		newConfigInitCmd(),
		newConfigShowCmd(global),
		newConfigValidateCmd(global),
	)
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write an example configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultLocations[0]
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Lstat(path); err == nil {
				ok, err := confirmOverwrite(path, force)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s exists; not overwritten", path)
				}
			}
			if err := config.WriteExample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote example configuration to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "yes", "y", false, "Overwrite an existing file without asking")
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func newConfigShowCmd(global *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (file, environment, defaults)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(global)
			if err != nil {
				return err
			}
			var target string
			switch format {
			case "toml":
				target = "effective.toml"
			case "yaml":
				target = "effective.yaml"
			default:
				return fmt.Errorf("unsupported format %q (expected toml or yaml)", format)
			}
			data, err := cfg.Encode(target)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if path == "" {
				path = "(defaults)"
			}
			fmt.Fprintf(out, "# source: %s\n", path)
			_, err = out.Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "toml", "Output format (toml or yaml)")
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func newConfigValidateCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(global)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if path == "" {
				path = "(defaults)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration OK (source: %s, provider: %s, %s -> %s)\n",
				path, cfg.Provider, cfg.SourceLang, cfg.TargetLang)
			return nil
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
