package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oukeidos/mdtrans/internal/cleanup"
	"github.com/oukeidos/mdtrans/internal/files"
	"github.com/oukeidos/mdtrans/internal/logger"
	"github.com/oukeidos/mdtrans/internal/version"
)

type globalOptions struct {
	debug      bool
	logFile    string
	configPath string
	envFile    string
}

func execute() {
	cmd := newRootCmd()
	err := cmd.Execute()
	if cleanupErr := cleanup.RunAll(); cleanupErr != nil {
		fmt.Fprintln(os.Stderr, cleanupErr)
		if err == nil {
			err = cleanupErr
		}
	}
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	global := &globalOptions{}
	translateOpts := translateOptions{}

	cmd := &cobra.Command{
		Use:   "mdtrans",
		Short: "Markdown translator for DeepLX-compatible endpoints",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(global)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				if hasAnyFlagSet(cmd) {
					_ = cmd.Usage()
					return fmt.Errorf("an input file is required")
				}
				return cmd.Help()
			}
			if isSubcommand(cmd, args[0]) {
				_ = cmd.Usage()
				return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
			}
			return runTranslate(cmd, args, global, &translateOpts)
		},
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
	}

	cmd.Version = version.Info()
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.SetUsageTemplate(rootUsageTemplate)

	pf := cmd.PersistentFlags()
	pf.BoolVar(&global.debug, "debug", false, "Enable debug logging")
	pf.StringVar(&global.logFile, "log-file", "", "Append machine-readable JSONL logs to this file")
	pf.StringVar(&global.configPath, "config", "", "Configuration file (.toml, .yaml); default searches the working directory")
	pf.StringVar(&global.envFile, "env-file", ".env", "Load MDTRANS_* variables from this file if it exists")

	addTranslateFlags(cmd, &translateOpts)

	cmd.AddCommand(
		newTranslateCmd(global),
		newConfigCmd(global),
		newEnvCmd(),
		newLanguagesCmd(),
		newCacheCmd(global),
	)

	cmd.InitDefaultCompletionCmd()
	for _, sub := range cmd.Commands() {
		if sub.Name() == "completion" {
			sub.SetUsageTemplate(subcommandUsageTemplate)
			break
		}
	}
	return cmd
}

func setupLogging(global *globalOptions) error {
	level := logger.LevelInfo
	if global.debug {
		level = logger.LevelDebug
	}
	var logFileW io.Writer
	if global.logFile != "" {
		if err := files.RejectSymlinkPath(global.logFile); err != nil {
			return err
		}
		f, err := os.OpenFile(global.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		cleanup.Register("log file", f.Close)
		logFileW = f
	}
	logger.Init(level, logFileW)
	return nil
}

func hasAnyFlagSet(cmd *cobra.Command) bool {
	changed := false
	cmd.Flags().Visit(func(_ *pflag.Flag) {
		changed = true
	})
	return changed
}

func isSubcommand(cmd *cobra.Command, name string) bool {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return true
		}
	}
	return false
}
