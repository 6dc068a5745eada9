package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oukeidos/mdtrans/internal/auth"
)

type envOptions struct {
	service string
}

func newEnvCmd() *cobra.Command {
	opts := envOptions{}
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage endpoint credentials in the OS keychain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvStatus(cmd, &opts)
		},
	}

	cmd.SetUsageTemplate(groupUsageTemplate)
	cmd.PersistentFlags().StringVar(&opts.service, "service", auth.ServiceDeepLX,
		fmt.Sprintf("Service to manage (%s)", strings.Join(auth.Services(), " or ")))

	cmd.AddCommand(
		newEnvSetupCmd(&opts),
		newEnvDeleteCmd(&opts),
		newEnvStatusCmd(&opts),
	)
	return cmd
}

func newEnvSetupCmd(opts *envOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Save a credential to the keychain (prompt only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvSetup(cmd, opts)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func newEnvDeleteCmd(opts *envOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a credential from the keychain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvDelete(cmd, opts)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func newEnvStatusCmd(opts *envOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show credential status (default if no action given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvStatus(cmd, opts)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func validService(name string) (string, error) {
	svc := strings.ToLower(strings.TrimSpace(name))
	for _, known := range auth.Services() {
		if svc == known {
			return svc, nil
		}
	}
	return "", fmt.Errorf("invalid service %q; must be one of: %s", name, strings.Join(auth.Services(), ", "))
}

func runEnvSetup(cmd *cobra.Command, opts *envOptions) error {
	svc, err := validService(opts.service)
	if err != nil {
		return err
	}
	key, err := promptForKey(fmt.Sprintf("%s: ", auth.Label(svc)))
	if err != nil {
		return fmt.Errorf("error reading key: %w", err)
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%s is required for setup", auth.Label(svc))
	}
	if err := saveKey(svc, key); err != nil {
		return fmt.Errorf("error saving key: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to keychain.\n", auth.Label(svc))
	return nil
}

func runEnvDelete(cmd *cobra.Command, opts *envOptions) error {
	svc, err := validService(opts.service)
	if err != nil {
		return err
	}
	if err := deleteKey(svc); err != nil {
		return fmt.Errorf("error deleting key: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s from keychain.\n", auth.Label(svc))
	return nil
}

func runEnvStatus(cmd *cobra.Command, opts *envOptions) error {
	svc, err := validService(opts.service)
	if err != nil {
		return err
	}
	label := auth.Label(svc)
	if getStatus(svc) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: Found (source=%s)\n", label, auth.SourceKeychain)
		return nil
	}
	if _, ok := getEnvKey(svc); ok {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: Found (source=%s %s)\n", label, auth.SourceEnv, auth.EnvVar(svc))
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: Not Found (keychain empty, %s not set)\n", label, auth.EnvVar(svc))
	return nil
}
