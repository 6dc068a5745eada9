package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oukeidos/mdtrans/internal/language"
)

func newLanguagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "languages",
		Aliases: []string{"list"},
		Short:   "List supported language codes",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Supported Languages:")
			fmt.Fprintf(out, "  %-35s [%s]\n", "Detect automatically (source only)", language.Auto)
			for _, l := range language.GetSupportedLanguages() {
				fmt.Fprintf(out, "  %-35s [%s]\n", l.Name, l.ID)
			}
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
