package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:   "vault-updater",
		Short: "Enrichment pipeline for the CADD vault catalog",
		Long: `vault-updater refreshes the computational drug discovery catalog with
repository metadata from GitHub and publication metadata from Crossref,
Europe PMC, arXiv, and bioRxiv.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newUpdateCommand(&configFlag))

	return rootCmd
}
