package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "High Tech Engineering storefront",
	Long: `Storefront backend for DXF cut files and 3D-printing items.

Serves the catalog, cart, checkout and admin console APIs, and provides
maintenance commands for admin accounts and catalog seeding.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./config.yaml)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
