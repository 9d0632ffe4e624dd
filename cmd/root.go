package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clydetadiwa/folio/internal/build"
)

var rootCmd = &cobra.Command{
	Use:     "folio",
	Short:   "Personal portfolio and blog backend",
	Long:    "Backend for a personal portfolio site: public content API, admin CMS, and subscriber email notifications.",
	Version: build.String(),
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(createAdminCmd)
}
