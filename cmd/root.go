package cmd

import (
	"fmt"
	"os"

	"knowledgecore/internal/cli"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the knowledgecore application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "knowledgecore",
	Short: "Route knowledge operations across a fleet of knowledge stores",
	Long: `knowledgecore fronts a fleet of knowledge-store backends, one per profile
(personal, work, research). It routes every request to the backend selected by the
caller's profile and keeps spaces in line with declarative ontology manifests.

Run 'knowledgecore serve' to start the MCP and HTTP gateway, or use 'ensure' to
reconcile a space directly from the command line.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
	// Errors are printed by Execute with hints.
	SilenceErrors: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It runs the root command and exits with a code derived from the error kind.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "knowledgecore version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+cli.FormatError(err))
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
