package cmd

import (
	"fmt"

	"knowledgecore/internal/cli"

	"github.com/spf13/cobra"
)

// newCheckCmd creates the command that checks the health of the fleet.
func newCheckCmd() *cobra.Command {
	flags := &cli.CommandFlags{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the health of the knowledge fleet",
		Long: `Probes the health endpoint of every configured fleet member concurrently, or of
a single member with --profile. A member that is down is reported as unhealthy and
never hides the others.

Examples:
  knowledgecore check
  knowledgecore check --profile work -o json

The command exits with status 1 when any checked member is unhealthy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := flags.Options()
			if err != nil {
				return err
			}

			session, err := connectFleet(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer session.Close()

			printer := cli.NewPrinter(cmd.OutOrStdout(), options)
			progress := cli.StartProgress(cmd.ErrOrStderr(), options, "Checking fleet health...")
			statuses := session.Router.HealthCheck(cmd.Context(), flags.Profile)
			progress.Stop()

			if err := printer.RenderHealth(statuses); err != nil {
				return err
			}

			unhealthy := 0
			for _, status := range statuses {
				if !status.Healthy() {
					unhealthy++
				}
			}
			if unhealthy > 0 {
				return fmt.Errorf("%d of %d fleet members unhealthy", unhealthy, len(statuses))
			}
			return nil
		},
	}

	cli.RegisterCommonFlags(cmd, flags)
	return cmd
}

func init() {
	rootCmd.AddCommand(newCheckCmd())
}
