package cmd

import (
	"knowledgecore/internal/cli"

	"github.com/spf13/cobra"
)

// newProfilesCmd creates the command that lists the configured profiles.
func newProfilesCmd() *cobra.Command {
	flags := &cli.CommandFlags{}

	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List the configured profiles",
		Long: `Lists the fleet members from the configuration, marking the default profile.
Credentials are never printed: a configured credential shows as [REDACTED].`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := flags.Options()
			if err != nil {
				return err
			}
			settings, err := loadSettings(flags)
			if err != nil {
				return err
			}
			return cli.NewPrinter(cmd.OutOrStdout(), options).RenderProfiles(cli.DescribeProfiles(settings))
		},
	}

	cli.RegisterCommonFlags(cmd, flags)
	return cmd
}

func init() {
	rootCmd.AddCommand(newProfilesCmd())
}
