package cli

import (
	"knowledgecore/internal/config"

	"github.com/spf13/cobra"
)

// CommandFlags holds the flag values shared by the commands that talk to the fleet.
type CommandFlags struct {
	// OutputFormat specifies the desired output format (table, json, yaml)
	OutputFormat string
	// NoHeaders suppresses the header row in table output
	NoHeaders bool
	// Quiet suppresses progress indicators and non-essential output
	Quiet bool
	// Debug enables verbose logging
	Debug bool
	// ConfigPath specifies a custom configuration directory path
	ConfigPath string
	// Profile overrides the default profile for this invocation
	Profile string
}

// RegisterCommonFlags registers the flags used by most commands:
//   - --output/-o: Output format (table, json, yaml), default: "table"
//   - --no-headers: Suppress header row in table output
//   - --quiet/-q: Suppress non-essential output
//   - --debug: Enable debug logging
//   - --config-path: Configuration directory
//   - --profile/-p: Target profile
func RegisterCommonFlags(cmd *cobra.Command, flags *CommandFlags) {
	cmd.Flags().StringVarP(&flags.OutputFormat, "output", "o", string(OutputFormatTable), "Output format (table, json, yaml)")
	cmd.Flags().BoolVar(&flags.NoHeaders, "no-headers", false, "Suppress header row in table output")
	cmd.Flags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.Flags().BoolVar(&flags.Debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&flags.ConfigPath, "config-path", DefaultConfigPath(), "Configuration directory")
	cmd.Flags().StringVarP(&flags.Profile, "profile", "p", "", "Target profile (personal, work, research)")
}

// DefaultConfigPath returns the user configuration directory, or "" when the home
// directory cannot be determined.
func DefaultConfigPath() string {
	path, err := config.GetDefaultConfigPath()
	if err != nil {
		return ""
	}
	return path
}

// Options converts the flags into rendering options.
func (f *CommandFlags) Options() (Options, error) {
	if err := ValidateOutputFormat(f.OutputFormat); err != nil {
		return Options{}, err
	}
	return Options{
		Format:    OutputFormat(f.OutputFormat),
		NoHeaders: f.NoHeaders,
		Quiet:     f.Quiet,
	}, nil
}
