package cli

import (
	"errors"
	"fmt"
	"strings"

	"knowledgecore/internal/config"
	"knowledgecore/internal/fleet"
	"knowledgecore/internal/identity"
	"knowledgecore/internal/ontology"
	"knowledgecore/internal/reconciler"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a failed command, a failed reconciliation included.
	ExitCodeError = 1
	// ExitCodeConfig indicates invalid configuration or an unknown profile.
	ExitCodeConfig = 2
)

// ExitCode determines the exit code for err.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitCodeSuccess
	case config.IsConfigurationError(err),
		identity.IsInvalidProfile(err),
		fleet.IsUnknownProfile(err):
		return ExitCodeConfig
	default:
		return ExitCodeError
	}
}

// FormatError turns err into a user-facing message with a hint where one helps.
func FormatError(err error) string {
	var (
		collection  *config.ConfigurationErrorCollection
		validation  *ontology.ValidationError
		unavailable *fleet.RemoteUnavailableError
		remote      *fleet.RemoteError
		partial     *reconciler.PartialApplicationError
	)

	switch {
	case errors.As(err, &collection):
		return collection.GetDetailedReport()

	case errors.As(err, &validation):
		var sb strings.Builder
		fmt.Fprintf(&sb, "Manifest %q is invalid:\n", validation.Manifest)
		for _, p := range validation.Problems {
			fmt.Fprintf(&sb, "  - %s\n", p.Error())
		}
		sb.WriteString("Nothing was sent to the fleet.")
		return sb.String()

	case errors.As(err, &partial):
		return fmt.Sprintf("%v\nCreated before the failure: %d relations, %d types. Re-run to continue; existing elements are skipped.",
			err, len(partial.Result.CreatedRelations), len(partial.Result.CreatedTypes))

	case errors.As(err, &unavailable):
		return fmt.Sprintf("%v\nCheck that the %s backend is running and reachable (knowledgecore check --profile %s).",
			err, unavailable.Profile, unavailable.Profile)

	case fleet.IsNotFound(err):
		return fmt.Sprintf("%v\nThe space does not exist on this profile. List spaces with the list_spaces tool or pick another --profile.", err)

	case errors.As(err, &remote):
		return err.Error()

	case identity.IsInvalidProfile(err), fleet.IsUnknownProfile(err):
		return fmt.Sprintf("%v\nRun 'knowledgecore profiles' to see the configured profiles.", err)

	default:
		return err.Error()
	}
}
