package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"knowledgecore/internal/backend"
	"knowledgecore/internal/cli"
	"knowledgecore/internal/ontology"
	"knowledgecore/internal/reconciler"

	"github.com/spf13/cobra"
)

type ensureFlags struct {
	cli.CommandFlags
	SpaceID     string
	DryRun      bool
	Watch       bool
	MaxAttempts int
}

// newEnsureCmd creates the command that reconciles a space against a manifest.
func newEnsureCmd() *cobra.Command {
	flags := &ensureFlags{}

	cmd := &cobra.Command{
		Use:   "ensure <manifest>",
		Short: "Make a space contain the relations and types of a manifest",
		Long: `Reads an ontology manifest (YAML or JSON) and creates the relations and object
types missing from the space. Elements that already exist under a similar name are
reused, never duplicated or modified.

Examples:
  knowledgecore ensure crm.yaml --space bafy... --dry-run
  knowledgecore ensure crm.yaml --space bafy... --profile work
  knowledgecore ensure crm.yaml --space bafy... --watch

With --watch the manifest is reconciled once and again after every change to the
file until interrupted. Failed runs caused by an unavailable backend are retried.

The command exits with status 1 when the reconciliation fails, including when it
stops part way.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := flags.Options()
			if err != nil {
				return err
			}
			if flags.SpaceID == "" {
				return fmt.Errorf("--space is required")
			}

			manifestPath := args[0]
			manifest, err := ontology.Load(manifestPath)
			if err != nil {
				return err
			}

			session, err := connectFleet(cmd.Context(), &flags.CommandFlags)
			if err != nil {
				return err
			}
			defer session.Close()

			engine := reconciler.NewEngine(backend.NewClient(session.Router),
				reconciler.WithBatchDelay(session.Settings.Backend.BatchDelay()),
				reconciler.WithProfileResolver(session.Router),
			)
			printer := cli.NewPrinter(cmd.OutOrStdout(), options)

			if flags.Watch {
				return runEnsureWatch(cmd.Context(), engine, printer, manifestPath, flags)
			}

			progress := cli.StartProgress(cmd.ErrOrStderr(), options,
				fmt.Sprintf("Reconciling %s into space %s...", manifest.Name, flags.SpaceID))
			result, err := engine.EnsureOntology(cmd.Context(), reconciler.Request{
				Manifest: manifest,
				SpaceID:  flags.SpaceID,
				DryRun:   flags.DryRun,
				Profile:  flags.Profile,
			})
			if err != nil {
				progress.Fail("Reconciliation failed")
				if result != nil {
					_ = printer.RenderResult(result)
				}
				return err
			}
			progress.Stop()
			return printer.RenderResult(result)
		},
	}

	cli.RegisterCommonFlags(cmd, &flags.CommandFlags)
	cmd.Flags().StringVar(&flags.SpaceID, "space", "", "Target space id (required)")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "Report what would be created without creating anything")
	cmd.Flags().BoolVar(&flags.Watch, "watch", false, "Reconcile again whenever the manifest changes")
	cmd.Flags().IntVar(&flags.MaxAttempts, "max-attempts", 3, "Retries of a failed run in watch mode")
	return cmd
}

func runEnsureWatch(ctx context.Context, engine *reconciler.Engine, printer *cli.Printer, manifestPath string, flags *ensureFlags) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printer.Printf("Watching %s for changes (Ctrl+C to stop)\n", manifestPath)
	return engine.Watch(ctx, reconciler.WatchOptions{
		ManifestPath: manifestPath,
		SpaceID:      flags.SpaceID,
		Profile:      flags.Profile,
		DryRun:       flags.DryRun,
		MaxAttempts:  flags.MaxAttempts,
		OnResult: func(result *reconciler.Result, err error) {
			if result != nil {
				_ = printer.RenderResult(result)
			}
			if err != nil {
				printer.Printf("Error: %s\n", cli.FormatError(err))
			}
		},
	})
}

func init() {
	rootCmd.AddCommand(newEnsureCmd())
}
