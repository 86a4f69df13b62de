package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frannie30/ip-add-identifier/internal/identity"
	"github.com/frannie30/ip-add-identifier/internal/output"
)

var (
	fetchOutput string
	fetchSave   bool
	fetchTitle  string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Look up the current public IP identity",
	Long: `Query every configured provider once and print the merged snapshot.

Providers that fail or time out are skipped; the command only fails when no
provider answered at all. With --save the snapshot is also stored as a new
entry.`,
	Example: `  ip-identifier fetch
  ip-identifier fetch --output text
  ip-identifier fetch --save --title "home"`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", output.FormatJSON, "output format: json, yaml or text")
	fetchCmd.Flags().BoolVar(&fetchSave, "save", false, "save the snapshot as a new entry")
	fetchCmd.Flags().StringVar(&fetchTitle, "title", "", "title for the saved entry (default \"Snapshot #<id>\")")
	RootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	if !output.ValidFormat(fetchOutput) {
		return fmt.Errorf("unknown output format %q", fetchOutput)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := identity.NewService(newAggregator(cfg), store)

	ctx, cancel := context.WithTimeout(commandContext(cmd), cfg.RequestTimeout)
	defer cancel()

	snap, err := svc.Aggregate(ctx)
	if err != nil {
		return fmt.Errorf("fetch identity: %w", err)
	}
	if err := output.WriteSnapshot(cmd.OutOrStdout(), fetchOutput, snap); err != nil {
		return err
	}

	if fetchSave {
		id, err := svc.CreateEntry(ctx, *snap, fetchTitle)
		if err != nil {
			return fmt.Errorf("save entry: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved entry %d\n", id)
	}
	return nil
}
