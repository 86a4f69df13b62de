package app

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/frannie30/ip-add-identifier/internal/entries"
	"github.com/frannie30/ip-add-identifier/internal/identity"
	"github.com/frannie30/ip-add-identifier/internal/output"
)

var entriesOutput string

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Manage saved snapshots",
	Long: `List, inspect and delete saved snapshots.

Entries are listed most recent first. Ids are never reused, so a deleted id
stays unknown for the lifetime of the store.`,
}

var entriesListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List saved snapshots",
	Example: `  ip-identifier entries list --output text`,
	Args:    cobra.NoArgs,
	RunE:    runEntriesList,
}

var entriesGetCmd = &cobra.Command{
	Use:     "get <id>",
	Short:   "Show a saved snapshot",
	Example: `  ip-identifier entries get 3`,
	Args:    cobra.ExactArgs(1),
	RunE:    runEntriesGet,
}

var entriesDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Short:   "Delete a saved snapshot",
	Example: `  ip-identifier entries delete 3`,
	Args:    cobra.ExactArgs(1),
	RunE:    runEntriesDelete,
}

func init() {
	entriesCmd.PersistentFlags().StringVarP(&entriesOutput, "output", "o", output.FormatText, "output format: json, yaml or text")
	entriesCmd.AddCommand(entriesListCmd, entriesGetCmd, entriesDeleteCmd)
	RootCmd.AddCommand(entriesCmd)
}

func openService() (*identity.Service, entries.Store, error) {
	if !output.ValidFormat(entriesOutput) {
		return nil, nil, fmt.Errorf("unknown output format %q", entriesOutput)
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	// Listing and lookups never aggregate.
	return identity.NewService(nil, store), store, nil
}

func runEntriesList(cmd *cobra.Command, args []string) error {
	svc, store, err := openService()
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := svc.ListEntries(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	if list == nil {
		list = []entries.Summary{}
	}
	return output.WriteSummaries(cmd.OutOrStdout(), entriesOutput, list)
}

func runEntriesGet(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	svc, store, err := openService()
	if err != nil {
		return err
	}
	defer store.Close()

	e, err := svc.GetEntry(commandContext(cmd), id)
	if errors.Is(err, entries.ErrNotFound) {
		return fmt.Errorf("entry %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("get entry: %w", err)
	}
	return writeEntry(cmd.OutOrStdout(), entriesOutput, e)
}

func runEntriesDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	svc, store, err := openService()
	if err != nil {
		return err
	}
	defer store.Close()

	err = svc.DeleteEntry(commandContext(cmd), id)
	if errors.Is(err, entries.ErrNotFound) {
		return fmt.Errorf("entry %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted entry %d\n", id)
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func writeEntry(w io.Writer, format string, e entries.Entry) error {
	if format == output.FormatJSON {
		return output.WriteJSON(w, e)
	}

	snap, err := identity.DecodeSnapshot(e)
	if err != nil {
		return err
	}
	if format == output.FormatYAML {
		return output.WriteYAML(w, map[string]any{
			"id":         e.ID,
			"title":      e.Title,
			"created_at": e.CreatedAt,
			"data":       snap,
		})
	}

	fmt.Fprintf(w, "#%d %s (saved %s)\n\n", e.ID, e.Title, e.CreatedAt.UTC().Format(time.RFC3339))
	return output.WriteSnapshot(w, output.FormatText, &snap)
}
