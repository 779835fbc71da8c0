package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docwatch/internal/core/domain"
)

var (
	listAll  bool
	listJSON bool

	historyDocType string
	historyLimit   int
	historyJSON    bool

	statsDocType string
	statsJSON    bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List watched documents",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var historyCmd = &cobra.Command{
	Use:   "history [doc-url-or-id]",
	Short: "Show the change history of a document",
	Long:  `Show recent audit records for a document, most recent first.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var statsCmd = &cobra.Command{
	Use:   "stats [doc-url-or-id]",
	Short: "Summarise the change history of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "include documents no longer watched")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")

	historyCmd.Flags().StringVarP(&historyDocType, "type", "t", "", "document type (for URLs without one)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of records")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")

	statsCmd.Flags().StringVarP(&statsDocType, "type", "t", "", "document type (for URLs without one)")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	if err := requireTracker(); err != nil {
		return err
	}
	tenant, err := currentTenant()
	if err != nil {
		return err
	}

	docs, err := trackerService.List(cmd.Context(), tenant, listAll)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	if listJSON {
		return printJSON(cmd, docs)
	}
	if len(docs) == 0 {
		cmd.Println("No documents are being watched.")
		return nil
	}

	for i := range docs {
		d := docs[i]
		title := d.Title
		if title == "" {
			title = d.DocID
		}
		state := ""
		if !d.Active {
			state = " [stopped]"
		}
		cmd.Printf("  %s (%s)%s\n", title, d.DocType, state)
		cmd.Printf("      ID: %s  ->  %s\n", d.DocID, d.NotifyDestination)
		if !d.LastKnownModifiedAt.IsZero() {
			cmd.Printf("      Last edit: %s by %s\n", formatTime(d.LastKnownModifiedAt), orDash(d.LastKnownModifier))
		}
		if !d.LastNotificationAt.IsZero() {
			cmd.Printf("      Last notified: %s\n", formatTime(d.LastNotificationAt))
		}
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	if err := requireTracker(); err != nil {
		return err
	}
	tenant, err := currentTenant()
	if err != nil {
		return err
	}
	docID, err := lookupID(args[0], domain.DocType(historyDocType))
	if err != nil {
		return err
	}

	records, err := trackerService.History(cmd.Context(), tenant, docID, historyLimit)
	if err != nil {
		return fmt.Errorf("history failed: %w", err)
	}

	if historyJSON {
		return printJSON(cmd, records)
	}
	if len(records) == 0 {
		cmd.Printf("No changes recorded for %s.\n", docID)
		return nil
	}

	for i := range records {
		r := records[i]
		cmd.Printf("%s  %-13s %s\n", formatTime(r.DetectedAt), r.ChangeType, orDash(r.NewModifier))
		switch {
		case r.ChangeType == domain.ChangeTypeCorrection:
			cmd.Printf("    corrects %s\n", r.CorrectsID)
		case r.Debounced:
			cmd.Println("    debounced")
		case r.NotificationSent:
			cmd.Printf("    notified %s (%s)\n", r.Destination, r.NotificationRef)
		case r.NotificationError != "":
			cmd.Printf("    notification failed: %s\n", r.NotificationError)
		}
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	if err := requireTracker(); err != nil {
		return err
	}
	tenant, err := currentTenant()
	if err != nil {
		return err
	}
	docID, err := lookupID(args[0], domain.DocType(statsDocType))
	if err != nil {
		return err
	}

	stats, err := trackerService.Stats(cmd.Context(), tenant, docID)
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	if statsJSON {
		return printJSON(cmd, stats)
	}

	cmd.Printf("Change statistics for %s\n", docID)
	cmd.Printf("  Total changes:      %d\n", stats.TotalChanges)
	types := make([]string, 0, len(stats.ByType))
	for ct := range stats.ByType {
		types = append(types, string(ct))
	}
	sort.Strings(types)
	for _, ct := range types {
		cmd.Printf("    %-16s  %d\n", ct, stats.ByType[domain.ChangeType(ct)])
	}
	cmd.Printf("  Debounced:          %d\n", stats.Debounced)
	cmd.Printf("  Notifications sent: %d\n", stats.NotificationsSent)
	cmd.Printf("  Notify failures:    %d\n", stats.NotifyFailures)
	cmd.Printf("  Distinct modifiers: %d\n", stats.DistinctModifiers)
	if !stats.FirstDetectedAt.IsZero() {
		cmd.Printf("  First detected:     %s\n", formatTime(stats.FirstDetectedAt))
		cmd.Printf("  Last detected:      %s\n", formatTime(stats.LastDetectedAt))
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
