package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driving"
)

var (
	watchDocType     string
	watchDestination string
	watchOwner       string

	unwatchDocType     string
	unwatchDestination string

	checkDocType string
)

var watchCmd = &cobra.Command{
	Use:   "watch [doc-url-or-id]",
	Short: "Start watching a document",
	Long: `Start watching a document and notify a destination when it changes.

The document may be given as a URL, which carries its own type, or as a bare
ID together with --type. The current metadata is fetched immediately and
recorded as the first observation.

Examples:
  docwatch watch https://docs.google.com/document/d/1AbC.../edit --to mailto:team@example.com
  docwatch watch 1AbC... --type spreadsheet --to https://hooks.example.com/docwatch`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var unwatchCmd = &cobra.Command{
	Use:   "unwatch [doc-url-or-id]",
	Short: "Stop watching a document",
	Long: `Stop watching a document. Without --to every destination for the
document is stopped. History is kept.`,
	Args: cobra.ExactArgs(1),
	RunE: runUnwatch,
}

var checkCmd = &cobra.Command{
	Use:   "check [doc-url-or-id]",
	Short: "Check a watched document for changes now",
	Long: `Fetch fresh metadata for a watched document, bypassing the cache, and
run change detection for each destination immediately.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	watchCmd.Flags().StringVarP(&watchDocType, "type", "t", "",
		"document type: document, spreadsheet, presentation or file")
	watchCmd.Flags().StringVar(&watchDestination, "to", "", "notification destination (mailto: or http(s) URL)")
	watchCmd.Flags().StringVar(&watchOwner, "owner", "", "user requesting the watch")
	_ = watchCmd.MarkFlagRequired("to")

	unwatchCmd.Flags().StringVarP(&unwatchDocType, "type", "t", "", "document type (for URLs without one)")
	unwatchCmd.Flags().StringVar(&unwatchDestination, "to", "", "stop only this destination")

	checkCmd.Flags().StringVarP(&checkDocType, "type", "t", "", "document type (for URLs without one)")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(unwatchCmd)
	rootCmd.AddCommand(checkCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := requireTracker(); err != nil {
		return err
	}
	tenant, err := currentTenant()
	if err != nil {
		return err
	}

	docID, docType, err := resolve(args[0], domain.DocType(watchDocType))
	if err != nil {
		return err
	}

	doc, err := trackerService.Watch(cmd.Context(), tenant, driving.WatchRequest{
		DocID:       docID,
		DocType:     docType,
		Destination: watchDestination,
		OwnerUserID: watchOwner,
	})
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}

	title := doc.Title
	if title == "" {
		title = doc.DocID
	}
	cmd.Printf("Watching %s (%s)\n", title, doc.DocType)
	cmd.Printf("  ID:          %s\n", doc.DocID)
	cmd.Printf("  Destination: %s\n", doc.NotifyDestination)
	if doc.LastKnownModifier != "" {
		cmd.Printf("  Last edit:   %s by %s\n", formatTime(doc.LastKnownModifiedAt), doc.LastKnownModifier)
	}
	return nil
}

func runUnwatch(cmd *cobra.Command, args []string) error {
	if err := requireTracker(); err != nil {
		return err
	}
	tenant, err := currentTenant()
	if err != nil {
		return err
	}

	docID, err := lookupID(args[0], domain.DocType(unwatchDocType))
	if err != nil {
		return err
	}

	n, err := trackerService.Unwatch(cmd.Context(), tenant, docID, unwatchDestination)
	if errors.Is(err, domain.ErrNotFound) {
		cmd.Printf("%s is not being watched\n", docID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("unwatch failed: %w", err)
	}
	cmd.Printf("Stopped %d watch(es) for %s\n", n, docID)
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	if err := requireTracker(); err != nil {
		return err
	}
	tenant, err := currentTenant()
	if err != nil {
		return err
	}

	docID, err := lookupID(args[0], domain.DocType(checkDocType))
	if err != nil {
		return err
	}

	results, err := trackerService.Check(cmd.Context(), tenant, docID)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	failed := 0
	for i := range results {
		r := results[i]
		cmd.Printf("%s\n", r.Destination)
		switch {
		case r.Detection.ShouldNotify():
			cmd.Printf("  %s: %s\n", r.Detection.ChangeType.Description(), r.Detection.Reason)
		case r.Detection.HasChanged:
			cmd.Printf("  %s (not notified): %s\n", r.Detection.ChangeType.Description(), r.Detection.Reason)
		case r.Detection.Reason != "":
			cmd.Printf("  %s\n", r.Detection.Reason)
		}
		if r.NotificationSent {
			cmd.Printf("  Notification sent (%s)\n", r.NotificationRef)
		}
		if r.Error != "" {
			failed++
			cmd.Printf("  Error: %s\n", r.Error)
		}
	}
	if failed > 0 {
		return fmt.Errorf("check completed with %d error(s)", failed)
	}
	return nil
}
