package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show poller health",
	Long: `Show the poller health snapshot. Counters cover the current process
only; run this against "docwatch serve" through the /healthz endpoint to see
a long-running poller.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if err := requireTracker(); err != nil {
		return err
	}

	status, err := trackerService.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	if statusJSON {
		return printJSON(cmd, newHealthReport(status))
	}

	m := status.Metrics
	cmd.Printf("Health: %s\n", status.Health)
	cmd.Printf("  Documents tracked:   %d\n", m.DocsTracked)
	cmd.Printf("  Cycles completed:    %d\n", m.CyclesCompleted)
	cmd.Printf("  Last poll:           %s (%s)\n", formatTime(m.LastPollStartedAt), m.LastPollDuration)
	cmd.Printf("  Success rate:        %.0f%%\n", m.SuccessRate*100)
	cmd.Println("  Last hour:")
	cmd.Printf("    API calls:         %d\n", m.APICallsLastHour)
	cmd.Printf("    Operations:        %d\n", m.OperationsLastHour)
	cmd.Printf("    Errors:            %d\n", m.ErrorsLastHour)
	cmd.Printf("    Rate limit errors: %d\n", m.RateLimitErrorsLastHour)
	cmd.Printf("    Notifications:     %d\n", m.NotificationsLastHour)
	return nil
}
