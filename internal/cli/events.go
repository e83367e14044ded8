package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var eventsLimit int

var eventsCmd = &cobra.Command{
	Use:   "events <video>",
	Short: "Show the analysis events recorded for a video",
	Long: `Show analysis.completed and analysis.failed events from the JetStream
stream. Requires NATS_ENABLED=true.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().IntVarP(&eventsLimit, "limit", "n", 50, "max events")
}

func runEvents(cmd *cobra.Command, args []string) error {
	videoID, err := videoArg(args[0])
	if err != nil {
		return err
	}
	if application.Events == nil {
		return errors.New("events are disabled, set NATS_ENABLED=true")
	}

	events, err := application.Events.AnalysisEvents(context.Background(), videoID, eventsLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(out, "No events found.")
		return nil
	}
	for _, e := range events {
		fmt.Fprintf(out, "%s  %-18s", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Type)
		if e.Reason != "" {
			fmt.Fprintf(out, "  %s\n", e.Reason)
			continue
		}
		fmt.Fprintf(out, "  #%d %s, %d/%d classified\n", e.AnalysisID, e.Model, e.Stats.Classified, e.Stats.UsedForAnalysis)
	}
	return nil
}
