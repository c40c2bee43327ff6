package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jodok/bees/internal/models"
	"github.com/jodok/bees/internal/server"
	"github.com/spf13/cobra"
)

var (
	eventTitle string
	eventTime  string
	eventEnd   string
	eventTags  []string

	eventsFrom  string
	eventsTo    string
	eventsTag   string
	eventsLimit int
	eventsJSON  bool
)

var eventsCmd = &cobra.Command{
	Use:     "events",
	Aliases: []string{"event"},
	Short:   "Manage timeline events",
	Long:    `Add and list free-form annotations such as inspections, swarms or feedings.`,
}

var eventsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an event",
	Long: `Add an event to the timeline.

Examples:
  bees events add --title "Swarm caught" --tag swarm
  bees events add --title "Feeding" --time 2024-09-01T18:00:00Z --end 2024-09-03T18:00:00Z`,
	Args: cobra.NoArgs,
	RunE: runEventsAdd,
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List events, newest first",
	Args:  cobra.NoArgs,
	RunE:  runEventsList,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsAddCmd)
	eventsCmd.AddCommand(eventsListCmd)

	eventsAddCmd.Flags().StringVarP(&eventTitle, "title", "t", "", "event title (required)")
	eventsAddCmd.Flags().StringVar(&eventTime, "time", "", "start time, RFC3339 (default now)")
	eventsAddCmd.Flags().StringVar(&eventEnd, "end", "", "end time, RFC3339")
	eventsAddCmd.Flags().StringSliceVar(&eventTags, "tag", nil, "tag, repeatable")
	_ = eventsAddCmd.MarkFlagRequired("title")

	eventsListCmd.Flags().StringVar(&eventsFrom, "from", "", "only events at or after, RFC3339")
	eventsListCmd.Flags().StringVar(&eventsTo, "to", "", "only events before, RFC3339")
	eventsListCmd.Flags().StringVar(&eventsTag, "tag", "", "only events with this tag")
	eventsListCmd.Flags().IntVar(&eventsLimit, "limit", 100, "maximum number of events")
	eventsListCmd.Flags().BoolVar(&eventsJSON, "json", false, "print events as JSON")
}

func parseTimeFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: expected RFC3339, got %q", name, value)
	}
	return t.UTC(), nil
}

func runEventsAdd(cmd *cobra.Command, args []string) error {
	start, err := parseTimeFlag("time", eventTime)
	if err != nil {
		return err
	}
	event := &models.Event{Title: eventTitle, Time: start, Tags: eventTags}
	if eventEnd != "" {
		end, err := parseTimeFlag("end", eventEnd)
		if err != nil {
			return err
		}
		event.EndTime = &end
	}

	st, err := openStack(cmd.Context(), cfg, server.StackOptions{})
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Hub.CreateEvent(cmd.Context(), event); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "event %d added at %s\n", event.ID, event.Time.Format(time.RFC3339))
	return nil
}

func runEventsList(cmd *cobra.Command, args []string) error {
	from, err := parseTimeFlag("from", eventsFrom)
	if err != nil {
		return err
	}
	to, err := parseTimeFlag("to", eventsTo)
	if err != nil {
		return err
	}

	st, err := openStack(cmd.Context(), cfg, server.StackOptions{})
	if err != nil {
		return err
	}
	defer st.Close()

	events, err := st.Hub.ListEvents(cmd.Context(), models.EventFilters{From: from, To: to, Tag: eventsTag, Limit: eventsLimit})
	if err != nil {
		return err
	}
	if eventsJSON {
		return printJSON(cmd.OutOrStdout(), events)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tEND\tTITLE\tTAGS")
	for _, e := range events {
		end := "-"
		if e.EndTime != nil {
			end = e.EndTime.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Time.Format(time.RFC3339), end, e.Title, strings.Join(e.Tags, ","))
	}
	return tw.Flush()
}
