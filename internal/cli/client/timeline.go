package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// TimelineEntry represents one record in the timeline view.
type TimelineEntry struct {
	ID        string     `json:"id"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Channel   string     `json:"channel"`
	Title     string     `json:"title,omitempty"`
	Text      string     `json:"text"`
}

// TimelineResponse represents the timeline API response.
type TimelineResponse struct {
	Entries    []TimelineEntry `json:"entries"`
	NextCursor string          `json:"next_cursor,omitempty"`
	HasMore    bool            `json:"has_more"`
}

// TimelineCmd creates the timeline command.
func TimelineCmd() *cobra.Command {
	var (
		customerID string
		channel    string
		threadID   string
		limit      int
		cursor     string
	)

	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "List memory records chronologically",
		Long:  "Lists records newest first with cursor-based paging.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			q := url.Values{}
			if customer := DefaultCustomerID(customerID); customer != "" {
				q.Set("customer_id", customer)
			}
			if channel != "" {
				q.Set("channel", channel)
			}
			if threadID != "" {
				q.Set("thread_id", threadID)
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			if cursor != "" {
				q.Set("cursor", cursor)
			}

			path := "/timeline"
			if encoded := q.Encode(); encoded != "" {
				path += "?" + encoded
			}

			resp, err := api.Get(path)
			if err != nil {
				return fmt.Errorf("timeline failed: %w", err)
			}

			var page TimelineResponse
			if err := json.Unmarshal(resp.Data, &page); err != nil {
				return fmt.Errorf("failed to parse timeline: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(page, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			if len(page.Entries) == 0 {
				fmt.Println("No records found.")
				return nil
			}

			for _, entry := range page.Entries {
				ts := "-"
				if entry.Timestamp != nil {
					ts = entry.Timestamp.Format("2006-01-02 15:04")
				}
				title := entry.Title
				if title == "" {
					title = entry.Text
				}
				if len(title) > 60 {
					title = title[:57] + "..."
				}
				fmt.Printf("%s  [%s]  %s  (%s)\n", ts, entry.Channel, title, entry.ID)
			}
			if page.HasMore && page.NextCursor != "" {
				fmt.Printf("\nMore records available. Use --cursor %s\n", page.NextCursor)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&customerID, "customer", "", "Customer id (defaults to configured customer)")
	cmd.Flags().StringVarP(&channel, "channel", "c", "", "Filter by channel")
	cmd.Flags().StringVar(&threadID, "thread", "", "Filter by thread id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}
