package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query   string        `json:"query"`
	TopK    int           `json:"top_k,omitempty"`
	Filters SearchFilters `json:"filters"`
}

// SearchFilters restricts a search to exact metadata matches.
type SearchFilters struct {
	CustomerID string `json:"customer_id,omitempty"`
	Channel    string `json:"channel,omitempty"`
	ThreadID   string `json:"thread_id,omitempty"`
}

// SearchHit represents one ranked result.
type SearchHit struct {
	ID       string                 `json:"id"`
	Score    float32                `json:"score"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Results []SearchHit `json:"results"`
	Answer  string      `json:"answer,omitempty"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		customerID string
		channel    string
		threadID   string
		topK       int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search memory",
		Long:  "Runs a hybrid semantic and keyword search and synthesizes an answer.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSearch(cmd, args[0], customerID, channel, threadID, topK, outputJSON)
		},
	}

	cmd.Flags().StringVar(&customerID, "customer", "", "Customer id (defaults to configured customer)")
	cmd.Flags().StringVarP(&channel, "channel", "c", "", "Filter by channel (text, file, email, chat, audio, image)")
	cmd.Flags().StringVar(&threadID, "thread", "", "Filter by thread id")
	cmd.Flags().IntVarP(&topK, "top-k", "n", 5, "Results per retrieval leg")

	return cmd
}

func runSearch(cmd *cobra.Command, query, customerID, channel, threadID string, topK int, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	req := SearchRequest{
		Query: query,
		TopK:  topK,
		Filters: SearchFilters{
			CustomerID: DefaultCustomerID(customerID),
			Channel:    channel,
			ThreadID:   threadID,
		},
	}

	resp, err := api.Post("/search", req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if searchResp.Answer != "" {
		fmt.Println(searchResp.Answer)
		fmt.Println()
	}

	if len(searchResp.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(searchResp.Results))
	for i, hit := range searchResp.Results {
		text := hit.Text
		if len(text) > 100 {
			text = text[:97] + "..."
		}
		fmt.Printf("%d. (%.2f) %s\n", i+1, hit.Score, text)
		fmt.Printf("   ID: %s\n", hit.ID)
		if i < len(searchResp.Results)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}
