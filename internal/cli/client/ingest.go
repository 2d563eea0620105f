package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// IngestResult represents the ingestion API response.
type IngestResult struct {
	IDs    []string `json:"ids"`
	Chunks int      `json:"chunks"`
}

// IngestCmd creates the ingest command and its per-channel subcommands.
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest content into memory",
		Long:  "Ingests text, files, emails, audio, or images through the channel-specific endpoints.",
	}

	cmd.AddCommand(ingestTextCmd())
	cmd.AddCommand(ingestFileCmd())
	cmd.AddCommand(ingestEmailCmd())
	cmd.AddCommand(ingestAudioCmd())
	cmd.AddCommand(ingestImageCmd())

	return cmd
}

func ingestTextCmd() *cobra.Command {
	var customerID, title, threadID string

	cmd := &cobra.Command{
		Use:   "text <text>",
		Short: "Ingest a free-text note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			customer := DefaultCustomerID(customerID)
			if customer == "" {
				return fmt.Errorf("customer id required (--customer or 'memoir init --customer')")
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			body := map[string]interface{}{
				"customer_id": customer,
				"title":       title,
				"text":        args[0],
			}
			if threadID != "" {
				body["thread_id"] = threadID
			}

			resp, err := api.Post("/ingest/text", body)
			if err != nil {
				return fmt.Errorf("ingest failed: %w", err)
			}
			return printIngestResult(resp.Data, outputJSON)
		},
	}

	cmd.Flags().StringVar(&customerID, "customer", "", "Customer id (defaults to configured customer)")
	cmd.Flags().StringVar(&title, "title", "", "Title for the note")
	cmd.Flags().StringVar(&threadID, "thread", "", "Thread id")

	return cmd
}

func ingestFileCmd() *cobra.Command {
	return mediaIngestCmd("file", "Ingest a document file", "/ingest/file", nil)
}

func ingestAudioCmd() *cobra.Command {
	var transcript string
	cmd := mediaIngestCmd("audio", "Ingest an audio recording", "/ingest/audio", func() map[string]string {
		return map[string]string{"transcript": transcript}
	})
	cmd.Flags().StringVar(&transcript, "transcript", "", "Caller-supplied transcript (skips server-side transcription)")
	return cmd
}

func ingestImageCmd() *cobra.Command {
	var caption string
	cmd := mediaIngestCmd("image", "Ingest an image", "/ingest/image", func() map[string]string {
		return map[string]string{"caption": caption}
	})
	cmd.Flags().StringVar(&caption, "caption", "", "Caller-supplied caption (skips server-side description)")
	return cmd
}

// mediaIngestCmd builds the shared multipart upload command used by the
// file, audio, and image channels. extraFields, when non-nil, is read at
// run time so flag values are bound.
func mediaIngestCmd(use, short, path string, extraFields func() map[string]string) *cobra.Command {
	var customerID, threadID string

	cmd := &cobra.Command{
		Use:   use + " <path>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			customer := DefaultCustomerID(customerID)
			if customer == "" {
				return fmt.Errorf("customer id required (--customer or 'memoir init --customer')")
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			fields := map[string]string{
				"customer_id": customer,
				"thread_id":   threadID,
			}
			if extraFields != nil {
				for k, v := range extraFields() {
					fields[k] = v
				}
			}

			resp, err := api.PostMultipart(path, args[0], fields)
			if err != nil {
				return fmt.Errorf("ingest failed: %w", err)
			}
			return printIngestResult(resp.Data, outputJSON)
		},
	}

	cmd.Flags().StringVar(&customerID, "customer", "", "Customer id (defaults to configured customer)")
	cmd.Flags().StringVar(&threadID, "thread", "", "Thread id")

	return cmd
}

func ingestEmailCmd() *cobra.Command {
	var customerID, subject, messageID, inReplyTo, threadID string

	cmd := &cobra.Command{
		Use:   "email <body>",
		Short: "Ingest an email message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			customer := DefaultCustomerID(customerID)
			if customer == "" {
				return fmt.Errorf("customer id required (--customer or 'memoir init --customer')")
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			body := map[string]interface{}{
				"customer_id": customer,
				"subject":     subject,
				"body":        args[0],
			}
			if messageID != "" {
				body["message_id"] = messageID
			}
			if inReplyTo != "" {
				body["in_reply_to"] = inReplyTo
			}
			if threadID != "" {
				body["thread_id"] = threadID
			}

			resp, err := api.Post("/ingest/email", body)
			if err != nil {
				return fmt.Errorf("ingest failed: %w", err)
			}
			return printIngestResult(resp.Data, outputJSON)
		},
	}

	cmd.Flags().StringVar(&customerID, "customer", "", "Customer id (defaults to configured customer)")
	cmd.Flags().StringVar(&subject, "subject", "", "Email subject")
	cmd.Flags().StringVar(&messageID, "message-id", "", "Email Message-ID header")
	cmd.Flags().StringVar(&inReplyTo, "in-reply-to", "", "Email In-Reply-To header")
	cmd.Flags().StringVar(&threadID, "thread", "", "Thread id")

	return cmd
}

func printIngestResult(data json.RawMessage, outputJSON bool) error {
	var result IngestResult
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if result.Chunks == 0 {
		fmt.Println("No indexable text found; nothing was stored.")
		return nil
	}
	fmt.Printf("Ingested %d chunk(s):\n", result.Chunks)
	for _, id := range result.IDs {
		fmt.Printf("  %s\n", id)
	}
	return nil
}
