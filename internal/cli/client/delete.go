package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// DeleteCmd creates the delete command.
func DeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a memory record",
		Long:  "Removes one record from the vector store and the keyword index.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Delete("/memory/" + args[0])
			if err != nil {
				return fmt.Errorf("delete failed: %w", err)
			}

			if outputJSON {
				var result map[string]string
				if err := json.Unmarshal(resp.Data, &result); err != nil {
					return fmt.Errorf("failed to parse response: %w", err)
				}
				output, _ := json.MarshalIndent(result, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}

	return cmd
}
