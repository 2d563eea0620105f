package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func InitCmd() *cobra.Command {
	var apiKey string
	var apiURL string
	var customerID string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Configure the memoir CLI",
		Long:  "Verifies the server is reachable and stores the API URL, key, and default customer id in the global config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runInit(apiKey, apiURL, customerID, outputJSON)
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key for authentication (omit if the server runs without auth)")
	cmd.Flags().StringVar(&apiURL, "api-url", defaultAPIURL, "API base URL")
	cmd.Flags().StringVar(&customerID, "customer", "", "Default customer id for ingest and search commands")

	return cmd
}

func runInit(apiKey, apiURL, customerID string, outputJSON bool) error {
	api, err := NewAPIClientWithConfig(apiKey, apiURL)
	if err != nil {
		return err
	}

	if _, err := api.Get("/health"); err != nil {
		return fmt.Errorf("server not reachable at %s: %w", apiURL, err)
	}

	cfg := &GlobalConfig{
		APIKey:     apiKey,
		APIURL:     apiURL,
		CustomerID: customerID,
	}
	if err := SaveGlobalConfig(cfg); err != nil {
		return err
	}

	configPath, _ := GetConfigPath()
	if outputJSON {
		result := map[string]interface{}{
			"success": true,
			"api_url": apiURL,
			"config":  configPath,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("Connected to %s\n", apiURL)
		fmt.Printf("Config saved to %s\n", configPath)
	}

	return nil
}
