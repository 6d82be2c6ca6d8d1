package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/textupsert/pkg/client"
)

var (
	serverURL string
	apiToken  string
	timeout   time.Duration
	jsonOut   bool
)

var rootCmd = &cobra.Command{
	Use:           "textupsertctl",
	Short:         "Command-line client for the textupsert API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", envOr("TEXTUPSERT_URL", "http://localhost:8088"),
		"server base URL (env TEXTUPSERT_URL)")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("API_BEARER_TOKEN"),
		"bearer token (env API_BEARER_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 60*time.Second, "request timeout")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print raw JSON")
}

func newClient() (*client.Client, error) {
	return client.New(serverURL, client.WithToken(apiToken), client.WithTimeout(timeout))
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
