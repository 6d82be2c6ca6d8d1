package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/textupsert/pkg/client"
)

var (
	upsertText     string
	upsertFile     string
	upsertID       string
	upsertMetadata string
)

var upsertCmd = &cobra.Command{
	Use:   "upsert",
	Short: "Embed a text and upsert it into the collection",
	Long: `Embeds a text and upserts it as one document.

The text comes from --text or --file ("-" reads stdin). --metadata takes a
JSON object; lists and nested objects are converted by the server.`,
	Example: `  textupsertctl upsert --text "Invoice 2024-118" --metadata '{"source":"mail"}'
  cat note.txt | textupsertctl upsert --file - --id note-1`,
	Args: cobra.NoArgs,
	RunE: runUpsert,
}

func init() {
	upsertCmd.Flags().StringVar(&upsertText, "text", "", "text to upsert")
	upsertCmd.Flags().StringVar(&upsertFile, "file", "", "read the text from a file, - for stdin")
	upsertCmd.Flags().StringVar(&upsertID, "id", "", "document id (generated by the server when empty)")
	upsertCmd.Flags().StringVar(&upsertMetadata, "metadata", "", "metadata as a JSON object")
	upsertCmd.MarkFlagsMutuallyExclusive("text", "file")
	rootCmd.AddCommand(upsertCmd)
}

func runUpsert(cmd *cobra.Command, _ []string) error {
	text, err := readText(cmd)
	if err != nil {
		return err
	}

	req := client.UpsertTextRequest{Text: text, ID: upsertID}
	if upsertMetadata != "" {
		if err := json.Unmarshal([]byte(upsertMetadata), &req.Metadata); err != nil {
			return fmt.Errorf("--metadata must be a JSON object: %w", err)
		}
	}

	c, err := newClient()
	if err != nil {
		return err
	}

	res, err := c.UpsertText(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("upsert failed: %w", err)
	}
	if jsonOut {
		return printJSON(cmd, res)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "upserted %s (%.1f ms)\n", res.ID(), res.ProcessingTimeMS)
	return nil
}

func readText(cmd *cobra.Command) (string, error) {
	switch {
	case upsertText != "":
		return upsertText, nil
	case upsertFile == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	case upsertFile != "":
		data, err := os.ReadFile(upsertFile)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", upsertFile, err)
		}
		return string(data), nil
	default:
		return "", errors.New("one of --text or --file is required")
	}
}
