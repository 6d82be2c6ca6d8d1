package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the collection name, document count and sample documents",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, _ []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	info, err := c.CollectionInfo(cmd.Context())
	if err != nil {
		return fmt.Errorf("collection info failed: %w", err)
	}
	if jsonOut {
		return printJSON(cmd, info)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "collection: %s\n", info.CollectionName)
	fmt.Fprintf(out, "documents:  %d\n", info.DocumentCount)
	if len(info.SampleDocuments) == 0 {
		return nil
	}
	fmt.Fprintln(out, "samples:")
	for i, s := range info.SampleDocuments {
		fmt.Fprintf(out, "  [%d] %s\n      %s\n", i+1, s.ID, s.Document)
	}
	return nil
}
