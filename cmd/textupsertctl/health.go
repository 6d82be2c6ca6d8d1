package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var errUnhealthy = errors.New("service is unhealthy")

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show component health; exits non-zero when unhealthy",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	h, err := c.Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if jsonOut {
		if err := printJSON(cmd, h); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "status: %s\n", h.Status)
		names := make([]string, 0, len(h.Services))
		for name := range h.Services {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "  %-18s %s\n", name, h.Services[name])
		}
	}

	if !h.Healthy() {
		return errUnhealthy
	}
	return nil
}
