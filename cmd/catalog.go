package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/victornm/livequiz/internal/catalog"
)

// newCatalogCmd checks a task deck and prints it in normalized form, so a deck
// can be validated before the server is pointed at it.
func newCatalogCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Validate a task deck and print it normalized.",
		Long:  "Validate a task deck and print it normalized. Without --file the built-in deck is printed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := catalog.Load(catalog.Config{Path: path})
			if err != nil {
				return err
			}

			b, err := c.Encode()
			if err != nil {
				return fmt.Errorf("catalog: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "file", "f", "", "path to a JSON array of task envelopes")

	return cmd
}
