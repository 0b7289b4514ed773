package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func (c *cli) archiveCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "archive [generation_id]",
		Short: "Download every result of a generation as a zip file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.client()
			if err != nil {
				return err
			}
			id := args[0]
			if output == "" {
				output = fmt.Sprintf("generation-%s.zip", id)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := api.Archive(cmd.Context(), id, f); err != nil {
				_ = f.Close()
				_ = os.Remove(output)
				return fmt.Errorf("download failed: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			cmd.Printf("%s Saved %s\n", green("✓"), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default generation-<id>.zip)")
	return cmd
}
