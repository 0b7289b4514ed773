package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"studio/internal/domain"
	"studio/internal/gallery"
	"studio/internal/studio"
)

func (c *cli) galleryCmd() *cobra.Command {
	var (
		limit int
		pages int
		all   bool
		focus int
	)
	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "List successful generations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.client()
			if err != nil {
				return err
			}
			session := studio.NewSession()

			cursor := ""
			hasMore := false
			for page := 0; all || page < pages; page++ {
				p, err := api.Gallery(cmd.Context(), limit, cursor)
				if err != nil {
					return fmt.Errorf("failed to load gallery: %w", err)
				}
				session.Append(p.Items)
				hasMore = p.HasMore
				if !p.HasMore || p.NextCursor == "" {
					break
				}
				cursor = p.NextCursor
			}

			items := session.Gallery()
			if len(items) == 0 {
				cmd.Println("No generations yet.")
				return nil
			}
			for i, item := range items {
				printGalleryItem(cmd, i, item)
			}
			if hasMore {
				cmd.Printf("%s\n", dim(fmt.Sprintf("More available: --pages %d", pages+1)))
			}

			if focus >= 0 {
				if err := session.Focus(focus); err != nil {
					return err
				}
				item, _ := session.Focused()
				cmd.Println()
				cmd.Printf("%s %s\n", bold("Focused:"), item.ID)
				for _, u := range item.ResultURLs {
					cmd.Printf("  %s\n", u)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", gallery.DefaultLimit, "items per page")
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	cmd.Flags().BoolVar(&all, "all", false, "load every page")
	cmd.Flags().IntVar(&focus, "focus", -1, "show every result url of the item at this index")
	return cmd
}

func printGalleryItem(cmd *cobra.Command, index int, item domain.GalleryItem) {
	kind := cyan(string(item.Type))
	if item.Type == domain.MediaVideo {
		kind = yellow(string(item.Type))
	}
	when := time.UnixMilli(item.Timestamp).Local().Format("2006-01-02 15:04")
	cmd.Printf("%3d  %s  %-5s  %s %s  %d result(s)  %s\n",
		index, dim(when), kind, item.Resolution, item.AspectRatio, len(item.ResultURLs), item.Prompt)
}
