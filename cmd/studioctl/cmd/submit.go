package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"studio/internal/client"
	"studio/internal/domain"
	"studio/internal/poller"
	"studio/internal/studio"
)

type submitOptions struct {
	tier       string
	resolution string
	aspect     string
	variations int
	resources  []string
	startFrame string
	wait       bool
	interval   time.Duration
}

func (o *submitOptions) addWaitFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&o.wait, "wait", "w", false, "follow the generation until it finishes")
	cmd.Flags().DurationVar(&o.interval, "interval", poller.DefaultInterval, "status polling interval with --wait")
}

func (o *submitOptions) addImageFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.tier, "tier", "", "model tier: Basic or Pro (default Basic)")
	cmd.Flags().StringVar(&o.resolution, "resolution", "", "output resolution: 1K, 2K or 4K")
	cmd.Flags().StringVar(&o.aspect, "aspect", "", "aspect ratio, e.g. 1:1, 16:9, 9:16")
	cmd.Flags().IntVarP(&o.variations, "variations", "n", 0, "number of variations: 1, 2 or 4")
}

func (c *cli) imageCmd() *cobra.Command {
	opts := &submitOptions{}
	cmd := &cobra.Command{
		Use:   "image [prompt]",
		Short: "Generate images from a prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.submit(cmd, studio.ModeGenerate, strings.Join(args, " "), opts)
		},
	}
	opts.addImageFlags(cmd)
	opts.addWaitFlags(cmd)
	return cmd
}

func (c *cli) editCmd() *cobra.Command {
	opts := &submitOptions{}
	cmd := &cobra.Command{
		Use:   "edit [prompt]",
		Short: "Edit uploaded source images",
		Long:  `Edit one or more previously uploaded resources. Each variation receives every source image.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.submit(cmd, studio.ModeEdit, strings.Join(args, " "), opts)
		},
	}
	opts.addImageFlags(cmd)
	cmd.Flags().StringSliceVarP(&opts.resources, "resource", "r", nil, "resource id of a source image (repeatable)")
	_ = cmd.MarkFlagRequired("resource")
	opts.addWaitFlags(cmd)
	return cmd
}

func (c *cli) videoCmd() *cobra.Command {
	opts := &submitOptions{}
	cmd := &cobra.Command{
		Use:   "video [prompt]",
		Short: "Generate a video from a prompt",
		Long:  `Generate a single video. Videos always use the Pro model; an optional uploaded resource becomes the first frame.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.submit(cmd, studio.ModeVideo, strings.Join(args, " "), opts)
		},
	}
	cmd.Flags().StringVar(&opts.resolution, "resolution", "", "output resolution: 720p or 1080p")
	cmd.Flags().StringVar(&opts.aspect, "aspect", "", "aspect ratio: 16:9 or 9:16")
	cmd.Flags().StringVar(&opts.startFrame, "start-frame", "", "resource id used as the first frame")
	opts.addWaitFlags(cmd)
	return cmd
}

func (c *cli) submit(cmd *cobra.Command, mode studio.Mode, prompt string, opts *submitOptions) error {
	api, err := c.client()
	if err != nil {
		return err
	}
	session := studio.NewSession()
	session.SetMode(mode)

	ctx := cmd.Context()
	var id string
	switch session.Mode().Kind() {
	case domain.KindVideo:
		id, err = api.GenerateVideo(ctx, client.VideoRequest{
			Prompt:      prompt,
			Resolution:  opts.resolution,
			AspectRatio: opts.aspect,
			ResourceID:  opts.startFrame,
		})
	case domain.KindEdit:
		id, err = api.EditImages(ctx, imageRequest(prompt, opts))
	default:
		id, err = api.GenerateImages(ctx, imageRequest(prompt, opts))
	}
	if err != nil {
		return fmt.Errorf("submit failed: %w", err)
	}

	cmd.Printf("%s Submitted %s generation %s\n", green("✓"), session.Mode(), bold(id))
	if !opts.wait {
		cmd.Printf("%s\n", dim("Follow it with: studioctl watch "+id))
		return nil
	}
	return watchGeneration(cmd, api, session, id, opts.interval)
}

func imageRequest(prompt string, opts *submitOptions) client.ImageRequest {
	return client.ImageRequest{
		Prompt:      prompt,
		ModelTier:   opts.tier,
		Resolution:  opts.resolution,
		AspectRatio: opts.aspect,
		Variations:  opts.variations,
		ResourceIDs: opts.resources,
	}
}
