package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"studio/internal/domain"
	"studio/internal/poller"
	"studio/internal/studio"
)

func (c *cli) watchCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch [generation_id]",
		Short: "Follow a generation until it succeeds or fails",
		Long: `Poll a generation until it reaches a terminal status. Transient read
failures are retried a few times before giving up. The command exits non-zero
when the generation fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.client()
			if err != nil {
				return err
			}
			return watchGeneration(cmd, api, studio.NewSession(), args[0], interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", poller.DefaultInterval, "polling interval")
	return cmd
}

// watchGeneration blocks until id is terminal or the command context ends.
// A successful generation is added to session and printed.
func watchGeneration(cmd *cobra.Command, fetcher poller.Fetcher, session *studio.Session, id string, interval time.Duration) error {
	ctx := cmd.Context()
	p := poller.New(fetcher, poller.Options{Interval: interval})

	var (
		last   domain.GenerationStatus
		result error
	)
	p.Start(ctx, id, poller.Callbacks{
		OnUpdate: func(g *domain.Generation) {
			if g.Status != last {
				last = g.Status
				cmd.Printf("%s %s\n", colorizeStatus(g.Status), dim(g.ID))
			}
		},
		OnSuccess: func(g *domain.Generation) {
			session.AddGeneration(*g)
			_ = session.Focus(0)
			printGeneration(cmd, g)
		},
		OnError: func(message string) {
			cmd.Printf("%s %s\n", red("✗"), message)
			result = errors.New(message)
		},
	})

	select {
	case <-p.Done():
		return result
	case <-ctx.Done():
		p.Stop()
		return ctx.Err()
	}
}
