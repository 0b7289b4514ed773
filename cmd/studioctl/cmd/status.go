package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"studio/internal/domain"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
)

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [generation_id]",
		Short: "Show the current state of a generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.client()
			if err != nil {
				return err
			}
			g, err := api.Generation(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to load generation: %w", err)
			}
			printGeneration(cmd, g)
			return nil
		},
	}
}

func printGeneration(cmd *cobra.Command, g *domain.Generation) {
	cmd.Printf("%s %s\n", statusIcon(g.Status), bold("Generation Details"))
	cmd.Println("──────────────────────────────")
	cmd.Printf("%s          %s\n", dim("ID:"), g.ID)
	cmd.Printf("%s        %s\n", dim("Type:"), g.Kind)
	cmd.Printf("%s      %s\n", dim("Status:"), colorizeStatus(g.Status))
	cmd.Printf("%s      %s\n", dim("Prompt:"), g.Prompt)
	cmd.Printf("%s       %s %s, %s, %d variation(s)\n", dim("Setup:"), g.ModelTier, g.Resolution, g.AspectRatio, g.VariationCount)
	cmd.Printf("%s     %s\n", dim("Created:"), formatTime(&g.CreatedAt))
	if g.CompletedAt != nil {
		cmd.Printf("%s    %s %s\n", dim("Finished:"), formatTime(g.CompletedAt), cyan("("+formatDuration(g.CompletedAt.Sub(g.CreatedAt))+")"))
	}
	if msg := g.Failure(); msg != "" {
		cmd.Printf("%s       %s\n", dim("Error:"), red(msg))
	}
	for i, u := range g.ResultURLs {
		cmd.Printf("%s   %s\n", dim(fmt.Sprintf("Result %d:", i+1)), u)
	}
}

func statusIcon(status domain.GenerationStatus) string {
	switch status {
	case domain.StatusSuccess:
		return green("✓")
	case domain.StatusError:
		return red("✗")
	case domain.StatusProcessing:
		return yellow("⏳")
	case domain.StatusPending:
		return cyan("◯")
	}
	return "•"
}

func colorizeStatus(status domain.GenerationStatus) string {
	label := string(status)
	switch status {
	case domain.StatusSuccess:
		label = green(label)
	case domain.StatusError:
		label = red(label)
	case domain.StatusProcessing:
		label = yellow(label)
	case domain.StatusPending:
		label = cyan(label)
	}
	return statusIcon(status) + " " + label
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("Mon, 02 Jan 2006 15:04:05 MST")
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
