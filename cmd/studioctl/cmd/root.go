package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"studio/internal/client"
)

const defaultURL = "http://localhost:8080"

type cli struct {
	v       *viper.Viper
	cfgFile string
}

// NewRootCmd builds a fresh command tree with its own configuration.
func NewRootCmd() *cobra.Command {
	root, _ := newRoot()
	return root
}

func newRoot() (*cobra.Command, *cli) {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "studioctl",
		Short: "studioctl submits and follows creative studio generations",
		Long: `studioctl is the command-line client of the creative studio API.

Generations run asynchronously: a submit returns a generation id right away
and the job is picked up by a background worker.

Common workflows:

  Generate images:
    studioctl image "a lighthouse at dusk" --variations 4 --aspect 16:9 --wait

  Edit uploaded images:
    studioctl edit "add falling snow" --resource <resource-id>

  Generate a video:
    studioctl video "waves rolling onto a beach" --resolution 1080p

  Follow a generation until it finishes:
    studioctl watch <generation-id>

  Browse results:
    studioctl gallery --pages 2

Configuration:
  Flags, environment variables or $HOME/.studioctl.yaml:
    STUDIO_URL     API endpoint (default: http://localhost:8080)
    STUDIO_TOKEN   Bearer token for authentication`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initConfig(cmd)
		},
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default is $HOME/.studioctl.yaml)")
	root.PersistentFlags().String("url", defaultURL, "studio API URL")
	root.PersistentFlags().StringP("token", "t", "", "API token for authentication")
	_ = c.v.BindPFlag("url", root.PersistentFlags().Lookup("url"))
	_ = c.v.BindPFlag("token", root.PersistentFlags().Lookup("token"))

	root.AddCommand(
		c.imageCmd(),
		c.editCmd(),
		c.videoCmd(),
		c.statusCmd(),
		c.watchCmd(),
		c.galleryCmd(),
		c.archiveCmd(),
	)
	return root, c
}

// Execute runs the CLI; an interrupt cancels in-flight requests and watches.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

func (c *cli) initConfig(cmd *cobra.Command) error {
	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		c.v.AddConfigPath(home)
		c.v.SetConfigName(".studioctl")
		c.v.SetConfigType("yaml")
	}

	c.v.SetEnvPrefix("STUDIO")
	c.v.AutomaticEnv()

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if c.cfgFile != "" && !errors.As(err, &notFound) {
			return err
		}
	}
	return nil
}

func (c *cli) client() (*client.Client, error) {
	token := strings.TrimSpace(c.v.GetString("token"))
	if token == "" {
		return nil, errors.New("API token not found. Set it with --token or the STUDIO_TOKEN environment variable")
	}
	return client.New(c.v.GetString("url"), token), nil
}
