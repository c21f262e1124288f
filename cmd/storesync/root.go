package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/itsneelabh/storesync"
	"github.com/itsneelabh/storesync/api"
	"github.com/itsneelabh/storesync/core"
)

// cli holds the state shared by every subcommand.
type cli struct {
	envFile    string
	configFile string
	baseURL    string
	token      string
	devMode    bool
	logOutput  string

	client *storesync.Client
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "storesync",
		Short:         "Storefront sync client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return c.connect()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if c.client == nil {
				return nil
			}
			return c.client.Close(context.Background())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	flags.StringVar(&c.configFile, "config", "", "JSON or YAML configuration file")
	flags.StringVar(&c.baseURL, "base-url", "", "backend base URL (overrides STORESYNC_API_BASE_URL)")
	flags.StringVar(&c.token, "token", "", "session token (defaults to STORESYNC_TOKEN)")
	flags.BoolVar(&c.devMode, "dev", false, "human-readable debug logging")
	flags.StringVar(&c.logOutput, "log-output", "stderr", "log destination: stdout, stderr or a file path")

	root.AddCommand(
		c.versionCommand(),
		c.loginCommand(),
		c.logoutCommand(),
		c.catalogCommand(),
		c.productCommand(),
		c.cartCommand(),
		c.addCommand(),
		c.setQuantityCommand(),
		c.removeCommand(),
		c.ordersCommand(),
		c.placeCommand(),
		c.cancelCommand(),
		c.wishlistCommand(),
	)
	return root
}

// connect loads the environment and configuration and builds the client.
func (c *cli) connect() error {
	if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	opts := []core.Option{core.WithLogOutput(c.logOutput)}
	if c.configFile != "" {
		opts = append(opts, core.WithConfigFile(c.configFile))
	}
	if c.baseURL != "" {
		opts = append(opts, core.WithBaseURL(c.baseURL))
	}
	if c.devMode {
		opts = append(opts, core.WithDevelopmentMode(true))
	}

	cfg, err := core.NewConfig(opts...)
	if err != nil {
		return err
	}
	client, err := storesync.New(cfg, storesync.WithUnauthorizedHandler(func(*api.Session, error) {
		os.Stderr.WriteString("Session expired. Run `storesync login` again.\n")
	}))
	if err != nil {
		return err
	}
	c.client = client
	return nil
}

// session returns the session named by --token or STORESYNC_TOKEN.
func (c *cli) session() (*api.Session, error) {
	token := c.token
	if token == "" {
		token = os.Getenv("STORESYNC_TOKEN")
	}
	if token == "" {
		return nil, &core.FrameworkError{
			Op:      "cli.session",
			Kind:    "auth",
			Message: "no session token; run `storesync login` and export STORESYNC_TOKEN",
			Err:     core.ErrNotAuthenticated,
		}
	}
	return &api.Session{Token: token}, nil
}
