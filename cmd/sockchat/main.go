package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts chatOptions

	cmd := &cobra.Command{
		Use:   "sockchat",
		Short: "Interactive chat client",
		Long: `sockchat connects to a chat server, registers a username and drops
into an interactive prompt for private and group messaging.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVarP(&opts.serverURL, "server", "s", "", "websocket server URL")
	cmd.Flags().StringVarP(&opts.username, "user", "u", "", "username to register on connect")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	return cmd
}
