// Package cli defines the cobra commands of the classroom participant CLI.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/Classroom/internal/peer"
)

var (
	serverURL string
	org       string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:           "classroom",
	Short:         "Join and drive classroom sessions from a terminal",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		lvl, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		zerolog.SetGlobalLevel(lvl)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		return nil
	},
}

// Execute runs the root command. Called from main.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cancel()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newAPI() (*peer.API, error) {
	return peer.NewAPI(serverURL, nil)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "coordination service base URL")
	rootCmd.PersistentFlags().StringVar(&org, "org", "", "organization scope for room codes")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "zerolog level")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(joinCmd)
}
