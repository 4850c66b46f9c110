// cmd/server/main.go runs the arena game server.
//
// Usage:
//
//	arena [serve]                 - Start the HTTP and websocket server (default)
//	arena migrate                 - Create the postgres or sqlite schema and exit
//	arena matches                 - Print recent matches from the sqlite store
//	arena rating <user-id>        - Print a registered player's rating from postgres
//	arena token <user-id> <name>  - Issue an auth token for a registered player
//
// Configuration comes from the environment; a .env file is loaded first.
package main

import (
	"fmt"
	"os"

	"github.com/jason-s-yu/arena/internal/config"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	flagPort    string
	flagBackend string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "arena",
	Short: "Real-time paddle and falling-blocks game server",
	Long: `arena hosts paddle and falling-blocks matches in rooms: against the
computer, on a shared keyboard, over the network, and as single-elimination
paddle tournaments. Finished matches are persisted through PERSIST_BACKEND.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "Persistence backend: postgres, sqlite, redis or none (overrides PERSIST_BACKEND)")
	rootCmd.Flags().StringVar(&flagPort, "port", "", "Listen port (overrides PORT)")
	serveCmd.Flags().StringVar(&flagPort, "port", "", "Listen port (overrides PORT)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(matchesCmd)
	rootCmd.AddCommand(ratingCmd)
	rootCmd.AddCommand(tokenCmd)
}

// loadConfig reads the environment and applies command-line overrides.
func loadConfig() config.Config {
	cfg := config.FromEnv()
	if flagPort != "" {
		cfg.Port = flagPort
	}
	if flagBackend != "" {
		cfg.PersistBackend = flagBackend
	}
	return cfg
}

func newLogger(level string) *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.WithField("level", level).Warn("unknown LOG_LEVEL, using info")
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logrus.NewEntry(logger).WithField("service", "arena")
}
